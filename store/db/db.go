package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/tutorvoice/internal/profile"
	"github.com/hrygo/tutorvoice/store"
	"github.com/hrygo/tutorvoice/store/db/postgres"
	"github.com/hrygo/tutorvoice/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
// The "memory" driver has no SQL backing and is handled by the session package.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
