package profile

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// LoadDotEnv copies the variables of a dotenv file into the process
// environment. Variables that are already set win. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to stat %s", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(key)
		if _, ok := os.LookupEnv(envKey); ok {
			continue
		}
		if err := os.Setenv(envKey, v.GetString(key)); err != nil {
			return errors.Wrapf(err, "failed to set %s", envKey)
		}
	}
	return nil
}
