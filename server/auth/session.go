// Package auth issues and verifies the signed cookie that carries a browser's session id.
package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	aierrors "github.com/hrygo/tutorvoice/server/internal/errors"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "tutorvoice_session"
	// Issuer is the iss claim of session tokens.
	Issuer = "tutorvoice"
	// KeyID is the kid header of session tokens.
	KeyID = "v1"
)

// SessionClaims is the claims of a session token. The subject is the session id.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionManager signs and verifies session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionManager creates a SessionManager. secure marks cookies Secure.
func NewSessionManager(secret string, ttl time.Duration, secure bool) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}, nil
}

// NewSessionID returns a fresh opaque session id.
func NewSessionID() string {
	return shortuuid.New()
}

// Issue signs a token for sessionID.
func (m *SessionManager) Issue(sessionID string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = KeyID
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign session token")
	}
	return signed, expiresAt, nil
}

// Parse verifies a token and returns its session id. Rejections carry the
// UNAUTHORIZED code.
func (m *SessionManager) Parse(token string) (string, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if kid, ok := t.Header["kid"].(string); !ok || kid != KeyID {
				return nil, errors.Errorf("unexpected kid: %v", t.Header["kid"])
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", aierrors.Unauthorized("invalid session token", err)
	}
	if claims.Subject == "" {
		return "", aierrors.Unauthorized("session token has no subject", nil)
	}
	return claims.Subject, nil
}

// Cookie builds the session cookie for a signed token.
func (m *SessionManager) Cookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
