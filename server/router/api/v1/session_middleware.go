package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/tutorvoice/server/auth"
	aierrors "github.com/hrygo/tutorvoice/server/internal/errors"
	"github.com/hrygo/tutorvoice/server/internal/observability"
)

// Echo context keys set by the session middleware.
const (
	sessionIDKey    = "tutorvoice.session_id"
	sessionFreshKey = "tutorvoice.session_fresh"
)

// sessionMiddleware resolves the caller's session from the signed cookie.
// A missing, expired or tampered cookie starts a new session and sets a fresh
// cookie. It also attaches a RequestContext to the request.
func (s *APIV1Service) sessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID, fresh := s.resolveSession(c)
			if fresh {
				if err := s.setSessionCookie(c, sessionID); err != nil {
					slog.Error("failed to issue session cookie", "error", err)
					return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
				}
			}

			c.Set(sessionIDKey, sessionID)
			c.Set(sessionFreshKey, fresh)
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			rc := observability.NewRequestContextWithID(slog.Default(), requestID, c.Path(), sessionID)
			c.SetRequest(c.Request().WithContext(observability.WithRequestContext(c.Request().Context(), rc)))
			return next(c)
		}
	}
}

func (s *APIV1Service) resolveSession(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(auth.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return auth.NewSessionID(), true
	}
	sessionID, err := s.SessionManager.Parse(cookie.Value)
	if err != nil {
		slog.Debug("discarding session cookie",
			slog.String(observability.LogFieldErrorCode, string(aierrors.GetCodeFromError(err, aierrors.ErrCodeUnauthorized))),
			slog.String("error", err.Error()),
		)
		return auth.NewSessionID(), true
	}
	return sessionID, false
}

func (s *APIV1Service) setSessionCookie(c echo.Context, sessionID string) error {
	token, expiresAt, err := s.SessionManager.Issue(sessionID)
	if err != nil {
		return err
	}
	c.SetCookie(s.SessionManager.Cookie(token, expiresAt))
	return nil
}

// SessionIDFromContext returns the session id resolved by the session middleware.
func SessionIDFromContext(c echo.Context) string {
	sessionID, _ := c.Get(sessionIDKey).(string)
	return sessionID
}

// isFreshSession reports whether the session was created by this request.
func isFreshSession(c echo.Context) bool {
	fresh, _ := c.Get(sessionFreshKey).(bool)
	return fresh
}

// sessionKey keys rate limiting by session. A session minted by this request
// has no history with the limiter, so it is keyed by client address instead;
// otherwise a client that drops its cookie would get a full bucket every time.
func sessionKey(c echo.Context) string {
	if isFreshSession(c) {
		return "ip:" + c.RealIP()
	}
	return "session:" + SessionIDFromContext(c)
}
