package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/tutorvoice/plugin/ai/timeout"
	"github.com/hrygo/tutorvoice/server/internal/observability"
)

// Home starts a new conversation for the caller and serves the chat page.
func (s *APIV1Service) Home(c echo.Context) error {
	sessionID := SessionIDFromContext(c)
	ctx := c.Request().Context()
	rc := observability.FromContextOrNew(ctx, "home", sessionID)

	storeCtx, cancel := context.WithTimeout(ctx, timeout.StorageTimeout)
	defer cancel()
	if err := s.Sessions.ResetHistory(storeCtx, sessionID); err != nil {
		rc.Error("failed to reset history", err)
		return c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}

	// Refresh the cookie so an active learner keeps the same session.
	if !isFreshSession(c) {
		if err := s.setSessionCookie(c, sessionID); err != nil {
			rc.Warn("failed to refresh session cookie", slog.String("error", err.Error()))
		}
	}

	rc.Debug("conversation reset")
	return c.HTMLBlob(http.StatusOK, s.Page)
}
