package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/hrygo/tutorvoice/internal/profile"
	"github.com/hrygo/tutorvoice/plugin/ai/session"
	"github.com/hrygo/tutorvoice/server/auth"
	"github.com/hrygo/tutorvoice/server/middleware"
	"github.com/hrygo/tutorvoice/server/router/api/v1/tutor"
)

// APIV1Service serves the tutor's HTTP surface.
type APIV1Service struct {
	Profile        *profile.Profile
	Sessions       session.SessionService
	SessionManager *auth.SessionManager
	TurnService    *tutor.TurnService
	Translator     *tutor.Translator
	RateLimiter    *middleware.RateLimiter

	// Page is the chat page served on GET /.
	Page []byte
}

// RegisterRoutes registers the tutor routes on the given Echo instance.
//
//	GET  /           new conversation and the chat page
//	POST /chat       one tutor turn
//	POST /translate  stateless translation
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	withSession := s.sessionMiddleware()
	limited := []echo.MiddlewareFunc{withSession}
	if s.RateLimiter != nil {
		limited = append(limited, s.RateLimiter.Middleware(sessionKey))
	}

	echoServer.GET("/", s.Home, withSession)
	echoServer.POST("/chat", s.Chat, limited...)
	echoServer.POST("/translate", s.Translate, limited...)
}
