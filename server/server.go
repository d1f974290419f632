package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/tutorvoice/internal/profile"
	"github.com/hrygo/tutorvoice/plugin/ai"
	"github.com/hrygo/tutorvoice/plugin/ai/cache"
	"github.com/hrygo/tutorvoice/plugin/ai/session"
	"github.com/hrygo/tutorvoice/plugin/ai/timeout"
	"github.com/hrygo/tutorvoice/plugin/ai/window"
	"github.com/hrygo/tutorvoice/server/auth"
	"github.com/hrygo/tutorvoice/server/internal/observability"
	ratelimit "github.com/hrygo/tutorvoice/server/middleware"
	apiv1 "github.com/hrygo/tutorvoice/server/router/api/v1"
	"github.com/hrygo/tutorvoice/server/router/api/v1/tutor"
	"github.com/hrygo/tutorvoice/server/router/frontend"
	"github.com/hrygo/tutorvoice/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer   *echo.Echo
	metrics      *observability.Metrics
	sessions     session.SessionService
	sessionCache *cache.Service
	cleanupJob   *session.CleanupJob
}

// NewServer wires the tutor service. store may be nil, in which case sessions
// live in process memory.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
		metrics: observability.NewMetrics(),
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.JSONSerializer = apiv1.SonicJSONSerializer{}
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	echoServer.Use(requestLogger())
	echoServer.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))
	s.echoServer = echoServer

	// Healthz endpoint.
	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	aiConfig := ai.NewConfigFromProfile(profile)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}
	client := ai.NewClient(aiConfig)
	chatLLM, err := ai.NewLLMService(client, aiConfig.Chat)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chat service")
	}
	translateLLM, err := ai.NewLLMService(client, aiConfig.Translate)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create translate service")
	}
	speech, err := ai.NewSpeechService(client, aiConfig.Speech)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create speech service")
	}

	if store != nil {
		s.sessionCache = cache.NewService(cache.DefaultServiceConfig())
		s.sessions = session.NewSessionStore(store, s.sessionCache)
	} else {
		s.sessions = session.NewMemoryStore()
	}

	sessionManager, err := auth.NewSessionManager(profile.SessionSecret, profile.SessionTTL, !profile.IsDev())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session manager")
	}

	persona := profile.Persona
	if persona == "" {
		persona = tutor.DefaultPersona
	}
	turnService, err := tutor.NewTurnService(tutor.TurnServiceConfig{
		LLM:               chatLLM,
		Speech:            speech,
		Sessions:          s.sessions,
		Window:            window.NewBuilder(persona, profile.WindowSize),
		Metrics:           s.metrics,
		CompletionTimeout: profile.UpstreamTimeout,
		SpeechTimeout:     profile.UpstreamTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create turn service")
	}
	translator, err := tutor.NewTranslator(translateLLM, s.metrics, profile.UpstreamTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create translator")
	}

	apiV1Service := &apiv1.APIV1Service{
		Profile:        profile,
		Sessions:       s.sessions,
		SessionManager: sessionManager,
		TurnService:    turnService,
		Translator:     translator,
		RateLimiter:    ratelimit.NewRateLimiter(profile.RateLimit, profile.RateBurst),
		Page:           frontend.IndexHTML(),
	}
	apiV1Service.RegisterRoutes(echoServer)

	s.cleanupJob = session.NewCleanupJob(s.sessions, session.CleanupConfig{
		Retention: profile.SessionRetention,
		Schedule:  profile.CleanupSchedule,
	})

	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.Profile.Addr, strconv.Itoa(s.Profile.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	if err := s.cleanupJob.Start(ctx); err != nil {
		_ = listener.Close()
		return errors.Wrap(err, "failed to start session cleanup")
	}

	slog.Info("tutorvoice started", slog.String("address", listener.Addr().String()), slog.String("mode", s.Profile.Mode))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "failed to start echo server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout.ShutdownTimeout)
		defer cancel()
		s.Shutdown(shutdownCtx)
		return nil
	})
	return g.Wait()
}

func (s *Server) Shutdown(ctx context.Context) {
	slog.Info("server shutting down")

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	s.cleanupJob.Stop()
	if s.sessionCache != nil {
		s.sessionCache.Close()
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			slog.Error("failed to close database", slog.String("error", err.Error()))
		}
	}

	slog.Info("server stopped properly")
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String(observability.LogFieldRequestID, v.RequestID),
				slog.Int64(observability.LogFieldDuration, v.Latency.Milliseconds()),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}
