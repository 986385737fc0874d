package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Options зависимости HTTP-сервера
type Options struct {
	Address   string
	JWTSecret []byte
	Issuer    string
	Location  *time.Location
	Debug     bool

	Users     *service.UserService
	Matchings *service.MatchingService
	Bookings  *service.BookingService
	Chat      *service.ChatService
	Reviews   *service.ReviewService

	Logger *zap.Logger
}

// Server HTTP API и WebSocket-ленты
type Server struct {
	opts *Options
	app  *echo.Echo
	h    *handler
}

func NewServer(opts *Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	s := &Server{
		opts: opts,
		app:  echo.New(),
		h: &handler{
			users:     opts.Users,
			matchings: opts.Matchings,
			bookings:  opts.Bookings,
			chat:      opts.Chat,
			reviews:   opts.Reviews,
			location:  opts.Location,
			logger:    opts.Logger,
		},
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	e := s.app

	e.HideBanner = true
	e.HidePort = true
	e.Debug = s.opts.Debug

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(requestLogger(s.opts.Logger))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{DisablePrintStack: !s.opts.Debug}))

	validate := validator.New()
	e.Validator = newAppValidator(validate, newTranslator())
	e.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)

	e.GET("/health", health)

	auth := authMiddleware(s.opts.JWTSecret, s.opts.Issuer)
	withProfile := requireProfile(s.opts.Users)

	api := e.Group("/api", auth)

	// Профиль можно создать до того, как он появился в базе
	api.GET("/me", s.h.getMe)
	api.PUT("/me", s.h.putMe)

	registerProfileAPI(api.Group("", withProfile), s.h)
	registerMatchingAPI(api.Group("/matchings", withProfile), s.h)
	registerBookingAPI(api.Group("/bookings", withProfile), s.h)
	registerChatAPI(api.Group("/conversations", withProfile), s.h)

	e.GET("/ws", s.h.serveWS, auth, withProfile)
}

// Start блокирует до остановки сервера
func (s *Server) Start() error {
	s.opts.Logger.Info("Starting HTTP server", zap.String("address", s.opts.Address))

	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown мягко останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// ServeHTTP для тестов
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// requestLogger пишет каждый запрос в zap
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if userID, ok := c.Get(contextUserIDKey).(string); ok {
				fields = append(fields, zap.String("user_id", userID))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Debug("HTTP request", fields...)
			return nil
		},
	})
}
