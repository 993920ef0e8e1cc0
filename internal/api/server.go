package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/messaging"
	"github.com/ajitpratap0/moneymind/internal/metrics"
	"github.com/ajitpratap0/moneymind/internal/profiling"
	"github.com/ajitpratap0/moneymind/internal/store"
)

const (
	defaultAppLink     = "https://moneymind.app"
	defaultTurnTimeout = 45 * time.Second
	writeTimeoutMargin = 15 * time.Second
)

// Router handles one conversational turn
type Router interface {
	Route(ctx context.Context, userID, message string) string
}

// HealthCheck reports the health of one dependency
type HealthCheck func(ctx context.Context) error

// Server represents the REST API server
type Server struct {
	engine        *gin.Engine
	router        Router
	store         store.Store
	sender        messaging.Sender
	news          NewsFeed
	investments   InvestmentAssistant
	questionnaire *profiling.Machine
	checks        map[string]HealthCheck
	appLink       string
	version       string
	turnTimeout   time.Duration
	server        *http.Server
	log           zerolog.Logger
}

// Config contains server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AppLink        string
	AllowedOrigins []string
	Auth           *AuthConfig

	Router Router
	Store  store.Store
	// Sender delivers WhatsApp replies; webhook replies are dropped when nil
	Sender messaging.Sender

	// News and Investments mount /api/news and /api/investments when set
	News        NewsFeed
	Investments InvestmentAssistant
	Checks      map[string]HealthCheck

	// TurnTimeout bounds one routed message or assistant call. The write
	// timeout is stretched to cover it.
	TurnTimeout time.Duration
}

// NewServer creates a new API server
func NewServer(config Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware())
	engine.Use(metrics.GinMiddleware())

	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           12 * time.Hour,
	}))

	appLink := config.AppLink
	if appLink == "" {
		appLink = defaultAppLink
	}

	turnTimeout := config.TurnTimeout
	if turnTimeout <= 0 {
		turnTimeout = defaultTurnTimeout
	}
	writeTimeout := 60 * time.Second
	if turnTimeout+writeTimeoutMargin > writeTimeout {
		writeTimeout = turnTimeout + writeTimeoutMargin
	}

	s := &Server{
		engine:        engine,
		router:        config.Router,
		store:         config.Store,
		sender:        config.Sender,
		news:          config.News,
		investments:   config.Investments,
		questionnaire: profiling.NewMachine(),
		checks:        config.Checks,
		appLink:       appLink,
		version:       config.Version,
		turnTimeout:   turnTimeout,
		log:           log.With().Str("component", "api").Logger(),
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes(config.Auth)

	return s
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Handler exposes the gin engine, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// WriteTimeout returns the HTTP write timeout in effect
func (s *Server) WriteTimeout() time.Duration {
	return s.server.WriteTimeout
}

// Start serves until Stop is called. Calling Stop first makes Start return
// immediately.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting API server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("Stopping API server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}

// LoggerMiddleware is a custom logging middleware for Gin
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logEvent := log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if len(c.Errors) > 0 {
			logEvent.Str("errors", c.Errors.String())
		}

		logEvent.Msg("API request")
	}
}
