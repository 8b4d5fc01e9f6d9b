package server

import (
	"time"

	"inboxai/internal/analytics"
	"inboxai/internal/auth"
	"inboxai/internal/cache"
	"inboxai/internal/config"
	"inboxai/internal/handlers"
	"inboxai/internal/ingest"
	"inboxai/internal/llm"
	"inboxai/internal/mailer"
	"inboxai/internal/rag"
	"inboxai/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Deps carries the backing services the HTTP layer exposes. Any field
// may be nil; the endpoints that need it answer 503 instead.
type Deps struct {
	DB        *sqlx.DB
	Store     store.Store
	LLM       *llm.Client
	Engine    *rag.Engine
	Ingestor  *ingest.Ingestor
	Mailer    *mailer.Mailer
	Analytics *analytics.Service

	CalendarAvailable bool
}

// Server represents the application server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	deps     Deps
	logger   zerolog.Logger
	payloads *cache.Cache
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Server {
	return &Server{
		config:   cfg,
		deps:     deps,
		logger:   logger,
		payloads: cache.New(),
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	// Hide Echo banner
	s.echo.HideBanner = true

	// Setup routes
	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	cacheTTL := time.Duration(s.config.CacheTTLSeconds) * time.Second

	// API group with /api prefix
	api := s.echo.Group("/api")

	// Destructive routes sit behind the admin key; an empty key leaves
	// them open for local single-user setups.
	admin := api.Group("", auth.Middleware(s.config.AdminAPIKey))

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Health endpoints (keep at root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.deps.DB))

	// API endpoints under /api prefix
	api.GET("/", handlers.RootHandler(s.config.Version))
	api.GET("/health", handlers.APIHealthHandler(s.deps.LLM, s.deps.Store, s.deps.CalendarAvailable))

	// Retrieval and generation
	api.POST("/chat", handlers.ChatHandler(s.deps.Engine, s.deps.Analytics))
	api.POST("/search", handlers.SearchHandler(s.deps.Store, s.deps.Analytics))

	// Digest views
	api.GET("/summary", handlers.SummaryHandler(s.deps.Engine, s.payloads, cacheTTL, s.deps.Analytics))
	api.GET("/tasks", handlers.TasksHandler(s.deps.Engine, s.payloads, cacheTTL, s.deps.Analytics))
	api.GET("/stats", handlers.StatsHandler(s.deps.Engine, s.payloads, cacheTTL, s.deps.Analytics))

	// Calendar
	api.GET("/meetings", handlers.MeetingsHandler(s.deps.Engine))
	api.GET("/meetings/:index/prep", handlers.MeetingPrepHandler(s.deps.Engine, s.deps.Analytics))

	// Ingestion
	admin.POST("/ingest", handlers.IngestHandler(s.deps.Ingestor, s.payloads, s.deps.Analytics, s.config.EmailLookbackDays))
	admin.POST("/ingest/start", handlers.IngestStartHandler(s.config, s.deps.Ingestor, s.payloads, s.deps.Analytics))
	api.GET("/ingest/status/:jobName", handlers.IngestJobStatusHandler(s.config))
	admin.POST("/clear", handlers.ClearHandler(s.deps.Store, s.payloads))
	admin.POST("/clear-database", handlers.ClearHandler(s.deps.Store, s.payloads))

	// Settings and introspection
	api.GET("/settings", handlers.SettingsHandler(s.config, s.deps.LLM, s.deps.CalendarAvailable))
	admin.POST("/settings", handlers.SettingsUpdateHandler(s.deps.LLM))
	api.GET("/models", handlers.ModelsHandler(s.deps.LLM))
	api.GET("/debug", handlers.DebugHandler(s.deps.Store))
	api.POST("/debug/query", handlers.DebugQueryHandler(s.deps.Store))

	// Sharing and usage
	api.POST("/share", handlers.ShareHandler(s.deps.Mailer, s.deps.Analytics))
	api.GET("/analytics", handlers.AnalyticsHandler(s.deps.Analytics))
	api.GET("/analytics/daily-report", handlers.DailyReportHandler(s.deps.Analytics))

	// Serve static files (this should be last to avoid conflicts)
	s.echo.Static("/", "static")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}
