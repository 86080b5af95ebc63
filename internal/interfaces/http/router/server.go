package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ServerOptions configures the HTTP engine
type ServerOptions struct {
	HTTP             config.HTTPConfig
	ServiceName      string
	SwaggerEnabled   bool
	TracingEnabled   bool
	ProfilingEnabled bool
	// TracerProvider defaults to the global provider
	TracerProvider trace.TracerProvider
	// Meter enables HTTP metrics when set
	Meter  metric.Meter
	Logger *zap.Logger
	// Images serves /images/<key> when product images live in memory
	Images http.Handler

	Health       *handler.HealthHandler
	Handlers     Handlers
	Authenticate gin.HandlerFunc
}

// Server is the assembled gin engine plus the resources it owns
type Server struct {
	Engine   *gin.Engine
	router   *Router
	limiters []*middleware.RateLimiter
}

// probePaths are kept out of traces and profiles
var probePaths = []string{"/health", "/health/ready"}

// NewServer builds the engine. Middleware order:
//  1. RequestID
//  2. Recovery
//  3. request logging
//  4. tracing span + attributes
//  5. HTTP metrics
//  6. security headers, CORS
//  7. body limit, global rate limit
//
// Authentication, profiling and role checks are attached per route.
func NewServer(opts ServerOptions) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{Engine: gin.New()}
	engine := s.Engine

	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName:    opts.ServiceName,
		Enabled:        opts.TracingEnabled,
		SkipPaths:      probePaths,
		TracerProvider: opts.TracerProvider,
	}))
	if opts.TracingEnabled {
		engine.Use(middleware.SpanAttributes())
	}
	engine.Use(middleware.HTTPMetrics(opts.Meter, log))
	engine.Use(middleware.Secure(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.CORS(corsConfig(opts.HTTP)))
	engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))

	if opts.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(opts.HTTP.RateLimitRequests, opts.HTTP.RateLimitWindow)
		s.limiters = append(s.limiters, limiter)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", opts.HTTP.RateLimitRequests),
			zap.Duration("window", opts.HTTP.RateLimitWindow),
		)
	}

	if opts.Health != nil {
		engine.GET("/health", opts.Health.Live)
		engine.GET("/health/ready", opts.Health.Ready)
	}
	if opts.SwaggerEnabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if opts.Images != nil {
		engine.GET("/images/*key", gin.WrapH(http.StripPrefix("/images/", opts.Images)))
	}

	guards := Guards{Authenticate: opts.Authenticate}
	if opts.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(opts.HTTP.AuthRateLimitRequests, opts.HTTP.AuthRateLimitWindow)
		s.limiters = append(s.limiters, authLimiter)
		guards.AuthLimit = middleware.RateLimit(authLimiter)
	}
	if opts.ProfilingEnabled {
		guards.Profiling = middleware.Profiling(middleware.ProfilingSkips...)
	}

	s.router = NewRouter(engine, WithAPIVersion("v1"))
	s.router.Register(MarketplaceRoutes(opts.Handlers, guards)...)
	s.router.Setup()

	return s
}

// Routes lists the API routes
func (s *Server) Routes() []RouteInfo {
	return s.router.Routes()
}

// Close stops the rate limiter sweepers
func (s *Server) Close() {
	for _, l := range s.limiters {
		l.Stop()
	}
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour
	return cors
}
