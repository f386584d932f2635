package server

import (
	"fmt"
	"net/http"
	"time"

	"straus/internal/config"
	"straus/internal/database"
	"straus/internal/events"
	"straus/internal/metrics"
	custommiddleware "straus/internal/middleware"
	"straus/internal/repository"
	"straus/internal/service"
	"straus/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        database.Service
	publisher events.Publisher
	redis     *redis.Client
}

// Dependencies are the connections the server owns and closes. Publisher
// and Redis are optional.
type Dependencies struct {
	DB        database.Service
	Publisher events.Publisher
	Redis     *redis.Client
	Metrics   *metrics.Metrics
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(cfg, logger, deps),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		db:        deps.DB,
		publisher: deps.Publisher,
		redis:     deps.Redis,
	}

	return server
}

// NewRouter wires repositories, services and handlers onto a chi router
func NewRouter(cfg *config.Config, logger *zap.Logger, deps Dependencies) http.Handler {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	db := deps.DB.DB()

	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(deps.Metrics.Middleware)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS, cfg.Server.IsDevelopment()))

	router.Get("/health", healthHandler(deps.DB, deps.Publisher))
	router.Handle("/metrics", deps.Metrics.Handler())

	// Initialize repositories
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Initialize services
	catalogService := service.NewCatalogService(categoryRepo, productRepo, logger)
	orderService := service.NewOrderService(orderRepo, deps.Publisher, deps.Metrics, logger)
	tokenService := service.NewTokenService(cfg.JWT.Secret)

	// Catalog writes and maintenance need an admin token
	authMiddleware := custommiddleware.AuthMiddleware(tokenService, logger)
	requireAdmin := custommiddleware.RequireAdmin(logger)
	adminOnly := func(next http.Handler) http.Handler {
		return authMiddleware(requireAdmin(next))
	}

	router.Route("/api/v1", func(r chi.Router) {
		if deps.Redis != nil && cfg.RateLimit.Requests > 0 {
			r.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "straus_rate_limit",
			}, logger))
		}

		transport.NewCategoryHandler(catalogService, logger).RegisterRoutes(r, adminOnly)
		transport.NewProductHandler(catalogService, logger).RegisterRoutes(r, adminOnly)
		transport.NewOrderHandler(orderService, logger).RegisterRoutes(r)
		transport.NewAdminHandler(orderService, logger).RegisterRoutes(r, adminOnly)
	})

	return router
}

// healthHandler reports 503 while the database is unreachable. A broken
// event publisher only degrades the report.
func healthHandler(db database.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbHealth := db.Health()

		body := map[string]interface{}{
			"status":   "ok",
			"database": dbHealth,
			"events":   map[string]bool{"healthy": publisher.IsHealthy()},
		}

		status := http.StatusOK
		if dbHealth["status"] != "up" {
			body["status"] = "unavailable"
			status = http.StatusServiceUnavailable
		} else if !publisher.IsHealthy() {
			body["status"] = "degraded"
		}

		custommiddleware.RespondWithJSON(w, status, body)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.publisher.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
