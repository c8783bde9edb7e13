// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/config"
	"marketplace_backend/internal/draft"
	"marketplace_backend/internal/jobs"
	"marketplace_backend/internal/listing"
	"marketplace_backend/internal/middleware"
	"marketplace_backend/internal/notification"
	"marketplace_backend/internal/platform/elasticsearch"
	"marketplace_backend/internal/submission"
	"marketplace_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers groups the HTTP handlers mounted under /api/v1. Nil handlers are skipped.
type Handlers struct {
	User         *user.Handler
	Draft        *draft.Handler
	Submission   *submission.Handler
	Listing      *listing.Handler
	Notification *notification.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	ESClient  *elasticsearch.ESClientWrapper
	AppLogger *zap.Logger

	incompleteListingJob *jobs.IncompleteListingJob
	autosaver            *draft.Autosaver
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	esClient *elasticsearch.ESClientWrapper,
	handlers Handlers,
	verifier middleware.TokenVerifier,
	roles middleware.RoleResolver,
	incompleteListingJob *jobs.IncompleteListingJob,
	autosaver *draft.Autosaver,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader, middleware.DevUserHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(verifier, roles, cfg, logger.Named("AuthMiddleware"))
	adminRoleMW := middleware.RoleAuthMiddleware(common.RoleAdmin)

	// --- Setup Routes ---
	router.GET("/health", healthHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.StorageDriver == config.StorageDriverLocal && cfg.StorageLocalPath != "" {
		router.Static(mediaRoute(cfg.StoragePublicBaseURL), cfg.StorageLocalPath)
	}

	v1 := router.Group("/api/v1")
	if handlers.User != nil {
		handlers.User.RegisterRoutes(v1, authMW)
	}
	if handlers.Draft != nil {
		handlers.Draft.RegisterRoutes(v1, authMW)
	}
	if handlers.Submission != nil {
		handlers.Submission.RegisterRoutes(v1, authMW)
	}
	if handlers.Listing != nil {
		handlers.Listing.RegisterRoutes(v1, authMW, adminRoleMW)
	}
	if handlers.Notification != nil {
		handlers.Notification.RegisterRoutes(v1.Group("/notifications", authMW))
	} else {
		logger.Warn("Notification handler is nil, routes will not be registered.")
	}

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:           httpServer,
		router:               router,
		cfg:                  cfg,
		logger:               logger,
		ESClient:             esClient,
		AppLogger:            logger,
		incompleteListingJob: incompleteListingJob,
		autosaver:            autosaver,
	}, nil
}

// Router exposes the configured engine.
func (s *Server) Router() http.Handler {
	return s.router
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "message": "Database unreachable."})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Marketplace API is healthy!"})
	}
}

// mediaRoute is the path component of the local storage public URL.
func mediaRoute(publicBaseURL string) string {
	route := publicBaseURL
	if i := strings.Index(route, "://"); i >= 0 {
		route = route[i+3:]
		if j := strings.Index(route, "/"); j >= 0 {
			route = route[j:]
		} else {
			route = ""
		}
	}
	route = "/" + strings.Trim(route, "/")
	if route == "/" {
		return "/media"
	}
	return route
}

func (s *Server) Start() error {
	if s.incompleteListingJob != nil {
		if err := s.incompleteListingJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start incomplete listing job", zap.Error(err))
		}
	} else {
		s.logger.Info("Incomplete listing job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

// Shutdown stops the sweep job, drains HTTP traffic and flushes pending
// draft autosaves.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.incompleteListingJob != nil {
		s.incompleteListingJob.Stop()
	}
	err := s.httpServer.Shutdown(ctx)
	if s.autosaver != nil {
		if flushErr := s.autosaver.Close(ctx); flushErr != nil {
			s.logger.Error("Failed to flush draft autosaves on shutdown", zap.Error(flushErr))
			err = errors.Join(err, flushErr)
		}
	}
	return err
}
