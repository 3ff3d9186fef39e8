// Package server is a local stand-in for the product-mastering backend. It
// serves the same HTTP contract as production on top of sqlite so the fmcg
// client can be developed and tested without it.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fmcg-dev/fmcg/internal/auth"
	"github.com/fmcg-dev/fmcg/internal/config"
	"github.com/fmcg-dev/fmcg/internal/models"
)

// SessionHeader carries the session token on every authenticated request
const SessionHeader = "X-Session-Token"

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	now       func() time.Time
	version   string
}

// New creates a new server instance, migrating and seeding the database
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	secret := cfg.Session.Secret
	if secret == "" {
		// Tokens from a previous run stop verifying, which is fine for a dev server
		secret, err = auth.GenerateSecret()
		if err != nil {
			return nil, err
		}
		zlog.Warn().Msg("SESSION_SECRET not set - generated a random one, sessions will not survive a restart")
	}
	auth.InitializeJWT(secret)

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: newValidator(),
		now:       time.Now,
		version:   version,
	}

	if err := server.seed(); err != nil {
		return nil, err
	}

	server.setupRouter()

	return server, nil
}

// newValidator registers the custom rules used by request structs
func newValidator() *validator.Validate {
	validate := validator.New()

	// Sheet names end up in URL paths and file names
	validate.RegisterValidation("sheetname", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if strings.TrimSpace(value) == "" || len(value) > 100 {
			return false
		}
		for _, char := range value {
			if !(unicode.IsLetter(char) || unicode.IsDigit(char) ||
				strings.ContainsRune(" -_.()&'", char)) {
				return false
			}
		}
		return true
	})

	return validate
}

// initDatabase initializes the database connection
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stderr, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL must be set first
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", SessionHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints
	s.router.POST("/auth/login", s.login)
	s.router.POST("/auth/logout", s.logout)

	api := s.router.Group("")
	api.Use(SessionAuthMiddleware(s.db, s.logger, func() time.Time { return s.now() }))
	{
		api.GET("/auth/verify", s.verify)

		api.GET("/dashboard/summary", s.getSummary)
		api.GET("/dashboard/brands", s.listBrands)
		api.GET("/dashboard/products", s.listProducts)
		api.GET("/dashboard/product/:mergeId", s.getProduct)
		api.GET("/dashboard/low-confidence", s.listLowConfidence)
		api.GET("/dashboard/analytics-data", s.getAnalytics)

		api.POST("/upload/excel", s.uploadExcel)
		api.POST("/process/llm-mastering/:sheetName", s.triggerMastering)

		api.GET("/export/master-stock", s.exportMasterStock)
		api.POST("/database/reset", s.resetDatabase)

		api.POST("/chatbot/query", s.chatbotQuery)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": s.now().UTC(),
		"service":   "fmcg-devserver",
		"version":   s.version,
	})
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection
func (s *Server) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := ":" + strconv.Itoa(s.config.HTTP.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Uploads and exports can be slow, so write timeouts stay generous
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       5 * time.Minute,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	case <-sigChan:
	}
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Flush WAL writes
	if err := s.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	} else {
		s.logger.Info().Msg("Database closed successfully")
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
