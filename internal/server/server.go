// Package server
//
// @title TaskWiz API
// @version 1.0
// @description Task list service API
// @host localhost:8000
// @BasePath /
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskwiz/taskwiz/internal/auth"
	"github.com/taskwiz/taskwiz/internal/config"
	"github.com/taskwiz/taskwiz/internal/database"
	"github.com/taskwiz/taskwiz/internal/tasks"
)

// Server represents the HTTP server
type Server struct {
	router       *gin.Engine
	db           *gorm.DB
	config       *config.Config
	logger       zerolog.Logger
	tasksService *tasks.Service
	janitor      *cron.Cron
	version      string
}

// New opens the configured database and creates a server on top of it
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := database.Open(cfg.Database.URL, zlog)
	if err != nil {
		return nil, err
	}
	return NewWithDB(cfg, db, zlog, version), nil
}

// NewWithDB creates a server using an already migrated database
func NewWithDB(cfg *config.Config, db *gorm.DB, zlog zerolog.Logger, version string) *Server {
	auth.InitializeJWT(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.ExpirationMinutes)*time.Minute)

	// Report JSON/form field names in validation errors
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(fieldName)
	}

	server := &Server{
		db:           db,
		config:       cfg,
		logger:       zlog,
		tasksService: tasks.NewService(db, zlog),
		version:      version,
	}

	server.setupRouter()
	server.setupJanitor()

	return server
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	authRoutes := s.router.Group("/auth")
	{
		authRoutes.POST("/signup", s.signUp)
		authRoutes.POST("/signin", s.signIn)
		authRoutes.POST("/signout", s.signOut)
		authRoutes.GET("/me", JWTAuthMiddleware(s.db, s.logger), s.getCurrentUser)
	}

	// Flat convention: the owner comes from the token
	s.registerTaskRoutes(s.router.Group("/tasks", JWTAuthMiddleware(s.db, s.logger)))

	// User-scoped convention: the path names the owner and must match the token
	s.registerTaskRoutes(s.router.Group("/api/users/:userId/tasks",
		JWTAuthMiddleware(s.db, s.logger),
		UserScopeMiddleware(s.logger),
	))
}

func (s *Server) registerTaskRoutes(group *gin.RouterGroup) {
	group.GET("", s.listTasks)
	group.POST("", s.createTask)
	group.GET("/:id", s.getTask)
	group.PATCH("/:id", s.updateTask)
	group.PUT("/:id", s.updateTask)
	group.DELETE("/:id", s.deleteTask)
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
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "taskwiz-api",
		"version":   s.version,
	})
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	port := ":" + s.config.Server.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.janitor.Start()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("port", port).Str("version", s.version).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
			errChan <- err
		}
	}()

	var serveErr error
	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case serveErr = <-errChan:
	}

	// Wait for a running purge to finish
	<-s.janitor.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")

	// Close database connection to flush WAL writes
	if err := database.Close(s.db); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	} else {
		s.logger.Info().Msg("Database closed successfully")
	}

	return serveErr
}
