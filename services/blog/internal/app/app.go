package internal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorial-blog/pkg/cache"
	"tutorial-blog/pkg/config"
	"tutorial-blog/pkg/database"
	"tutorial-blog/pkg/jwt"
	"tutorial-blog/pkg/logger"
	"tutorial-blog/services/blog/internal/repo/persistent"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	jwtService  *jwt.Service
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	if cfg.DBAutoMigrate {
		if err := persistent.AutoMigrate(db); err != nil {
			log.Error("Failed to migrate database: %v", err)
			return nil, err
		}
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (continuing with in-memory rate limiting, logout revocation disabled)", err)
		redisClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		jwtService:  jwt.NewServiceWithTTL(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
	}, nil
}

func (a *App) Run() error {
	router, err := NewRouter(Deps{
		Config:      a.cfg,
		Logger:      a.log,
		DB:          a.db,
		RedisClient: a.redisClient,
		JWTService:  a.jwtService,
	})
	if err != nil {
		return err
	}

	a.httpServer = &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		a.log.Info("Blog service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down blog service...")
}

func (a *App) Shutdown() error {
	// The context is used to inform the server it has 5 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var shutdownErr error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.log.Error("Server forced to shutdown: %v", err)
			shutdownErr = err
		}
	}

	// Close database connection
	if err := database.Close(a.db); err != nil {
		a.log.Error("Error closing database: %v", err)
	}

	// Close Redis connection
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	a.log.Info("Blog service exited")
	return shutdownErr
}
