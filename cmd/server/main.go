package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quochai/cookflow/internal/api"
	"github.com/quochai/cookflow/internal/api/handler"
	"github.com/quochai/cookflow/internal/config"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/quochai/cookflow/internal/repository/file"
	"github.com/quochai/cookflow/internal/repository/mongo"
	"github.com/quochai/cookflow/internal/repository/postgres"
	"github.com/quochai/cookflow/internal/repository/redis"
	"github.com/quochai/cookflow/internal/repository/sqlite"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Logging)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Msg("Starting cookflow API server")

	// Initialize session store
	store, pinger, cleanup, err := buildStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session store")
	}
	defer cleanup()

	// Initialize Redis (optional)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	// Initialize router
	router := api.NewRouter(cfg, store, pinger, redisClient)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// buildStore constructs the session store selected by the store driver. The
// returned cleanup closes whatever the backend holds open.
func buildStore(ctx context.Context, cfg *config.Config) (domain.SessionStore, handler.Pinger, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewSessionStore(db), db, db.Close, nil

	case "sqlite":
		store, err := sqlite.NewSessionStore(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() { store.Close() }, nil

	case "mongo":
		store, err := mongo.NewSessionStore(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() { store.Close(context.Background()) }, nil

	case "file":
		store, err := file.NewSessionStore(cfg.Store.File.Dir)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// setupLogger configures zerolog level, format and optional rotating file
// output.
func setupLogger(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	if cfg.Format == "console" {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		writers = append(writers, os.Stderr)
	}

	if cfg.File != "" {
		rotator, err := rotatelogs.New(
			cfg.File+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.File),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.File).Msg("Failed to open log file, logging to stderr only")
		} else {
			writers = append(writers, rotator)
		}
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(writers...))
}
