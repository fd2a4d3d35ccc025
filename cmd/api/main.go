package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tasklist/tasklist-go/internal/config"
	"github.com/tasklist/tasklist-go/internal/crypto"
	"github.com/tasklist/tasklist-go/internal/handler"
	"github.com/tasklist/tasklist-go/internal/repository"
	"github.com/tasklist/tasklist-go/internal/service"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Warn("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, tasks, db, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("store initialisation failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	tokens := crypto.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry)
	authService := service.NewAuthService(users, tokens,
		service.WithAdminSignup(cfg.AllowAdminSignup),
		service.WithLogger(logger),
	)
	taskService := service.NewTaskService(tasks)

	if cfg.AdminEmail != "" {
		if err := bootstrapAdmin(ctx, authService, cfg, logger); err != nil {
			logger.Error("bootstrap admin failed", "error", err)
			os.Exit(1)
		}
	}

	router := handler.NewRouter(ctx, handler.RouterConfig{
		Auth:           authService,
		Tasks:          taskService,
		Tokens:         tokens,
		Users:          users,
		Logger:         logger,
		AuthRateRPS:    cfg.AuthRateRPS,
		AuthRateBurst:  cfg.AuthRateBurst,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env, "token_expiry", tokens.Expiry())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// openStores connects to MySQL and applies migrations when a DSN is set, and
// falls back to in-memory stores otherwise.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (service.UserStore, service.TaskStore, *sql.DB, error) {
	if cfg.DatabaseDSN == "" {
		logger.Warn("DATABASE_DSN not set, using in-memory stores; data is lost on restart")
		return repository.NewMemoryUserRepository(), repository.NewMemoryTaskRepository(), nil, nil
	}

	db, err := repository.NewDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	logger.Info("database ready")
	return repository.NewUserRepository(db), repository.NewTaskRepository(db), db, nil
}
