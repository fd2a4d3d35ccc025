package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tasklist/tasklist-go/internal/middleware"
	"github.com/tasklist/tasklist-go/internal/service"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Auth   *service.AuthService
	Tasks  *service.TaskService
	Tokens middleware.TokenVerifier
	Users  middleware.UserResolver
	Logger *slog.Logger

	AuthRateRPS    float64
	AuthRateBurst  int
	RequestTimeout time.Duration
}

// NewRouter builds the API router. ctx bounds background work such as rate
// limiter eviction.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := NewAuthHandler(cfg.Auth, logger)
	taskHandler := NewTaskHandler(cfg.Tasks, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	if cfg.RequestTimeout > 0 {
		// Store calls inherit this deadline and fail as Transient (503). The
		// 504 chi writes afterwards is dropped because a response exists.
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, cfg.AuthRateRPS, cfg.AuthRateBurst))
		r.Post("/api/auth/signup", authHandler.HandleSignup)
		r.Post("/api/auth/signin", authHandler.HandleSignin)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Tokens, cfg.Users, logger))
		r.Get("/api/auth/me", authHandler.HandleMe)

		r.Get("/api/tasks", taskHandler.HandleListTasks)
		r.Post("/api/tasks", taskHandler.HandleCreateTask)
		r.Get("/api/tasks/{id}", taskHandler.HandleGetTask)
		r.Put("/api/tasks/{id}", taskHandler.HandleUpdateTask)
		r.With(middleware.RequireAdmin).Delete("/api/tasks/{id}", taskHandler.HandleDeleteTask)
	})

	return r
}
