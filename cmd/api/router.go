package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/duetrack/deadline-api/internal/config"
	"github.com/duetrack/deadline-api/internal/handlers"
	"github.com/duetrack/deadline-api/internal/middleware"
	"github.com/duetrack/deadline-api/internal/repo"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter wires repos, handlers, and middleware into the HTTP surface.
// Everything the handlers depend on (store handle, signing secret, token
// lifetime) is injected here; nothing reads ambient globals.
func newRouter(database *sql.DB, cfg config.Config) http.Handler {
	userRepo := repo.NewUserRepo(database)
	deadlineRepo := repo.NewDeadlineRepo(database)

	authHandler := &handlers.AuthHandler{
		UserRepo: userRepo,
		Secret:   []byte(cfg.JWTSecret),
		Expiry:   time.Duration(cfg.JWTExpireHours) * time.Hour,
	}
	deadlineHandler := &handlers.DeadlineHandler{Repo: deadlineRepo}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			handlers.JSONError(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWT([]byte(cfg.JWTSecret)))
		r.Get("/", deadlineHandler.ListDeadlines)
		r.Post("/", deadlineHandler.CreateDeadline)
		r.Put("/{id}", deadlineHandler.UpdateDeadline)
		r.Delete("/{id}", deadlineHandler.DeleteDeadline)
	})

	return r
}
