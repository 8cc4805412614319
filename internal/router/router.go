package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/kabarak-welfare/welfare-api/internal/api/auth"
	"github.com/kabarak-welfare/welfare-api/internal/api/campaign"
)

// Config carries the wired handlers and middleware the router mounts.
// Server-wide middleware (request ID, logger, recoverer) is applied in
// main.go before this router.
type Config struct {
	AuthHandler     *auth.AuthHandler
	CampaignHandler *campaign.CampaignHandler
	RequireAuth     func(http.Handler) http.Handler
	RequireAdmin    func(http.Handler) http.Handler
	MetricsHandler  http.Handler
}

// SetupRouter builds the application route tree: public auth and
// campaign browsing, plus an /admin group gated by session auth and
// the admin role.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public routes.
	r.Group(func(r chi.Router) {
		r.Post("/signup", cfg.AuthHandler.SignUp)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/logout", cfg.AuthHandler.Logout)
		r.Get("/logout", cfg.AuthHandler.LogoutRedirect)

		r.Get("/campaigns", cfg.CampaignHandler.List)
		r.Get("/campaigns/{id}", cfg.CampaignHandler.Get)
	})

	// Admin routes: a valid session first, then the admin role.
	r.Route("/admin", func(r chi.Router) {
		r.Use(cfg.RequireAuth)
		r.Use(cfg.RequireAdmin)

		r.Get("/campaigns", cfg.CampaignHandler.List)
		r.Post("/campaigns", cfg.CampaignHandler.Create)
		r.Get("/campaigns/{id}", cfg.CampaignHandler.Get)
		r.Post("/campaigns/{id}", cfg.CampaignHandler.Update)
		r.Delete("/campaigns/{id}", cfg.CampaignHandler.Delete)
	})

	return r
}
