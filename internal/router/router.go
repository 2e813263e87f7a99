package router

import (
	"linguini-ordering-web/internal/handler"
	"linguini-ordering-web/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler         *handler.Handler
	CartHandler     *handler.CartHandler
	CheckoutHandler *handler.CheckoutHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Monitoring endpoint (no session needed)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// Visitor-facing routes (session middleware derives guest/auth mode)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session)

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			if cfg.CartHandler != nil {
				r.Route("/cart", func(r chi.Router) {
					r.Get("/", cfg.CartHandler.GetCart)
					r.Delete("/", cfg.CartHandler.ClearCart)
					r.Get("/count", cfg.CartHandler.GetCount)
					r.Post("/items/{productID}", cfg.CartHandler.AddItem)
					r.Patch("/items/{id}", cfg.CartHandler.UpdateItem)
					r.Delete("/items/{id}", cfg.CartHandler.RemoveItem)
				})

				r.Post("/session/logout", cfg.CartHandler.Logout)
			}

			if cfg.CheckoutHandler != nil {
				r.Post("/checkout", cfg.CheckoutHandler.Begin)
			}
		})
	})

	return r
}
