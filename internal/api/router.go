package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Friiyous/reseau-social/internal/api/middleware"
	"github.com/Friiyous/reseau-social/internal/handlers"
)

// Options configures the router.
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	RateLimit   middleware.RateLimiterConfig
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, opts Options, deps handlers.Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting; a nil client disables it
	limiter := middleware.NewRateLimiter(deps.Redis.Client(), logger, opts.RateLimit)
	r.Use(limiter.Middleware)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(deps)
	auth := middleware.NewAuthMiddleware(deps.Store, opts.JWTSecret, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/ws", h.LiveChannel)

		r.Get("/users/me", h.Me)
		r.Get("/users/{id}", h.Who)

		r.Get("/conversations", h.ListConversations)
		r.Get("/conversations/{id}", h.GetConversation)
		r.Post("/conversations/{id}/read", h.MarkConversationRead)

		r.Post("/messages", h.SendMessage)
		r.Get("/messages/unread-count", h.UnreadMessages)
		r.Get("/messages/history", h.MessageHistory)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Get("/unread-count", h.UnreadNotifications)
			r.Post("/mark-read/{id}", h.MarkNotificationRead)
			r.Post("/mark-all-read", h.MarkAllNotificationsRead)
			r.Delete("/{id}", h.DeleteNotification)
			r.Post("/system/test", h.SendTestNotification)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Post("/admin/send", h.AdminSend)
				r.Post("/admin/send-bulk", h.AdminSendBulk)
				r.Post("/admin/send-all", h.AdminSendAll)
			})
		})
	})

	return r
}
