package http

import (
	"net/http"

	"github.com/buildstream-notify/internal/application/dispatch"
	"github.com/buildstream-notify/internal/application/normalize"
	"github.com/buildstream-notify/internal/application/notification"
	"github.com/buildstream-notify/internal/config"
	"github.com/buildstream-notify/internal/domain"
	"github.com/buildstream-notify/internal/transport/http/handler"
	appmiddleware "github.com/buildstream-notify/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 20 requests/second with a burst of 40 — a runaway upstream trigger
	// gets throttled before it floods the fan-out path.
	intakeRL := appmiddleware.NewRateLimiter(rate.Limit(20), 40)

	normalizer := normalize.New(deps.LookupRepo)
	dispatcher := dispatch.New(dispatch.Deps{
		Renderer:    normalizer,
		Directory:   deps.UserRepo,
		Store:       deps.NotificationRepo,
		DeadLetters: deps.DeadLetterRepo,
		Archive:     deps.Archive,
		OpsAlerts:   deps.OpsAlerts,
		Hub:         deps.Hub,
	})
	notifSvc := notification.NewService(deps.NotificationRepo, deps.Hub, int32(cfg.FetchLimit))

	healthH := handler.NewHealthHandler()
	eventH := handler.NewEventHandler(dispatcher)
	notifH := handler.NewNotificationHandler(notifSvc)
	streamH := handler.NewStreamHandler(deps.Hub)
	dlH := handler.NewDeadLetterHandler(deps.DeadLetterRepo, deps.Archive)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			// Event intake: backend services and the admin dashboard post
			// domain events here.
			r.With(appmiddleware.RequireRole(domain.RoleService, domain.RoleAdmin), intakeRL.Limit).
				Post("/events", eventH.Ingest)

			// The notification feed belongs to admin recipients.
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/notifications", notifH.List)
				r.Get("/notifications/stream", streamH.Stream)
				r.Get("/notifications/unread-count", notifH.UnreadCount)
				r.Put("/notifications/read-all", notifH.MarkAllRead)
				r.Put("/notifications/{id}/read", notifH.MarkRead)
				r.Delete("/notifications", notifH.ClearAll)
				r.Delete("/notifications/{id}", notifH.Delete)

				r.Get("/dead-letters", dlH.List)
				r.Get("/dead-letters/{id}/payload", dlH.Payload)
			})
		})
	})

	return r
}
