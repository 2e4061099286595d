package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/api"
	"backoffice/internal/auth"
	"backoffice/internal/lifecycle"
	"backoffice/internal/payment"
	"backoffice/internal/webhook"
	"backoffice/pkg/config"
)

type Dependencies struct {
	Cfg        config.Config
	Bookings   *lifecycle.Manager
	Tasks      *lifecycle.Manager
	Reconciler payment.Reconciler
	Logger     *slog.Logger
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{}
		ready := true
		for name, m := range map[string]*lifecycle.Manager{"bookings": deps.Bookings, "tasks": deps.Tasks} {
			t := m.LastFetch()
			if t.IsZero() {
				ready = false
				status[name] = nil
				continue
			}
			status[name] = t.UTC().Format(time.RFC3339)
		}
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		api.WriteJSON(w, code, map[string]any{"ready": ready, "fetchedAt": status})
	})

	bookingHandlers := lifecycle.Handlers{Manager: deps.Bookings}
	taskHandlers := lifecycle.Handlers{Manager: deps.Tasks}
	paymentHandlers := payment.Handlers{
		Ledger:     deps.Bookings,
		Reconciler: deps.Reconciler,
		AfterPush: func(ctx context.Context) {
			_, _ = deps.Bookings.FetchAll(ctx)
		},
	}
	webhookHandler := webhook.Handler{
		Secret: deps.Cfg.StoreWebhookSecret,
		Topics: map[string]webhook.Refresher{
			webhook.TopicBookingChanged: deps.Bookings,
			webhook.TopicTaskChanged:    deps.Tasks,
		},
		Logger: deps.Logger,
	}

	// v1
	r.Route("/v1", func(r chi.Router) {
		// Operator APIs
		r.Group(func(r chi.Router) {
			r.Use(api.CORSMiddleware(api.CORSOptions{
				AllowedOrigins: deps.Cfg.AdminAllowedOrigins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type"},
				MaxAgeSeconds:  600,
			}))
			// Production: operator session token auth
			// Dev: falls back to X-Operator if Authorization is missing.
			r.Use(api.OperatorAuth(deps.Cfg))

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", bookingHandlers.List)
				r.Get("/{id}", bookingHandlers.Get)
				r.Get("/{id}/journal", bookingHandlers.Journal)
				r.Post("/refresh", bookingHandlers.Refresh)
				r.With(api.RequireRole(auth.RoleOwner, auth.RoleManager, auth.RoleReceptionist)).
					Post("/{id}/transitions", bookingHandlers.Transition)
			})

			// Housekeeping staff work tasks but never touch bookings.
			r.Route("/tasks", taskHandlers.Routes)

			r.With(api.RequireRole(auth.RoleOwner, auth.RoleManager)).
				Post("/payments/{id}/reconcile", paymentHandlers.Reconcile)
		})

		// Webhooks
		r.Post("/webhooks/store/{topic}", webhookHandler.ServeHTTP)
	})

	return r
}
