package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VVKrauss/Hub-3-sub002/internal/observability"
	"github.com/VVKrauss/Hub-3-sub002/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyMiddleware)

	r.Route("/v1/registrations", func(r chi.Router) {
		r.Get("/", h.ListRegistrations)
		r.Post("/", h.CreateRegistration)
		r.Post("/bulk-status", h.BulkUpdateStatus)
		r.Get("/qr/{code}", h.GetRegistrationByQR)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetRegistration)
			r.Patch("/", h.PatchRegistration)
			r.Post("/cancel", h.CancelRegistration)
			r.Post("/restore", h.RestoreRegistration)
			r.Post("/confirm-payment", h.ConfirmPayment)
			r.Post("/attend", h.MarkAttendance)
			r.Post("/promote", h.PromoteRegistration)
			r.Post("/tickets", h.AddTicket)
		})
	})

	r.Route("/v1/tickets/{id}", func(r chi.Router) {
		r.Delete("/", h.RemoveTicket)
		r.Post("/qr-codes", h.GenerateTicketQRCodes)
	})

	r.Route("/v1/events/{id}", func(r chi.Router) {
		r.Get("/availability", h.EventAvailability)
		r.Get("/registrations/export", h.ExportRegistrations)
		r.Post("/media", h.UploadEventMedia)
	})

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
