package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter assembles the public HTTP surface.
func NewRouter(app *handlers.App, logger zerolog.Logger, countryLookup middleware.CountryLookup, defaultLocale string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.I18N(defaultLocale, countryLookup))

	r.Get("/v1/healthz", app.Health)

	// Training lifecycle
	r.Post("/train", app.Train)
	r.Post("/replicate-webhook", app.TrainingWebhook)
	r.Post("/generate/{job_id}", app.Generate)

	// Billing
	r.Route("/billing", func(r chi.Router) {
		r.Post("/checkout-session", app.CheckoutSession)
		r.Post("/webhook", app.BillingWebhook)
		r.Get("/verify", app.VerifySubscription)
	})

	// Push channel
	r.Get("/ws", app.WebSocket)

	return r
}
