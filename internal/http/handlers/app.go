package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/billing"
	"server/internal/domain"
	"server/internal/push"
	"server/internal/training"
)

// TrainingService is the job lifecycle surface the handlers depend on.
type TrainingService interface {
	CreateJob(ctx context.Context, params training.CreateJobParams) (string, error)
	ApplyStatus(ctx context.Context, params training.ApplyStatusParams) error
	Generate(ctx context.Context, jobID string) ([]training.GeneratedImage, error)
}

// BillingService is the subscription gate surface the handlers depend on.
type BillingService interface {
	IsActive(ctx context.Context, ownerID string) (bool, error)
	CreateCheckout(ctx context.Context, ownerID, redirectURL string) (billing.CheckoutResult, error)
	VerifyAndActivate(ctx context.Context, sessionID, ownerID string) (bool, error)
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

// App is the handler container with its injected collaborators.
type App struct {
	Training TrainingService
	Billing  BillingService
	Hub      *push.Hub
	Logger   zerolog.Logger
}

func NewApp(trainingSvc TrainingService, billingSvc BillingService, hub *push.Hub, logger zerolog.Logger) *App {
	return &App{Training: trainingSvc, Billing: billingSvc, Hub: hub, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]string{"error": slug, "message": message})
}

// domainError maps the service error taxonomy onto HTTP status codes.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrMalformedCallback):
		a.error(w, http.StatusBadRequest, "malformed_callback", err.Error())
	case errors.Is(err, domain.ErrSignature):
		a.error(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrNotReady):
		a.error(w, http.StatusConflict, "not_ready", "model training is still in progress")
	case errors.Is(err, domain.ErrTrainingFailed):
		a.error(w, http.StatusGone, "training_failed", "model training failed, unable to generate images")
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		a.error(w, http.StatusPaymentRequired, "payment_not_confirmed", "subscription is not paid")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		a.error(w, http.StatusBadGateway, "upstream_unavailable", "external provider is unavailable")
	default:
		a.Logger.Error().Err(err).Msg("handlers: unexpected error")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
