package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/training"
)

type trainRequest struct {
	OwnerID string         `json:"owner_id"`
	Name    string         `json:"name"`
	Gender  string         `json:"gender"`
	Options map[string]any `json:"options"`
}

type trainResponse struct {
	TrainingID string `json:"training_id"`
	Status     string `json:"status"`
}

// Train starts a fine-tuning run for an owner's labeled model slot.
func (a *App) Train(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Gender == "" {
		a.error(w, http.StatusBadRequest, "bad_request", `gender (e.g. "male" or "female") is required`)
		return
	}

	jobID, err := a.Training.CreateJob(r.Context(), training.CreateJobParams{
		OwnerID: req.OwnerID,
		Label:   req.Name,
		Gender:  req.Gender,
		Locale:  middleware.LocaleFromContext(r.Context()),
		Options: req.Options,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, trainResponse{TrainingID: jobID, Status: string(domain.JobStatusPending)})
}

type trainingCallback struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// TrainingWebhook ingests the provider's completion callback. The job key
// travels as structured query parameters on the callback URL the provider
// was given at submission time. Replays and conflicting outcomes are
// acknowledged with 200 so the provider stops retrying; only malformed
// payloads and unknown keys are refused.
func (a *App) TrainingWebhook(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	label := r.URL.Query().Get("label")

	var callback trainingCallback
	if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
		a.error(w, http.StatusBadRequest, "malformed_callback", "invalid payload")
		return
	}

	err := a.Training.ApplyStatus(r.Context(), training.ApplyStatusParams{
		OwnerID:       ownerID,
		Label:         label,
		Status:        domain.JobStatus(callback.Status),
		ResultVersion: callback.Version,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "webhook processed"})
}

// Generate runs image generation for a succeeded training job. The action
// is paid: the owner needs an active subscription on top of the completed
// training.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id is required")
		return
	}
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "owner_id is required")
		return
	}

	active, err := a.Billing.IsActive(r.Context(), ownerID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if !active {
		a.error(w, http.StatusPaymentRequired, "subscription_required", "an active subscription is required to generate images")
		return
	}

	images, err := a.Training.Generate(r.Context(), jobID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"generated_images": images})
}
