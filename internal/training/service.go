package training

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/push"
)

// Submitter starts a fine-tuning run with the external provider and
// returns the provider's training identifier.
type Submitter interface {
	SubmitTraining(ctx context.Context, callbackURL string, options map[string]any) (string, error)
}

// Runner executes one generation against a trained model version.
type Runner interface {
	RunModel(ctx context.Context, version string, input map[string]any) ([]string, error)
}

// Notifier delivers a best-effort push event to an owner's live channel.
type Notifier interface {
	Notify(ownerID string, event push.Event) bool
}

// Service is the job lifecycle controller: it owns job creation, webhook
// status ingestion and the generation authorization gate.
type Service struct {
	jobs           domain.TrainingJobRepository
	prompts        domain.PromptRepository
	submitter      Submitter
	runner         Runner
	notifier       Notifier
	webhookBaseURL string
	logger         zerolog.Logger
}

// NewService wires the controller with its collaborators. webhookBaseURL
// is the public origin the external provider calls back on.
func NewService(
	jobs domain.TrainingJobRepository,
	prompts domain.PromptRepository,
	submitter Submitter,
	runner Runner,
	notifier Notifier,
	webhookBaseURL string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		jobs:           jobs,
		prompts:        prompts,
		submitter:      submitter,
		runner:         runner,
		notifier:       notifier,
		webhookBaseURL: strings.TrimRight(webhookBaseURL, "/"),
		logger:         logger,
	}
}

// CreateJobParams carries the inputs for a new training job.
type CreateJobParams struct {
	OwnerID string
	Label   string
	Gender  string
	Locale  string
	Options map[string]any
}

// ApplyStatusParams carries one provider status callback.
type ApplyStatusParams struct {
	OwnerID       string
	Label         string
	Status        domain.JobStatus
	ResultVersion string
}

// GeneratedImage is one generation result keyed by its prompt name.
type GeneratedImage struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// CreateJob validates the request, submits the training run to the
// provider with a callback URL carrying the structured (owner, label) key,
// and persists the pending record. Nothing is persisted when the provider
// submission fails.
func (s *Service) CreateJob(ctx context.Context, params CreateJobParams) (string, error) {
	if params.OwnerID == "" || params.Label == "" {
		return "", fmt.Errorf("%w: owner_id and label are required", domain.ErrInvalidRequest)
	}
	if params.Gender == "" {
		return "", fmt.Errorf("%w: gender is required", domain.ErrInvalidRequest)
	}
	if existing, err := s.jobs.GetByOwnerLabel(ctx, params.OwnerID, params.Label); err == nil && !existing.Status.Terminal() {
		return "", fmt.Errorf("%w: training %q is already in progress", domain.ErrInvalidRequest, params.Label)
	}

	providerID, err := s.submitter.SubmitTraining(ctx, s.callbackURL(params.OwnerID, params.Label), params.Options)
	if err != nil {
		s.logger.Error().Err(err).
			Str("owner_id", params.OwnerID).
			Str("label", params.Label).
			Msg("training: provider submission failed")
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	job := &domain.TrainingJob{
		ID:                 uuid.NewString(),
		OwnerID:            params.OwnerID,
		Label:              params.Label,
		Gender:             params.Gender,
		Status:             domain.JobStatusPending,
		ProviderTrainingID: providerID,
		Locale:             params.Locale,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent request won the slot between the pre-check and
			// the insert.
			return "", fmt.Errorf("%w: training %q is already in progress", domain.ErrInvalidRequest, params.Label)
		}
		return "", err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", job.OwnerID).
		Str("label", job.Label).
		Str("provider_training_id", providerID).
		Msg("training: job created")
	return job.ID, nil
}

// ApplyStatus ingests one provider callback. Replays of an already-applied
// terminal status are acknowledged without effect; a terminal status that
// contradicts the stored one is logged as an anomaly and the stored state
// wins. The dispatcher is notified exactly once, on the single callback
// that actually performs the transition.
func (s *Service) ApplyStatus(ctx context.Context, params ApplyStatusParams) error {
	if params.OwnerID == "" || params.Label == "" {
		return fmt.Errorf("%w: owner_id and label are required", domain.ErrMalformedCallback)
	}
	if !params.Status.Terminal() {
		return fmt.Errorf("%w: unexpected status %q", domain.ErrMalformedCallback, params.Status)
	}
	if params.Status == domain.JobStatusSucceeded && params.ResultVersion == "" {
		return fmt.Errorf("%w: succeeded callback is missing version", domain.ErrMalformedCallback)
	}

	applied, job, err := s.jobs.ApplyTerminal(ctx, params.OwnerID, params.Label, params.Status, params.ResultVersion)
	if err != nil {
		return err
	}
	if !applied {
		if job.Status == params.Status {
			s.logger.Debug().
				Str("job_id", job.ID).
				Str("status", string(job.Status)).
				Msg("training: duplicate terminal callback ignored")
			return nil
		}
		s.logger.Warn().
			Str("job_id", job.ID).
			Str("stored_status", string(job.Status)).
			Str("incoming_status", string(params.Status)).
			Msg("training: conflicting terminal callback, keeping first outcome")
		return nil
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", job.OwnerID).
		Str("status", string(job.Status)).
		Msg("training: job reached terminal state")

	s.notifier.Notify(job.OwnerID, push.Event{
		Type:       push.EventTrainingStatus,
		TrainingID: job.ID,
		ModelName:  job.Label,
		Status:     string(job.Status),
		Message:    statusMessage(job.Status, job.Locale),
	})
	return nil
}

// AuthorizeGeneration is the read-side gate in front of image generation:
// the job must exist and have succeeded. No state is mutated.
func (s *Service) AuthorizeGeneration(ctx context.Context, jobID string) (*domain.TrainingJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case domain.JobStatusPending:
		return nil, domain.ErrNotReady
	case domain.JobStatusFailed:
		return nil, domain.ErrTrainingFailed
	}
	return job, nil
}

// Generate runs the trained model once per prompt configured for the job's
// gender. A single failing prompt is skipped; only a fully empty run is an
// upstream error.
func (s *Service) Generate(ctx context.Context, jobID string) ([]GeneratedImage, error) {
	job, err := s.AuthorizeGeneration(ctx, jobID)
	if err != nil {
		return nil, err
	}

	set, err := s.prompts.GetByGender(ctx, job.Gender)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no prompts for gender %q", domain.ErrNotFound, job.Gender)
		}
		return nil, err
	}

	images := make([]GeneratedImage, 0, len(set.Prompts))
	var lastErr error
	for key, prompt := range set.Prompts {
		urls, err := s.runner.RunModel(ctx, job.ResultVersion, map[string]any{"prompt": prompt})
		if err != nil {
			lastErr = err
			s.logger.Error().Err(err).
				Str("job_id", job.ID).
				Str("prompt_key", key).
				Msg("training: generation run failed")
			continue
		}
		if len(urls) == 0 {
			s.logger.Warn().
				Str("job_id", job.ID).
				Str("prompt_key", key).
				Msg("training: generation produced no output")
			continue
		}
		images = append(images, GeneratedImage{Key: key, URL: urls[0]})
	}
	if len(images) == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, lastErr)
	}
	return images, nil
}

// callbackURL builds the provider webhook target with the job key as
// separate query parameters, so a label containing any separator survives
// the round trip intact.
func (s *Service) callbackURL(ownerID, label string) string {
	q := url.Values{}
	q.Set("owner_id", ownerID)
	q.Set("label", label)
	return s.webhookBaseURL + "/replicate-webhook?" + q.Encode()
}

func statusMessage(status domain.JobStatus, locale string) string {
	if status == domain.JobStatusSucceeded {
		if locale == "id" {
			return "Pelatihan model Anda telah selesai!"
		}
		return "Your model training is complete!"
	}
	if locale == "id" {
		return "Terjadi masalah saat melatih model Anda."
	}
	return "There was an issue with your model training."
}
