package domain

import "context"

// TrainingJobRepository defines persistence for training jobs.
type TrainingJobRepository interface {
	// Create inserts a pending job for (OwnerID, Label). A terminal job in
	// the same slot is replaced atomically; a still-pending job causes
	// ErrConflict so one slot never holds two live runs.
	Create(ctx context.Context, job *TrainingJob) error

	GetByID(ctx context.Context, jobID string) (*TrainingJob, error)
	GetByOwnerLabel(ctx context.Context, ownerID, label string) (*TrainingJob, error)

	// ApplyTerminal moves the job for (ownerID, label) from pending to the
	// given terminal status with a single compare-and-set update. It
	// reports applied=true with the updated record when the transition
	// happened, and applied=false with the stored record when the job was
	// already terminal (the caller decides between idempotent replay and
	// conflict). Unknown keys return ErrNotFound.
	ApplyTerminal(ctx context.Context, ownerID, label string, status JobStatus, resultVersion string) (applied bool, job *TrainingJob, err error)
}

// SubscriptionRepository defines persistence for subscription state.
type SubscriptionRepository interface {
	// MarkActive upserts the owner's subscription to active. Repeated
	// calls with any subscriptionRef converge on the same active row.
	MarkActive(ctx context.Context, ownerID, subscriptionRef string) error
	Get(ctx context.Context, ownerID string) (*Subscription, error)
}

// PromptRepository retrieves generation prompt sets.
type PromptRepository interface {
	GetByGender(ctx context.Context, gender string) (*PromptSet, error)
}
