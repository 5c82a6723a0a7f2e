package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// TrainingJobRepositoryPG implements domain.TrainingJobRepository.
type TrainingJobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTrainingJobRepository creates a training job repository backed by PostgreSQL.
func NewTrainingJobRepository(pool *pgxpool.Pool) *TrainingJobRepositoryPG {
	return &TrainingJobRepositoryPG{pool: pool}
}

// Create inserts a pending job. The ON CONFLICT guard resets a terminal
// slot in place but refuses to touch a still-pending one, so the duplicate
// check and the insert are a single atomic statement.
func (r *TrainingJobRepositoryPG) Create(ctx context.Context, job *domain.TrainingJob) error {
	query := `
INSERT INTO training_jobs (id, owner_id, label, gender, status, provider_training_id, locale)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (owner_id, label) DO UPDATE
SET id = EXCLUDED.id,
    gender = EXCLUDED.gender,
    status = EXCLUDED.status,
    result_version = NULL,
    provider_training_id = EXCLUDED.provider_training_id,
    locale = EXCLUDED.locale,
    updated_at = NOW()
WHERE training_jobs.status <> 'pending'
RETURNING created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, query,
		job.ID,
		job.OwnerID,
		job.Label,
		job.Gender,
		job.Status,
		job.ProviderTrainingID,
		job.Locale,
	)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *TrainingJobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.TrainingJob, error) {
	return r.get(ctx, `
SELECT id, owner_id, label, gender, status, COALESCE(result_version, ''), provider_training_id, locale, created_at, updated_at
FROM training_jobs
WHERE id = $1;
`, jobID)
}

// GetByOwnerLabel fetches the job occupying an owner's labeled slot.
func (r *TrainingJobRepositoryPG) GetByOwnerLabel(ctx context.Context, ownerID, label string) (*domain.TrainingJob, error) {
	return r.get(ctx, `
SELECT id, owner_id, label, gender, status, COALESCE(result_version, ''), provider_training_id, locale, created_at, updated_at
FROM training_jobs
WHERE owner_id = $1 AND label = $2;
`, ownerID, label)
}

// ApplyTerminal performs the pending->terminal transition as a single
// compare-and-set UPDATE. Out-of-order webhook deliveries race on this
// statement; whichever lands first wins and later ones observe applied=false.
func (r *TrainingJobRepositoryPG) ApplyTerminal(ctx context.Context, ownerID, label string, status domain.JobStatus, resultVersion string) (bool, *domain.TrainingJob, error) {
	query := `
UPDATE training_jobs
SET status = $3,
    result_version = NULLIF($4, ''),
    updated_at = NOW()
WHERE owner_id = $1 AND label = $2 AND status = 'pending'
RETURNING id, owner_id, label, gender, status, COALESCE(result_version, ''), provider_training_id, locale, created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, query, ownerID, label, status, resultVersion)
	job, err := scanJob(row)
	if err == nil {
		return true, job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, nil, err
	}

	// Either the key is unknown or the job is already terminal.
	job, err = r.GetByOwnerLabel(ctx, ownerID, label)
	if err != nil {
		return false, nil, err
	}
	return false, job, nil
}

func (r *TrainingJobRepositoryPG) get(ctx context.Context, query string, args ...any) (*domain.TrainingJob, error) {
	job, err := scanJob(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func scanJob(row pgx.Row) (*domain.TrainingJob, error) {
	var job domain.TrainingJob
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Label,
		&job.Gender,
		&job.Status,
		&job.ResultVersion,
		&job.ProviderTrainingID,
		&job.Locale,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}
