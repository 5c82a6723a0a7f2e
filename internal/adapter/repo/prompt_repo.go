package repo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// PromptRepositoryPG implements domain.PromptRepository.
type PromptRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewPromptRepository creates a prompt repository backed by PostgreSQL.
func NewPromptRepository(pool *pgxpool.Pool) *PromptRepositoryPG {
	return &PromptRepositoryPG{pool: pool}
}

// GetByGender loads the prompt set for a category.
func (r *PromptRepositoryPG) GetByGender(ctx context.Context, gender string) (*domain.PromptSet, error) {
	query := `
SELECT prompts
FROM image_prompts
WHERE gender = $1;
`
	row := r.pool.QueryRow(ctx, query, gender)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	set := &domain.PromptSet{Gender: gender, Prompts: map[string]string{}}
	if err := json.Unmarshal(raw, &set.Prompts); err != nil {
		return nil, err
	}
	return set, nil
}
