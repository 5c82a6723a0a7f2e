package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// SubscriptionRepositoryPG implements domain.SubscriptionRepository.
type SubscriptionRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a subscription repository backed by PostgreSQL.
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepositoryPG {
	return &SubscriptionRepositoryPG{pool: pool}
}

// MarkActive upserts the owner's subscription to active. The payment
// webhook and the synchronous verification path both call this; whichever
// arrives second is a harmless overwrite.
func (r *SubscriptionRepositoryPG) MarkActive(ctx context.Context, ownerID, subscriptionRef string) error {
	query := `
INSERT INTO subscriptions (owner_id, active, subscription_ref)
VALUES ($1, TRUE, $2)
ON CONFLICT (owner_id) DO UPDATE
SET active = TRUE,
    subscription_ref = EXCLUDED.subscription_ref,
    updated_at = NOW();
`
	_, err := r.pool.Exec(ctx, query, ownerID, subscriptionRef)
	return err
}

// Get fetches the subscription row for an owner.
func (r *SubscriptionRepositoryPG) Get(ctx context.Context, ownerID string) (*domain.Subscription, error) {
	query := `
SELECT owner_id, active, COALESCE(subscription_ref, ''), created_at, updated_at
FROM subscriptions
WHERE owner_id = $1;
`
	row := r.pool.QueryRow(ctx, query, ownerID)
	var sub domain.Subscription
	if err := row.Scan(&sub.OwnerID, &sub.Active, &sub.SubscriptionRef, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}
