package domain

import "time"

// Subscription records the billing state for one owner. A row exists only
// after the first confirmed payment; Active never reverts through this
// service (cancellation handling is an out-of-band concern for now).
type Subscription struct {
	OwnerID         string
	Active          bool
	SubscriptionRef string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
