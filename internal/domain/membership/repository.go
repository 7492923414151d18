package membership

import (
	"context"
	"time"
)

// Repository defines the client-record operations the renewal sweep relies on.
// Updates are single-field and keyed by client ID; there is no locking.
type Repository interface {
	Find(ctx context.Context, q Query) ([]*Client, error)
	GetByID(ctx context.Context, id int64) (*Client, error)
	UpdateLastNotifiedAt(ctx context.Context, id int64, at time.Time) error
	// ExpireMembership flips an ACTIVE membership to EXPIRED.
	// It must not touch a row that is no longer ACTIVE.
	ExpireMembership(ctx context.Context, id int64) error
}
