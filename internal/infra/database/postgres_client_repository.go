package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"membership_renewal_service/internal/domain/membership"

	"github.com/jmoiron/sqlx"
)

// Custom errors
var ErrClientNotFound = errors.New("client not found")
var ErrMembershipNotActive = errors.New("membership is not active")

type PostgresClientRepository struct {
	db *sqlx.DB
}

func NewPostgresClientRepository(db *sqlx.DB) *PostgresClientRepository {
	return &PostgresClientRepository{db: db}
}

func (r *PostgresClientRepository) Find(ctx context.Context, q membership.Query) ([]*membership.Client, error) {
	query, args := buildFindQuery(q)
	clients := make([]*membership.Client, 0)
	if err := r.db.SelectContext(ctx, &clients, query, args...); err != nil {
		return nil, fmt.Errorf("error querying clients: %w", err)
	}
	return clients, nil
}

func (r *PostgresClientRepository) GetByID(ctx context.Context, id int64) (*membership.Client, error) {
	query := selectClientColumns + ` WHERE id = $1`
	c := &membership.Client{}
	if err := r.db.GetContext(ctx, c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("error getting client by ID: %w", err)
	}
	return c, nil
}

// UpdateLastNotifiedAt records when the last renewal reminder went out.
func (r *PostgresClientRepository) UpdateLastNotifiedAt(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE clients
               SET membership_last_notified_at = $1, updated_at = NOW()
               WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("error updating last notification time: %w", err)
	}
	return requireOneRow(res, ErrClientNotFound, id)
}

// ExpireMembership sets the status to EXPIRED only while the row is still ACTIVE,
// so a renewal committed in the meantime is left alone.
func (r *PostgresClientRepository) ExpireMembership(ctx context.Context, id int64) error {
	query := `UPDATE clients
               SET membership_status = $1, updated_at = NOW()
               WHERE id = $2 AND membership_status = $3`
	res, err := r.db.ExecContext(ctx, query, string(membership.StatusExpired), id, string(membership.StatusActive))
	if err != nil {
		return fmt.Errorf("error expiring membership: %w", err)
	}
	return requireOneRow(res, ErrMembershipNotActive, id)
}

func requireOneRow(res sql.Result, notFound error, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("client %d: %w", id, notFound)
	}
	return nil
}
