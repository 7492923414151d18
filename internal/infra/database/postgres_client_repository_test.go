package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"membership_renewal_service/internal/domain/membership"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clientColumns = []string{
	"id", "first_name", "last_name", "email", "membership_plan_type",
	"membership_start_date", "membership_end_date", "membership_status",
	"membership_last_notified_at", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PostgresClientRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresClientRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresClientRepository_Find(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)
	end := now.Add(72 * time.Hour)

	rows := sqlmock.NewRows(clientColumns).
		AddRow(1, "Dana", "Okafor", "dana@example.com", "annual", now.AddDate(-1, 0, 0), end, "ACTIVE", nil, now, now).
		AddRow(2, "Lee", nil, "lee@example.com", "", nil, end, "ACTIVE", now.Add(-time.Hour), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE membership_status = $1 AND membership_end_date >= $2 AND membership_end_date <= $3")).
		WithArgs("ACTIVE", now, now.Add(7*24*time.Hour)).
		WillReturnRows(rows)

	clients, err := repo.Find(context.Background(), membership.ReminderCandidatesQuery(now, 7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, clients, 2)

	assert.Equal(t, "Dana Okafor", clients[0].FullName())
	assert.Equal(t, "annual", clients[0].PlanType)
	assert.Equal(t, membership.StatusActive, clients[0].Status)
	assert.False(t, clients[0].LastNotifiedAt.Valid)
	assert.True(t, clients[0].EndDate.Time.Equal(end))

	assert.False(t, clients[1].LastName.Valid)
	assert.False(t, clients[1].StartDate.Valid)
	assert.True(t, clients[1].LastNotifiedAt.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepository_Find_Error(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err := repo.Find(context.Background(), membership.NewQuery())
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(clientColumns).
			AddRow(5, "Sam", nil, "sam@example.com", "monthly", now, now.AddDate(0, 1, 0), "PENDING", nil, now, now))

	c, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.ID)
	assert.Equal(t, membership.StatusPending, c.Status)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE id = $1")).
		WithArgs(int64(6)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), 6)
	assert.ErrorIs(t, err, ErrClientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepository_UpdateLastNotifiedAt(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("SET membership_last_notified_at = $1")).
		WithArgs(at, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateLastNotifiedAt(context.Background(), 1, at))

	mock.ExpectExec(regexp.QuoteMeta("SET membership_last_notified_at = $1")).
		WithArgs(at, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateLastNotifiedAt(context.Background(), 2, at), ErrClientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepository_ExpireMembership(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND membership_status = $3")).
		WithArgs("EXPIRED", int64(1), "ACTIVE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ExpireMembership(context.Background(), 1))

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND membership_status = $3")).
		WithArgs("EXPIRED", int64(1), "ACTIVE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.ExpireMembership(context.Background(), 1), ErrMembershipNotActive)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND membership_status = $3")).
		WithArgs("EXPIRED", int64(3), "ACTIVE").
		WillReturnError(errors.New("deadlock detected"))
	err := repo.ExpireMembership(context.Background(), 3)
	assert.ErrorContains(t, err, "deadlock detected")
	assert.NotErrorIs(t, err, ErrMembershipNotActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}
