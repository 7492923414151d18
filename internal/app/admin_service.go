package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"membership_renewal_service/internal/domain/membership"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = errors.New("performing user is not authorized as an admin")
var ErrSweepInProgress = errors.New("a renewal sweep is already in progress")
var ErrInvalidLookahead = errors.New("lookahead must be positive")

// SweepTrigger runs a sweep on demand under the same guard as the scheduled run.
type SweepTrigger interface {
	RunNow(ctx context.Context) (*SweepReport, error)
}

type AdminService struct {
	clientRepo      membership.Repository
	trigger         SweepTrigger
	adminTelegramID int64
	now             func() time.Time
}

func NewAdminService(cr membership.Repository, trigger SweepTrigger, adminID int64) *AdminService {
	return &AdminService{
		clientRepo:      cr,
		trigger:         trigger,
		adminTelegramID: adminID,
		now:             time.Now,
	}
}

// ListExpiring returns active memberships ending within the lookahead, soonest first.
func (s *AdminService) ListExpiring(ctx context.Context, performingAdminID int64, within time.Duration) ([]*membership.Client, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	if within <= 0 {
		return nil, ErrInvalidLookahead
	}

	clients, err := s.clientRepo.Find(ctx, membership.ReminderCandidatesQuery(s.now(), within))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring memberships: %w", err)
	}
	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].EndDate.Time.Before(clients[j].EndDate.Time)
	})
	return clients, nil
}

// TriggerSweep runs the renewal sweep immediately on behalf of the admin.
func (s *AdminService) TriggerSweep(ctx context.Context, performingAdminID int64) (*SweepReport, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.trigger.RunNow(ctx)
}
