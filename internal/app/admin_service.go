package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"giveaway_payout_service/internal/domain/giveaway"
	idb "giveaway_payout_service/internal/infra/database"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the admin service
var ErrOpenCycleExists = fmt.Errorf("an open giveaway cycle already exists")
var ErrInvalidCondition = fmt.Errorf("invalid giveaway condition")
var ErrCycleNotLockable = fmt.Errorf("cycle is no longer open and cannot be locked")

// AdminService handles the administrative seeding of new cycles and locking
// of enrollment. A new OPEN cycle may only be created while none exists; the
// store backs this with a partial unique index.
type AdminService struct {
	repo   giveaway.Repository
	logger *logrus.Logger
}

func NewAdminService(repo giveaway.Repository, logger *logrus.Logger) *AdminService {
	return &AdminService{repo: repo, logger: logger}
}

// SeedCycle creates a new open cycle governed by the supplied parameters.
func (s *AdminService) SeedCycle(ctx context.Context, amount decimal.Decimal, scheduledAt time.Time, maxParticipants int, isTestMode bool) (*giveaway.Cycle, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidCondition, amount)
	}
	if maxParticipants <= 0 {
		return nil, fmt.Errorf("%w: max participants must be positive, got %d", ErrInvalidCondition, maxParticipants)
	}

	cond := &giveaway.Condition{
		Amount:          amount,
		IsTestMode:      isTestMode,
		MaxParticipants: maxParticipants,
	}
	if !scheduledAt.IsZero() {
		cond.ScheduledAt = sql.NullTime{Time: scheduledAt, Valid: true}
	}

	cycle, err := s.repo.CreateOpenCycle(ctx, cond)
	if err != nil {
		if err == idb.ErrOpenCycleExists {
			return nil, ErrOpenCycleExists
		}
		return nil, fmt.Errorf("failed to create open cycle: %w", err)
	}

	s.logger.Infof("Seeded cycle %d: amount=%s, scheduled=%v, max=%d, test=%v.",
		cycle.ID, amount, scheduledAt, maxParticipants, isTestMode)
	return cycle, nil
}

// LockCycle closes enrollment on the currently open cycle.
func (s *AdminService) LockCycle(ctx context.Context) (*giveaway.Cycle, error) {
	cycle, err := s.repo.OpenCycle(ctx)
	if err != nil {
		if err == idb.ErrNoOpenCycle {
			return nil, ErrNoOpenCycle
		}
		return nil, fmt.Errorf("failed to resolve open cycle: %w", err)
	}

	err = s.repo.TransitionCycle(ctx, cycle.ID, giveaway.StatusOpen, giveaway.StatusLocked)
	if err != nil {
		if err == idb.ErrClaimConflict {
			// The cycle moved on (claimed or locked elsewhere) between the
			// read and the transition.
			return nil, ErrCycleNotLockable
		}
		return nil, fmt.Errorf("failed to lock cycle %d: %w", cycle.ID, err)
	}

	cycle.Status = giveaway.StatusLocked
	s.logger.Infof("Cycle %d locked, enrollment closed.", cycle.ID)
	return cycle, nil
}
