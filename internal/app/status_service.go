package app

import (
	"context"
	"fmt"
	"time"

	"giveaway_payout_service/internal/domain/giveaway"
	idb "giveaway_payout_service/internal/infra/database"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrStoreUnavailable wraps ledger store failures surfaced by the read-only
// status projection.
var ErrStoreUnavailable = fmt.Errorf("ledger store unavailable")

// StatusSnapshot is the read-only view of the current cycle returned by the
// status and join operations.
type StatusSnapshot struct {
	CycleOpen        bool                 `json:"cycleOpen"`
	CycleID          int64                `json:"cycleId,omitempty"`
	CycleStatus      giveaway.CycleStatus `json:"cycleStatus,omitempty"`
	Amount           decimal.Decimal      `json:"amount"`
	ScheduledAt      *time.Time           `json:"scheduledAt,omitempty"`
	IsTestMode       bool                 `json:"isTestMode"`
	MaxParticipants  int                  `json:"maxParticipants"`
	ParticipantCount int                  `json:"participantCount"`
	CallerEnrolled   bool                 `json:"callerEnrolled"`
}

func newStatusSnapshot(cycle *giveaway.Cycle, cond *giveaway.Condition, count int, enrolled bool) *StatusSnapshot {
	snap := &StatusSnapshot{
		CycleOpen:        true,
		CycleID:          cycle.ID,
		CycleStatus:      cycle.Status,
		Amount:           cond.Amount,
		IsTestMode:       cond.IsTestMode,
		MaxParticipants:  cond.MaxParticipants,
		ParticipantCount: count,
		CallerEnrolled:   enrolled,
	}
	if cond.ScheduledAt.Valid {
		t := cond.ScheduledAt.Time
		snap.ScheduledAt = &t
	}
	return snap
}

// StatusService composes the current cycle, its condition, the participant
// count and the caller's membership into one snapshot. It never mutates.
type StatusService struct {
	repo   giveaway.Repository
	logger *logrus.Logger
}

func NewStatusService(repo giveaway.Repository, logger *logrus.Logger) *StatusService {
	return &StatusService{repo: repo, logger: logger}
}

// Status returns the current snapshot. callerAddress may be empty or
// malformed, in which case the caller is simply reported as not enrolled.
// When no cycle is open an empty snapshot with CycleOpen=false is returned
// rather than an error.
func (s *StatusService) Status(ctx context.Context, callerAddress string) (*StatusSnapshot, error) {
	cycle, err := s.repo.OpenCycle(ctx)
	if err != nil {
		if err == idb.ErrNoOpenCycle {
			return &StatusSnapshot{CycleOpen: false}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	cond, err := s.repo.ConditionByCycle(ctx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, err := s.repo.CountParticipants(ctx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	enrolled := false
	if callerAddress != "" {
		if normalized, normErr := giveaway.NormalizeAddress(callerAddress); normErr == nil {
			enrolled, err = s.repo.IsParticipant(ctx, cycle.ID, normalized)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
	}

	return newStatusSnapshot(cycle, cond, count, enrolled), nil
}
