package app

import (
	"context"
	"fmt"

	"giveaway_payout_service/internal/domain/giveaway"
	idb "giveaway_payout_service/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the enrollment service. These are
// business conflicts the caller can render a specific message for, not
// system failures.
var ErrNoOpenCycle = fmt.Errorf("no giveaway cycle is open for enrollment")
var ErrCycleFull = fmt.Errorf("the open giveaway cycle has reached its participant cap")
var ErrAddressTaken = fmt.Errorf("address is already enrolled in the open cycle")

// EnrollmentService admits payout addresses into the currently open cycle.
type EnrollmentService struct {
	repo   giveaway.Repository
	logger *logrus.Logger
}

func NewEnrollmentService(repo giveaway.Repository, logger *logrus.Logger) *EnrollmentService {
	return &EnrollmentService{repo: repo, logger: logger}
}

// Join enrolls address into the open cycle. previousAddress and
// previousCycleID are untrusted caller-supplied hints; when they check out
// against the stored participant set the call is treated as an address
// replacement for the caller's existing slot, otherwise as a plain join.
func (s *EnrollmentService) Join(ctx context.Context, address, previousAddress string, previousCycleID int64) (*StatusSnapshot, error) {
	normalized, err := giveaway.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	cycle, err := s.repo.OpenCycle(ctx)
	if err != nil {
		if err == idb.ErrNoOpenCycle {
			return nil, ErrNoOpenCycle
		}
		return nil, fmt.Errorf("failed to resolve open cycle: %w", err)
	}

	cond, err := s.repo.ConditionByCycle(ctx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load condition for cycle %d: %w", cycle.ID, err)
	}

	enrolled, err := s.repo.IsParticipant(ctx, cycle.ID, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment for cycle %d: %w", cycle.ID, err)
	}
	if enrolled {
		// Repeat join of the caller's own address is a no-op.
		s.logger.Debugf("Address %s already enrolled in cycle %d, join is a no-op.", normalized, cycle.ID)
		return s.snapshot(ctx, cycle, cond, normalized)
	}

	if replaced, err := s.tryReplace(ctx, cycle, normalized, previousAddress, previousCycleID); err != nil {
		return nil, err
	} else if replaced {
		s.logger.Infof("Address %s replaced %s in cycle %d.", normalized, previousAddress, cycle.ID)
		return s.snapshot(ctx, cycle, cond, normalized)
	}

	// Capacity is enforced by the store inside the insert itself, so two
	// joins racing for the last slot cannot both get in.
	err = s.repo.AddParticipant(ctx, &giveaway.Participant{CycleID: cycle.ID, Address: normalized}, cond.MaxParticipants)
	if err != nil {
		if err == idb.ErrCycleFull {
			return nil, ErrCycleFull
		}
		if err == idb.ErrDuplicateParticipant {
			// Lost a race against a concurrent join of the same address.
			return nil, ErrAddressTaken
		}
		return nil, fmt.Errorf("failed to add participant to cycle %d: %w", cycle.ID, err)
	}
	s.logger.Infof("Address %s joined cycle %d.", normalized, cycle.ID)

	return s.snapshot(ctx, cycle, cond, normalized)
}

// tryReplace performs the replace-or-insert decision. The previous-address
// hint is only honored when it names the current open cycle, normalizes to a
// different address than the new one, and actually occupies a slot.
func (s *EnrollmentService) tryReplace(ctx context.Context, cycle *giveaway.Cycle, newAddress, previousAddress string, previousCycleID int64) (bool, error) {
	if previousCycleID != cycle.ID || previousAddress == "" {
		return false, nil
	}
	previous, err := giveaway.NormalizeAddress(previousAddress)
	if err != nil {
		// A malformed hint is ignored, not fatal; the join proceeds as a
		// plain insert.
		s.logger.Warnf("Ignoring malformed previous-address hint %q for cycle %d.", previousAddress, cycle.ID)
		return false, nil
	}
	if previous == newAddress {
		return false, nil
	}

	occupied, err := s.repo.IsParticipant(ctx, cycle.ID, previous)
	if err != nil {
		return false, fmt.Errorf("failed to verify previous enrollment for cycle %d: %w", cycle.ID, err)
	}
	if !occupied {
		return false, nil
	}

	err = s.repo.ReplaceParticipant(ctx, cycle.ID, previous, newAddress)
	if err != nil {
		if err == idb.ErrDuplicateParticipant {
			return false, ErrAddressTaken
		}
		if err == idb.ErrParticipantNotFound {
			// The slot vanished between the check and the swap; fall back to
			// a plain insert.
			return false, nil
		}
		return false, fmt.Errorf("failed to replace participant in cycle %d: %w", cycle.ID, err)
	}
	return true, nil
}

func (s *EnrollmentService) snapshot(ctx context.Context, cycle *giveaway.Cycle, cond *giveaway.Condition, callerAddress string) (*StatusSnapshot, error) {
	count, err := s.repo.CountParticipants(ctx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants for cycle %d: %w", cycle.ID, err)
	}
	enrolled, err := s.repo.IsParticipant(ctx, cycle.ID, callerAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment for cycle %d: %w", cycle.ID, err)
	}
	return newStatusSnapshot(cycle, cond, count, enrolled), nil
}
