// internal/domain/giveaway/repository.go
package giveaway

import (
	"context"
	"time"
)

// Repository defines the ledger store operations for cycles, conditions,
// participants and payout outcomes. The store is the single source of truth
// shared between processes; the claim methods are the only cross-instance
// coordination mechanism.
type Repository interface {
	// Cycle methods
	//
	// CreateOpenCycle inserts a new OPEN cycle with its condition. The store
	// rejects it while another cycle is OPEN.
	CreateOpenCycle(ctx context.Context, cond *Condition) (*Cycle, error)
	OpenCycle(ctx context.Context) (*Cycle, error)
	CycleByID(ctx context.Context, id int64) (*Cycle, error)
	ConditionByCycle(ctx context.Context, cycleID int64) (*Condition, error)
	// NextDueCycle returns the earliest OPEN, LOCKED or PROCESSING cycle
	// whose condition is scheduled at or before now. PROCESSING cycles are
	// included so a partially paid cycle is picked up again for resumption.
	NextDueCycle(ctx context.Context, now time.Time) (*Cycle, error)
	// ClaimCycle atomically transitions the cycle from the status observed by
	// the caller to PROCESSING and increments its attempt counter, returning
	// the new counter value. The update is conditioned on both the observed
	// status and the observed attempt count: a resume claim is
	// PROCESSING-to-PROCESSING, so the counter is what makes two racing
	// claimants mutually exclusive. A zero-row update means another executor
	// won the claim and is reported as a conflict.
	ClaimCycle(ctx context.Context, cycleID int64, from CycleStatus, fromAttempts int) (int, error)
	// TransitionCycle is the same compare-and-set for non-claim transitions
	// (lock, complete, fail) without touching the attempt counter.
	TransitionCycle(ctx context.Context, cycleID int64, from, to CycleStatus) error

	// Participant methods
	//
	// AddParticipant inserts the participant only while the cycle holds fewer
	// than maxParticipants slots; the check and the insert are atomic so
	// concurrent joins cannot overshoot the cap.
	AddParticipant(ctx context.Context, p *Participant, maxParticipants int) error
	// ReplaceParticipant deletes (cycleID, oldAddress) and inserts newAddress
	// in one transaction so no intermediate state is observable.
	ReplaceParticipant(ctx context.Context, cycleID int64, oldAddress, newAddress string) error
	// ListParticipants returns the cycle's participants in ascending address
	// order, the canonical disbursement order.
	ListParticipants(ctx context.Context, cycleID int64) ([]*Participant, error)
	CountParticipants(ctx context.Context, cycleID int64) (int, error)
	IsParticipant(ctx context.Context, cycleID int64, address string) (bool, error)

	// Outcome methods
	RecordOutcome(ctx context.Context, o *PayoutOutcome) error
	OutcomesByCycle(ctx context.Context, cycleID int64) ([]*PayoutOutcome, error)
}
