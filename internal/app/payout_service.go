package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"giveaway_payout_service/internal/domain/giveaway"
	"giveaway_payout_service/internal/domain/transfer"
	idb "giveaway_payout_service/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// PayoutSummary is the result of one payout execution pass. It is always
// returned, including on partial failure, so callers can distinguish
// "nothing happened" from "something happened, some of it failed".
type PayoutSummary struct {
	Message           string   `json:"message"`
	TotalParticipants int      `json:"totalParticipants"`
	Succeeded         int      `json:"succeeded"`
	Failed            int      `json:"failed"`
	DryRun            bool     `json:"dryRun,omitempty"`
	TransactionHashes []string `json:"transactionHashes,omitempty"`
}

// PayoutService finds a due cycle, claims it, computes the equal-share
// distribution and drives the transfer executor once per unpaid participant.
// It holds no state across runs beyond what it reads from and writes to the
// ledger store, so multiple instances may fire concurrently and crashed runs
// are resumed by simple re-invocation.
type PayoutService struct {
	repo            giveaway.Repository
	executor        transfer.Executor
	logger          *logrus.Logger
	transferTimeout time.Duration
	maxAttempts     int // real claims before a still-unpaid cycle is marked FAILED
}

func NewPayoutService(
	repo giveaway.Repository,
	executor transfer.Executor,
	logger *logrus.Logger,
	transferTimeout time.Duration,
	maxAttempts int,
) *PayoutService {
	return &PayoutService{
		repo:            repo,
		executor:        executor,
		logger:          logger,
		transferTimeout: transferTimeout,
		maxAttempts:     maxAttempts,
	}
}

// Execute runs one payout pass. With dryRun the due cycle is not claimed and
// no transfer is issued; only simulated outcomes are recorded, so a dry run
// is always safe to abandon or repeat.
func (s *PayoutService) Execute(ctx context.Context, dryRun bool) (*PayoutSummary, error) {
	cycle, err := s.repo.NextDueCycle(ctx, time.Now())
	if err != nil {
		if err == idb.ErrNoDueCycle {
			return &PayoutSummary{Message: "no giveaway cycle is due", DryRun: dryRun}, nil
		}
		return nil, fmt.Errorf("failed to select due cycle: %w", err)
	}

	cond, err := s.repo.ConditionByCycle(ctx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load condition for cycle %d: %w", cycle.ID, err)
	}
	if !cond.Amount.IsPositive() || cond.MaxParticipants <= 0 || !cond.ScheduledAt.Valid {
		return nil, fmt.Errorf("cycle %d has an invalid condition (amount=%s, max=%d, scheduled=%v)",
			cycle.ID, cond.Amount, cond.MaxParticipants, cond.ScheduledAt.Valid)
	}

	attempts := cycle.Attempts
	if !dryRun {
		attempts, err = s.repo.ClaimCycle(ctx, cycle.ID, cycle.Status, cycle.Attempts)
		if err != nil {
			if err == idb.ErrClaimConflict {
				// Another executor instance won the claim; success no-op.
				s.logger.Infof("Cycle %d already claimed by another executor.", cycle.ID)
				return &PayoutSummary{Message: fmt.Sprintf("cycle %d already claimed", cycle.ID)}, nil
			}
			return nil, fmt.Errorf("failed to claim cycle %d: %w", cycle.ID, err)
		}
		s.logger.Infof("Claimed cycle %d for payout (attempt %d).", cycle.ID, attempts)
	}

	participants, err := s.repo.ListParticipants(ctx, cycle.ID)
	if err != nil {
		// The cycle stays PROCESSING; the next invocation resumes it.
		return nil, fmt.Errorf("failed to list participants for cycle %d: %w", cycle.ID, err)
	}

	if len(participants) == 0 {
		if !dryRun {
			if err := s.repo.TransitionCycle(ctx, cycle.ID, giveaway.StatusProcessing, giveaway.StatusCompleted); err != nil {
				return nil, fmt.Errorf("failed to complete empty cycle %d: %w", cycle.ID, err)
			}
			s.logger.Infof("Cycle %d completed with no participants.", cycle.ID)
		}
		return &PayoutSummary{
			Message: fmt.Sprintf("cycle %d has no participants", cycle.ID),
			DryRun:  dryRun,
		}, nil
	}

	// Ascending address order from ListParticipants makes share allocation
	// and remainder placement reproducible across runs.
	shares := giveaway.SplitAmount(cond.Amount, len(participants))

	paid, err := s.paidAddresses(ctx, cycle.ID)
	if err != nil {
		return nil, err
	}

	summary := &PayoutSummary{TotalParticipants: len(participants), DryRun: dryRun}
	for i, p := range participants {
		if paid[p.Address] {
			// Already settled by a previous run; never re-pay.
			summary.Succeeded++
			continue
		}

		outcome := &giveaway.PayoutOutcome{
			CycleID:     cycle.ID,
			Address:     p.Address,
			ShareAmount: shares[i],
		}

		if dryRun {
			outcome.Result = giveaway.OutcomeSucceeded
			outcome.Simulated = true
			summary.Succeeded++
		} else {
			callCtx, cancel := context.WithTimeout(ctx, s.transferTimeout)
			transferID, sendErr := s.executor.Send(callCtx, p.Address, shares[i], cond.IsTestMode)
			cancel()
			if sendErr != nil {
				s.logger.Errorf("Transfer to %s for cycle %d failed: %v", p.Address, cycle.ID, sendErr)
				outcome.Result = giveaway.OutcomeFailed
				outcome.FailureReason = sql.NullString{String: sendErr.Error(), Valid: true}
				summary.Failed++
			} else {
				s.logger.Infof("Transferred %s to %s for cycle %d (tx %s).", shares[i], p.Address, cycle.ID, transferID)
				outcome.Result = giveaway.OutcomeSucceeded
				outcome.TransferID = sql.NullString{String: transferID, Valid: true}
				summary.Succeeded++
				summary.TransactionHashes = append(summary.TransactionHashes, transferID)
			}
		}

		if err := s.repo.RecordOutcome(ctx, outcome); err != nil {
			// Abort the pass rather than continue with an unrecorded
			// disbursement; the cycle stays resumable.
			return nil, fmt.Errorf("failed to record payout outcome for %s in cycle %d: %w", p.Address, cycle.ID, err)
		}
	}

	if dryRun {
		summary.Message = fmt.Sprintf("dry run: cycle %d would pay %d participants", cycle.ID, len(participants))
		return summary, nil
	}

	switch {
	case summary.Failed == 0:
		if err := s.repo.TransitionCycle(ctx, cycle.ID, giveaway.StatusProcessing, giveaway.StatusCompleted); err != nil {
			return nil, fmt.Errorf("failed to complete cycle %d: %w", cycle.ID, err)
		}
		summary.Message = fmt.Sprintf("cycle %d completed: paid %d participants", cycle.ID, len(participants))
		s.logger.Infof("Cycle %d completed, %d participants paid.", cycle.ID, len(participants))
	case attempts >= s.maxAttempts:
		if err := s.repo.TransitionCycle(ctx, cycle.ID, giveaway.StatusProcessing, giveaway.StatusFailed); err != nil {
			return nil, fmt.Errorf("failed to mark cycle %d as failed: %w", cycle.ID, err)
		}
		summary.Message = fmt.Sprintf("cycle %d failed after %d attempts: %d of %d participants unpaid",
			cycle.ID, attempts, summary.Failed, len(participants))
		s.logger.Errorf("Cycle %d exhausted its retry budget (%d attempts), manual intervention required.", cycle.ID, attempts)
	default:
		summary.Message = fmt.Sprintf("cycle %d partially paid: %d succeeded, %d failed, will retry",
			cycle.ID, summary.Succeeded, summary.Failed)
		s.logger.Warnf("Cycle %d left in PROCESSING with %d unpaid participants.", cycle.ID, summary.Failed)
	}

	return summary, nil
}

// paidAddresses returns the set of addresses with a real (non-simulated)
// succeeded outcome for the cycle.
func (s *PayoutService) paidAddresses(ctx context.Context, cycleID int64) (map[string]bool, error) {
	outcomes, err := s.repo.OutcomesByCycle(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payout outcomes for cycle %d: %w", cycleID, err)
	}
	paid := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		if o.Paid() {
			paid[o.Address] = true
		}
	}
	return paid, nil
}
