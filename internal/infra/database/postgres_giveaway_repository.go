// internal/infra/database/postgres_giveaway_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"giveaway_payout_service/internal/domain/giveaway"

	"github.com/lib/pq"
)

// Custom errors specific to the giveaway repository. Callers branch on these
// instead of inspecting driver error payloads.
var (
	ErrCycleNotFound        = fmt.Errorf("giveaway cycle not found")
	ErrNoOpenCycle          = fmt.Errorf("no open giveaway cycle")
	ErrNoDueCycle           = fmt.Errorf("no giveaway cycle is due")
	ErrOpenCycleExists      = fmt.Errorf("an open giveaway cycle already exists")
	ErrConditionNotFound    = fmt.Errorf("giveaway condition not found")
	ErrDuplicateParticipant = fmt.Errorf("duplicate participant (cycle_id, address)")
	ErrParticipantNotFound  = fmt.Errorf("participant not found")
	ErrCycleFull            = fmt.Errorf("giveaway cycle is at its participant cap")
	ErrClaimConflict        = fmt.Errorf("cycle status changed since read, claim lost")
)

const uniqueViolationCode = pq.ErrorCode("23505")

type PostgresGiveawayRepository struct {
	db *sql.DB
}

func NewPostgresGiveawayRepository(db *sql.DB) *PostgresGiveawayRepository {
	return &PostgresGiveawayRepository{db: db}
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode && pqErr.Constraint == constraint
	}
	return false
}

// --- Cycle Methods ---

func (r *PostgresGiveawayRepository) CreateOpenCycle(ctx context.Context, cond *giveaway.Condition) (*giveaway.Cycle, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for cycle creation: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	cycle := giveaway.Cycle{Status: giveaway.StatusOpen}
	err = txn.QueryRowContext(ctx,
		`INSERT INTO giveaway_cycles (status) VALUES ($1)
          RETURNING id, attempts, created_at, updated_at`,
		giveaway.StatusOpen,
	).Scan(&cycle.ID, &cycle.Attempts, &cycle.CreatedAt, &cycle.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "one_open_cycle") {
			return nil, ErrOpenCycleExists
		}
		return nil, fmt.Errorf("error creating giveaway cycle: %w", err)
	}

	_, err = txn.ExecContext(ctx,
		`INSERT INTO giveaway_conditions (cycle_id, amount, scheduled_at, is_test_mode, max_participants)
          VALUES ($1, $2, $3, $4, $5)`,
		cycle.ID, cond.Amount, cond.ScheduledAt, cond.IsTestMode, cond.MaxParticipants,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating giveaway condition: %w", err)
	}
	cond.CycleID = cycle.ID

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cycle creation: %w", err)
	}
	return &cycle, nil
}

func (r *PostgresGiveawayRepository) OpenCycle(ctx context.Context) (*giveaway.Cycle, error) {
	query := `SELECT id, status, attempts, created_at, updated_at
               FROM giveaway_cycles WHERE status = $1 LIMIT 1`
	cycle := giveaway.Cycle{}
	err := r.db.QueryRowContext(ctx, query, giveaway.StatusOpen).Scan(
		&cycle.ID, &cycle.Status, &cycle.Attempts, &cycle.CreatedAt, &cycle.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoOpenCycle
		}
		return nil, fmt.Errorf("error getting open giveaway cycle: %w", err)
	}
	return &cycle, nil
}

func (r *PostgresGiveawayRepository) CycleByID(ctx context.Context, id int64) (*giveaway.Cycle, error) {
	query := `SELECT id, status, attempts, created_at, updated_at
               FROM giveaway_cycles WHERE id = $1`
	cycle := giveaway.Cycle{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cycle.ID, &cycle.Status, &cycle.Attempts, &cycle.CreatedAt, &cycle.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error getting giveaway cycle by ID: %w", err)
	}
	return &cycle, nil
}

func (r *PostgresGiveawayRepository) ConditionByCycle(ctx context.Context, cycleID int64) (*giveaway.Condition, error) {
	query := `SELECT cycle_id, amount, scheduled_at, is_test_mode, max_participants
               FROM giveaway_conditions WHERE cycle_id = $1`
	cond := giveaway.Condition{}
	err := r.db.QueryRowContext(ctx, query, cycleID).Scan(
		&cond.CycleID, &cond.Amount, &cond.ScheduledAt, &cond.IsTestMode, &cond.MaxParticipants,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrConditionNotFound
		}
		return nil, fmt.Errorf("error getting giveaway condition: %w", err)
	}
	return &cond, nil
}

func (r *PostgresGiveawayRepository) NextDueCycle(ctx context.Context, now time.Time) (*giveaway.Cycle, error) {
	query := `SELECT c.id, c.status, c.attempts, c.created_at, c.updated_at
               FROM giveaway_cycles c
               JOIN giveaway_conditions gc ON gc.cycle_id = c.id
               WHERE c.status IN ($1, $2, $3)
                 AND gc.scheduled_at IS NOT NULL
                 AND gc.scheduled_at <= $4
               ORDER BY gc.scheduled_at ASC, c.id ASC
               LIMIT 1`
	cycle := giveaway.Cycle{}
	err := r.db.QueryRowContext(ctx, query, giveaway.StatusOpen, giveaway.StatusLocked, giveaway.StatusProcessing, now).Scan(
		&cycle.ID, &cycle.Status, &cycle.Attempts, &cycle.CreatedAt, &cycle.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoDueCycle
		}
		return nil, fmt.Errorf("error getting next due giveaway cycle: %w", err)
	}
	return &cycle, nil
}

// ClaimCycle performs the optimistic compare-and-set that grants exactly one
// executor the right to process a due cycle. The WHERE clause matches the
// previously observed status AND attempt count; a resume claim leaves the
// status at PROCESSING, so the counter increment is what makes concurrent
// claimants lose with zero rows.
func (r *PostgresGiveawayRepository) ClaimCycle(ctx context.Context, cycleID int64, from giveaway.CycleStatus, fromAttempts int) (int, error) {
	query := `UPDATE giveaway_cycles
               SET status = $1, attempts = attempts + 1, updated_at = NOW()
               WHERE id = $2 AND status = $3 AND attempts = $4
               RETURNING attempts`
	var attempts int
	err := r.db.QueryRowContext(ctx, query, giveaway.StatusProcessing, cycleID, from, fromAttempts).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrClaimConflict
		}
		return 0, fmt.Errorf("error claiming giveaway cycle %d: %w", cycleID, err)
	}
	return attempts, nil
}

func (r *PostgresGiveawayRepository) TransitionCycle(ctx context.Context, cycleID int64, from, to giveaway.CycleStatus) error {
	query := `UPDATE giveaway_cycles
               SET status = $1, updated_at = NOW()
               WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, cycleID, from)
	if err != nil {
		return fmt.Errorf("error transitioning giveaway cycle %d from %s to %s: %w", cycleID, from, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected for cycle transition: %w", err)
	}
	if affected == 0 {
		return ErrClaimConflict
	}
	return nil
}

// --- Participant Methods ---

// AddParticipant inserts the participant after a capacity check performed
// under a lock on the cycle row, so two concurrent joins racing for the last
// slot cannot both pass the check.
func (r *PostgresGiveawayRepository) AddParticipant(ctx context.Context, p *giveaway.Participant, maxParticipants int) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for participant insert: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	var cycleID int64
	err = txn.QueryRowContext(ctx,
		`SELECT id FROM giveaway_cycles WHERE id = $1 FOR UPDATE`, p.CycleID,
	).Scan(&cycleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrCycleNotFound
		}
		return fmt.Errorf("error locking cycle %d for participant insert: %w", p.CycleID, err)
	}

	var count int
	err = txn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM giveaway_participants WHERE cycle_id = $1`, p.CycleID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("error counting participants for capacity check: %w", err)
	}
	if count >= maxParticipants {
		return ErrCycleFull
	}

	err = txn.QueryRowContext(ctx,
		`INSERT INTO giveaway_participants (cycle_id, address)
          VALUES ($1, $2)
          RETURNING id, joined_at`,
		p.CycleID, p.Address,
	).Scan(&p.ID, &p.JoinedAt)
	if err != nil {
		if isUniqueViolation(err, "giveaway_participants_cycle_address_key") {
			return ErrDuplicateParticipant
		}
		return fmt.Errorf("error adding participant: %w", err)
	}

	return txn.Commit()
}

func (r *PostgresGiveawayRepository) ReplaceParticipant(ctx context.Context, cycleID int64, oldAddress, newAddress string) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for participant replacement: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	res, err := txn.ExecContext(ctx,
		`DELETE FROM giveaway_participants WHERE cycle_id = $1 AND address = $2`,
		cycleID, oldAddress,
	)
	if err != nil {
		return fmt.Errorf("error removing replaced participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected for participant removal: %w", err)
	}
	if affected == 0 {
		return ErrParticipantNotFound
	}

	_, err = txn.ExecContext(ctx,
		`INSERT INTO giveaway_participants (cycle_id, address) VALUES ($1, $2)`,
		cycleID, newAddress,
	)
	if err != nil {
		if isUniqueViolation(err, "giveaway_participants_cycle_address_key") {
			return ErrDuplicateParticipant
		}
		return fmt.Errorf("error inserting replacement participant: %w", err)
	}

	return txn.Commit()
}

func (r *PostgresGiveawayRepository) ListParticipants(ctx context.Context, cycleID int64) ([]*giveaway.Participant, error) {
	query := `SELECT id, cycle_id, address, joined_at
               FROM giveaway_participants
               WHERE cycle_id = $1 ORDER BY address ASC` // Canonical disbursement order
	rows, err := r.db.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("error querying participants by cycle: %w", err)
	}
	defer rows.Close()

	participants := make([]*giveaway.Participant, 0)
	for rows.Next() {
		p := giveaway.Participant{}
		if err := rows.Scan(&p.ID, &p.CycleID, &p.Address, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("error scanning participant row: %w", err)
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return participants, nil
}

func (r *PostgresGiveawayRepository) CountParticipants(ctx context.Context, cycleID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM giveaway_participants WHERE cycle_id = $1`, cycleID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting participants: %w", err)
	}
	return count, nil
}

func (r *PostgresGiveawayRepository) IsParticipant(ctx context.Context, cycleID int64, address string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM giveaway_participants WHERE cycle_id = $1 AND address = $2)`,
		cycleID, address,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking participant membership: %w", err)
	}
	return exists, nil
}

// --- Outcome Methods ---

func (r *PostgresGiveawayRepository) RecordOutcome(ctx context.Context, o *giveaway.PayoutOutcome) error {
	query := `INSERT INTO payout_outcomes (cycle_id, address, share_amount, transfer_id, outcome, simulated, failure_reason)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, attempted_at`
	err := r.db.QueryRowContext(ctx, query,
		o.CycleID, o.Address, o.ShareAmount, o.TransferID, o.Result, o.Simulated, o.FailureReason,
	).Scan(&o.ID, &o.AttemptedAt)
	if err != nil {
		return fmt.Errorf("error recording payout outcome: %w", err)
	}
	return nil
}

func (r *PostgresGiveawayRepository) OutcomesByCycle(ctx context.Context, cycleID int64) ([]*giveaway.PayoutOutcome, error) {
	query := `SELECT id, cycle_id, address, share_amount, transfer_id, outcome, simulated, failure_reason, attempted_at
               FROM payout_outcomes
               WHERE cycle_id = $1 ORDER BY attempted_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("error querying payout outcomes by cycle: %w", err)
	}
	defer rows.Close()

	outcomes := make([]*giveaway.PayoutOutcome, 0)
	for rows.Next() {
		o := giveaway.PayoutOutcome{}
		if err := rows.Scan(
			&o.ID, &o.CycleID, &o.Address, &o.ShareAmount,
			&o.TransferID, &o.Result, &o.Simulated, &o.FailureReason, &o.AttemptedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning payout outcome row: %w", err)
		}
		outcomes = append(outcomes, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payout outcome rows: %w", err)
	}
	return outcomes, nil
}
