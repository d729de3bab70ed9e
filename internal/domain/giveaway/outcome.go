package giveaway

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// OutcomeResult is the terminal result of one disbursement attempt.
type OutcomeResult string

const (
	OutcomeSucceeded OutcomeResult = "SUCCEEDED"
	OutcomeFailed    OutcomeResult = "FAILED"
)

// PayoutOutcome is the durable, append-only record of one disbursement
// attempt to one participant. Rows are never mutated after write so that a
// resumed run can distinguish "already paid" from "needs retry".
type PayoutOutcome struct {
	ID            int64
	CycleID       int64
	Address       string
	ShareAmount   decimal.Decimal
	TransferID    sql.NullString // transaction hash; null for simulated or failed attempts
	Result        OutcomeResult
	Simulated     bool // recorded by a dry run, never counts as paid
	FailureReason sql.NullString
	AttemptedAt   time.Time
}

// Paid reports whether this outcome settles the participant for real.
func (o *PayoutOutcome) Paid() bool {
	return o.Result == OutcomeSucceeded && !o.Simulated
}
