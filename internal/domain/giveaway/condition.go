package giveaway

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Condition holds the fixed parameters governing one cycle's payout,
// one-to-one with a Cycle. Corresponds to the 'giveaway_conditions' table.
// Read-only to enrollment and payout; written by administrative seeding.
type Condition struct {
	CycleID         int64
	Amount          decimal.Decimal // pot total to distribute, > 0
	ScheduledAt     sql.NullTime    // cycle becomes due at this instant; must be set before claim
	IsTestMode      bool
	MaxParticipants int // > 0
}

// Due reports whether the cycle governed by this condition is due for payout.
// A condition with no schedule set is never due.
func (c *Condition) Due(now time.Time) bool {
	return c.ScheduledAt.Valid && !c.ScheduledAt.Time.After(now)
}
