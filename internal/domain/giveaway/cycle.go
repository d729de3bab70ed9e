// internal/domain/giveaway/cycle.go
package giveaway

import "time"

// Cycle represents one instance of the recurring pot, from open enrollment
// through completed/failed payout. Corresponds to the 'giveaway_cycles' table.
type Cycle struct {
	ID        int64
	Status    CycleStatus
	Attempts  int // number of real (non-dry-run) payout claims on this cycle
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CycleStatus is the lifecycle state of a giveaway cycle.
type CycleStatus string

const (
	StatusOpen       CycleStatus = "OPEN"       // enrollment is accepting participants
	StatusLocked     CycleStatus = "LOCKED"     // enrollment closed, payout not started
	StatusProcessing CycleStatus = "PROCESSING" // claimed by a payout executor
	StatusCompleted  CycleStatus = "COMPLETED"  // every participant paid
	StatusFailed     CycleStatus = "FAILED"     // retry budget exhausted, manual intervention required
)
