package giveaway

import "time"

// Participant is one admitted payout address within a cycle.
// (cycle_id, address) is unique; rows are kept as an audit trail and are
// only ever removed as part of an atomic address replacement.
type Participant struct {
	ID       int64
	CycleID  int64
	Address  string // normalized lower-case hex, see NormalizeAddress
	JoinedAt time.Time
}
