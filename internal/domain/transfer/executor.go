package transfer

import (
	"context"

	"github.com/shopspring/decimal"
)

// Executor defines an interface for sending value to a single payout address.
// This decouples the payout engine from the concrete transfer network; the
// engine achieves at-most-once delivery through its own outcome ledger and
// makes no idempotency assumptions about implementations.
type Executor interface {
	// Send transfers amount to address and returns an opaque transaction
	// identifier. testMode routes the transfer to the test network.
	Send(ctx context.Context, address string, amount decimal.Decimal, testMode bool) (string, error)
}
