package giveaway

import "github.com/shopspring/decimal"

// shareScale is the decimal precision of an individual share. The division
// remainder left over by truncation goes to the first participant so the
// shares always sum to the pot amount exactly.
const shareScale = 2

// SplitAmount divides total evenly across n participants. Each share is
// total/n truncated to shareScale decimal places; the residual remainder is
// added to the first share. Callers are expected to pair the result with a
// participant list in ascending address order so repeated runs allocate the
// remainder to the same participant.
func SplitAmount(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	count := decimal.NewFromInt(int64(n))
	base := total.Div(count).Truncate(shareScale)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = base
	}
	shares[0] = shares[0].Add(total.Sub(base.Mul(count)))
	return shares
}
