package giveaway

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress indicates the supplied string is not a valid hex-encoded
// Ethereum address.
var ErrInvalidAddress = fmt.Errorf("invalid payout address")

// NormalizeAddress validates addr as an Ethereum address and returns its
// canonical stored form: 0x-prefixed lower-case hex. Addresses are compared
// and persisted exclusively in this form.
func NormalizeAddress(addr string) (string, error) {
	trimmed := strings.TrimSpace(addr)
	if !common.IsHexAddress(trimmed) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(trimmed).Hex()), nil
}
