// Package royalty models EIP-2981 style resale royalty terms.
package royalty

import (
	"fmt"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/types"
)

const (
	// Denominator is the basis-point scale: 10000 bps = 100%.
	Denominator uint16 = 10000
	// DefaultBps is the royalty applied to every token until changed (10%).
	DefaultBps uint16 = 1000
)

// Override is a per-token royalty that replaces the default.
type Override struct {
	types.Entity
	SaleID  id.SaleID `json:"sale_id"`
	TokenID uint64    `json:"token_id"`
	Bps     uint16    `json:"bps"`
}

// Validate rejects fractions above 100%.
func Validate(bps uint16) error {
	if bps > Denominator {
		return fmt.Errorf("royalty: %d bps exceeds %d", bps, Denominator)
	}
	return nil
}

// Amount returns floor(saleAmount * bps / 10000).
func Amount(saleAmount types.Amount, bps uint16) types.Amount {
	return saleAmount.MulUint(uint64(bps)).DivUint(uint64(Denominator))
}
