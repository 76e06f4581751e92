package saleledger

import (
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/types"
)

// Re-export common types so callers rarely need the types and sale packages.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// Phase is re-exported from sale package.
type Phase = sale.Phase

// Re-export Amount constructors
var (
	Wei            = types.Wei
	Zero           = types.Zero
	ParseEther     = types.ParseEther
	MustParseEther = types.MustParseEther
	ParseAddress   = types.ParseAddress
)

// Re-export phases
const (
	PhaseNotStarted = sale.PhaseNotStarted
	PhasePreSale    = sale.PhasePreSale
	PhaseSale       = sale.PhaseSale
	PhaseFinished   = sale.PhaseFinished
)
