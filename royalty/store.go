package royalty

import (
	"context"

	"github.com/xraph/saleledger/id"
)

type Store interface {
	// SetOverride inserts or replaces the override for (SaleID, TokenID).
	SetOverride(ctx context.Context, o *Override) error
	GetOverride(ctx context.Context, saleID id.SaleID, tokenID uint64) (*Override, error)
	ListOverrides(ctx context.Context, saleID id.SaleID) ([]*Override, error)
}
