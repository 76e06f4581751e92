package sale

import (
	"context"

	"github.com/xraph/saleledger/id"
)

type Store interface {
	CreateSale(ctx context.Context, s *State) error
	GetSale(ctx context.Context, saleID id.SaleID) (*State, error)
	// UpdateSale persists s only if the stored version is s.Version-1.
	UpdateSale(ctx context.Context, s *State) error
}
