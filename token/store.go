package token

import (
	"context"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/types"
)

type Store interface {
	InsertTokens(ctx context.Context, tokens []*Token) error
	DeleteTokens(ctx context.Context, saleID id.SaleID, tokenIDs []uint64) error
	GetToken(ctx context.Context, saleID id.SaleID, tokenID uint64) (*Token, error)
	CountByOwner(ctx context.Context, saleID id.SaleID, owner types.Address) (uint64, error)
	ListByOwner(ctx context.Context, saleID id.SaleID, owner types.Address, opts ListOpts) ([]*Token, error)
}

type ListOpts struct {
	Limit  int
	Offset int
}
