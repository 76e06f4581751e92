package store

import (
	"context"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/royalty"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/token"
	"github.com/xraph/saleledger/types"
)

// Store is the unified storage interface for all sale ledger records.
// Methods are declared explicitly rather than by embedding the
// per-package ports so every backend is checked against one list.
type Store interface {
	// Sale methods
	CreateSale(ctx context.Context, s *sale.State) error
	GetSale(ctx context.Context, saleID id.SaleID) (*sale.State, error)
	UpdateSale(ctx context.Context, s *sale.State) error

	// Token methods
	InsertTokens(ctx context.Context, tokens []*token.Token) error
	DeleteTokens(ctx context.Context, saleID id.SaleID, tokenIDs []uint64) error
	GetToken(ctx context.Context, saleID id.SaleID, tokenID uint64) (*token.Token, error)
	CountByOwner(ctx context.Context, saleID id.SaleID, owner types.Address) (uint64, error)
	ListByOwner(ctx context.Context, saleID id.SaleID, owner types.Address, opts token.ListOpts) ([]*token.Token, error)

	// Royalty methods
	SetOverride(ctx context.Context, o *royalty.Override) error
	GetOverride(ctx context.Context, saleID id.SaleID, tokenID uint64) (*royalty.Override, error)
	ListOverrides(ctx context.Context, saleID id.SaleID) ([]*royalty.Override, error)

	// Journal methods
	AppendEntries(ctx context.Context, entries []*journal.Entry) error
	ListEntries(ctx context.Context, saleID id.SaleID, opts journal.QueryOpts) ([]*journal.Entry, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Compile-time checks that the composite covers each port.
var (
	_ sale.Store    = Store(nil)
	_ token.Store   = Store(nil)
	_ royalty.Store = Store(nil)
	_ journal.Store = Store(nil)
)
