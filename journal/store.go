package journal

import (
	"context"

	"github.com/xraph/saleledger/id"
)

type Store interface {
	AppendEntries(ctx context.Context, entries []*Entry) error
	ListEntries(ctx context.Context, saleID id.SaleID, opts QueryOpts) ([]*Entry, error)
}
