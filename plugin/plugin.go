// Package plugin provides an extensible plugin system for the sale ledger.
// Plugins can hook into lifecycle and settlement events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnTokensMinted is called after a mint settles. The entry carries the
// buyer, the quantity, the token id range and the amount spent.
type OnTokensMinted interface {
	Plugin
	OnTokensMinted(ctx context.Context, entry *journal.Entry) error
}

// OnRefundIssued is called after change is returned to a buyer.
type OnRefundIssued interface {
	Plugin
	OnRefundIssued(ctx context.Context, entry *journal.Entry) error
}

// OnMintRejected is called when a purchase is refused.
type OnMintRejected interface {
	Plugin
	OnMintRejected(ctx context.Context, caller types.Address, payment types.Amount, reason error) error
}

// OnSaleFinished is called once, when the last unit of supply is issued.
type OnSaleFinished interface {
	Plugin
	OnSaleFinished(ctx context.Context, saleID id.SaleID, totalIssued uint64) error
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnWithdrawn is called after the owner drains the sale balance.
type OnWithdrawn interface {
	Plugin
	OnWithdrawn(ctx context.Context, entry *journal.Entry) error
}

// OnDeposit is called when value is credited without a mint.
type OnDeposit interface {
	Plugin
	OnDeposit(ctx context.Context, entry *journal.Entry) error
}

// ──────────────────────────────────────────────────
// Administration hooks
// ──────────────────────────────────────────────────

// OnRoyaltyUpdated is called after a default or per-token royalty change.
type OnRoyaltyUpdated interface {
	Plugin
	OnRoyaltyUpdated(ctx context.Context, entry *journal.Entry) error
}

// OnOwnershipTransferred is called after the owner role moves.
type OnOwnershipTransferred interface {
	Plugin
	OnOwnershipTransferred(ctx context.Context, entry *journal.Entry) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed is called when buffered journal entries reach the store.
type OnJournalFlushed interface {
	Plugin
	OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error
}
