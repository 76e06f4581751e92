// Package observability provides a metrics extension for the sale ledger
// that records sale event counts and amounts through a MetricFactory.
package observability

import (
	"context"
	"math/big"
	"time"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/plugin"
	"github.com/xraph/saleledger/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnTokensMinted         = (*MetricsExtension)(nil)
	_ plugin.OnMintRejected         = (*MetricsExtension)(nil)
	_ plugin.OnRefundIssued         = (*MetricsExtension)(nil)
	_ plugin.OnSaleFinished         = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawn            = (*MetricsExtension)(nil)
	_ plugin.OnDeposit              = (*MetricsExtension)(nil)
	_ plugin.OnRoyaltyUpdated       = (*MetricsExtension)(nil)
	_ plugin.OnOwnershipTransferred = (*MetricsExtension)(nil)
	_ plugin.OnJournalFlushed       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records sale metrics.
// Register it as a Ledger plugin to track issuance and treasury flows.
type MetricsExtension struct {
	factory MetricFactory

	// Sale metrics
	MintsSettled  Counter
	TokensIssued  Counter
	MintsRejected Counter
	MintQuantity  Histogram
	MintSpent     Histogram // ether
	SalesFinished Counter

	// Treasury metrics
	RefundsIssued   Counter
	RefundAmount    Histogram // ether
	Withdrawals     Counter
	WithdrawnAmount Histogram // ether
	Deposits        Counter

	// Administration metrics
	RoyaltyUpdates     Counter
	OwnershipTransfers Counter

	// Journal metrics
	JournalEntriesFlushed Counter
	JournalFlushLatency   Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		MintsSettled:  factory.Counter("saleledger.mint.settled"),
		TokensIssued:  factory.Counter("saleledger.tokens.issued"),
		MintsRejected: factory.Counter("saleledger.mint.rejected"),
		MintQuantity:  factory.Histogram("saleledger.mint.quantity"),
		MintSpent:     factory.Histogram("saleledger.mint.spent_eth"),
		SalesFinished: factory.Counter("saleledger.sale.finished"),

		RefundsIssued:   factory.Counter("saleledger.refund.issued"),
		RefundAmount:    factory.Histogram("saleledger.refund.amount_eth"),
		Withdrawals:     factory.Counter("saleledger.withdrawal.settled"),
		WithdrawnAmount: factory.Histogram("saleledger.withdrawal.amount_eth"),
		Deposits:        factory.Counter("saleledger.deposit.received"),

		RoyaltyUpdates:     factory.Counter("saleledger.royalty.updated"),
		OwnershipTransfers: factory.Counter("saleledger.ownership.transferred"),

		JournalEntriesFlushed: factory.Counter("saleledger.journal.flushed"),
		JournalFlushLatency:   factory.Histogram("saleledger.journal.flush.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnTokensMinted implements plugin.OnTokensMinted.
func (m *MetricsExtension) OnTokensMinted(_ context.Context, entry *journal.Entry) error {
	m.MintsSettled.Inc()
	m.TokensIssued.Add(float64(entry.Quantity))
	m.MintQuantity.Observe(float64(entry.Quantity))
	m.MintSpent.Observe(ether(entry.Amount))
	return nil
}

// OnMintRejected implements plugin.OnMintRejected.
func (m *MetricsExtension) OnMintRejected(_ context.Context, _ types.Address, _ types.Amount, _ error) error {
	m.MintsRejected.Inc()
	return nil
}

// OnRefundIssued implements plugin.OnRefundIssued.
func (m *MetricsExtension) OnRefundIssued(_ context.Context, entry *journal.Entry) error {
	m.RefundsIssued.Inc()
	m.RefundAmount.Observe(ether(entry.Amount))
	return nil
}

// OnSaleFinished implements plugin.OnSaleFinished.
func (m *MetricsExtension) OnSaleFinished(_ context.Context, _ id.SaleID, _ uint64) error {
	m.SalesFinished.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnWithdrawn implements plugin.OnWithdrawn.
func (m *MetricsExtension) OnWithdrawn(_ context.Context, entry *journal.Entry) error {
	m.Withdrawals.Inc()
	m.WithdrawnAmount.Observe(ether(entry.Amount))
	return nil
}

// OnDeposit implements plugin.OnDeposit.
func (m *MetricsExtension) OnDeposit(_ context.Context, _ *journal.Entry) error {
	m.Deposits.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Administration hooks
// ──────────────────────────────────────────────────

// OnRoyaltyUpdated implements plugin.OnRoyaltyUpdated.
func (m *MetricsExtension) OnRoyaltyUpdated(_ context.Context, _ *journal.Entry) error {
	m.RoyaltyUpdates.Inc()
	return nil
}

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (m *MetricsExtension) OnOwnershipTransferred(_ context.Context, _ *journal.Entry) error {
	m.OwnershipTransfers.Inc()
	return nil
}

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (m *MetricsExtension) OnJournalFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.JournalEntriesFlushed.Add(float64(count))
	m.JournalFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

var weiPerEther = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(types.EtherDecimals), nil))

// ether converts a wei amount to a float ether value for histograms.
func ether(a types.Amount) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(a.Big()), weiPerEther).Float64()
	return f
}
