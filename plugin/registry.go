package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once, at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                 []OnInit
	onShutdown             []OnShutdown
	onTokensMinted         []OnTokensMinted
	onRefundIssued         []OnRefundIssued
	onMintRejected         []OnMintRejected
	onSaleFinished         []OnSaleFinished
	onWithdrawn            []OnWithdrawn
	onDeposit              []OnDeposit
	onRoyaltyUpdated       []OnRoyaltyUpdated
	onOwnershipTransferred []OnOwnershipTransferred
	onJournalFlushed       []OnJournalFlushed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout overrides the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTokensMinted); ok {
		r.onTokensMinted = append(r.onTokensMinted, v)
	}
	if v, ok := p.(OnRefundIssued); ok {
		r.onRefundIssued = append(r.onRefundIssued, v)
	}
	if v, ok := p.(OnMintRejected); ok {
		r.onMintRejected = append(r.onMintRejected, v)
	}
	if v, ok := p.(OnSaleFinished); ok {
		r.onSaleFinished = append(r.onSaleFinished, v)
	}
	if v, ok := p.(OnWithdrawn); ok {
		r.onWithdrawn = append(r.onWithdrawn, v)
	}
	if v, ok := p.(OnDeposit); ok {
		r.onDeposit = append(r.onDeposit, v)
	}
	if v, ok := p.(OnRoyaltyUpdated); ok {
		r.onRoyaltyUpdated = append(r.onRoyaltyUpdated, v)
	}
	if v, ok := p.(OnOwnershipTransferred); ok {
		r.onOwnershipTransferred = append(r.onOwnershipTransferred, v)
	}
	if v, ok := p.(OnJournalFlushed); ok {
		r.onJournalFlushed = append(r.onJournalFlushed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnTokensMinted", reflect.TypeOf((*OnTokensMinted)(nil)).Elem()},
	{"OnRefundIssued", reflect.TypeOf((*OnRefundIssued)(nil)).Elem()},
	{"OnMintRejected", reflect.TypeOf((*OnMintRejected)(nil)).Elem()},
	{"OnSaleFinished", reflect.TypeOf((*OnSaleFinished)(nil)).Elem()},
	{"OnWithdrawn", reflect.TypeOf((*OnWithdrawn)(nil)).Elem()},
	{"OnDeposit", reflect.TypeOf((*OnDeposit)(nil)).Elem()},
	{"OnRoyaltyUpdated", reflect.TypeOf((*OnRoyaltyUpdated)(nil)).Elem()},
	{"OnOwnershipTransferred", reflect.TypeOf((*OnOwnershipTransferred)(nil)).Elem()},
	{"OnJournalFlushed", reflect.TypeOf((*OnJournalFlushed)(nil)).Elem()},
}

func implementedInterfaces(p Plugin) []string {
	var out []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs call for every hook in hooks, logging failures.
func emit[H Plugin](ctx context.Context, r *Registry, hook string, hooks []H, call func(H) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return call(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func snapshot[H any](r *Registry, hooks *[]H) []H {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *hooks
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	emit(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, ledger)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitTokensMinted emits a settled mint.
func (r *Registry) EmitTokensMinted(ctx context.Context, entry *journal.Entry) {
	emit(ctx, r, "OnTokensMinted", snapshot(r, &r.onTokensMinted), func(p OnTokensMinted) error {
		return p.OnTokensMinted(ctx, entry)
	})
}

// EmitRefundIssued emits a change refund.
func (r *Registry) EmitRefundIssued(ctx context.Context, entry *journal.Entry) {
	emit(ctx, r, "OnRefundIssued", snapshot(r, &r.onRefundIssued), func(p OnRefundIssued) error {
		return p.OnRefundIssued(ctx, entry)
	})
}

// EmitMintRejected emits a refused purchase.
func (r *Registry) EmitMintRejected(ctx context.Context, caller types.Address, payment types.Amount, reason error) {
	emit(ctx, r, "OnMintRejected", snapshot(r, &r.onMintRejected), func(p OnMintRejected) error {
		return p.OnMintRejected(ctx, caller, payment, reason)
	})
}

// EmitSaleFinished emits the sell-out of the supply.
func (r *Registry) EmitSaleFinished(ctx context.Context, saleID id.SaleID, totalIssued uint64) {
	emit(ctx, r, "OnSaleFinished", snapshot(r, &r.onSaleFinished), func(p OnSaleFinished) error {
		return p.OnSaleFinished(ctx, saleID, totalIssued)
	})
}

// EmitWithdrawn emits an owner withdrawal.
func (r *Registry) EmitWithdrawn(ctx context.Context, entry *journal.Entry) {
	emit(ctx, r, "OnWithdrawn", snapshot(r, &r.onWithdrawn), func(p OnWithdrawn) error {
		return p.OnWithdrawn(ctx, entry)
	})
}

// EmitDeposit emits a plain credit.
func (r *Registry) EmitDeposit(ctx context.Context, entry *journal.Entry) {
	emit(ctx, r, "OnDeposit", snapshot(r, &r.onDeposit), func(p OnDeposit) error {
		return p.OnDeposit(ctx, entry)
	})
}

// EmitRoyaltyUpdated emits a royalty change.
func (r *Registry) EmitRoyaltyUpdated(ctx context.Context, entry *journal.Entry) {
	emit(ctx, r, "OnRoyaltyUpdated", snapshot(r, &r.onRoyaltyUpdated), func(p OnRoyaltyUpdated) error {
		return p.OnRoyaltyUpdated(ctx, entry)
	})
}

// EmitOwnershipTransferred emits an owner change.
func (r *Registry) EmitOwnershipTransferred(ctx context.Context, entry *journal.Entry) {
	emit(ctx, r, "OnOwnershipTransferred", snapshot(r, &r.onOwnershipTransferred), func(p OnOwnershipTransferred) error {
		return p.OnOwnershipTransferred(ctx, entry)
	})
}

// EmitJournalFlushed emits a journal flush.
func (r *Registry) EmitJournalFlushed(ctx context.Context, count int, elapsed time.Duration) {
	emit(ctx, r, "OnJournalFlushed", snapshot(r, &r.onJournalFlushed), func(p OnJournalFlushed) error {
		return p.OnJournalFlushed(ctx, count, elapsed)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block settlement.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
