package saleledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/metadata"
	"github.com/xraph/saleledger/payment"
	"github.com/xraph/saleledger/plugin"
	"github.com/xraph/saleledger/royalty"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/store"
	"github.com/xraph/saleledger/token"
	"github.com/xraph/saleledger/types"
)

// Ledger is the sale engine. Every operation, reads included, runs under a
// single lock so callers always observe a settled state.
type Ledger struct {
	store      store.Store
	plugins    *plugin.Registry
	logger     *slog.Logger
	transferer payment.Transferer
	resolver   metadata.Resolver
	now        func() time.Time

	cfg                 sale.Config
	saleID              id.SaleID
	depositsOutsideSale bool
	skipMigrate         bool

	mu    sync.Mutex
	state *sale.State // nil until Start and after Stop

	// Background journal worker
	journalBuffer chan *journal.Entry
	flushReq      chan chan struct{}
	stopChan      chan struct{}
	wg            sync.WaitGroup

	// Configuration
	journalBatchSize     int
	journalFlushInterval time.Duration
}

// New creates a Ledger for the sale described by cfg. The configuration is
// validated here; nothing is persisted until Start.
func New(s store.Store, cfg sale.Config, opts ...Option) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	cfg.Owner = types.ParseAddress(cfg.Owner.String())

	l := &Ledger{
		store:                s,
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		resolver:             metadata.PrefixResolver{},
		now:                  time.Now,
		cfg:                  cfg,
		journalBuffer:        make(chan *journal.Entry, 1024),
		flushReq:             make(chan chan struct{}),
		stopChan:             make(chan struct{}),
		journalBatchSize:     64,
		journalFlushInterval: time.Second,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.transferer == nil {
		l.transferer = payment.NewRecorder()
	}

	return l, nil
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithTransferer sets the primitive used for change refunds and withdrawals.
// Without it transfers are only recorded in memory.
//
// Transfer runs while the ledger lock is held. A Transferer that calls back
// into the ledger must pass on the context it was given: that context is how
// the call is recognized and rejected with ErrReentrantCall. A call made with
// a fresh context blocks on the lock forever.
func WithTransferer(t payment.Transferer) Option {
	return func(l *Ledger) {
		l.transferer = t
	}
}

// WithResolver replaces the prefix+id metadata resolver.
func WithResolver(r metadata.Resolver) Option {
	return func(l *Ledger) {
		l.resolver = r
	}
}

// WithClock sets the time source used for phase evaluation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithSaleID binds the ledger to a persisted sale. Start resumes it if it
// exists and creates it under this id otherwise.
func WithSaleID(saleID id.SaleID) Option {
	return func(l *Ledger) {
		l.saleID = saleID
	}
}

// WithDepositsOutsideSale accepts plain transfers from non-owners while the
// sale is not started or finished, crediting them to the balance instead
// of rejecting them.
func WithDepositsOutsideSale() Option {
	return func(l *Ledger) {
		l.depositsOutsideSale = true
	}
}

// WithJournalConfig configures journal batching.
func WithJournalConfig(batchSize int, flushInterval time.Duration) Option {
	return func(l *Ledger) {
		if batchSize > 0 {
			l.journalBatchSize = batchSize
		}
		if flushInterval > 0 {
			l.journalFlushInterval = flushInterval
		}
	}
}

// WithoutMigrate makes Start use the store schema as is.
func WithoutMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// WithJournalBufferSize sets the capacity of the pending journal queue.
func WithJournalBufferSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.journalBuffer = make(chan *journal.Entry, n)
		}
	}
}

// Start migrates the store, loads or creates the sale and begins the
// journal worker.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	st, err := l.loadOrCreate(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.state = st
	l.mu.Unlock()

	l.plugins.EmitInit(ctx, l)

	l.wg.Add(1)
	go l.journalFlushWorker(context.WithoutCancel(ctx))

	l.logger.Info("sale ledger started",
		"sale_id", st.ID.String(),
		"owner", st.Owner.String(),
		"max_supply", l.cfg.MaxSupply,
		"total_issued", st.TotalIssued,
		"batch_size", l.journalBatchSize,
		"flush_interval", l.journalFlushInterval,
	)

	return nil
}

func (l *Ledger) loadOrCreate(ctx context.Context) (*sale.State, error) {
	if !l.saleID.IsNil() {
		st, err := l.store.GetSale(ctx, l.saleID)
		switch {
		case err == nil:
			if !st.Config.SameTerms(l.cfg) {
				return nil, fmt.Errorf("%w: sale %s", ErrConfigMismatch, l.saleID)
			}
			return st, nil
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("saleledger: load sale %s: %w", l.saleID, err)
		}
	} else {
		l.saleID = id.NewSaleID()
	}

	st := &sale.State{
		Entity:            types.NewEntity(l.now()),
		ID:                l.saleID,
		Config:            l.cfg,
		Owner:             l.cfg.Owner,
		DefaultRoyaltyBps: royalty.DefaultBps,
		Balance:           types.Zero(),
		Version:           1,
	}
	if err := l.store.CreateSale(ctx, st); err != nil {
		return nil, fmt.Errorf("saleledger: create sale: %w", err)
	}
	l.logger.Info("sale created", "sale_id", st.ID.String())
	return st, nil
}

// Stop drains the journal, notifies plugins and closes the store.
func (l *Ledger) Stop() error {
	l.mu.Lock()
	if l.state == nil {
		l.mu.Unlock()
		return ErrNotStarted
	}
	l.state = nil
	l.mu.Unlock()

	close(l.stopChan)
	l.wg.Wait()

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// SaleID returns the id of the sale this ledger operates on. It is only
// meaningful after Start.
func (l *Ledger) SaleID() id.SaleID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saleID
}

// Config returns the immutable sale terms.
func (l *Ledger) Config() sale.Config { return l.cfg }

// MaxSupply returns the supply cap.
func (l *Ledger) MaxSupply() uint64 { return l.cfg.MaxSupply }

// Plugins exposes the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// ──────────────────────────────────────────────────
// Operation plumbing
// ──────────────────────────────────────────────────

type inOperationKey struct{}

// outbox collects what a settled operation publishes once the lock is released.
type outbox struct {
	entries []*journal.Entry
	events  []func(ctx context.Context)
}

func (o *outbox) record(e *journal.Entry, emit func(ctx context.Context)) {
	if e != nil {
		o.entries = append(o.entries, e)
	}
	if emit != nil {
		o.events = append(o.events, emit)
	}
}

func (l *Ledger) reentrant(ctx context.Context) bool {
	owner, ok := ctx.Value(inOperationKey{}).(*Ledger)
	return ok && owner == l
}

// exclusive runs op under the ledger lock. The context handed to op (and
// through it to the Transferer) is marked so that calling back into the
// ledger fails with ErrReentrantCall instead of deadlocking.
func (l *Ledger) exclusive(ctx context.Context, op func(ctx context.Context, st *sale.State, out *outbox) error) error {
	if l.reentrant(ctx) {
		return ErrReentrantCall
	}

	out := &outbox{}
	l.mu.Lock()
	err := func() error {
		if l.state == nil {
			return ErrNotStarted
		}
		return op(context.WithValue(ctx, inOperationKey{}, l), l.state, out)
	}()
	var overflow []*journal.Entry
	if err == nil {
		overflow = l.enqueue(out.entries)
	}
	l.mu.Unlock()

	if err == nil {
		l.writeOverflow(ctx, overflow)
		for _, emit := range out.events {
			emit(ctx)
		}
	}
	return err
}

// view runs fn under the lock against the current state.
func (l *Ledger) view(ctx context.Context, fn func(st *sale.State) error) error {
	if l.reentrant(ctx) {
		return ErrReentrantCall
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == nil {
		return ErrNotStarted
	}
	return fn(l.state)
}

// commit persists next as the successor of the current state.
func (l *Ledger) commit(ctx context.Context, next *sale.State) error {
	next.Version = l.state.Version + 1
	next.Touch(l.now())
	if err := l.store.UpdateSale(ctx, next); err != nil {
		return fmt.Errorf("saleledger: persist sale state: %w", err)
	}
	l.state = next
	return nil
}

// rollback restores prev after a failed outbound transfer. The restored
// state gets a fresh version so the history stays monotone.
func (l *Ledger) rollback(ctx context.Context, prev *sale.State, minted []uint64) {
	restored := prev.Clone()
	if err := l.commit(ctx, restored); err != nil {
		l.logger.Error("failed to roll back sale state",
			"sale_id", prev.ID.String(),
			"error", err,
		)
	}
	if len(minted) > 0 {
		if err := l.store.DeleteTokens(ctx, prev.ID, minted); err != nil {
			l.logger.Error("failed to roll back minted tokens",
				"sale_id", prev.ID.String(),
				"token_ids", minted,
				"error", err,
			)
		}
	}
}

// transfer performs the outbound value transfer.
func (l *Ledger) transfer(ctx context.Context, to types.Address, amount types.Amount) error {
	if err := l.transferer.Transfer(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: %s to %s: %w", ErrTransferFailed, amount.FormatEther(), to, err)
	}
	return nil
}

func (l *Ledger) requireOwner(st *sale.State, caller types.Address) error {
	if !st.Owner.Equal(caller) {
		return ErrNotOwner
	}
	return nil
}

func exists(st *sale.State, tokenID uint64) bool {
	return tokenID >= 1 && tokenID <= st.TotalIssued
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// SaleStatus returns the phase as of now. It is derived on every call.
func (l *Ledger) SaleStatus(ctx context.Context) (sale.Phase, error) {
	var phase sale.Phase
	err := l.view(ctx, func(st *sale.State) error {
		phase = l.cfg.PhaseAt(st.TotalIssued, l.now())
		return nil
	})
	return phase, err
}

// CurrentPrice returns the unit price of the active phase.
func (l *Ledger) CurrentPrice(ctx context.Context) (types.Amount, error) {
	var price types.Amount
	err := l.view(ctx, func(st *sale.State) error {
		p, ok := l.cfg.PriceFor(l.cfg.PhaseAt(st.TotalIssued, l.now()))
		if !ok {
			return ErrNoPrice
		}
		price = p
		return nil
	})
	return price, err
}

// TotalSupply returns the number of issued assets.
func (l *Ledger) TotalSupply(ctx context.Context) (uint64, error) {
	var n uint64
	err := l.view(ctx, func(st *sale.State) error {
		n = st.TotalIssued
		return nil
	})
	return n, err
}

// Owner returns the current owner.
func (l *Ledger) Owner(ctx context.Context) (types.Address, error) {
	var owner types.Address
	err := l.view(ctx, func(st *sale.State) error {
		owner = st.Owner
		return nil
	})
	return owner, err
}

// ContractBalance returns the value held by the sale and not yet withdrawn.
func (l *Ledger) ContractBalance(ctx context.Context) (types.Amount, error) {
	var bal types.Amount
	err := l.view(ctx, func(st *sale.State) error {
		bal = st.Balance
		return nil
	})
	return bal, err
}

// State returns a copy of the sale aggregate.
func (l *Ledger) State(ctx context.Context) (*sale.State, error) {
	var out *sale.State
	err := l.view(ctx, func(st *sale.State) error {
		out = st.Clone()
		return nil
	})
	return out, err
}

// BalanceOf returns how many assets addr holds.
func (l *Ledger) BalanceOf(ctx context.Context, addr types.Address) (uint64, error) {
	var n uint64
	err := l.view(ctx, func(st *sale.State) error {
		var err error
		n, err = l.store.CountByOwner(ctx, st.ID, types.ParseAddress(addr.String()))
		return err
	})
	return n, err
}

// TokensOf lists the assets held by addr in id order.
func (l *Ledger) TokensOf(ctx context.Context, addr types.Address, opts token.ListOpts) ([]*token.Token, error) {
	var out []*token.Token
	err := l.view(ctx, func(st *sale.State) error {
		var err error
		out, err = l.store.ListByOwner(ctx, st.ID, types.ParseAddress(addr.String()), opts)
		return err
	})
	return out, err
}

// OwnerOf returns the holder of tokenID.
func (l *Ledger) OwnerOf(ctx context.Context, tokenID uint64) (types.Address, error) {
	var owner types.Address
	err := l.view(ctx, func(st *sale.State) error {
		if !exists(st, tokenID) {
			return ErrNonexistentToken
		}
		t, err := l.store.GetToken(ctx, st.ID, tokenID)
		if err != nil {
			return fmt.Errorf("saleledger: load token %d: %w", tokenID, err)
		}
		owner = t.Owner
		return nil
	})
	return owner, err
}

// TokenURI returns the metadata locator of an issued asset.
func (l *Ledger) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	var uri string
	err := l.view(ctx, func(st *sale.State) error {
		if !exists(st, tokenID) {
			return ErrNonexistentToken
		}
		var err error
		uri, err = l.resolver.Resolve(ctx, l.cfg.AssetLocatorPrefix, tokenID)
		return err
	})
	return uri, err
}

// RoyaltyInfo returns the royalty receiver and the amount owed on a resale
// of tokenID for saleAmount.
func (l *Ledger) RoyaltyInfo(ctx context.Context, tokenID uint64, saleAmount types.Amount) (types.Address, types.Amount, error) {
	var (
		receiver types.Address
		amount   types.Amount
	)
	err := l.view(ctx, func(st *sale.State) error {
		if !exists(st, tokenID) {
			return ErrNonexistentToken
		}
		if saleAmount.IsNegative() {
			return ValidationError{Field: "sale_amount", Message: "must not be negative"}
		}
		bps, err := l.royaltyBps(ctx, st, tokenID)
		if err != nil {
			return err
		}
		receiver = st.Owner
		amount = royalty.Amount(saleAmount, bps)
		return nil
	})
	return receiver, amount, err
}

func (l *Ledger) royaltyBps(ctx context.Context, st *sale.State, tokenID uint64) (uint16, error) {
	o, err := l.store.GetOverride(ctx, st.ID, tokenID)
	switch {
	case err == nil:
		return o.Bps, nil
	case errors.Is(err, ErrNotFound):
		return st.DefaultRoyaltyBps, nil
	default:
		return 0, fmt.Errorf("saleledger: load royalty override %d: %w", tokenID, err)
	}
}

// Journal returns settled entries matching opts, oldest first. Pending
// entries are flushed before the query.
func (l *Ledger) Journal(ctx context.Context, opts journal.QueryOpts) ([]*journal.Entry, error) {
	var saleID id.SaleID
	if err := l.view(ctx, func(st *sale.State) error {
		saleID = st.ID
		return nil
	}); err != nil {
		return nil, err
	}
	if err := l.Flush(ctx); err != nil {
		return nil, err
	}
	return l.store.ListEntries(ctx, saleID, opts)
}
