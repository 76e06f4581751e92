package plugin_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/plugin"
	"github.com/xraph/saleledger/types"
)

type minter struct {
	name string

	mu      sync.Mutex
	entries []*journal.Entry
	err     error
}

func (m *minter) Name() string { return m.name }

func (m *minter) OnTokensMinted(_ context.Context, e *journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

type finisher struct {
	release chan struct{}
	calls   chan id.SaleID
}

func (f *finisher) Name() string { return "finisher" }

func (f *finisher) OnSaleFinished(_ context.Context, saleID id.SaleID, _ uint64) error {
	f.calls <- saleID
	<-f.release
	return nil
}

func newRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.DiscardHandler))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(&minter{name: "a"}))
	require.Error(t, r.Register(&minter{name: "a"}))
	require.NoError(t, r.Register(&minter{name: "b"}))

	assert.Equal(t, 2, r.Count())
	assert.NotNil(t, r.Get("b"))
	assert.Nil(t, r.Get("missing"))
	assert.Len(t, r.List(), 2)
}

func TestDispatchReachesOnlyImplementers(t *testing.T) {
	r := newRegistry()
	failing := &minter{name: "failing", err: errors.New("boom")}
	ok := &minter{name: "ok"}
	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(ok))

	entry := &journal.Entry{Kind: journal.KindMint, Quantity: 2}
	r.EmitTokensMinted(context.Background(), entry)
	// Not implemented by either plugin; must be a no-op.
	r.EmitRefundIssued(context.Background(), entry)
	r.EmitMintRejected(context.Background(), "0xbuyer", types.Wei(1), errors.New("short"))

	assert.Len(t, failing.entries, 1)
	require.Len(t, ok.entries, 1)
	assert.Same(t, entry, ok.entries[0])
}

func TestHookTimeout(t *testing.T) {
	r := newRegistry().WithTimeout(20 * time.Millisecond)
	f := &finisher{release: make(chan struct{}), calls: make(chan id.SaleID, 1)}
	require.NoError(t, r.Register(f))

	saleID := id.NewSaleID()
	start := time.Now()
	r.EmitSaleFinished(context.Background(), saleID, 6)
	elapsed := time.Since(start)
	close(f.release)

	assert.Equal(t, saleID.String(), (<-f.calls).String())
	assert.Less(t, elapsed, time.Second)
}
