package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/saleledger"
	audithook "github.com/xraph/saleledger/audit_hook"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/store/memory"
	"github.com/xraph/saleledger/types"
)

type sink struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (s *sink) Record(_ context.Context, e *audithook.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *sink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func (s *sink) find(action string) *audithook.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Action == action {
			return e
		}
	}
	return nil
}

func startLedger(t *testing.T, opts ...saleledger.Option) *saleledger.Ledger {
	t.Helper()
	now := time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC)
	cfg := sale.Config{
		Owner:        "0xowner",
		MaxSupply:    2,
		PresaleStart: now.Add(-time.Hour),
		SaleStart:    now.Add(time.Hour),
		PresalePrice: types.MustParseEther("0.5"),
		SalePrice:    types.MustParseEther("0.6"),
	}
	opts = append(opts, saleledger.WithClock(func() time.Time { return now }))
	l, err := saleledger.New(memory.New(), cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	rec := &sink{}
	l := startLedger(t, saleledger.WithPlugin(audithook.New(rec)))

	_, err := l.Mint(ctx, "0xbuyer", types.MustParseEther("0.1"))
	require.ErrorIs(t, err, saleledger.ErrInsufficientPayment)

	_, err = l.Mint(ctx, "0xbuyer", types.MustParseEther("1.2"))
	require.NoError(t, err)
	_, err = l.Withdraw(ctx, "0xowner")
	require.NoError(t, err)
	require.NoError(t, l.SetTokenRoyalty(ctx, "0xowner", 1, 250))
	require.NoError(t, l.SetDefaultRoyalty(ctx, "0xowner", 300))
	require.NoError(t, l.TransferOwnership(ctx, "0xowner", "0xheir"))

	assert.Equal(t, []string{
		audithook.ActionMintRejected,
		audithook.ActionTokensMinted,
		audithook.ActionRefundIssued,
		audithook.ActionSaleFinished,
		audithook.ActionBalanceWithdrawn,
		audithook.ActionRoyaltyTokenSet,
		audithook.ActionRoyaltyDefaultSet,
		audithook.ActionOwnershipTransferred,
	}, rec.actions())

	rejected := rec.find(audithook.ActionMintRejected)
	assert.Equal(t, audithook.OutcomeFailure, rejected.Outcome)
	assert.Contains(t, rejected.Reason, "insufficient payment")
	assert.Equal(t, "0xbuyer", rejected.Metadata["caller"])

	minted := rec.find(audithook.ActionTokensMinted)
	assert.Equal(t, uint64(2), minted.Metadata["quantity"])
	assert.Equal(t, "1000000000000000000", minted.Metadata["spent_wei"])

	refund := rec.find(audithook.ActionRefundIssued)
	assert.Equal(t, "200000000000000000", refund.Metadata["amount_wei"])

	owner := rec.find(audithook.ActionOwnershipTransferred)
	assert.Equal(t, "0xheir", owner.Metadata["to"])
}

func TestEnabledActions(t *testing.T) {
	ctx := context.Background()
	rec := &sink{}
	l := startLedger(t, saleledger.WithPlugin(audithook.New(rec,
		audithook.WithDisabledActions(audithook.ActionRefundIssued, audithook.ActionSaleFinished),
	)))

	_, err := l.Mint(ctx, "0xbuyer", types.MustParseEther("1.2"))
	require.NoError(t, err)

	assert.Equal(t, []string{audithook.ActionTokensMinted}, rec.actions())

	entries, err := l.Journal(ctx, journal.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "disabling audit actions must not affect the journal")
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	l := startLedger(t, saleledger.WithPlugin(audithook.New(failing,
		audithook.WithEnabledActions(audithook.ActionTokensMinted),
	)))

	_, err := l.Mint(ctx, "0xbuyer", types.MustParseEther("0.5"))
	assert.NoError(t, err)
}
