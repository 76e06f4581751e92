package saleledger_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xraph/saleledger"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/payment"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/store/memory"
	"github.com/xraph/saleledger/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	owner  types.Address = "0xowner"
	user2  types.Address = "0xuser2"
	user3  types.Address = "0xuser3"
	user4  types.Address = "0xuser4"
	user5  types.Address = "0xuser5"
	user6  types.Address = "0xuser6"
	folder               = "folder_hash/"
)

var (
	deployedAt   = time.Date(2022, 6, 10, 12, 0, 0, 0, time.UTC)
	presaleStart = deployedAt.Add(3 * time.Minute)
	saleStart    = deployedAt.Add(3 * 24 * time.Hour)
	presalePrice = types.MustParseEther("0.5")
	salePrice    = types.MustParseEther("0.6")
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func testConfig() sale.Config {
	return sale.Config{
		Owner:              owner,
		AssetLocatorPrefix: folder,
		MaxSupply:          6,
		PresaleStart:       presaleStart,
		SaleStart:          saleStart,
		PresalePrice:       presalePrice,
		SalePrice:          salePrice,
	}
}

type harness struct {
	ledger *saleledger.Ledger
	clock  *clock
	wallet *payment.Recorder
	store  *memory.Store
}

func newHarness(t *testing.T, cfg sale.Config, opts ...saleledger.Option) *harness {
	t.Helper()

	h := &harness{
		clock:  &clock{now: deployedAt},
		wallet: payment.NewRecorder(),
		store:  memory.New(),
	}
	opts = append([]saleledger.Option{
		saleledger.WithClock(h.clock.Now),
		saleledger.WithTransferer(h.wallet),
		saleledger.WithJournalConfig(8, 10*time.Millisecond),
	}, opts...)

	l, err := saleledger.New(h.store, cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })

	h.ledger = l
	return h
}

// TestSaleLifecycle replays a full sale: presale, sale, sell-out, withdrawal and royalties.
func TestSaleLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig(), saleledger.WithDepositsOutsideSale())
	l := h.ledger

	t.Run("the sale isn't started", func(t *testing.T) {
		phase, err := l.SaleStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, sale.PhaseNotStarted, phase)

		_, err = l.Mint(ctx, user2, presalePrice)
		require.ErrorIs(t, err, saleledger.ErrSaleNotStarted)
		assert.Equal(t, "the sale isn't started", err.Error())

		_, err = l.CurrentPrice(ctx)
		assert.ErrorIs(t, err, saleledger.ErrNoPrice)
	})

	t.Run("presale starts", func(t *testing.T) {
		h.clock.Set(deployedAt.Add(2 * 24 * time.Hour))

		phase, err := l.SaleStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, sale.PhasePreSale, phase)

		price, err := l.CurrentPrice(ctx)
		require.NoError(t, err)
		assert.True(t, price.Equal(presalePrice))
	})

	t.Run("mint one token on presale", func(t *testing.T) {
		res, err := l.Mint(ctx, user2, presalePrice)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, res.TokenIDs)
		assert.True(t, res.Change.IsZero())

		assertSupply(t, l, 1)
		assertBalance(t, l, user2, 1)
	})

	t.Run("mint through receive", func(t *testing.T) {
		res, err := l.Receive(ctx, user3, presalePrice)
		require.NoError(t, err)
		assert.Equal(t, saleledger.ReceiveMint, res.Kind)

		assertSupply(t, l, 2)
		assertBalance(t, l, user3, 1)
	})

	t.Run("mint two tokens on presale", func(t *testing.T) {
		res, err := l.Mint(ctx, user4, presalePrice.MulUint(2))
		require.NoError(t, err)
		assert.Equal(t, []uint64{3, 4}, res.TokenIDs)

		assertSupply(t, l, 4)
		assertBalance(t, l, user4, 2)
	})

	t.Run("sale starts", func(t *testing.T) {
		h.clock.Set(deployedAt.Add(12 * 24 * time.Hour))

		phase, err := l.SaleStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, sale.PhaseSale, phase)

		price, err := l.CurrentPrice(ctx)
		require.NoError(t, err)
		assert.True(t, price.Equal(salePrice))
	})

	t.Run("mint only what the payment covers", func(t *testing.T) {
		res, err := l.Mint(ctx, user5, presalePrice.MulUint(2))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.Quantity)
		assert.True(t, res.Change.Equal(types.MustParseEther("0.4")), "change %s", res.Change.FormatEther())
		assert.True(t, h.wallet.Received(user5).Equal(types.MustParseEther("0.4")))

		assertSupply(t, l, 5)
		assertBalance(t, l, user5, 1)
	})

	t.Run("mint only the last token and close the sale", func(t *testing.T) {
		res, err := l.Mint(ctx, user6, salePrice.MulUint(2))
		require.NoError(t, err)
		assert.Equal(t, []uint64{6}, res.TokenIDs)
		assert.True(t, res.Finished)
		assert.True(t, res.Change.Equal(salePrice))
		assert.True(t, h.wallet.Received(user6).Equal(salePrice))

		assertSupply(t, l, 6)
		assertBalance(t, l, user6, 1)

		phase, err := l.SaleStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, sale.PhaseFinished, phase)
	})

	t.Run("the sale is over", func(t *testing.T) {
		_, err := l.Mint(ctx, user4, salePrice)
		require.ErrorIs(t, err, saleledger.ErrSaleOver)
		assert.Equal(t, "the sale is over", err.Error())
	})

	t.Run("withdraw is owner only", func(t *testing.T) {
		before, err := l.ContractBalance(ctx)
		require.NoError(t, err)

		_, err = l.Withdraw(ctx, user4)
		require.ErrorIs(t, err, saleledger.ErrNotOwner)
		assert.Equal(t, "not an owner", err.Error())

		after, err := l.ContractBalance(ctx)
		require.NoError(t, err)
		assert.True(t, before.Equal(after))
	})

	t.Run("withdraw", func(t *testing.T) {
		res, err := l.Withdraw(ctx, "0xOWNER")
		require.NoError(t, err)
		assert.True(t, res.Amount.Equal(types.MustParseEther("3.2")), "withdrew %s", res.Amount.FormatEther())
		assert.True(t, h.wallet.Received(owner).Equal(types.MustParseEther("3.2")))

		bal, err := l.ContractBalance(ctx)
		require.NoError(t, err)
		assert.True(t, bal.IsZero())
	})

	t.Run("withdraw through receive", func(t *testing.T) {
		testValue := types.MustParseEther("0.000007")

		res, err := l.Receive(ctx, user2, testValue)
		require.NoError(t, err)
		assert.Equal(t, saleledger.ReceiveDeposit, res.Kind)

		res, err = l.Receive(ctx, owner, testValue)
		require.NoError(t, err)
		assert.Equal(t, saleledger.ReceiveWithdrawal, res.Kind)
		assert.True(t, res.Withdrawal.Amount.Equal(testValue.MulUint(2)))

		received := h.wallet.Received(owner).Sub(types.MustParseEther("3.2"))
		assert.True(t, received.Sub(testValue).Equal(testValue), "owner net gain must equal the deposit")
	})

	t.Run("royalty defaults to ten percent", func(t *testing.T) {
		receiver, amount, err := l.RoyaltyInfo(ctx, 1, types.Wei(1000))
		require.NoError(t, err)
		assert.Equal(t, owner, receiver)
		assert.True(t, amount.Equal(types.Wei(100)))
	})

	t.Run("royalty setters are owner only", func(t *testing.T) {
		assert.ErrorIs(t, l.SetTokenRoyalty(ctx, user4, 1, 2222), saleledger.ErrNotOwner)
		assert.ErrorIs(t, l.SetDefaultRoyalty(ctx, user4, 2222), saleledger.ErrNotOwner)
	})

	t.Run("update royalty", func(t *testing.T) {
		require.NoError(t, l.SetDefaultRoyalty(ctx, owner, 5000))
		require.NoError(t, l.SetTokenRoyalty(ctx, owner, 2, 500))

		_, amount, err := l.RoyaltyInfo(ctx, 1, types.Wei(1000))
		require.NoError(t, err)
		assert.True(t, amount.Equal(types.Wei(500)))

		_, amount, err = l.RoyaltyInfo(ctx, 2, types.Wei(1000))
		require.NoError(t, err)
		assert.True(t, amount.Equal(types.Wei(50)))
	})

	t.Run("royalty for a nonexistent token", func(t *testing.T) {
		err := l.SetTokenRoyalty(ctx, owner, 100500, 500)
		require.ErrorIs(t, err, saleledger.ErrNonexistentToken)
		assert.Equal(t, "nonexistent token", err.Error())
	})

	t.Run("journal", func(t *testing.T) {
		mints, err := l.Journal(ctx, journal.QueryOpts{Kind: journal.KindMint})
		require.NoError(t, err)
		assert.Len(t, mints, 5)
		assert.Equal(t, uint64(3), mints[2].FirstToken)
		assert.Equal(t, uint64(4), mints[2].LastToken)

		refunds, err := l.Journal(ctx, journal.QueryOpts{Kind: journal.KindRefund})
		require.NoError(t, err)
		assert.Len(t, refunds, 2)

		withdrawals, err := l.Journal(ctx, journal.QueryOpts{Kind: journal.KindWithdrawal})
		require.NoError(t, err)
		assert.Len(t, withdrawals, 2)

		royalties, err := l.Journal(ctx, journal.QueryOpts{Kind: journal.KindRoyaltyToken})
		require.NoError(t, err)
		require.Len(t, royalties, 1)
		assert.Equal(t, uint64(2), royalties[0].FirstToken)
		assert.Equal(t, uint16(500), royalties[0].Bps)
	})
}

func assertSupply(t *testing.T, l *saleledger.Ledger, want uint64) {
	t.Helper()
	got, err := l.TotalSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func assertBalance(t *testing.T, l *saleledger.Ledger, addr types.Address, want uint64) {
	t.Helper()
	got, err := l.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPhaseByTime(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig())

	tests := []struct {
		name  string
		now   time.Time
		phase sale.Phase
		price types.Amount
	}{
		{"Before presale", presaleStart.Add(-time.Second), sale.PhaseNotStarted, types.Amount{}},
		{"Presale start inclusive", presaleStart, sale.PhasePreSale, presalePrice},
		{"Just before sale", saleStart.Add(-time.Nanosecond), sale.PhasePreSale, presalePrice},
		{"Sale start inclusive", saleStart, sale.PhaseSale, salePrice},
		{"Long after", saleStart.AddDate(5, 0, 0), sale.PhaseSale, salePrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.clock.Set(tt.now)

			phase, err := h.ledger.SaleStatus(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.phase, phase)

			price, err := h.ledger.CurrentPrice(ctx)
			if !tt.phase.Active() {
				assert.ErrorIs(t, err, saleledger.ErrNoPrice)
				return
			}
			require.NoError(t, err)
			assert.True(t, price.Equal(tt.price))
		})
	}
}

func TestFinishedDuringPresale(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxSupply = 2
	h := newHarness(t, cfg)
	h.clock.Set(presaleStart)

	res, err := h.ledger.Mint(ctx, user2, presalePrice.MulUint(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Quantity)
	assert.True(t, res.Change.Equal(presalePrice.MulUint(3)))
	assert.True(t, res.Finished)

	phase, err := h.ledger.SaleStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, sale.PhaseFinished, phase)

	h.clock.Set(saleStart)
	phase, err = h.ledger.SaleStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, sale.PhaseFinished, phase, "finished must not depend on time")

	_, err = h.ledger.Receive(ctx, user3, salePrice)
	assert.ErrorIs(t, err, saleledger.ErrSaleOver)
}

func TestInsufficientPaymentLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig())
	h.clock.Set(saleStart)

	before, err := h.ledger.State(ctx)
	require.NoError(t, err)

	_, err = h.ledger.Mint(ctx, user2, types.MustParseEther("0.59"))
	require.ErrorIs(t, err, saleledger.ErrInsufficientPayment)
	assert.True(t, saleledger.IsSaleError(err))

	after, err := h.ledger.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.TotalIssued, after.TotalIssued)
	assert.Equal(t, before.Version, after.Version)
	assert.True(t, before.Balance.Equal(after.Balance))
	assert.Empty(t, h.wallet.Transfers(), "a rejected mint must not refund anything")
}

func TestCapacityLimitedRefund(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxSupply = 3
	h := newHarness(t, cfg)
	h.clock.Set(saleStart)

	payment := types.MustParseEther("3.1") // floor(3.1/0.6) = 5 > capacity 3
	res, err := h.ledger.Mint(ctx, user2, payment)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), res.Quantity)
	assert.Equal(t, []uint64{1, 2, 3}, res.TokenIDs)
	want := payment.Sub(salePrice.MulUint(3))
	assert.True(t, res.Change.Equal(want), "change %s, want %s", res.Change, want)
	assert.True(t, h.wallet.Received(user2).Equal(want))

	bal, err := h.ledger.ContractBalance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Equal(salePrice.MulUint(3)))
}

func TestZeroPriceMintsOnePerCall(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.PresalePrice = types.Zero()
	h := newHarness(t, cfg)
	h.clock.Set(presaleStart)

	res, err := h.ledger.Mint(ctx, user2, types.MustParseEther("1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Quantity)
	assert.True(t, res.Spent.IsZero())
	assert.True(t, res.Change.Equal(types.MustParseEther("1")))

	res, err = h.ledger.Mint(ctx, user2, types.Zero())
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, res.TokenIDs)
	assert.Len(t, h.wallet.Transfers(), 1, "zero change must not trigger a transfer")
}

func TestRoyaltyInfoNonexistent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig())
	h.clock.Set(presaleStart)

	_, _, err := h.ledger.RoyaltyInfo(ctx, 1, types.Wei(1000))
	assert.ErrorIs(t, err, saleledger.ErrNonexistentToken)

	_, err = h.ledger.Mint(ctx, user2, presalePrice)
	require.NoError(t, err)

	for _, tokenID := range []uint64{0, 2} {
		_, _, err := h.ledger.RoyaltyInfo(ctx, tokenID, types.Wei(1000))
		assert.ErrorIs(t, err, saleledger.ErrNonexistentToken, "token %d", tokenID)
	}

	_, amount, err := h.ledger.RoyaltyInfo(ctx, 1, types.Wei(999))
	require.NoError(t, err)
	assert.True(t, amount.Equal(types.Wei(99)), "floor division")
}

func TestSetTokenRoyaltyChecksOwnerFirst(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig())

	err := h.ledger.SetTokenRoyalty(ctx, user2, 100500, 500)
	assert.ErrorIs(t, err, saleledger.ErrNotOwner)

	err = h.ledger.SetDefaultRoyalty(ctx, owner, 10001)
	assert.ErrorIs(t, err, saleledger.ErrInvalidRoyalty)

	h.clock.Set(presaleStart)
	_, err = h.ledger.Mint(ctx, user2, presalePrice)
	require.NoError(t, err)
	assert.ErrorIs(t, h.ledger.SetTokenRoyalty(ctx, owner, 1, 10001), saleledger.ErrInvalidRoyalty)
	assert.NoError(t, h.ledger.SetTokenRoyalty(ctx, owner, 1, 10000))
}

func TestReceiveDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("non-owner outside the sale is rejected by default", func(t *testing.T) {
		h := newHarness(t, testConfig())
		_, err := h.ledger.Receive(ctx, user2, presalePrice)
		assert.ErrorIs(t, err, saleledger.ErrSaleNotStarted)
	})

	t.Run("non-owner outside the sale deposits when enabled", func(t *testing.T) {
		h := newHarness(t, testConfig(), saleledger.WithDepositsOutsideSale())
		res, err := h.ledger.Receive(ctx, user2, presalePrice)
		require.NoError(t, err)
		assert.Equal(t, saleledger.ReceiveDeposit, res.Kind)

		bal, err := h.ledger.ContractBalance(ctx)
		require.NoError(t, err)
		assert.True(t, bal.Equal(presalePrice))
		assertSupply(t, h.ledger, 0)
	})

	t.Run("non-owner during the sale mints even when deposits are enabled", func(t *testing.T) {
		h := newHarness(t, testConfig(), saleledger.WithDepositsOutsideSale())
		h.clock.Set(presaleStart)
		res, err := h.ledger.Receive(ctx, user2, presalePrice)
		require.NoError(t, err)
		assert.Equal(t, saleledger.ReceiveMint, res.Kind)
		assertSupply(t, h.ledger, 1)
	})

	t.Run("owner credits then withdraws everything", func(t *testing.T) {
		h := newHarness(t, testConfig())
		h.clock.Set(presaleStart)
		_, err := h.ledger.Mint(ctx, user2, presalePrice)
		require.NoError(t, err)

		res, err := h.ledger.Receive(ctx, owner, types.Wei(7))
		require.NoError(t, err)
		assert.Equal(t, saleledger.ReceiveWithdrawal, res.Kind)
		assert.True(t, res.Withdrawal.Amount.Equal(presalePrice.Add(types.Wei(7))))
		assertSupply(t, h.ledger, 1)
	})
}

func TestWithdrawEmptyBalance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig())

	res, err := h.ledger.Withdraw(ctx, owner)
	require.NoError(t, err)
	assert.True(t, res.Amount.IsZero())
	assert.True(t, res.Receipt.IsNil())
	assert.Empty(t, h.wallet.Transfers())
}

func TestTransferFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("mint change", func(t *testing.T) {
		h := newHarness(t, testConfig())
		h.clock.Set(presaleStart)
		h.wallet.Fail = func(to types.Address, _ types.Amount) bool { return to == user2 }

		_, err := h.ledger.Mint(ctx, user2, types.MustParseEther("0.7"))
		require.ErrorIs(t, err, saleledger.ErrTransferFailed)
		assert.ErrorIs(t, err, payment.ErrRejected)
		assert.True(t, saleledger.IsRetryable(err))

		assertSupply(t, h.ledger, 0)
		assertBalance(t, h.ledger, user2, 0)
		bal, err := h.ledger.ContractBalance(ctx)
		require.NoError(t, err)
		assert.True(t, bal.IsZero())

		res, err := h.ledger.Mint(ctx, user3, presalePrice)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, res.TokenIDs, "ids of a reverted mint are reused")

		entries, err := h.ledger.Journal(ctx, journal.QueryOpts{})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("withdrawal", func(t *testing.T) {
		h := newHarness(t, testConfig())
		h.clock.Set(presaleStart)
		_, err := h.ledger.Mint(ctx, user2, presalePrice)
		require.NoError(t, err)

		h.wallet.Fail = func(to types.Address, _ types.Amount) bool { return to == owner }
		_, err = h.ledger.Receive(ctx, owner, types.Wei(3))
		require.ErrorIs(t, err, saleledger.ErrTransferFailed)

		bal, err := h.ledger.ContractBalance(ctx)
		require.NoError(t, err)
		assert.True(t, bal.Equal(presalePrice), "credit and withdrawal are both undone")
	})
}

func TestReentrantTransferIsRejected(t *testing.T) {
	ctx := context.Background()

	var (
		l         *saleledger.Ledger
		mintErr   error
		supplyErr error
	)
	wallet := payment.TransferFunc(func(ctx context.Context, to types.Address, amount types.Amount) error {
		_, mintErr = l.Mint(ctx, to, amount)
		_, supplyErr = l.TotalSupply(ctx)
		return nil
	})

	c := &clock{now: presaleStart}
	l, err := saleledger.New(memory.New(), testConfig(),
		saleledger.WithClock(c.Now),
		saleledger.WithTransferer(wallet),
	)
	require.NoError(t, err)
	require.NoError(t, l.Start(ctx))
	defer l.Stop()

	res, err := l.Mint(ctx, user2, types.MustParseEther("1.4"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Quantity)

	assert.ErrorIs(t, mintErr, saleledger.ErrReentrantCall)
	assert.ErrorIs(t, supplyErr, saleledger.ErrReentrantCall)
	assertSupply(t, l, 2)
}

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig())
	h.clock.Set(presaleStart)
	_, err := h.ledger.Mint(ctx, user2, presalePrice)
	require.NoError(t, err)

	assert.ErrorIs(t, h.ledger.TransferOwnership(ctx, user2, user2), saleledger.ErrNotOwner)
	assert.ErrorIs(t, h.ledger.TransferOwnership(ctx, owner, ""), saleledger.ErrInvalidInput)
	require.NoError(t, h.ledger.TransferOwnership(ctx, owner, "0xNEW"))

	got, err := h.ledger.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Address("0xnew"), got)

	_, err = h.ledger.Withdraw(ctx, owner)
	assert.ErrorIs(t, err, saleledger.ErrNotOwner)

	receiver, _, err := h.ledger.RoyaltyInfo(ctx, 1, types.Wei(1000))
	require.NoError(t, err)
	assert.Equal(t, types.Address("0xnew"), receiver)

	res, err := h.ledger.Withdraw(ctx, "0xnew")
	require.NoError(t, err)
	assert.True(t, res.Amount.Equal(presalePrice))
}

func TestTokenQueries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig())
	h.clock.Set(presaleStart)

	_, err := h.ledger.TokenURI(ctx, 1)
	assert.ErrorIs(t, err, saleledger.ErrNonexistentToken)

	_, err = h.ledger.Mint(ctx, user2, presalePrice.MulUint(2))
	require.NoError(t, err)

	uri, err := h.ledger.TokenURI(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, folder+"2", uri)

	holder, err := h.ledger.OwnerOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, user2, holder)

	_, err = h.ledger.OwnerOf(ctx, 3)
	assert.ErrorIs(t, err, saleledger.ErrNonexistentToken)
	assert.Equal(t, uint64(6), h.ledger.MaxSupply())
}

func TestConcurrentMints(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxSupply = 50
	h := newHarness(t, cfg)
	h.clock.Set(saleStart)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.ledger.Mint(ctx, user2, salePrice.MulUint(2))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, over int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case saleledger.IsSaleError(err):
			over++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 25, ok)
	assert.Equal(t, 15, over)
	assertSupply(t, h.ledger, 50)
	assertBalance(t, h.ledger, user2, 50)
}

func TestResumeFromSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sale.json")
	c := &clock{now: presaleStart}

	st, err := memory.Open(path)
	require.NoError(t, err)
	first, err := saleledger.New(st, testConfig(), saleledger.WithClock(c.Now))
	require.NoError(t, err)
	require.NoError(t, first.Start(ctx))
	_, err = first.Mint(ctx, user2, presalePrice.MulUint(3))
	require.NoError(t, err)
	saleID := first.SaleID()
	require.NoError(t, first.Stop())
	assert.ErrorIs(t, first.Stop(), saleledger.ErrNotStarted)

	st, err = memory.Open(path)
	require.NoError(t, err)
	second, err := saleledger.New(st, testConfig(), saleledger.WithClock(c.Now), saleledger.WithSaleID(saleID))
	require.NoError(t, err)
	require.NoError(t, second.Start(ctx))
	defer second.Stop()

	assertSupply(t, second, 3)
	assertBalance(t, second, user2, 3)
	entries, err := second.Journal(ctx, journal.QueryOpts{Kind: journal.KindMint})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	other := testConfig()
	other.SalePrice = types.MustParseEther("1")
	st, err = memory.Open(path)
	require.NoError(t, err)
	mismatched, err := saleledger.New(st, other, saleledger.WithSaleID(saleID))
	require.NoError(t, err)
	assert.ErrorIs(t, mismatched.Start(ctx), saleledger.ErrConfigMismatch)
}

func TestLifecycleErrors(t *testing.T) {
	ctx := context.Background()

	_, err := saleledger.New(memory.New(), sale.Config{})
	require.ErrorIs(t, err, saleledger.ErrInvalidInput)
	assert.ErrorIs(t, err, sale.ErrInvalidConfig)

	l, err := saleledger.New(memory.New(), testConfig())
	require.NoError(t, err)
	_, err = l.Mint(ctx, user2, presalePrice)
	assert.ErrorIs(t, err, saleledger.ErrNotStarted)
	_, err = l.TotalSupply(ctx)
	assert.ErrorIs(t, err, saleledger.ErrNotStarted)

	_, err = l.Mint(ctx, "", presalePrice)
	assert.ErrorIs(t, err, saleledger.ErrNotStarted)
}

func TestInvalidCaller(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig())
	h.clock.Set(presaleStart)

	_, err := h.ledger.Mint(ctx, "", presalePrice)
	assert.ErrorIs(t, err, saleledger.ErrInvalidInput)

	_, err = h.ledger.Mint(ctx, user2, types.Wei(-1))
	assert.ErrorIs(t, err, saleledger.ErrInvalidInput)
}
