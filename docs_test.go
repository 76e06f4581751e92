package saleledger_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/saleledger"
	"github.com/xraph/saleledger/payment"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/store/memory"
	"github.com/xraph/saleledger/types"
)

// TestDocumentationExamples verifies that the package documentation examples work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		cfg, err := sale.ConfigFromUnix("0xOwner", "ipfs://folder/", 5000,
			1655236800, 1655928000, "0.05", "0.06")
		if err != nil {
			t.Fatal(err)
		}

		wallet := payment.NewRecorder()
		l, err := saleledger.New(memory.New(), cfg,
			saleledger.WithLogger(slog.Default()),
			saleledger.WithTransferer(wallet),
			saleledger.WithClock(func() time.Time { return time.Unix(1655928000, 0) }),
		)
		if err != nil {
			t.Fatal(err)
		}

		ctx := context.Background()
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		res, err := l.Mint(ctx, "0xbuyer", saleledger.MustParseEther("0.15"))
		if err != nil {
			t.Fatal(err)
		}
		if res.Quantity != 2 {
			t.Errorf("expected 2 tokens, got %d", res.Quantity)
		}
		if !res.Change.Equal(saleledger.MustParseEther("0.03")) {
			t.Errorf("expected 0.03 change, got %s", res.Change.FormatEther())
		}

		uri, err := l.TokenURI(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if uri != "ipfs://folder/1" {
			t.Errorf("unexpected uri %q", uri)
		}
	})
}

func ExampleLedger_Mint() {
	cfg := sale.Config{
		Owner:        "0xowner",
		MaxSupply:    10,
		PresaleStart: time.Date(2022, 6, 14, 0, 0, 0, 0, time.UTC),
		SaleStart:    time.Date(2022, 6, 22, 0, 0, 0, 0, time.UTC),
		PresalePrice: types.MustParseEther("0.05"),
		SalePrice:    types.MustParseEther("0.06"),
	}

	l, _ := saleledger.New(memory.New(), cfg,
		saleledger.WithLogger(slog.New(slog.DiscardHandler)),
		saleledger.WithClock(func() time.Time { return time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC) }),
	)
	ctx := context.Background()
	_ = l.Start(ctx)
	defer l.Stop()

	res, _ := l.Mint(ctx, "0xbuyer", types.MustParseEther("0.12"))
	fmt.Println(res.Phase, res.TokenIDs, res.Change.FormatEther())
	// Output: presale [1 2] 0.02
}
