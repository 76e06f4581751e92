// Package saleledger provides a fixed-supply token sale ledger for Go applications.
//
// A sale issues sequentially numbered, non-fungible assets against payment.
// Prices follow a two-phase, time-gated schedule (pre-sale, then public sale),
// issuance stops at a supply cap, and every asset carries resale royalty
// terms. One owner administers the sale; anyone can buy.
//
// Ledger is designed as a library, not a service. It provides:
//
//   - Phase evaluation from an injectable clock
//   - Bulk purchases with exact change returned in the same operation
//   - Per-asset and default royalty terms (basis points of a resale price)
//   - Owner withdrawal of accumulated proceeds
//   - An append-only journal of every settled operation
//   - Pluggable persistence (memory, SQLite, PostgreSQL, MongoDB)
//
// # Quick Start
//
//	cfg, err := sale.ConfigFromUnix(owner, "ipfs://folder/", 5000,
//	    1655236800, 1655928000, "0.05", "0.06")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l, err := saleledger.New(memory.New(), cfg,
//	    saleledger.WithTransferer(wallet),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	res, err := l.Mint(ctx, buyer, saleledger.MustParseEther("0.15"))
//
// # Settlement
//
// Operations validate first, persist their effects second and perform the
// outbound transfer (change or withdrawal) last. A failed transfer undoes
// the persisted effects and the operation returns ErrTransferFailed.
// Operations are serialized; a Transferer that calls back into the ledger
// with the context it was given gets ErrReentrantCall.
//
// All amounts are arbitrary-precision integers in wei.
package saleledger
