package saleledger

import (
	"context"
	"fmt"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/token"
	"github.com/xraph/saleledger/types"
)

// Mint buys as many assets as payment covers at the current price, capped
// by the remaining supply, and returns the unspent part to caller. At a
// zero price exactly one asset is issued per call.
func (l *Ledger) Mint(ctx context.Context, caller types.Address, payment types.Amount) (*MintResult, error) {
	var res *MintResult
	err := l.exclusive(ctx, func(ctx context.Context, st *sale.State, out *outbox) error {
		var err error
		res, err = l.mint(ctx, st, out, caller, payment)
		return err
	})
	if IsSaleError(err) {
		l.plugins.EmitMintRejected(ctx, caller, payment, err)
	}
	return res, err
}

func validatePayer(caller types.Address, value types.Amount) error {
	var errs MultiError
	if caller.IsZero() {
		errs.Add(ValidationError{Field: "caller", Message: "must not be empty"})
	}
	if value.IsNegative() {
		errs.Add(ValidationError{Field: "value", Message: "must not be negative"})
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (l *Ledger) mint(ctx context.Context, st *sale.State, out *outbox, caller types.Address, payment types.Amount) (*MintResult, error) {
	if err := validatePayer(caller, payment); err != nil {
		return nil, err
	}
	caller = types.ParseAddress(caller.String())
	now := l.now().UTC()

	phase := l.cfg.PhaseAt(st.TotalIssued, now)
	switch phase {
	case sale.PhaseNotStarted:
		return nil, ErrSaleNotStarted
	case sale.PhaseFinished:
		return nil, ErrSaleOver
	}
	price, _ := l.cfg.PriceFor(phase)

	var qty uint64
	if price.IsZero() {
		qty = 1
	} else {
		qty = payment.Units(price, st.Remaining())
	}
	if qty == 0 {
		return nil, fmt.Errorf("%w: %s ETH buys nothing at %s ETH", ErrInsufficientPayment, payment.FormatEther(), price.FormatEther())
	}

	spent := price.MulUint(qty)
	change := payment.Sub(spent)
	receipt := id.NewMintID()
	first := st.TotalIssued + 1
	tokens := token.Range(st.ID, first, qty, caller, receipt, now)
	tokenIDs := token.IDs(tokens)

	next := st.Clone()
	next.TotalIssued += qty
	next.Balance = next.Balance.Add(spent)

	if err := l.store.InsertTokens(ctx, tokens); err != nil {
		return nil, fmt.Errorf("saleledger: persist tokens: %w", err)
	}
	if err := l.commit(ctx, next); err != nil {
		if derr := l.store.DeleteTokens(ctx, st.ID, tokenIDs); derr != nil {
			l.logger.Error("failed to remove tokens of an unsettled mint",
				"sale_id", st.ID.String(),
				"error", derr,
			)
		}
		return nil, err
	}

	if change.IsPositive() {
		if err := l.transfer(ctx, caller, change); err != nil {
			l.rollback(ctx, st, tokenIDs)
			return nil, err
		}
	}

	res := &MintResult{
		Receipt:  receipt,
		SaleID:   st.ID,
		Buyer:    caller,
		Phase:    phase,
		TokenIDs: tokenIDs,
		Quantity: qty,
		Price:    price,
		Spent:    spent,
		Change:   change,
		Finished: next.TotalIssued >= l.cfg.MaxSupply,
	}

	mintEntry := &journal.Entry{
		ID:         receipt,
		SaleID:     st.ID,
		Kind:       journal.KindMint,
		Actor:      caller,
		Amount:     spent,
		Quantity:   qty,
		FirstToken: first,
		LastToken:  first + qty - 1,
		Timestamp:  now,
		Metadata: map[string]string{
			"phase": phase.String(),
			"price": price.String(),
		},
	}
	out.record(mintEntry, func(ctx context.Context) { l.plugins.EmitTokensMinted(ctx, mintEntry) })

	if change.IsPositive() {
		refund := &journal.Entry{
			ID:           id.NewRefundID(),
			SaleID:       st.ID,
			Kind:         journal.KindRefund,
			Actor:        caller,
			Counterparty: caller,
			Amount:       change,
			Timestamp:    now,
			Metadata:     map[string]string{"mint_id": receipt.String()},
		}
		out.record(refund, func(ctx context.Context) { l.plugins.EmitRefundIssued(ctx, refund) })
	}

	if res.Finished {
		saleID, total := st.ID, next.TotalIssued
		out.record(nil, func(ctx context.Context) { l.plugins.EmitSaleFinished(ctx, saleID, total) })
	}

	l.logger.Info("tokens minted",
		"sale_id", st.ID.String(),
		"buyer", caller.String(),
		"phase", phase.String(),
		"quantity", qty,
		"first_token", first,
		"spent_wei", spent.String(),
		"change_wei", change.String(),
	)

	return res, nil
}

// Receive settles a plain value transfer into the sale. From the owner it
// credits value and then withdraws the whole balance; from anyone else it
// is a purchase, or a deposit outside the sale when WithDepositsOutsideSale
// is set.
func (l *Ledger) Receive(ctx context.Context, sender types.Address, value types.Amount) (*ReceiveResult, error) {
	var res *ReceiveResult
	err := l.exclusive(ctx, func(ctx context.Context, st *sale.State, out *outbox) error {
		if err := validatePayer(sender, value); err != nil {
			return err
		}

		if st.Owner.Equal(sender) {
			w, err := l.withdraw(ctx, st, out, sender, value)
			if err != nil {
				return err
			}
			res = &ReceiveResult{Kind: ReceiveWithdrawal, Withdrawal: w, Credited: value}
			return nil
		}

		if l.depositsOutsideSale && !l.cfg.PhaseAt(st.TotalIssued, l.now()).Active() {
			if err := l.deposit(ctx, st, out, sender, value); err != nil {
				return err
			}
			res = &ReceiveResult{Kind: ReceiveDeposit, Credited: value}
			return nil
		}

		m, err := l.mint(ctx, st, out, sender, value)
		if err != nil {
			return err
		}
		res = &ReceiveResult{Kind: ReceiveMint, Mint: m, Credited: m.Spent}
		return nil
	})
	if IsSaleError(err) {
		l.plugins.EmitMintRejected(ctx, sender, value, err)
	}
	return res, err
}

func (l *Ledger) deposit(ctx context.Context, st *sale.State, out *outbox, sender types.Address, value types.Amount) error {
	next := st.Clone()
	next.Balance = next.Balance.Add(value)
	if err := l.commit(ctx, next); err != nil {
		return err
	}

	entry := &journal.Entry{
		ID:        id.NewDepositID(),
		SaleID:    st.ID,
		Kind:      journal.KindDeposit,
		Actor:     types.ParseAddress(sender.String()),
		Amount:    value,
		Timestamp: l.now().UTC(),
	}
	out.record(entry, func(ctx context.Context) { l.plugins.EmitDeposit(ctx, entry) })

	l.logger.Info("deposit credited",
		"sale_id", st.ID.String(),
		"sender", sender.String(),
		"amount_wei", value.String(),
		"balance_wei", next.Balance.String(),
	)
	return nil
}
