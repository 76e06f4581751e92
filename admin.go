package saleledger

import (
	"context"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/royalty"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/types"
)

// ──────────────────────────────────────────────────
// Treasury
// ──────────────────────────────────────────────────

// Withdraw transfers the whole balance to the owner. With nothing to
// withdraw it succeeds without issuing a transfer.
func (l *Ledger) Withdraw(ctx context.Context, caller types.Address) (*WithdrawResult, error) {
	var res *WithdrawResult
	err := l.exclusive(ctx, func(ctx context.Context, st *sale.State, out *outbox) error {
		var err error
		res, err = l.withdraw(ctx, st, out, caller, types.Zero())
		return err
	})
	return res, err
}

// withdraw credits credit to the balance and drains it to the owner as one
// step; a failed transfer undoes both.
func (l *Ledger) withdraw(ctx context.Context, st *sale.State, out *outbox, caller types.Address, credit types.Amount) (*WithdrawResult, error) {
	if err := l.requireOwner(st, caller); err != nil {
		return nil, err
	}

	amount := st.Balance.Add(credit)
	if amount.IsZero() {
		return &WithdrawResult{To: st.Owner, Amount: amount}, nil
	}

	next := st.Clone()
	next.Balance = types.Zero()
	if err := l.commit(ctx, next); err != nil {
		return nil, err
	}
	if err := l.transfer(ctx, st.Owner, amount); err != nil {
		l.rollback(ctx, st, nil)
		return nil, err
	}

	now := l.now().UTC()
	if credit.IsPositive() {
		dep := &journal.Entry{
			ID:        id.NewDepositID(),
			SaleID:    st.ID,
			Kind:      journal.KindDeposit,
			Actor:     st.Owner,
			Amount:    credit,
			Timestamp: now,
		}
		out.record(dep, func(ctx context.Context) { l.plugins.EmitDeposit(ctx, dep) })
	}

	res := &WithdrawResult{Receipt: id.NewWithdrawalID(), To: st.Owner, Amount: amount}
	entry := &journal.Entry{
		ID:           res.Receipt,
		SaleID:       st.ID,
		Kind:         journal.KindWithdrawal,
		Actor:        st.Owner,
		Counterparty: st.Owner,
		Amount:       amount,
		Timestamp:    now,
	}
	out.record(entry, func(ctx context.Context) { l.plugins.EmitWithdrawn(ctx, entry) })

	l.logger.Info("balance withdrawn",
		"sale_id", st.ID.String(),
		"owner", st.Owner.String(),
		"amount_wei", amount.String(),
	)
	return res, nil
}

// ──────────────────────────────────────────────────
// Royalties
// ──────────────────────────────────────────────────

// SetDefaultRoyalty changes the fraction applied to tokens without an override.
func (l *Ledger) SetDefaultRoyalty(ctx context.Context, caller types.Address, bps uint16) error {
	return l.exclusive(ctx, func(ctx context.Context, st *sale.State, out *outbox) error {
		if err := l.requireOwner(st, caller); err != nil {
			return err
		}
		if royalty.Validate(bps) != nil {
			return ErrInvalidRoyalty
		}

		next := st.Clone()
		next.DefaultRoyaltyBps = bps
		if err := l.commit(ctx, next); err != nil {
			return err
		}

		entry := &journal.Entry{
			ID:        id.NewRoyaltyID(),
			SaleID:    st.ID,
			Kind:      journal.KindRoyaltyDefault,
			Actor:     st.Owner,
			Bps:       bps,
			Timestamp: l.now().UTC(),
		}
		out.record(entry, func(ctx context.Context) { l.plugins.EmitRoyaltyUpdated(ctx, entry) })

		l.logger.Info("default royalty set",
			"sale_id", st.ID.String(),
			"bps", bps,
		)
		return nil
	})
}

// SetTokenRoyalty overrides the royalty fraction of one issued token.
func (l *Ledger) SetTokenRoyalty(ctx context.Context, caller types.Address, tokenID uint64, bps uint16) error {
	return l.exclusive(ctx, func(ctx context.Context, st *sale.State, out *outbox) error {
		if err := l.requireOwner(st, caller); err != nil {
			return err
		}
		if !exists(st, tokenID) {
			return ErrNonexistentToken
		}
		if royalty.Validate(bps) != nil {
			return ErrInvalidRoyalty
		}

		now := l.now()
		if err := l.store.SetOverride(ctx, &royalty.Override{
			Entity:  types.NewEntity(now),
			SaleID:  st.ID,
			TokenID: tokenID,
			Bps:     bps,
		}); err != nil {
			return err
		}

		entry := &journal.Entry{
			ID:         id.NewRoyaltyID(),
			SaleID:     st.ID,
			Kind:       journal.KindRoyaltyToken,
			Actor:      st.Owner,
			FirstToken: tokenID,
			LastToken:  tokenID,
			Bps:        bps,
			Timestamp:  now.UTC(),
		}
		out.record(entry, func(ctx context.Context) { l.plugins.EmitRoyaltyUpdated(ctx, entry) })

		l.logger.Info("token royalty set",
			"sale_id", st.ID.String(),
			"token_id", tokenID,
			"bps", bps,
		)
		return nil
	})
}

// ──────────────────────────────────────────────────
// Ownership
// ──────────────────────────────────────────────────

// TransferOwnership moves the owner role, and with it withdrawal rights,
// royalty administration and royalty receipts, to newOwner.
func (l *Ledger) TransferOwnership(ctx context.Context, caller, newOwner types.Address) error {
	return l.exclusive(ctx, func(ctx context.Context, st *sale.State, out *outbox) error {
		if err := l.requireOwner(st, caller); err != nil {
			return err
		}
		if newOwner.IsZero() {
			return ValidationError{Field: "new_owner", Message: "must not be empty"}
		}

		next := st.Clone()
		next.Owner = types.ParseAddress(newOwner.String())
		if err := l.commit(ctx, next); err != nil {
			return err
		}

		entry := &journal.Entry{
			ID:           id.NewOwnershipID(),
			SaleID:       st.ID,
			Kind:         journal.KindOwnership,
			Actor:        st.Owner,
			Counterparty: next.Owner,
			Timestamp:    l.now().UTC(),
		}
		out.record(entry, func(ctx context.Context) { l.plugins.EmitOwnershipTransferred(ctx, entry) })

		l.logger.Info("ownership transferred",
			"sale_id", st.ID.String(),
			"from", st.Owner.String(),
			"to", next.Owner.String(),
		)
		return nil
	})
}
