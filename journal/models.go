// Package journal records every settled ledger operation as an append-only entry.
package journal

import (
	"time"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/types"
)

type Kind string

const (
	KindMint           Kind = "mint"
	KindRefund         Kind = "refund"
	KindWithdrawal     Kind = "withdrawal"
	KindDeposit        Kind = "deposit"
	KindRoyaltyDefault Kind = "royalty_default"
	KindRoyaltyToken   Kind = "royalty_token"
	KindOwnership      Kind = "ownership"
)

type Entry struct {
	ID           id.EntryID        `json:"id"`
	SaleID       id.SaleID         `json:"sale_id"`
	Kind         Kind              `json:"kind"`
	Actor        types.Address     `json:"actor"`
	Counterparty types.Address     `json:"counterparty,omitempty"`
	Amount       types.Amount      `json:"amount"`
	Quantity     uint64            `json:"quantity,omitempty"`
	FirstToken   uint64            `json:"first_token,omitempty"`
	LastToken    uint64            `json:"last_token,omitempty"`
	Bps          uint16            `json:"bps,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type QueryOpts struct {
	Kind  Kind
	Actor types.Address
	Start time.Time
	End   time.Time
	Limit int
}

// Matches reports whether e passes the filters of opts (Limit is ignored).
func (o QueryOpts) Matches(e *Entry) bool {
	if o.Kind != "" && e.Kind != o.Kind {
		return false
	}
	if !o.Actor.IsZero() && !e.Actor.Equal(o.Actor) {
		return false
	}
	if !o.Start.IsZero() && e.Timestamp.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && !e.Timestamp.Before(o.End) {
		return false
	}
	return true
}
