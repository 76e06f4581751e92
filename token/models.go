package token

import (
	"time"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/types"
)

// Token is the ownership record of one issued asset. IDs are 1-based and
// assigned sequentially per sale.
type Token struct {
	SaleID   id.SaleID     `json:"sale_id"`
	ID       uint64        `json:"id"`
	Owner    types.Address `json:"owner"`
	MintID   id.EntryID    `json:"mint_id"`
	MintedAt time.Time     `json:"minted_at"`
}

// Range builds the records for tokens first..first+count-1 owned by owner.
func Range(saleID id.SaleID, first, count uint64, owner types.Address, mintID id.EntryID, at time.Time) []*Token {
	out := make([]*Token, 0, count)
	for i := uint64(0); i < count; i++ {
		out = append(out, &Token{
			SaleID:   saleID,
			ID:       first + i,
			Owner:    owner,
			MintID:   mintID,
			MintedAt: at.UTC(),
		})
	}
	return out
}

// IDs returns the token ids of ts in order.
func IDs(ts []*Token) []uint64 {
	out := make([]uint64, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
