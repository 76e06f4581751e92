package saleledger

import (
	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/types"
)

// MintResult describes a settled purchase.
type MintResult struct {
	Receipt  id.EntryID    `json:"receipt"`
	SaleID   id.SaleID     `json:"sale_id"`
	Buyer    types.Address `json:"buyer"`
	Phase    sale.Phase    `json:"phase"`
	TokenIDs []uint64      `json:"token_ids"`
	Quantity uint64        `json:"quantity"`
	Price    types.Amount  `json:"price"`
	Spent    types.Amount  `json:"spent"`
	Change   types.Amount  `json:"change"`
	// Finished is set when this purchase issued the last unit of supply.
	Finished bool `json:"finished"`
}

// WithdrawResult describes a settled withdrawal.
type WithdrawResult struct {
	Receipt id.EntryID    `json:"receipt,omitempty"`
	To      types.Address `json:"to"`
	Amount  types.Amount  `json:"amount"`
}

// ReceiveKind tells which path a plain value transfer took.
type ReceiveKind string

const (
	ReceiveMint       ReceiveKind = "mint"
	ReceiveWithdrawal ReceiveKind = "withdrawal"
	ReceiveDeposit    ReceiveKind = "deposit"
)

// ReceiveResult describes a settled plain value transfer.
type ReceiveResult struct {
	Kind       ReceiveKind     `json:"kind"`
	Mint       *MintResult     `json:"mint,omitempty"`
	Withdrawal *WithdrawResult `json:"withdrawal,omitempty"`
	Credited   types.Amount    `json:"credited"`
}
