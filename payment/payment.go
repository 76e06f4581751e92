// Package payment defines the outbound value-transfer primitive used for
// change refunds and owner withdrawals.
package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/saleledger/types"
)

// ErrRejected is returned by a Recorder configured to fail transfers.
var ErrRejected = errors.New("payment: transfer rejected")

// Transferer moves value out of the sale to a recipient.
type Transferer interface {
	Transfer(ctx context.Context, to types.Address, amount types.Amount) error
}

// TransferFunc adapts a plain function to Transferer.
type TransferFunc func(ctx context.Context, to types.Address, amount types.Amount) error

// Transfer calls f.
func (f TransferFunc) Transfer(ctx context.Context, to types.Address, amount types.Amount) error {
	return f(ctx, to, amount)
}

// Transfer is one completed outbound transfer.
type Transfer struct {
	To     types.Address `json:"to"`
	Amount types.Amount  `json:"amount"`
}

// Recorder is an in-memory Transferer that keeps every transfer and a
// running per-recipient total. Fail, when set, decides whether a transfer
// is rejected.
type Recorder struct {
	mu        sync.Mutex
	transfers []Transfer
	Fail      func(to types.Address, amount types.Amount) bool
}

// NewRecorder returns an empty Recorder that accepts every transfer.
func NewRecorder() *Recorder { return &Recorder{} }

// Transfer implements Transferer.
func (r *Recorder) Transfer(_ context.Context, to types.Address, amount types.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil && r.Fail(to, amount) {
		return ErrRejected
	}
	r.transfers = append(r.transfers, Transfer{To: types.ParseAddress(to.String()), Amount: amount})
	return nil
}

// Transfers returns a copy of the recorded transfers in order.
func (r *Recorder) Transfers() []Transfer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transfer, len(r.transfers))
	copy(out, r.transfers)
	return out
}

// Received returns the total transferred to addr.
func (r *Recorder) Received(addr types.Address) types.Amount {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := types.Zero()
	for _, t := range r.transfers {
		if t.To.Equal(addr) {
			total = total.Add(t.Amount)
		}
	}
	return total
}
