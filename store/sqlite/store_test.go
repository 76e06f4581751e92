package sqlite

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/types"
)

func TestSaleVersionWheres(t *testing.T) {
	st := &sale.State{ID: id.NewSaleID(), Version: 7}

	ws := saleVersionWheres(st)
	require.Len(t, ws, 2)
	assert.Equal(t, where{"id = ?", []any{st.ID.String()}}, ws[0])
	assert.Equal(t, where{"version = ?", []any{int64(6)}}, ws[1], "only the predecessor version may be replaced")
}

func TestEntryWheres(t *testing.T) {
	saleID := id.NewSaleID()
	from := time.Date(2022, 6, 20, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	tests := []struct {
		name  string
		opts  journal.QueryOpts
		exprs []string
		args  []any
	}{
		{
			name:  "sale only",
			exprs: []string{"sale_id = ?"},
			args:  []any{saleID.String()},
		},
		{
			name:  "kind and actor",
			opts:  journal.QueryOpts{Kind: journal.KindMint, Actor: " 0xB0B "},
			exprs: []string{"sale_id = ?", "kind = ?", "actor = ?"},
			args:  []any{saleID.String(), "mint", "0xb0b"},
		},
		{
			name:  "time window",
			opts:  journal.QueryOpts{Start: from, End: to},
			exprs: []string{"sale_id = ?", "timestamp >= ?", "timestamp < ?"},
			args:  []any{saleID.String(), from, to},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var exprs []string
			var args []any
			for _, w := range entryWheres(saleID, tt.opts) {
				assert.Equal(t, strings.Count(w.expr, "?"), len(w.args), w.expr)
				exprs = append(exprs, w.expr)
				args = append(args, w.args...)
			}
			assert.Equal(t, tt.exprs, exprs)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestEntryOrderBreaksTiesOnSuffix(t *testing.T) {
	assert.Equal(t, "timestamp ASC, substr(id, -26) ASC", entryOrder)
	assert.Len(t, id.NewMintID().Suffix(), 26)
}

func TestEntryModelRoundTrip(t *testing.T) {
	e := &journal.Entry{
		ID:        id.NewRefundID(),
		SaleID:    id.NewSaleID(),
		Kind:      journal.KindRefund,
		Actor:     "0xb0b",
		Amount:    types.MustParseEther("0.2"),
		Timestamp: time.Date(2022, 6, 20, 12, 0, 0, 0, time.UTC),
		Metadata:  map[string]string{"mint": "mint_01h455vb4pex5vsknk084sn02q"},
	}

	m := toEntryModel(e)
	assert.Equal(t, "200000000000000000", m.Amount)
	assert.JSONEq(t, `{"mint":"mint_01h455vb4pex5vsknk084sn02q"}`, m.Metadata)

	back, err := fromEntryModel(m)
	require.NoError(t, err)
	assert.Equal(t, e.ID.String(), back.ID.String())
	assert.True(t, back.Amount.Equal(e.Amount))
	assert.Equal(t, e.Metadata, back.Metadata)

	assert.Equal(t, "{}", encodeMetadata(nil))
	assert.Nil(t, decodeMetadata("{}"))
}
