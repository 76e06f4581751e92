package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/royalty"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/token"
	"github.com/xraph/saleledger/types"
)

// ==================== Sale models ====================

type saleModel struct {
	grove.BaseModel `grove:"table:saleledger_sales"`

	ID                 string    `grove:"id,pk"`
	InitialOwner       string    `grove:"initial_owner"`
	AssetLocatorPrefix string    `grove:"asset_locator_prefix"`
	MaxSupply          int64     `grove:"max_supply"`
	PresaleStart       time.Time `grove:"presale_start"`
	SaleStart          time.Time `grove:"sale_start"`
	PresalePrice       string    `grove:"presale_price"`
	SalePrice          string    `grove:"sale_price"`
	Owner              string    `grove:"owner"`
	TotalIssued        int64     `grove:"total_issued"`
	DefaultRoyaltyBps  int       `grove:"default_royalty_bps"`
	Balance            string    `grove:"balance"`
	Version            int64     `grove:"version"`
	CreatedAt          time.Time `grove:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"`
}

func toSaleModel(s *sale.State) *saleModel {
	return &saleModel{
		ID:                 s.ID.String(),
		InitialOwner:       s.Config.Owner.String(),
		AssetLocatorPrefix: s.Config.AssetLocatorPrefix,
		MaxSupply:          int64(s.Config.MaxSupply),
		PresaleStart:       s.Config.PresaleStart.UTC(),
		SaleStart:          s.Config.SaleStart.UTC(),
		PresalePrice:       s.Config.PresalePrice.String(),
		SalePrice:          s.Config.SalePrice.String(),
		Owner:              s.Owner.String(),
		TotalIssued:        int64(s.TotalIssued),
		DefaultRoyaltyBps:  int(s.DefaultRoyaltyBps),
		Balance:            s.Balance.String(),
		Version:            s.Version,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSaleModel(m *saleModel) (*sale.State, error) {
	saleID, err := id.ParseSaleID(m.ID)
	if err != nil {
		return nil, err
	}
	presalePrice, err := types.ParseAmount(m.PresalePrice)
	if err != nil {
		return nil, err
	}
	salePrice, err := types.ParseAmount(m.SalePrice)
	if err != nil {
		return nil, err
	}
	balance, err := types.ParseAmount(m.Balance)
	if err != nil {
		return nil, err
	}

	return &sale.State{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID: saleID,
		Config: sale.Config{
			Owner:              types.Address(m.InitialOwner),
			AssetLocatorPrefix: m.AssetLocatorPrefix,
			MaxSupply:          uint64(m.MaxSupply),
			PresaleStart:       m.PresaleStart.UTC(),
			SaleStart:          m.SaleStart.UTC(),
			PresalePrice:       presalePrice,
			SalePrice:          salePrice,
		},
		Owner:             types.Address(m.Owner),
		TotalIssued:       uint64(m.TotalIssued),
		DefaultRoyaltyBps: uint16(m.DefaultRoyaltyBps),
		Balance:           balance,
		Version:           m.Version,
	}, nil
}

// ==================== Token models ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:saleledger_tokens"`

	SaleID   string    `grove:"sale_id,pk"`
	TokenID  int64     `grove:"token_id,pk"`
	Owner    string    `grove:"owner"`
	MintID   string    `grove:"mint_id"`
	MintedAt time.Time `grove:"minted_at"`
}

func toTokenModel(t *token.Token) *tokenModel {
	return &tokenModel{
		SaleID:   t.SaleID.String(),
		TokenID:  int64(t.ID),
		Owner:    t.Owner.String(),
		MintID:   t.MintID.String(),
		MintedAt: t.MintedAt,
	}
}

func fromTokenModel(m *tokenModel) (*token.Token, error) {
	saleID, err := id.ParseSaleID(m.SaleID)
	if err != nil {
		return nil, err
	}
	mintID, err := id.ParseMintID(m.MintID)
	if err != nil {
		return nil, err
	}
	return &token.Token{
		SaleID:   saleID,
		ID:       uint64(m.TokenID),
		Owner:    types.Address(m.Owner),
		MintID:   mintID,
		MintedAt: m.MintedAt,
	}, nil
}

// ==================== Royalty models ====================

type overrideModel struct {
	grove.BaseModel `grove:"table:saleledger_royalty_overrides"`

	SaleID    string    `grove:"sale_id,pk"`
	TokenID   int64     `grove:"token_id,pk"`
	Bps       int       `grove:"bps"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toOverrideModel(o *royalty.Override) *overrideModel {
	return &overrideModel{
		SaleID:    o.SaleID.String(),
		TokenID:   int64(o.TokenID),
		Bps:       int(o.Bps),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func fromOverrideModel(m *overrideModel) (*royalty.Override, error) {
	saleID, err := id.ParseSaleID(m.SaleID)
	if err != nil {
		return nil, err
	}
	return &royalty.Override{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		SaleID:  saleID,
		TokenID: uint64(m.TokenID),
		Bps:     uint16(m.Bps),
	}, nil
}

// ==================== Journal models ====================

type entryModel struct {
	grove.BaseModel `grove:"table:saleledger_journal"`

	ID           string    `grove:"id,pk"`
	SaleID       string    `grove:"sale_id"`
	Kind         string    `grove:"kind"`
	Actor        string    `grove:"actor"`
	Counterparty string    `grove:"counterparty"`
	Amount       string    `grove:"amount"`
	Quantity     int64     `grove:"quantity"`
	FirstToken   int64     `grove:"first_token"`
	LastToken    int64     `grove:"last_token"`
	Bps          int       `grove:"bps"`
	Timestamp    time.Time `grove:"timestamp"`
	Metadata     string    `grove:"metadata"`
}

func toEntryModel(e *journal.Entry) *entryModel {
	return &entryModel{
		ID:           e.ID.String(),
		SaleID:       e.SaleID.String(),
		Kind:         string(e.Kind),
		Actor:        e.Actor.String(),
		Counterparty: e.Counterparty.String(),
		Amount:       e.Amount.String(),
		Quantity:     int64(e.Quantity),
		FirstToken:   int64(e.FirstToken),
		LastToken:    int64(e.LastToken),
		Bps:          int(e.Bps),
		Timestamp:    e.Timestamp,
		Metadata:     encodeMetadata(e.Metadata),
	}
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	entryID, err := id.ParseAny(m.ID)
	if err != nil {
		return nil, err
	}
	saleID, err := id.ParseSaleID(m.SaleID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	return &journal.Entry{
		ID:           entryID,
		SaleID:       saleID,
		Kind:         journal.Kind(m.Kind),
		Actor:        types.Address(m.Actor),
		Counterparty: types.Address(m.Counterparty),
		Amount:       amount,
		Quantity:     uint64(m.Quantity),
		FirstToken:   uint64(m.FirstToken),
		LastToken:    uint64(m.LastToken),
		Bps:          uint16(m.Bps),
		Timestamp:    m.Timestamp,
		Metadata:     decodeMetadata(m.Metadata),
	}, nil
}

// SQLite has no JSON column type; metadata is stored as a JSON string.
func encodeMetadata(md map[string]string) string {
	if len(md) == 0 {
		return "{}"
	}
	b, _ := json.Marshal(md) //nolint:errcheck // map[string]string always encodes
	return string(b)
}

func decodeMetadata(s string) map[string]string {
	if s == "" || s == "{}" {
		return nil
	}
	var md map[string]string
	_ = json.Unmarshal([]byte(s), &md) //nolint:errcheck // best-effort
	return md
}
