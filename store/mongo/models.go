package mongo

import (
	"strconv"
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

	ID                 string    `grove:"id,pk"                bson:"_id"`
	InitialOwner       string    `grove:"initial_owner"        bson:"initial_owner"`
	AssetLocatorPrefix string    `grove:"asset_locator_prefix" bson:"asset_locator_prefix"`
	MaxSupply          int64     `grove:"max_supply"           bson:"max_supply"`
	PresaleStart       time.Time `grove:"presale_start"        bson:"presale_start"`
	SaleStart          time.Time `grove:"sale_start"           bson:"sale_start"`
	PresalePrice       string    `grove:"presale_price"        bson:"presale_price"`
	SalePrice          string    `grove:"sale_price"           bson:"sale_price"`
	Owner              string    `grove:"owner"                bson:"owner"`
	TotalIssued        int64     `grove:"total_issued"         bson:"total_issued"`
	DefaultRoyaltyBps  int32     `grove:"default_royalty_bps"  bson:"default_royalty_bps"`
	Balance            string    `grove:"balance"              bson:"balance"`
	Version            int64     `grove:"version"              bson:"version"`
	CreatedAt          time.Time `grove:"created_at"           bson:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"           bson:"updated_at"`
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
		DefaultRoyaltyBps:  int32(s.DefaultRoyaltyBps),
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
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
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

	Key      string    `grove:"id,pk"     bson:"_id"`
	SaleID   string    `grove:"sale_id"   bson:"sale_id"`
	TokenID  int64     `grove:"token_id"  bson:"token_id"`
	Owner    string    `grove:"owner"     bson:"owner"`
	MintID   string    `grove:"mint_id"   bson:"mint_id"`
	MintedAt time.Time `grove:"minted_at" bson:"minted_at"`
}

// tokenKey is the document id of a token: "<sale id>:<token id>".
func tokenKey(saleID id.SaleID, tokenID uint64) string {
	return saleID.String() + ":" + strconv.FormatUint(tokenID, 10)
}

func toTokenModel(t *token.Token) *tokenModel {
	return &tokenModel{
		Key:      tokenKey(t.SaleID, t.ID),
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
		MintedAt: m.MintedAt.UTC(),
	}, nil
}

// ==================== Royalty models ====================

type overrideModel struct {
	grove.BaseModel `grove:"table:saleledger_royalty_overrides"`

	Key       string    `grove:"id,pk"      bson:"_id"`
	SaleID    string    `grove:"sale_id"    bson:"sale_id"`
	TokenID   int64     `grove:"token_id"   bson:"token_id"`
	Bps       int32     `grove:"bps"        bson:"bps"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toOverrideModel(o *royalty.Override) *overrideModel {
	return &overrideModel{
		Key:       tokenKey(o.SaleID, o.TokenID),
		SaleID:    o.SaleID.String(),
		TokenID:   int64(o.TokenID),
		Bps:       int32(o.Bps),
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
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		SaleID:  saleID,
		TokenID: uint64(m.TokenID),
		Bps:     uint16(m.Bps),
	}, nil
}

// ==================== Journal models ====================

type entryModel struct {
	grove.BaseModel `grove:"table:saleledger_journal"`

	ID           string            `grove:"id,pk"        bson:"_id"`
	SaleID       string            `grove:"sale_id"      bson:"sale_id"`
	Kind         string            `grove:"kind"         bson:"kind"`
	Actor        string            `grove:"actor"        bson:"actor"`
	Counterparty string            `grove:"counterparty" bson:"counterparty,omitempty"`
	Amount       string            `grove:"amount"       bson:"amount"`
	Quantity     int64             `grove:"quantity"     bson:"quantity,omitempty"`
	FirstToken   int64             `grove:"first_token"  bson:"first_token,omitempty"`
	LastToken    int64             `grove:"last_token"   bson:"last_token,omitempty"`
	Bps          int32             `grove:"bps"          bson:"bps,omitempty"`
	Timestamp    time.Time         `grove:"timestamp"    bson:"timestamp"`
	Seq          string            `grove:"seq"          bson:"seq"`
	Metadata     map[string]string `grove:"metadata"     bson:"metadata,omitempty"`
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
		Bps:          int32(e.Bps),
		Timestamp:    e.Timestamp,
		Seq:          e.ID.Suffix(),
		Metadata:     e.Metadata,
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
		Timestamp:    m.Timestamp.UTC(),
		Metadata:     m.Metadata,
	}, nil
}
