package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/saleledger"
	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/royalty"
	"github.com/xraph/saleledger/sale"
	salestore "github.com/xraph/saleledger/store"
	"github.com/xraph/saleledger/token"
	"github.com/xraph/saleledger/types"
)

// Collection name constants.
const (
	colSales     = "saleledger_sales"
	colTokens    = "saleledger_tokens"
	colOverrides = "saleledger_royalty_overrides"
	colJournal   = "saleledger_journal"
)

// compile-time interface check
var _ salestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all sale ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("saleledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Sale Store ====================

func (s *Store) CreateSale(ctx context.Context, st *sale.State) error {
	_, err := s.mdb.NewInsert(toSaleModel(st)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return saleledger.ErrAlreadyExists
		}
		return fmt.Errorf("saleledger/mongo: create sale: %w", err)
	}
	return nil
}

func (s *Store) GetSale(ctx context.Context, saleID id.SaleID) (*sale.State, error) {
	var m saleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": saleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, saleledger.ErrNotFound
		}
		return nil, fmt.Errorf("saleledger/mongo: get sale: %w", err)
	}
	return fromSaleModel(&m)
}

func (s *Store) UpdateSale(ctx context.Context, st *sale.State) error {
	m := toSaleModel(st)

	res, err := s.mdb.NewUpdate(m).
		Filter(saleVersionFilter(st)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("saleledger/mongo: update sale: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.GetSale(ctx, st.ID); err != nil {
			return err
		}
		return saleledger.ErrStateConflict
	}
	return nil
}

// saleVersionFilter matches the stored sale only at the version st succeeds.
func saleVersionFilter(st *sale.State) bson.M {
	return bson.M{"_id": st.ID.String(), "version": st.Version - 1}
}

// ==================== Token Store ====================

func (s *Store) InsertTokens(ctx context.Context, tokens []*token.Token) error {
	for i, t := range tokens {
		_, err := s.mdb.NewInsert(toTokenModel(t)).Exec(ctx)
		if err == nil {
			continue
		}
		// Leave no partial range behind.
		if i > 0 {
			if derr := s.DeleteTokens(ctx, t.SaleID, token.IDs(tokens[:i])); derr != nil {
				return errors.Join(err, derr)
			}
		}
		if mongo.IsDuplicateKeyError(err) {
			return saleledger.ErrAlreadyExists
		}
		return fmt.Errorf("saleledger/mongo: insert token: %w", err)
	}
	return nil
}

func (s *Store) DeleteTokens(ctx context.Context, saleID id.SaleID, tokenIDs []uint64) error {
	if len(tokenIDs) == 0 {
		return nil
	}
	keys := make(bson.A, len(tokenIDs))
	for i, tid := range tokenIDs {
		keys[i] = tokenKey(saleID, tid)
	}
	_, err := s.mdb.NewDelete((*tokenModel)(nil)).
		Filter(bson.M{"_id": bson.M{"$in": keys}}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("saleledger/mongo: delete tokens: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, saleID id.SaleID, tokenID uint64) (*token.Token, error) {
	var m tokenModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tokenKey(saleID, tokenID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, saleledger.ErrNotFound
		}
		return nil, fmt.Errorf("saleledger/mongo: get token: %w", err)
	}
	return fromTokenModel(&m)
}

func (s *Store) CountByOwner(ctx context.Context, saleID id.SaleID, owner types.Address) (uint64, error) {
	n, err := s.mdb.Collection(colTokens).CountDocuments(ctx, bson.M{
		"sale_id": saleID.String(),
		"owner":   types.ParseAddress(owner.String()).String(),
	})
	if err != nil {
		return 0, fmt.Errorf("saleledger/mongo: count tokens: %w", err)
	}
	return uint64(n), nil
}

func (s *Store) ListByOwner(ctx context.Context, saleID id.SaleID, owner types.Address, opts token.ListOpts) ([]*token.Token, error) {
	var models []tokenModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{
			"sale_id": saleID.String(),
			"owner":   types.ParseAddress(owner.String()).String(),
		}).
		Sort(bson.D{{Key: "token_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("saleledger/mongo: list tokens: %w", err)
	}

	result := make([]*token.Token, len(models))
	for i := range models {
		t, err := fromTokenModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// ==================== Royalty Store ====================

func (s *Store) SetOverride(ctx context.Context, o *royalty.Override) error {
	m := toOverrideModel(o)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"sale_id":    m.SaleID,
				"token_id":   m.TokenID,
				"bps":        m.Bps,
				"updated_at": m.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"created_at": m.CreatedAt,
			},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("saleledger/mongo: set override: %w", err)
	}
	return nil
}

func (s *Store) GetOverride(ctx context.Context, saleID id.SaleID, tokenID uint64) (*royalty.Override, error) {
	var m overrideModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tokenKey(saleID, tokenID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, saleledger.ErrNotFound
		}
		return nil, fmt.Errorf("saleledger/mongo: get override: %w", err)
	}
	return fromOverrideModel(&m)
}

func (s *Store) ListOverrides(ctx context.Context, saleID id.SaleID) ([]*royalty.Override, error) {
	var models []overrideModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"sale_id": saleID.String()}).
		Sort(bson.D{{Key: "token_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("saleledger/mongo: list overrides: %w", err)
	}

	result := make([]*royalty.Override, len(models))
	for i := range models {
		o, err := fromOverrideModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = o
	}
	return result, nil
}

// ==================== Journal Store ====================

func (s *Store) AppendEntries(ctx context.Context, entries []*journal.Entry) error {
	for _, e := range entries {
		_, err := s.mdb.NewInsert(toEntryModel(e)).Exec(ctx)
		if err != nil {
			// Entries are written at most once.
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("saleledger/mongo: append entry: %w", err)
		}
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, saleID id.SaleID, opts journal.QueryOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.mdb.NewFind(&models).
		Filter(entryFilter(saleID, opts)).
		Sort(entrySort)

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("saleledger/mongo: list entries: %w", err)
	}

	result := make([]*journal.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// entrySort orders entries by settlement time, then generation order.
var entrySort = bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}}

func entryFilter(saleID id.SaleID, opts journal.QueryOpts) bson.M {
	filter := bson.M{"sale_id": saleID.String()}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if !opts.Actor.IsZero() {
		filter["actor"] = types.ParseAddress(opts.Actor.String()).String()
	}
	ts := bson.M{}
	if !opts.Start.IsZero() {
		ts["$gte"] = opts.Start
	}
	if !opts.End.IsZero() {
		ts["$lt"] = opts.End
	}
	if len(ts) > 0 {
		filter["timestamp"] = ts
	}
	return filter
}

// ==================== Helpers ====================

// migrationIndexes returns the indexes required for each collection.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSales: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
		},
		colTokens: {
			{
				Keys:    bson.D{{Key: "sale_id", Value: 1}, {Key: "token_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "sale_id", Value: 1}, {Key: "owner", Value: 1}, {Key: "token_id", Value: 1}}},
		},
		colOverrides: {
			{Keys: bson.D{{Key: "sale_id", Value: 1}, {Key: "token_id", Value: 1}}},
		},
		colJournal: {
			{Keys: bson.D{{Key: "sale_id", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "sale_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "sale_id", Value: 1}, {Key: "actor", Value: 1}}},
		},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
