package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/saleledger"
	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/royalty"
	"github.com/xraph/saleledger/sale"
	salestore "github.com/xraph/saleledger/store"
	"github.com/xraph/saleledger/token"
	"github.com/xraph/saleledger/types"
)

// compile-time interface check
var _ salestore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("saleledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("saleledger/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(toSaleModel(st)).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return saleledger.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetSale(ctx context.Context, saleID id.SaleID) (*sale.State, error) {
	m := new(saleModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", saleID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, saleledger.ErrNotFound
		}
		return nil, err
	}
	return fromSaleModel(m)
}

func (s *Store) UpdateSale(ctx context.Context, st *sale.State) error {
	q := s.sdb.NewUpdate(toSaleModel(st))
	for _, w := range saleVersionWheres(st) {
		q = q.Where(w.expr, w.args...)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetSale(ctx, st.ID); err != nil {
			return err
		}
		return saleledger.ErrStateConflict
	}
	return nil
}

// where is one AND-ed condition.
type where struct {
	expr string
	args []any
}

// saleVersionWheres matches the stored sale only at the version st succeeds.
func saleVersionWheres(st *sale.State) []where {
	return []where{
		{"id = ?", []any{st.ID.String()}},
		{"version = ?", []any{st.Version - 1}},
	}
}

// ==================== Token Store ====================

func (s *Store) InsertTokens(ctx context.Context, tokens []*token.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	models := make([]tokenModel, len(tokens))
	for i, t := range tokens {
		models[i] = *toTokenModel(t)
	}
	_, err := s.sdb.NewInsert(&models).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return saleledger.ErrAlreadyExists
	}
	return err
}

func (s *Store) DeleteTokens(ctx context.Context, saleID id.SaleID, tokenIDs []uint64) error {
	for _, tid := range tokenIDs {
		_, err := s.sdb.NewDelete((*tokenModel)(nil)).
			Where("sale_id = ?", saleID.String()).
			Where("token_id = ?", int64(tid)).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, saleID id.SaleID, tokenID uint64) (*token.Token, error) {
	m := new(tokenModel)
	err := s.sdb.NewSelect(m).
		Where("sale_id = ?", saleID.String()).
		Where("token_id = ?", int64(tokenID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, saleledger.ErrNotFound
		}
		return nil, err
	}
	return fromTokenModel(m)
}

func (s *Store) CountByOwner(ctx context.Context, saleID id.SaleID, owner types.Address) (uint64, error) {
	var n int64
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM saleledger_tokens
		WHERE sale_id = ? AND owner = ?
	`, saleID.String(), types.ParseAddress(owner.String()).String()).Scan(ctx, &n)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (s *Store) ListByOwner(ctx context.Context, saleID id.SaleID, owner types.Address, opts token.ListOpts) ([]*token.Token, error) {
	var models []tokenModel
	q := s.sdb.NewSelect(&models).
		Where("sale_id = ?", saleID.String()).
		Where("owner = ?", types.ParseAddress(owner.String()).String())

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("token_id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.sdb.NewInsert(toOverrideModel(o)).
		OnConflict("(sale_id, token_id) DO UPDATE").
		Set("bps = EXCLUDED.bps").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetOverride(ctx context.Context, saleID id.SaleID, tokenID uint64) (*royalty.Override, error) {
	m := new(overrideModel)
	err := s.sdb.NewSelect(m).
		Where("sale_id = ?", saleID.String()).
		Where("token_id = ?", int64(tokenID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, saleledger.ErrNotFound
		}
		return nil, err
	}
	return fromOverrideModel(m)
}

func (s *Store) ListOverrides(ctx context.Context, saleID id.SaleID) ([]*royalty.Override, error) {
	var models []overrideModel
	err := s.sdb.NewSelect(&models).
		Where("sale_id = ?", saleID.String()).
		OrderExpr("token_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	if len(entries) == 0 {
		return nil
	}
	models := make([]entryModel, len(entries))
	for i, e := range entries {
		models[i] = *toEntryModel(e)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) ListEntries(ctx context.Context, saleID id.SaleID, opts journal.QueryOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models)
	for _, w := range entryWheres(saleID, opts) {
		q = q.Where(w.expr, w.args...)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr(entryOrder)

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// entryOrder breaks timestamp ties on the time-ordered TypeID suffix.
const entryOrder = "timestamp ASC, substr(id, -26) ASC"

func entryWheres(saleID id.SaleID, opts journal.QueryOpts) []where {
	ws := []where{{"sale_id = ?", []any{saleID.String()}}}
	if opts.Kind != "" {
		ws = append(ws, where{"kind = ?", []any{string(opts.Kind)}})
	}
	if !opts.Actor.IsZero() {
		ws = append(ws, where{"actor = ?", []any{types.ParseAddress(opts.Actor.String()).String()}})
	}
	if !opts.Start.IsZero() {
		ws = append(ws, where{"timestamp >= ?", []any{opts.Start.UTC()}})
	}
	if !opts.End.IsZero() {
		ws = append(ws, where{"timestamp < ?", []any{opts.End.UTC()}})
	}
	return ws
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches SQLite's UNIQUE / PRIMARY KEY constraint errors.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
