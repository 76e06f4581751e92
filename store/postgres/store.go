package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
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

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("saleledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("saleledger/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(toSaleModel(st)).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return saleledger.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetSale(ctx context.Context, saleID id.SaleID) (*sale.State, error) {
	m := new(saleModel)
	if err := s.selectSale(m, saleID).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, saleledger.ErrNotFound
		}
		return nil, err
	}
	return fromSaleModel(m)
}

func (s *Store) selectSale(m *saleModel, saleID id.SaleID) *pgdriver.SelectQuery {
	return s.pg.NewSelect(m).Where("id = $1", saleID.String())
}

func (s *Store) UpdateSale(ctx context.Context, st *sale.State) error {
	res, err := s.updateSale(st).Exec(ctx)
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

// updateSale only matches the row still at the previous version.
// pgdriver numbers "?" in UPDATE and DELETE clauses; SELECT clauses are
// written verbatim and take $N directly.
func (s *Store) updateSale(st *sale.State) *pgdriver.UpdateQuery {
	m := toSaleModel(st)
	return s.pg.NewUpdate(m).
		Where("id = ?", m.ID).
		Where("version = ?", st.Version-1)
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
	_, err := s.pg.NewInsert(&models).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return saleledger.ErrAlreadyExists
	}
	return err
}

func (s *Store) DeleteTokens(ctx context.Context, saleID id.SaleID, tokenIDs []uint64) error {
	for _, tid := range tokenIDs {
		if _, err := s.deleteToken(saleID, tid).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deleteToken(saleID id.SaleID, tokenID uint64) *pgdriver.DeleteQuery {
	return s.pg.NewDelete((*tokenModel)(nil)).
		Where("sale_id = ?", saleID.String()).
		Where("token_id = ?", int64(tokenID))
}

func (s *Store) GetToken(ctx context.Context, saleID id.SaleID, tokenID uint64) (*token.Token, error) {
	m := new(tokenModel)
	if err := s.selectToken(m, saleID, tokenID).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, saleledger.ErrNotFound
		}
		return nil, err
	}
	return fromTokenModel(m)
}

func (s *Store) selectToken(m *tokenModel, saleID id.SaleID, tokenID uint64) *pgdriver.SelectQuery {
	return s.pg.NewSelect(m).
		Where("sale_id = $1", saleID.String()).
		Where("token_id = $2", int64(tokenID))
}

func (s *Store) CountByOwner(ctx context.Context, saleID id.SaleID, owner types.Address) (uint64, error) {
	var n int64
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM saleledger_tokens
		WHERE sale_id = $1 AND owner = $2
	`, saleID.String(), types.ParseAddress(owner.String()).String()).Scan(ctx, &n)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (s *Store) ListByOwner(ctx context.Context, saleID id.SaleID, owner types.Address, opts token.ListOpts) ([]*token.Token, error) {
	var models []tokenModel
	if err := s.selectTokensByOwner(&models, saleID, owner, opts).Scan(ctx); err != nil {
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

func (s *Store) selectTokensByOwner(models *[]tokenModel, saleID id.SaleID, owner types.Address, opts token.ListOpts) *pgdriver.SelectQuery {
	q := s.pg.NewSelect(models).
		Where("sale_id = $1", saleID.String()).
		Where("owner = $2", types.ParseAddress(owner.String()).String())

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	return q.OrderExpr("token_id ASC")
}

// ==================== Royalty Store ====================

func (s *Store) SetOverride(ctx context.Context, o *royalty.Override) error {
	_, err := s.pg.NewInsert(toOverrideModel(o)).
		OnConflict("(sale_id, token_id) DO UPDATE").
		Set("bps = EXCLUDED.bps").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetOverride(ctx context.Context, saleID id.SaleID, tokenID uint64) (*royalty.Override, error) {
	m := new(overrideModel)
	if err := s.selectOverride(m, saleID, tokenID).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, saleledger.ErrNotFound
		}
		return nil, err
	}
	return fromOverrideModel(m)
}

func (s *Store) selectOverride(m *overrideModel, saleID id.SaleID, tokenID uint64) *pgdriver.SelectQuery {
	return s.pg.NewSelect(m).
		Where("sale_id = $1", saleID.String()).
		Where("token_id = $2", int64(tokenID))
}

func (s *Store) ListOverrides(ctx context.Context, saleID id.SaleID) ([]*royalty.Override, error) {
	var models []overrideModel
	if err := s.selectOverrides(&models, saleID).Scan(ctx); err != nil {
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

func (s *Store) selectOverrides(models *[]overrideModel, saleID id.SaleID) *pgdriver.SelectQuery {
	return s.pg.NewSelect(models).
		Where("sale_id = $1", saleID.String()).
		OrderExpr("token_id ASC")
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
	_, err := s.pg.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) ListEntries(ctx context.Context, saleID id.SaleID, opts journal.QueryOpts) ([]*journal.Entry, error) {
	var models []entryModel
	if err := s.selectEntries(&models, saleID, opts).Scan(ctx); err != nil {
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

func (s *Store) selectEntries(models *[]entryModel, saleID id.SaleID, opts journal.QueryOpts) *pgdriver.SelectQuery {
	q := s.pg.NewSelect(models).Where("sale_id = $1", saleID.String())

	argIdx := 1
	if opts.Kind != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if !opts.Actor.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("actor = $%d", argIdx), types.ParseAddress(opts.Actor.String()).String())
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp >= $%d", argIdx), opts.Start.UTC())
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp < $%d", argIdx), opts.End.UTC())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	// Entries settled at the same instant keep generation order: the last 26
	// characters of a TypeID are its time-ordered suffix.
	return q.OrderExpr("timestamp ASC, right(id, 26) ASC")
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches SQLSTATE 23505 as reported by pgx.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
