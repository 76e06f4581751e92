// Package memory provides an in-memory Store, optionally persisted to a
// JSON snapshot file on Close.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/saleledger"
	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/royalty"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/store"
	"github.com/xraph/saleledger/token"
	"github.com/xraph/saleledger/types"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Sale aggregates keyed by sale id
	sales map[string]*sale.State

	// Tokens keyed by sale id, then token id
	tokens map[string]map[uint64]*token.Token

	// Royalty overrides keyed by sale id, then token id
	overrides map[string]map[uint64]*royalty.Override

	// Journal in append order
	entries []*journal.Entry

	snapshotPath string
	closed       bool
}

func New() *Store {
	return &Store{
		sales:     make(map[string]*sale.State),
		tokens:    make(map[string]map[uint64]*token.Token),
		overrides: make(map[string]map[uint64]*royalty.Override),
		entries:   make([]*journal.Entry, 0),
	}
}

// Sale Store implementation
func (s *Store) CreateSale(_ context.Context, st *sale.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[st.ID.String()]; exists {
		return saleledger.ErrAlreadyExists
	}
	s.sales[st.ID.String()] = st.Clone()
	return nil
}

func (s *Store) GetSale(_ context.Context, saleID id.SaleID) (*sale.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.sales[saleID.String()]; ok {
		return st.Clone(), nil
	}
	return nil, saleledger.ErrNotFound
}

func (s *Store) UpdateSale(_ context.Context, st *sale.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sales[st.ID.String()]
	if !ok {
		return saleledger.ErrNotFound
	}
	if cur.Version != st.Version-1 {
		return saleledger.ErrStateConflict
	}
	s.sales[st.ID.String()] = st.Clone()
	return nil
}

// Token Store implementation
func (s *Store) InsertTokens(_ context.Context, tokens []*token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tokens {
		if bucket, ok := s.tokens[t.SaleID.String()]; ok {
			if _, exists := bucket[t.ID]; exists {
				return saleledger.ErrAlreadyExists
			}
		}
	}
	for _, t := range tokens {
		bucket, ok := s.tokens[t.SaleID.String()]
		if !ok {
			bucket = make(map[uint64]*token.Token)
			s.tokens[t.SaleID.String()] = bucket
		}
		cp := *t
		bucket[t.ID] = &cp
	}
	return nil
}

func (s *Store) DeleteTokens(_ context.Context, saleID id.SaleID, tokenIDs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.tokens[saleID.String()]
	for _, tid := range tokenIDs {
		delete(bucket, tid)
	}
	return nil
}

func (s *Store) GetToken(_ context.Context, saleID id.SaleID, tokenID uint64) (*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tokens[saleID.String()][tokenID]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, saleledger.ErrNotFound
}

func (s *Store) CountByOwner(_ context.Context, saleID id.SaleID, owner types.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n uint64
	for _, t := range s.tokens[saleID.String()] {
		if t.Owner.Equal(owner) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListByOwner(_ context.Context, saleID id.SaleID, owner types.Address, opts token.ListOpts) ([]*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*token.Token, 0)
	for _, t := range s.tokens[saleID.String()] {
		if t.Owner.Equal(owner) {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return page(result, opts.Offset, opts.Limit), nil
}

// Royalty Store implementation
func (s *Store) SetOverride(_ context.Context, o *royalty.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.overrides[o.SaleID.String()]
	if !ok {
		bucket = make(map[uint64]*royalty.Override)
		s.overrides[o.SaleID.String()] = bucket
	}
	cp := *o
	if prev, exists := bucket[o.TokenID]; exists {
		cp.CreatedAt = prev.CreatedAt
	}
	bucket[o.TokenID] = &cp
	return nil
}

func (s *Store) GetOverride(_ context.Context, saleID id.SaleID, tokenID uint64) (*royalty.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if o, ok := s.overrides[saleID.String()][tokenID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, saleledger.ErrNotFound
}

func (s *Store) ListOverrides(_ context.Context, saleID id.SaleID) ([]*royalty.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*royalty.Override, 0, len(s.overrides[saleID.String()]))
	for _, o := range s.overrides[saleID.String()] {
		cp := *o
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TokenID < result[j].TokenID })
	return result, nil
}

// Journal Store implementation
func (s *Store) AppendEntries(_ context.Context, entries []*journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		cp := *e
		s.entries = append(s.entries, &cp)
	}
	return nil
}

func (s *Store) ListEntries(_ context.Context, saleID id.SaleID, opts journal.QueryOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*journal.Entry, 0)
	for _, e := range s.entries {
		if e.SaleID.String() != saleID.String() || !opts.Matches(e) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].ID.Suffix() < result[j].ID.Suffix()
	})

	return page(result, 0, opts.Limit), nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return saleledger.ErrStoreClosed
	}
	return nil
}

// Close writes the snapshot file, if one was configured.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.snapshotPath == "" {
		return nil
	}
	return s.writeSnapshot()
}

func page[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
