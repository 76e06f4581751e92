package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/royalty"
	"github.com/xraph/saleledger/sale"
	"github.com/xraph/saleledger/token"
)

// snapshot is the on-disk form of the store.
type snapshot struct {
	Sales     []*sale.State       `json:"sales"`
	Tokens    []*token.Token      `json:"tokens"`
	Overrides []*royalty.Override `json:"overrides"`
	Entries   []*journal.Entry    `json:"entries"`
}

// Open returns a store backed by the JSON snapshot at path. A missing file
// yields an empty store; the snapshot is written back on Close.
func Open(path string) (*Store, error) {
	s := New()
	s.snapshotPath = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("saleledger/memory: read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("saleledger/memory: decode snapshot %s: %w", path, err)
	}

	for _, st := range snap.Sales {
		s.sales[st.ID.String()] = st
	}
	for _, t := range snap.Tokens {
		bucket, ok := s.tokens[t.SaleID.String()]
		if !ok {
			bucket = make(map[uint64]*token.Token)
			s.tokens[t.SaleID.String()] = bucket
		}
		bucket[t.ID] = t
	}
	for _, o := range snap.Overrides {
		bucket, ok := s.overrides[o.SaleID.String()]
		if !ok {
			bucket = make(map[uint64]*royalty.Override)
			s.overrides[o.SaleID.String()] = bucket
		}
		bucket[o.TokenID] = o
	}
	s.entries = append(s.entries, snap.Entries...)

	return s, nil
}

// Path returns the snapshot file, or "" for a purely in-memory store.
func (s *Store) Path() string { return s.snapshotPath }

// writeSnapshot must be called with s.mu held.
func (s *Store) writeSnapshot() error {
	snap := snapshot{
		Sales:     make([]*sale.State, 0, len(s.sales)),
		Tokens:    make([]*token.Token, 0),
		Overrides: make([]*royalty.Override, 0),
		Entries:   s.entries,
	}
	for _, st := range s.sales {
		snap.Sales = append(snap.Sales, st)
	}
	for _, bucket := range s.tokens {
		for _, t := range bucket {
			snap.Tokens = append(snap.Tokens, t)
		}
	}
	for _, bucket := range s.overrides {
		for _, o := range bucket {
			snap.Overrides = append(snap.Overrides, o)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("saleledger/memory: encode snapshot: %w", err)
	}

	if dir := filepath.Dir(s.snapshotPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("saleledger/memory: create snapshot dir: %w", err)
		}
	}
	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("saleledger/memory: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return fmt.Errorf("saleledger/memory: replace snapshot: %w", err)
	}
	return nil
}
