package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"hiwa-mines-bot/internal/model"
)

// FileStore is a Ledger backed by a single JSON document, drop-in compatible
// with the legacy users.json layout (user-id string -> account record).
//
// The in-memory map is authoritative after load. Mutations are flushed with
// write-to-temp-then-rename so a crash mid-write never leaves a partially
// written document behind, and a failed flush leaves the in-memory state
// untouched.
type FileStore struct {
	path string

	mu       sync.RWMutex
	accounts map[int64]*model.Account
}

// NewFileStore loads the account document at path. A missing file starts an
// empty store; an unreadable or unparseable file is a fatal load error.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		accounts: make(map[int64]*model.Account),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", path).Msg("Ledger file absent, starting empty")
			return s, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var doc map[string]*model.Account
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ledger file %s is corrupt: %w", path, err)
	}

	for key, acc := range doc {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ledger file %s has invalid user id %q: %w", path, key, err)
		}
		acc.UserID = id
		s.accounts[id] = acc
	}

	log.Info().Str("path", path).Int("accounts", len(s.accounts)).Msg("Ledger file loaded")
	return s, nil
}

// Get returns a copy of the account, or ErrAccountNotFound.
func (s *FileStore) Get(ctx context.Context, userID int64) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc.Clone(), nil
}

// Upsert atomically commits the account state.
func (s *FileStore) Upsert(ctx context.Context, acc *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.withUpdates(acc)
	if err := s.flush(next); err != nil {
		return err
	}
	s.accounts = next
	return nil
}

// Transfer atomically commits two account states.
func (s *FileStore) Transfer(ctx context.Context, a, b *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.withUpdates(a, b)
	if err := s.flush(next); err != nil {
		return err
	}
	s.accounts = next
	return nil
}

// All returns copies of every account, ordered by user id ascending.
func (s *FileStore) All(ctx context.Context) ([]*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]*model.Account, 0, len(s.accounts))
	for _, id := range s.sortedIDs() {
		accounts = append(accounts, s.accounts[id].Clone())
	}
	return accounts, nil
}

// FindByUsername returns the first case-insensitive username match in id order.
func (s *FileStore) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.sortedIDs() {
		acc := s.accounts[id]
		if strings.EqualFold(acc.Username, username) {
			return acc.Clone(), nil
		}
	}
	return nil, ErrAccountNotFound
}

// TopByBalance returns up to limit accounts by balance descending. Ties keep
// the store's id order.
func (s *FileStore) TopByBalance(ctx context.Context, limit int) ([]*model.Account, error) {
	accounts, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(accounts, func(a, b *model.Account) int {
		switch {
		case a.Balance > b.Balance:
			return -1
		case a.Balance < b.Balance:
			return 1
		}
		return 0
	})

	if limit >= 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

// withUpdates builds the next account map with the given accounts applied.
// Callers must hold the write lock.
func (s *FileStore) withUpdates(updates ...*model.Account) map[int64]*model.Account {
	next := make(map[int64]*model.Account, len(s.accounts)+len(updates))
	for id, acc := range s.accounts {
		next[id] = acc
	}
	for _, acc := range updates {
		next[acc.UserID] = acc.Clone()
	}
	return next
}

// flush durably writes the document: marshal, write to a temp file in the
// same directory, fsync, then atomically rename over the target.
func (s *FileStore) flush(accounts map[int64]*model.Account) error {
	doc := make(map[string]*model.Account, len(accounts))
	for id, acc := range accounts {
		doc[strconv.FormatInt(id, 10)] = acc
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp ledger file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

// sortedIDs returns the account ids ascending. Callers must hold a lock.
func (s *FileStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
