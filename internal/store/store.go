// Package store provides the ledger store: durable, atomically updated
// per-user account state behind a backend-agnostic contract.
package store

import (
	"context"
	"errors"

	"hiwa-mines-bot/internal/model"
)

// Common errors for ledger operations.
var (
	// ErrAccountNotFound is returned when no account exists for a lookup.
	ErrAccountNotFound = errors.New("account not found")
)

// Ledger is the durable mapping from user identity to account state.
//
// Every mutation commits as a single atomic unit: once Upsert or Transfer
// returns nil the new state is what subsequent reads observe, and on error
// the previous state is still what they observe. Returned accounts are
// defensive copies; callers mutate them freely and commit via Upsert.
type Ledger interface {
	// Get returns the account for the user, or ErrAccountNotFound.
	Get(ctx context.Context, userID int64) (*model.Account, error)

	// Upsert atomically commits the account state.
	Upsert(ctx context.Context, acc *model.Account) error

	// Transfer atomically commits two account states, both or neither.
	// Used by gifting so no reader observes a half-applied transfer.
	Transfer(ctx context.Context, a, b *model.Account) error

	// All returns every account, in the store's stable iteration order.
	All(ctx context.Context) ([]*model.Account, error)

	// FindByUsername returns the first account whose username matches
	// case-insensitively, or ErrAccountNotFound. Usernames are not unique;
	// first match in iteration order wins.
	FindByUsername(ctx context.Context, username string) (*model.Account, error)

	// TopByBalance returns up to limit accounts ordered by balance descending.
	TopByBalance(ctx context.Context, limit int) ([]*model.Account, error)
}

// History records committed balance mutations for auditing. Backends that
// have nowhere to keep history use NopHistory.
type History interface {
	Record(ctx context.Context, userID int64, amount int64, kind, note string) error
}

// NopHistory discards all records.
type NopHistory struct{}

// Record implements History.
func (NopHistory) Record(context.Context, int64, int64, string, string) error { return nil }
