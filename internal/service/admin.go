package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"hiwa-mines-bot/internal/model"
	"hiwa-mines-bot/internal/pkg/lock"
	"hiwa-mines-bot/internal/store"
)

// Authorizer decides whether a caller may perform admin operations.
// Satisfied by *config.Config.
type Authorizer interface {
	IsAdmin(userID int64) bool
}

// AdminService handles privileged balance overrides and broadcast targeting.
// Every operation independently verifies the caller's capability; the
// dispatch layer's admin gate is not trusted.
type AdminService struct {
	ledger  store.Ledger
	history store.History
	locks   *lock.UserLock
	auth    Authorizer
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(ledger store.Ledger, history store.History, locks *lock.UserLock, auth Authorizer) *AdminService {
	return &AdminService{
		ledger:  ledger,
		history: history,
		locks:   locks,
		auth:    auth,
	}
}

// SetBalance overrides the target account's balance. The target is resolved
// by username, first match wins.
func (s *AdminService) SetBalance(ctx context.Context, callerID int64, username string, amount int64) (*model.Account, error) {
	if !s.auth.IsAdmin(callerID) {
		return nil, ErrUnauthorized
	}
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	acc, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(acc.UserID)
	defer s.locks.Unlock(acc.UserID)

	acc, err = s.ledger.Get(ctx, acc.UserID)
	if err != nil {
		return nil, err
	}

	delta := amount - acc.Balance
	acc.Balance = amount

	if err := s.ledger.Upsert(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to persist balance override: %w", err)
	}
	s.record(ctx, acc.UserID, delta, model.TxTypeAdminSet, fmt.Sprintf("set by admin %d", callerID))

	log.Info().
		Int64("admin_id", callerID).
		Int64("target_id", acc.UserID).
		Int64("balance", amount).
		Str("operation", "set_balance").
		Msg("Admin operation executed")

	return acc, nil
}

// AddBalance credits (or, with a negative amount, debits) the target
// account. A debit below zero is rejected.
func (s *AdminService) AddBalance(ctx context.Context, callerID int64, username string, amount int64) (*model.Account, error) {
	if !s.auth.IsAdmin(callerID) {
		return nil, ErrUnauthorized
	}

	acc, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(acc.UserID)
	defer s.locks.Unlock(acc.UserID)

	acc, err = s.ledger.Get(ctx, acc.UserID)
	if err != nil {
		return nil, err
	}

	if acc.Balance+amount < 0 {
		return nil, ErrInsufficientBalance
	}
	acc.Balance += amount

	if err := s.ledger.Upsert(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to persist balance change: %w", err)
	}
	s.record(ctx, acc.UserID, amount, model.TxTypeAdminAdd, fmt.Sprintf("added by admin %d", callerID))

	log.Info().
		Int64("admin_id", callerID).
		Int64("target_id", acc.UserID).
		Int64("amount", amount).
		Str("operation", "add_balance").
		Msg("Admin operation executed")

	return acc, nil
}

// BroadcastTargets returns every registered user id, for admin broadcasts.
func (s *AdminService) BroadcastTargets(ctx context.Context, callerID int64) ([]int64, error) {
	if !s.auth.IsAdmin(callerID) {
		return nil, ErrUnauthorized
	}

	accounts, err := s.ledger.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	ids := make([]int64, 0, len(accounts))
	for _, acc := range accounts {
		ids = append(ids, acc.UserID)
	}
	return ids, nil
}

func (s *AdminService) target(ctx context.Context, username string) (*model.Account, error) {
	acc, err := s.ledger.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return acc, nil
}

func (s *AdminService) record(ctx context.Context, userID int64, amount int64, kind, note string) {
	if err := s.history.Record(ctx, userID, amount, kind, note); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("kind", kind).Msg("Failed to record ledger entry")
	}
}
