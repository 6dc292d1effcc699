package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"hiwa-mines-bot/internal/model"
	"hiwa-mines-bot/internal/pkg/lock"
	"hiwa-mines-bot/internal/store"
)

// BonusRule is one cooldown bonus: a flat reward claimable once per cooldown.
type BonusRule struct {
	Reward   int64
	Cooldown time.Duration
}

// AccountService handles registration, balance lookups and cooldown bonuses.
type AccountService struct {
	ledger   store.Ledger
	history  store.History
	locks    *lock.UserLock
	starting int64
	daily    BonusRule
	weekly   BonusRule
	now      func() time.Time
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	ledger store.Ledger,
	history store.History,
	locks *lock.UserLock,
	startingBalance int64,
	daily, weekly BonusRule,
) *AccountService {
	return &AccountService{
		ledger:   ledger,
		history:  history,
		locks:    locks,
		starting: startingBalance,
		daily:    daily,
		weekly:   weekly,
		now:      time.Now,
	}
}

// WithClock overrides the service clock, used by tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// Register creates an account with the starting grant if none exists for the
// user. Calling it again never grants a second starting balance.
func (s *AccountService) Register(ctx context.Context, userID int64, displayName string) (*model.Account, bool, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	acc, err := s.ledger.Get(ctx, userID)
	if err == nil {
		return acc, false, nil
	}
	if !errors.Is(err, store.ErrAccountNotFound) {
		return nil, false, fmt.Errorf("failed to look up account: %w", err)
	}

	acc = &model.Account{
		UserID:   userID,
		Username: displayName,
		Balance:  s.starting,
	}
	if err := s.ledger.Upsert(ctx, acc); err != nil {
		return nil, false, fmt.Errorf("failed to create account: %w", err)
	}
	s.record(ctx, userID, s.starting, model.TxTypeInitial, "starting grant")

	log.Info().Int64("user_id", userID).Str("username", displayName).Msg("Account created")
	return acc, true, nil
}

// Require returns the account for the user, or store.ErrAccountNotFound if
// the user never registered. Every other operation uses it as a precondition.
func (s *AccountService) Require(ctx context.Context, userID int64) (*model.Account, error) {
	return s.ledger.Get(ctx, userID)
}

// FindByUsername resolves an account by display handle, case-insensitively.
// Duplicate usernames resolve to the first match in store order.
func (s *AccountService) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.ledger.FindByUsername(ctx, username)
}

// GetBalance retrieves a user's current balance.
func (s *AccountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	acc, err := s.ledger.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// BonusReceipt reports a successful bonus claim.
type BonusReceipt struct {
	Reward  int64
	Balance int64
}

// ClaimDaily credits the daily bonus, or fails with a CooldownError carrying
// the remaining wait.
func (s *AccountService) ClaimDaily(ctx context.Context, userID int64) (*BonusReceipt, error) {
	return s.claim(ctx, userID, "daily", s.daily, model.TxTypeDaily,
		func(a *model.Account) *int64 { return &a.LastDaily })
}

// ClaimWeekly credits the weekly bonus, or fails with a CooldownError.
func (s *AccountService) ClaimWeekly(ctx context.Context, userID int64) (*BonusReceipt, error) {
	return s.claim(ctx, userID, "weekly", s.weekly, model.TxTypeWeekly,
		func(a *model.Account) *int64 { return &a.LastWeekly })
}

func (s *AccountService) claim(
	ctx context.Context,
	userID int64,
	kind string,
	rule BonusRule,
	txType string,
	stamp func(*model.Account) *int64,
) (*BonusReceipt, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	acc, err := s.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	last := *stamp(acc)
	if last != 0 {
		elapsed := now.Sub(time.Unix(last, 0))
		if elapsed < rule.Cooldown {
			return nil, &CooldownError{Kind: kind, Remaining: rule.Cooldown - elapsed}
		}
	}

	acc.Balance += rule.Reward
	*stamp(acc) = now.Unix()

	if err := s.ledger.Upsert(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to persist %s bonus: %w", kind, err)
	}
	s.record(ctx, userID, rule.Reward, txType, kind+" bonus")

	return &BonusReceipt{Reward: rule.Reward, Balance: acc.Balance}, nil
}

func (s *AccountService) record(ctx context.Context, userID int64, amount int64, kind, note string) {
	if err := s.history.Record(ctx, userID, amount, kind, note); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("kind", kind).Msg("Failed to record ledger entry")
	}
}
