// Package service provides the business logic on top of the ledger store:
// account registration, cooldown bonuses, gifting, admin overrides and the
// leaderboard.
package service

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for service operations.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSelfGift            = errors.New("cannot gift to yourself")
	ErrReceiverNotFound    = errors.New("receiver not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrUnauthorized        = errors.New("admin privileges required")
)

// CooldownError reports a bonus claim attempted before its cooldown elapsed.
type CooldownError struct {
	Kind      string // "daily" or "weekly"
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s bonus on cooldown, %s remaining", e.Kind, e.Remaining)
}
