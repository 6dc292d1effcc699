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

// GiftReceipt reports a committed gift.
type GiftReceipt struct {
	Receiver      *model.Account
	Amount        int64
	SenderBalance int64
}

// TransferService handles peer-to-peer Hiwa gifting.
type TransferService struct {
	ledger  store.Ledger
	history store.History
	locks   *lock.UserLock
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(ledger store.Ledger, history store.History, locks *lock.UserLock) *TransferService {
	return &TransferService{
		ledger:  ledger,
		history: history,
		locks:   locks,
	}
}

// Gift moves amount from the sender to the account matching
// receiverUsername. Both balances commit as one transaction; both accounts
// stay locked for the whole cycle so no concurrent operation on either
// endpoint can interleave.
func (s *TransferService) Gift(ctx context.Context, senderID int64, receiverUsername string, amount int64) (*GiftReceipt, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// The sender must be registered before the receiver is even resolved.
	if _, err := s.ledger.Get(ctx, senderID); err != nil {
		return nil, err
	}

	// Resolve the receiver identity; the balances are re-read under the
	// pair lock below.
	receiver, err := s.ledger.FindByUsername(ctx, receiverUsername)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("failed to resolve receiver: %w", err)
	}
	if receiver.UserID == senderID {
		return nil, ErrSelfGift
	}

	s.locks.LockPair(senderID, receiver.UserID)
	defer s.locks.UnlockPair(senderID, receiver.UserID)

	sender, err := s.ledger.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err = s.ledger.Get(ctx, receiver.UserID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, err
	}

	if sender.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	sender.Balance -= amount
	receiver.Balance += amount

	if err := s.ledger.Transfer(ctx, sender, receiver); err != nil {
		return nil, fmt.Errorf("failed to persist gift: %w", err)
	}
	s.record(ctx, sender.UserID, -amount, fmt.Sprintf("gift to %s", receiver.Username))
	s.record(ctx, receiver.UserID, amount, fmt.Sprintf("gift from %s", sender.Username))

	log.Info().
		Int64("sender_id", sender.UserID).
		Int64("receiver_id", receiver.UserID).
		Int64("amount", amount).
		Msg("Gift committed")

	return &GiftReceipt{
		Receiver:      receiver,
		Amount:        amount,
		SenderBalance: sender.Balance,
	}, nil
}

func (s *TransferService) record(ctx context.Context, userID int64, amount int64, note string) {
	if err := s.history.Record(ctx, userID, amount, model.TxTypeGift, note); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to record ledger entry")
	}
}
