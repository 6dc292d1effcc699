package service

import (
	"context"

	"hiwa-mines-bot/internal/model"
	"hiwa-mines-bot/internal/store"
)

// RankingService handles the balance leaderboard.
type RankingService struct {
	ledger store.Ledger
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(ledger store.Ledger) *RankingService {
	return &RankingService{ledger: ledger}
}

// Top returns up to limit accounts by balance descending. Ties keep the
// store's iteration order.
func (s *RankingService) Top(ctx context.Context, limit int) ([]*model.Account, error) {
	return s.ledger.TopByBalance(ctx, limit)
}
