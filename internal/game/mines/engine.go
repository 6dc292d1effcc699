package mines

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"hiwa-mines-bot/internal/model"
	"hiwa-mines-bot/internal/pkg/lock"
	"hiwa-mines-bot/internal/store"
)

// Errors for the mines game state machine.
var (
	ErrGameActive          = errors.New("a game is already active")
	ErrNoActiveGame        = errors.New("no active game")
	ErrInvalidBet          = errors.New("bet amount must be positive")
	ErrInvalidMineCount    = fmt.Errorf("mine count must be between %d and %d", MinMines, MaxMines)
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTile         = errors.New("tile index out of range")
	ErrTileRevealed        = errors.New("tile already revealed")
	ErrInsufficientReveals = fmt.Errorf("at least %d revealed gems required to cash out", MinReveals)
)

// BetReceipt reports a successful bet placement.
type BetReceipt struct {
	Bet     int64
	Mines   int
	Balance int64
}

// RevealResult reports the outcome of a tile reveal.
type RevealResult struct {
	Index    int
	Cell     model.Cell
	GemCount int
	Lost     bool
	Balance  int64
}

// CashoutResult reports a successful cashout.
type CashoutResult struct {
	Reward   int64
	GemCount int
	Balance  int64
}

// Engine runs the per-account game state machine over the ledger store.
// Every operation holds the account's lock for its whole
// read-validate-mutate-persist cycle, so concurrent commands from the same
// user serialize and at most one game can ever be created at a time.
type Engine struct {
	ledger  store.Ledger
	history store.History
	locks   *lock.UserLock
	newGrid func(mineCount int) model.Grid
}

// Option configures an Engine.
type Option func(*Engine)

// WithGridSource overrides grid generation, used by tests for deterministic
// boards.
func WithGridSource(fn func(mineCount int) model.Grid) Option {
	return func(e *Engine) {
		e.newGrid = fn
	}
}

// NewEngine creates a game engine on top of the given ledger store.
func NewEngine(ledger store.Ledger, history store.History, locks *lock.UserLock, opts ...Option) *Engine {
	e := &Engine{
		ledger:  ledger,
		history: history,
		locks:   locks,
		newGrid: NewGrid,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlaceBet debits the bet from the balance and creates a fresh game.
// Fails with store.ErrAccountNotFound, ErrGameActive, ErrInvalidBet,
// ErrInvalidMineCount or ErrInsufficientBalance without mutating anything.
func (e *Engine) PlaceBet(ctx context.Context, userID int64, amount int64, mineCount int) (*BetReceipt, error) {
	if amount <= 0 {
		return nil, ErrInvalidBet
	}
	if mineCount < MinMines || mineCount > MaxMines {
		return nil, ErrInvalidMineCount
	}

	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)

	acc, err := e.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.HasGame() {
		return nil, ErrGameActive
	}
	if acc.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	acc.Balance -= amount
	acc.Game = &model.Game{
		Bet:      amount,
		Mines:    mineCount,
		Grid:     e.newGrid(mineCount),
		Revealed: []int{},
	}

	if err := e.ledger.Upsert(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to persist bet: %w", err)
	}
	e.record(ctx, userID, -amount, model.TxTypeBet, fmt.Sprintf("mines bet with %d mines", mineCount))

	return &BetReceipt{Bet: amount, Mines: mineCount, Balance: acc.Balance}, nil
}

// Reveal uncovers one tile. A mine ends the game with no further balance
// change (the bet was debited at placement); a gem is added to the revealed
// set and increases the potential payout.
func (e *Engine) Reveal(ctx context.Context, userID int64, index int) (*RevealResult, error) {
	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)

	acc, err := e.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !acc.HasGame() {
		return nil, ErrNoActiveGame
	}
	if index < 0 || index >= model.GridSize {
		return nil, ErrInvalidTile
	}
	if acc.Game.IsRevealed(index) {
		return nil, ErrTileRevealed
	}

	if acc.Game.Grid[index] == model.Mine {
		acc.Game = nil
		if err := e.ledger.Upsert(ctx, acc); err != nil {
			return nil, fmt.Errorf("failed to persist loss: %w", err)
		}
		return &RevealResult{Index: index, Cell: model.Mine, Lost: true, Balance: acc.Balance}, nil
	}

	acc.Game.Revealed = append(acc.Game.Revealed, index)
	if err := e.ledger.Upsert(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to persist reveal: %w", err)
	}

	return &RevealResult{
		Index:    index,
		Cell:     model.Gem,
		GemCount: acc.Game.GemCount(),
		Balance:  acc.Balance,
	}, nil
}

// Cashout converts the revealed progress into a credited payout and
// discards the game.
func (e *Engine) Cashout(ctx context.Context, userID int64) (*CashoutResult, error) {
	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)

	acc, err := e.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !acc.HasGame() {
		return nil, ErrNoActiveGame
	}

	gems := acc.Game.GemCount()
	if gems < MinReveals {
		return nil, ErrInsufficientReveals
	}

	reward := Payout(acc.Game.Bet, gems)
	acc.Balance += reward
	acc.Game = nil

	if err := e.ledger.Upsert(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to persist cashout: %w", err)
	}
	e.record(ctx, userID, reward, model.TxTypeCashout, fmt.Sprintf("mines cashout with %d gems", gems))

	return &CashoutResult{Reward: reward, GemCount: gems, Balance: acc.Balance}, nil
}

// record appends a history entry. The balance change is already committed;
// a history failure is logged, not surfaced.
func (e *Engine) record(ctx context.Context, userID int64, amount int64, kind, note string) {
	if err := e.history.Record(ctx, userID, amount, kind, note); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("kind", kind).Msg("Failed to record ledger entry")
	}
}
