package mines

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiwa-mines-bot/internal/model"
	"hiwa-mines-bot/internal/pkg/lock"
	"hiwa-mines-bot/internal/store"
)

const testUserID int64 = 12345

// gridWithMinesAt builds a deterministic board with mines at the given
// indices.
func gridWithMinesAt(indices ...int) model.Grid {
	var g model.Grid
	for _, i := range indices {
		g[i] = model.Mine
	}
	return g
}

// newTestEngine creates an engine over a file store in a temp dir, seeded
// with one account at balance 500, using a fixed board.
func newTestEngine(t *testing.T, grid model.Grid) (*Engine, store.Ledger) {
	t.Helper()

	fs, err := store.NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	require.NoError(t, fs.Upsert(context.Background(), &model.Account{
		UserID:   testUserID,
		Username: "alice",
		Balance:  500,
	}))

	engine := NewEngine(fs, store.NopHistory{}, lock.NewUserLock(),
		WithGridSource(func(mineCount int) model.Grid { return grid }))
	return engine, fs
}

func TestEngine_PlaceBet(t *testing.T) {
	engine, ledger := newTestEngine(t, gridWithMinesAt(0, 1, 2, 3, 4))
	ctx := context.Background()

	receipt, err := engine.PlaceBet(ctx, testUserID, 100, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(100), receipt.Bet)
	assert.Equal(t, 5, receipt.Mines)
	assert.Equal(t, int64(400), receipt.Balance)

	acc, err := ledger.Get(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, acc.HasGame())
	assert.Equal(t, int64(400), acc.Balance)
	assert.Equal(t, 5, acc.Game.Grid.MineCount())
	assert.Empty(t, acc.Game.Revealed)
}

func TestEngine_PlaceBetValidation(t *testing.T) {
	engine, ledger := newTestEngine(t, gridWithMinesAt(0, 1, 2))
	ctx := context.Background()

	tests := []struct {
		name      string
		userID    int64
		amount    int64
		mineCount int
		wantErr   error
	}{
		{"zero amount", testUserID, 0, 5, ErrInvalidBet},
		{"negative amount", testUserID, -10, 5, ErrInvalidBet},
		{"too few mines", testUserID, 100, 2, ErrInvalidMineCount},
		{"too many mines", testUserID, 100, 25, ErrInvalidMineCount},
		{"insufficient balance", testUserID, 501, 5, ErrInsufficientBalance},
		{"not registered", 99999, 100, 5, store.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.PlaceBet(ctx, tt.userID, tt.amount, tt.mineCount)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Nothing above may have mutated the account
	acc, err := ledger.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), acc.Balance)
	assert.False(t, acc.HasGame())
}

func TestEngine_PlaceBetWhileGameActive(t *testing.T) {
	engine, _ := newTestEngine(t, gridWithMinesAt(0, 1, 2))
	ctx := context.Background()

	_, err := engine.PlaceBet(ctx, testUserID, 100, 3)
	require.NoError(t, err)

	_, err = engine.PlaceBet(ctx, testUserID, 100, 3)
	assert.ErrorIs(t, err, ErrGameActive)
}

func TestEngine_RevealGem(t *testing.T) {
	engine, ledger := newTestEngine(t, gridWithMinesAt(0, 1, 2))
	ctx := context.Background()

	_, err := engine.PlaceBet(ctx, testUserID, 100, 3)
	require.NoError(t, err)

	result, err := engine.Reveal(ctx, testUserID, 10)
	require.NoError(t, err)
	assert.Equal(t, model.Gem, result.Cell)
	assert.Equal(t, 1, result.GemCount)
	assert.False(t, result.Lost)

	result, err = engine.Reveal(ctx, testUserID, 11)
	require.NoError(t, err)
	assert.Equal(t, 2, result.GemCount)

	acc, err := ledger.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{10, 11}, acc.Game.Revealed)
}

func TestEngine_RevealMineEndsGame(t *testing.T) {
	engine, ledger := newTestEngine(t, gridWithMinesAt(0, 1, 2))
	ctx := context.Background()

	_, err := engine.PlaceBet(ctx, testUserID, 100, 3)
	require.NoError(t, err)

	result, err := engine.Reveal(ctx, testUserID, 0)
	require.NoError(t, err)
	assert.True(t, result.Lost)
	assert.Equal(t, model.Mine, result.Cell)

	// Balance is exactly the starting amount minus the bet, and the game is gone
	acc, err := ledger.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), acc.Balance)
	assert.False(t, acc.HasGame())

	_, err = engine.Reveal(ctx, testUserID, 1)
	assert.ErrorIs(t, err, ErrNoActiveGame)
}

func TestEngine_RevealValidation(t *testing.T) {
	engine, ledger := newTestEngine(t, gridWithMinesAt(0, 1, 2))
	ctx := context.Background()

	_, err := engine.Reveal(ctx, testUserID, 5)
	assert.ErrorIs(t, err, ErrNoActiveGame)

	_, err = engine.PlaceBet(ctx, testUserID, 100, 3)
	require.NoError(t, err)

	_, err = engine.Reveal(ctx, testUserID, -1)
	assert.ErrorIs(t, err, ErrInvalidTile)
	_, err = engine.Reveal(ctx, testUserID, 25)
	assert.ErrorIs(t, err, ErrInvalidTile)

	_, err = engine.Reveal(ctx, testUserID, 5)
	require.NoError(t, err)

	_, err = engine.Reveal(ctx, testUserID, 5)
	assert.ErrorIs(t, err, ErrTileRevealed)

	// The duplicate reveal must not grow the revealed set
	acc, err := ledger.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, acc.Game.Revealed)
}

func TestEngine_CashoutRequiresTwoGems(t *testing.T) {
	engine, ledger := newTestEngine(t, gridWithMinesAt(0, 1, 2))
	ctx := context.Background()

	_, err := engine.Cashout(ctx, testUserID)
	assert.ErrorIs(t, err, ErrNoActiveGame)

	_, err = engine.PlaceBet(ctx, testUserID, 100, 3)
	require.NoError(t, err)

	_, err = engine.Cashout(ctx, testUserID)
	assert.ErrorIs(t, err, ErrInsufficientReveals)

	_, err = engine.Reveal(ctx, testUserID, 5)
	require.NoError(t, err)

	_, err = engine.Cashout(ctx, testUserID)
	assert.ErrorIs(t, err, ErrInsufficientReveals)

	// Failed cashouts leave the game untouched
	acc, err := ledger.Get(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, acc.HasGame())
	assert.Equal(t, []int{5}, acc.Game.Revealed)
	assert.Equal(t, int64(400), acc.Balance)
}

// TestEngine_Scenario walks the full happy path: 500 start, bet 100 with 5
// mines, two gems, cashout for 400 + 100 + 20 = 520.
func TestEngine_Scenario(t *testing.T) {
	engine, ledger := newTestEngine(t, gridWithMinesAt(20, 21, 22, 23, 24))
	ctx := context.Background()

	receipt, err := engine.PlaceBet(ctx, testUserID, 100, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(400), receipt.Balance)

	first, err := engine.Reveal(ctx, testUserID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.GemCount)

	second, err := engine.Reveal(ctx, testUserID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, second.GemCount)

	result, err := engine.Cashout(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), result.Reward)
	assert.Equal(t, int64(520), result.Balance)

	acc, err := ledger.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(520), acc.Balance)
	assert.False(t, acc.HasGame())
}

// TestEngine_ConcurrentPlaceBet races many bet placements from the same
// user: exactly one may create a game.
func TestEngine_ConcurrentPlaceBet(t *testing.T) {
	engine, ledger := newTestEngine(t, gridWithMinesAt(0, 1, 2))
	ctx := context.Background()

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if _, err := engine.PlaceBet(ctx, testUserID, 100, 3); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)

	acc, err := ledger.Get(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, acc.HasGame())
	assert.Equal(t, int64(400), acc.Balance)
}
