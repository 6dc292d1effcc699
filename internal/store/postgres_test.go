// Tests use testcontainers-go to spin up a PostgreSQL container.
package store

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"hiwa-mines-bot/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container, runs the migrations and
// returns a connection pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	t.Cleanup(func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	})

	return pool
}

func TestPGStore_GetNotFound(t *testing.T) {
	pool := setupTestDB(t)

	s := NewPGStore(pool)
	_, err := s.Get(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPGStore_UpsertRoundtrip(t *testing.T) {
	pool := setupTestDB(t)

	s := NewPGStore(pool)
	ctx := context.Background()

	acc := &model.Account{
		UserID:    12345,
		Username:  "alice",
		Balance:   500,
		LastDaily: 1700000000,
	}
	require.NoError(t, s.Upsert(ctx, acc))

	got, err := s.Get(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, acc, got)

	// Updating the same row replaces, not duplicates
	acc.Balance = 400
	acc.Game = &model.Game{
		Bet:      100,
		Mines:    5,
		Revealed: []int{2, 17},
	}
	acc.Game.Grid[3] = model.Mine
	require.NoError(t, s.Upsert(ctx, acc))

	got, err = s.Get(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(400), got.Balance)
	require.True(t, got.HasGame())
	assert.Equal(t, int64(100), got.Game.Bet)
	assert.Equal(t, model.Mine, got.Game.Grid[3])
	assert.Equal(t, []int{2, 17}, got.Game.Revealed)

	// Clearing the game persists as NULL
	got.Game = nil
	require.NoError(t, s.Upsert(ctx, got))

	got, err = s.Get(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, got.HasGame())
}

func TestPGStore_FindByUsername(t *testing.T) {
	pool := setupTestDB(t)

	s := NewPGStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &model.Account{UserID: 30, Username: "Carol", Balance: 10}))
	require.NoError(t, s.Upsert(ctx, &model.Account{UserID: 10, Username: "carol", Balance: 20}))

	got, err := s.FindByUsername(ctx, "CAROL")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.UserID)

	_, err = s.FindByUsername(ctx, "mallory")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPGStore_TopByBalance(t *testing.T) {
	pool := setupTestDB(t)

	s := NewPGStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &model.Account{UserID: 1, Username: "a", Balance: 100}))
	require.NoError(t, s.Upsert(ctx, &model.Account{UserID: 2, Username: "b", Balance: 300}))
	require.NoError(t, s.Upsert(ctx, &model.Account{UserID: 3, Username: "c", Balance: 200}))

	top, err := s.TopByBalance(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].UserID)
	assert.Equal(t, int64(3), top[1].UserID)
}

func TestPGStore_Transfer(t *testing.T) {
	pool := setupTestDB(t)

	s := NewPGStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &model.Account{UserID: 1, Username: "alice", Balance: 500}))
	require.NoError(t, s.Upsert(ctx, &model.Account{UserID: 2, Username: "bob", Balance: 500}))

	alice, err := s.Get(ctx, 1)
	require.NoError(t, err)
	bob, err := s.Get(ctx, 2)
	require.NoError(t, err)

	alice.Balance -= 150
	bob.Balance += 150
	require.NoError(t, s.Transfer(ctx, alice, bob))

	gotAlice, err := s.Get(ctx, 1)
	require.NoError(t, err)
	gotBob, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(350), gotAlice.Balance)
	assert.Equal(t, int64(650), gotBob.Balance)
}

func TestPGStore_TransferRollsBackOnConstraintViolation(t *testing.T) {
	pool := setupTestDB(t)

	s := NewPGStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &model.Account{UserID: 1, Username: "alice", Balance: 100}))
	require.NoError(t, s.Upsert(ctx, &model.Account{UserID: 2, Username: "bob", Balance: 100}))

	alice, err := s.Get(ctx, 1)
	require.NoError(t, err)
	bob, err := s.Get(ctx, 2)
	require.NoError(t, err)

	// Drive alice negative: the balance CHECK must fail the whole transfer
	alice.Balance -= 200
	bob.Balance += 200
	require.Error(t, s.Transfer(ctx, alice, bob))

	gotAlice, err := s.Get(ctx, 1)
	require.NoError(t, err)
	gotBob, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(100), gotAlice.Balance)
	assert.Equal(t, int64(100), gotBob.Balance)
}

func TestPGStore_History(t *testing.T) {
	pool := setupTestDB(t)

	s := NewPGStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, 1, 500, model.TxTypeInitial, "starting balance"))
	require.NoError(t, s.Record(ctx, 1, -100, model.TxTypeBet, "mines bet with 5 mines"))
	require.NoError(t, s.Record(ctx, 2, 100, model.TxTypeDaily, "daily bonus"))

	entries, err := s.Recent(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.TxTypeBet, entries[0].Kind)
	assert.Equal(t, int64(-100), entries[0].Amount)
	assert.Equal(t, model.TxTypeInitial, entries[1].Kind)

	entries, err = s.Recent(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TxTypeBet, entries[0].Kind)
}
