package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hiwa-mines-bot/internal/model"
)

// PGStore is a Ledger and History backed by PostgreSQL. Atomicity and crash
// safety come from the database; the active game is stored as a JSONB
// document alongside the account row.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore on top of the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Migrate creates the ledger schema. Safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL CHECK (balance >= 0),
			game JSONB,
			last_daily BIGINT NOT NULL DEFAULT 0,
			last_weekly BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_balance ON accounts(balance DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			kind VARCHAR(50) NOT NULL,
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_time ON ledger_entries(user_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create ledger_entries table: %w", err)
	}

	return nil
}

const accountColumns = "user_id, username, balance, game, last_daily, last_weekly"

// Get returns the account for the user, or ErrAccountNotFound.
func (s *PGStore) Get(ctx context.Context, userID int64) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`

	acc, err := scanAccount(s.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// Upsert atomically commits the account state.
func (s *PGStore) Upsert(ctx context.Context, acc *model.Account) error {
	return upsertAccount(ctx, s.pool, acc)
}

// Transfer commits both account states inside one database transaction.
func (s *PGStore) Transfer(ctx context.Context, a, b *model.Account) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertAccount(ctx, tx, a); err != nil {
		return err
	}
	if err := upsertAccount(ctx, tx, b); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}

// All returns every account ordered by user id ascending.
func (s *PGStore) All(ctx context.Context) ([]*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY user_id`
	return s.queryAccounts(ctx, query)
}

// FindByUsername returns the first case-insensitive username match in id order.
func (s *PGStore) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE LOWER(username) = LOWER($1)
		ORDER BY user_id
		LIMIT 1
	`

	acc, err := scanAccount(s.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account by username: %w", err)
	}
	return acc, nil
}

// TopByBalance returns up to limit accounts by balance descending.
func (s *PGStore) TopByBalance(ctx context.Context, limit int) ([]*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY balance DESC, user_id LIMIT $1`
	return s.queryAccounts(ctx, query, limit)
}

// Record appends a ledger history entry.
func (s *PGStore) Record(ctx context.Context, userID int64, amount int64, kind, note string) error {
	const query = `
		INSERT INTO ledger_entries (user_id, amount, kind, note, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	if _, err := s.pool.Exec(ctx, query, userID, amount, kind, note); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

// LedgerEntry is one recorded balance mutation.
type LedgerEntry struct {
	ID     int64
	UserID int64
	Amount int64
	Kind   string
	Note   string
}

// Recent returns the newest history entries for a user.
func (s *PGStore) Recent(ctx context.Context, userID int64, limit int) ([]*LedgerEntry, error) {
	const query = `
		SELECT id, user_id, amount, kind, COALESCE(note, '')
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Kind, &e.Note); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

func (s *PGStore) queryAccounts(ctx context.Context, query string, args ...any) ([]*model.Account, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// execer covers both pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertAccount(ctx context.Context, db execer, acc *model.Account) error {
	const query = `
		INSERT INTO accounts (user_id, username, balance, game, last_daily, last_weekly, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    balance = EXCLUDED.balance,
		    game = EXCLUDED.game,
		    last_daily = EXCLUDED.last_daily,
		    last_weekly = EXCLUDED.last_weekly,
		    updated_at = NOW()
	`

	gameDoc, err := marshalGame(acc.Game)
	if err != nil {
		return err
	}

	if _, err := db.Exec(ctx, query, acc.UserID, acc.Username, acc.Balance, gameDoc, acc.LastDaily, acc.LastWeekly); err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		acc     model.Account
		gameDoc []byte
	)
	if err := row.Scan(&acc.UserID, &acc.Username, &acc.Balance, &gameDoc, &acc.LastDaily, &acc.LastWeekly); err != nil {
		return nil, err
	}

	game, err := unmarshalGame(gameDoc)
	if err != nil {
		return nil, err
	}
	acc.Game = game
	return &acc, nil
}

func marshalGame(game *model.Game) ([]byte, error) {
	if game == nil {
		return nil, nil
	}
	doc, err := json.Marshal(game)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game: %w", err)
	}
	return doc, nil
}

func unmarshalGame(doc []byte) (*model.Game, error) {
	if len(doc) == 0 {
		return nil, nil
	}
	var game model.Game
	if err := json.Unmarshal(doc, &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}
	return &game, nil
}
