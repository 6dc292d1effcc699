// Package main is the entry point for the Hiwa mines bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"hiwa-mines-bot/internal/bot"
	"hiwa-mines-bot/internal/config"
	"hiwa-mines-bot/internal/game/mines"
	"hiwa-mines-bot/internal/pkg/db"
	"hiwa-mines-bot/internal/pkg/lock"
	"hiwa-mines-bot/internal/service"
	"hiwa-mines-bot/internal/store"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Str("backend", cfg.Storage.Backend).Msg("Configuration loaded successfully")

	// Create context for startup work
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the ledger store
	ledger, history, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer closeStore()

	// Per-user locks serialize every read-modify-persist cycle
	locks := lock.NewUserLock()

	// Initialize services and the game engine
	accountService := service.NewAccountService(
		ledger, history, locks,
		cfg.Economy.StartingBalance,
		service.BonusRule{Reward: cfg.Economy.Daily.Reward, Cooldown: cfg.Economy.Daily.Cooldown},
		service.BonusRule{Reward: cfg.Economy.Weekly.Reward, Cooldown: cfg.Economy.Weekly.Cooldown},
	)
	transferService := service.NewTransferService(ledger, history, locks)
	adminService := service.NewAdminService(ledger, history, locks, cfg)
	rankingService := service.NewRankingService(ledger)
	engine := mines.NewEngine(ledger, history, locks)

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:          cfg,
		AccountService:  accountService,
		TransferService: transferService,
		AdminService:    adminService,
		RankingService:  rankingService,
		Engine:          engine,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// openStore opens the configured ledger backend and returns the ledger, the
// history sink and a close function.
func openStore(ctx context.Context, cfg *config.Config) (store.Ledger, store.History, func(), error) {
	switch cfg.Storage.Backend {
	case "file":
		fs, err := store.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return fs, store.NopHistory{}, func() {}, nil

	case "postgres":
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.Migrate(ctx, pool.Pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		pg := store.NewPGStore(pool.Pool)
		return pg, pg, pool.Close, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
