// Package bot provides the Telegram bot initialization and handler
// registration. It is the dispatch layer: all game and ledger semantics
// live in the services and the mines engine.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"hiwa-mines-bot/internal/config"
	"hiwa-mines-bot/internal/game/mines"
	"hiwa-mines-bot/internal/handler"
	"hiwa-mines-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler  *handler.AccountHandler
	minesHandler    *handler.MinesHandler
	transferHandler *handler.TransferHandler
	adminHandler    *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config          *config.Config
	AccountService  *service.AccountService
	TransferService *service.TransferService
	AdminService    *service.AdminService
	RankingService  *service.RankingService
	Engine          *mines.Engine
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	b.accountHandler = handler.NewAccountHandler(
		deps.AccountService,
		deps.RankingService,
		deps.Config.Economy.Leaderboard.Size,
	)
	b.minesHandler = handler.NewMinesHandler(deps.Engine)
	b.transferHandler = handler.NewTransferHandler(deps.TransferService)
	b.adminHandler = handler.NewAdminHandler(deps.AdminService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	// Account and bonus handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/weekly", b.accountHandler.HandleWeekly)
	b.bot.Handle("/leaderboard", b.accountHandler.HandleLeaderboard)

	// Mines game handlers
	b.bot.Handle("/mine", b.minesHandler.HandleMine)
	b.bot.Handle("/reveal", b.minesHandler.HandleReveal)
	b.bot.Handle("/cashout", b.minesHandler.HandleCashout)

	// Gift handler
	b.bot.Handle("/gift", b.transferHandler.HandleGift)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/setbalance", b.adminHandler.HandleSetBalance)
	adminGroup.Handle("/addbalance", b.adminHandler.HandleAddBalance)
	adminGroup.Handle("/broadcast", b.adminHandler.HandleBroadcast)
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
