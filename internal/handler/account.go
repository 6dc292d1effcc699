// Package handler provides Telegram bot command handlers. Handlers parse
// command arguments, call into the core services and render the structured
// results as reply text.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"hiwa-mines-bot/internal/service"
	"hiwa-mines-bot/internal/store"
)

const notRegisteredReply = "Please use /start first."

// AccountHandler handles account and bonus commands.
type AccountHandler struct {
	accountService  *service.AccountService
	rankingService  *service.RankingService
	leaderboardSize int
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, rankingService *service.RankingService, leaderboardSize int) *AccountHandler {
	return &AccountHandler{
		accountService:  accountService,
		rankingService:  rankingService,
		leaderboardSize: leaderboardSize,
	}
}

// displayName picks the stored handle for a Telegram sender.
func displayName(sender *tele.User) string {
	if sender.Username != "" {
		return sender.Username
	}
	return sender.FirstName
}

// HandleStart handles the /start command.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, created, err := h.accountService.Register(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply("Something went wrong, please try again later.")
	}

	if created {
		return c.Reply(fmt.Sprintf("Account created! You got %d Hiwa to start.", acc.Balance))
	}
	return c.Reply("You're already registered.")
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	balance, err := h.accountService.GetBalance(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return c.Reply(notRegisteredReply)
		}
		return c.Reply("Something went wrong, please try again later.")
	}

	return c.Reply(fmt.Sprintf("Your balance: %d Hiwa", balance))
}

// HandleDaily handles the /daily command.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	receipt, err := h.accountService.ClaimDaily(ctx, sender.ID)
	if err != nil {
		var cooldown *service.CooldownError
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			return c.Reply(notRegisteredReply)
		case errors.As(err, &cooldown):
			remain := int(cooldown.Remaining.Seconds())
			return c.Reply(fmt.Sprintf(
				"Come back in %dh %dm for your daily bonus.",
				remain/3600, (remain%3600)/60,
			))
		}
		return c.Reply("Something went wrong, please try again later.")
	}

	return c.Reply(fmt.Sprintf("You received %d Hiwa as daily bonus!", receipt.Reward))
}

// HandleWeekly handles the /weekly command.
func (h *AccountHandler) HandleWeekly(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	receipt, err := h.accountService.ClaimWeekly(ctx, sender.ID)
	if err != nil {
		var cooldown *service.CooldownError
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			return c.Reply(notRegisteredReply)
		case errors.As(err, &cooldown):
			remain := int(cooldown.Remaining.Seconds())
			return c.Reply(fmt.Sprintf(
				"Come back in %dd %dh for your weekly bonus.",
				remain/86400, (remain%86400)/3600,
			))
		}
		return c.Reply("Something went wrong, please try again later.")
	}

	return c.Reply(fmt.Sprintf("You received %d Hiwa as weekly bonus!", receipt.Reward))
}

// HandleLeaderboard handles the /leaderboard command.
func (h *AccountHandler) HandleLeaderboard(c tele.Context) error {
	ctx := context.Background()

	top, err := h.rankingService.Top(ctx, h.leaderboardSize)
	if err != nil {
		return c.Reply("Something went wrong, please try again later.")
	}

	var sb strings.Builder
	sb.WriteString("🏆 Top Players:\n")
	for i, acc := range top {
		fmt.Fprintf(&sb, "%d. %s: %d Hiwa\n", i+1, acc.Username, acc.Balance)
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}
