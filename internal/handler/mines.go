package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"hiwa-mines-bot/internal/game/mines"
	"hiwa-mines-bot/internal/model"
	"hiwa-mines-bot/internal/store"
)

// MinesHandler handles the /mine, /reveal and /cashout commands.
type MinesHandler struct {
	engine *mines.Engine
}

// NewMinesHandler creates a new MinesHandler.
func NewMinesHandler(engine *mines.Engine) *MinesHandler {
	return &MinesHandler{engine: engine}
}

// renderBoard prints the 5x5 tile numbers the player picks from.
// Tiles are 1-based at the chat surface.
func renderBoard() string {
	var sb strings.Builder
	for i := 0; i < model.GridSize; i++ {
		fmt.Fprintf(&sb, "%2d ", i+1)
		if (i+1)%5 == 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// HandleMine handles the /mine command.
// Format: /mine <amount> <mines>
func (h *MinesHandler) HandleMine(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 2 {
		return c.Reply("Usage: /mine <amount> <mines>")
	}

	amount, err1 := strconv.ParseInt(args[0], 10, 64)
	mineCount, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return c.Reply("Invalid input. Mines must be between 3 and 24.")
	}

	receipt, err := h.engine.PlaceBet(ctx, sender.ID, amount, mineCount)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			return c.Reply(notRegisteredReply)
		case errors.Is(err, mines.ErrGameActive):
			return c.Reply("You already have an active game. Use /reveal or /cashout first.")
		case errors.Is(err, mines.ErrInvalidBet), errors.Is(err, mines.ErrInvalidMineCount):
			return c.Reply("Invalid input. Mines must be between 3 and 24.")
		case errors.Is(err, mines.ErrInsufficientBalance):
			return c.Reply("Not enough Hiwa.")
		}
		return c.Reply("Something went wrong, please try again later.")
	}

	return c.Reply(fmt.Sprintf(
		"Game started with %d mines!\nBet: %d Hiwa\n\n%s\nUse /reveal <1-25> to pick a tile.",
		receipt.Mines, receipt.Bet, renderBoard(),
	))
}

// HandleReveal handles the /reveal command.
// Format: /reveal <1-25>
func (h *MinesHandler) HandleReveal(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Usage: /reveal <1-25>")
	}

	tile, err := strconv.Atoi(args[0])
	if err != nil {
		return c.Reply("Invalid tile number.")
	}

	result, err := h.engine.Reveal(ctx, sender.ID, tile-1)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound), errors.Is(err, mines.ErrNoActiveGame):
			return c.Reply("No active game. Use /mine to start one.")
		case errors.Is(err, mines.ErrInvalidTile):
			return c.Reply("Invalid tile number.")
		case errors.Is(err, mines.ErrTileRevealed):
			return c.Reply("Tile already revealed.")
		}
		return c.Reply("Something went wrong, please try again later.")
	}

	if result.Lost {
		return c.Reply("Boom! You hit a bomb and lost the game.")
	}
	return c.Reply(fmt.Sprintf(
		"Tile %d revealed: 💎\nUse /cashout to secure winnings or keep revealing!",
		result.Index+1,
	))
}

// HandleCashout handles the /cashout command.
func (h *MinesHandler) HandleCashout(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	result, err := h.engine.Cashout(ctx, sender.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound), errors.Is(err, mines.ErrNoActiveGame):
			return c.Reply("No active game.")
		case errors.Is(err, mines.ErrInsufficientReveals):
			return c.Reply("Reveal at least 2 gems to cash out.")
		}
		return c.Reply("Something went wrong, please try again later.")
	}

	return c.Reply(fmt.Sprintf(
		"You cashed out and won %d Hiwa!\nNew balance: %d",
		result.Reward, result.Balance,
	))
}
