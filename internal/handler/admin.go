package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"hiwa-mines-bot/internal/service"
)

// AdminHandler handles privileged commands. The bot mounts these behind
// AdminMiddleware; the service checks the capability again on its own.
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// parseTarget parses `@username <amount>` arguments.
func parseTarget(c tele.Context) (string, int64, error) {
	args := c.Args()
	if len(args) != 2 || !strings.HasPrefix(args[0], "@") {
		return "", 0, fmt.Errorf("usage: %s @username <amount>", strings.Fields(c.Text())[0])
	}

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", 0, errors.New("amount must be an integer")
	}
	return strings.TrimPrefix(args[0], "@"), amount, nil
}

// HandleSetBalance handles the /setbalance command.
// Format: /setbalance @username <amount>
func (h *AdminHandler) HandleSetBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	username, amount, err := parseTarget(c)
	if err != nil {
		return c.Reply("Usage: /setbalance @username <amount>")
	}

	acc, err := h.adminService.SetBalance(ctx, sender.ID, username, amount)
	if err != nil {
		return h.replyAdminError(c, err)
	}

	return c.Reply(fmt.Sprintf("Balance set to %d for @%s", acc.Balance, acc.Username))
}

// HandleAddBalance handles the /addbalance command.
// Format: /addbalance @username <amount>
func (h *AdminHandler) HandleAddBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	username, amount, err := parseTarget(c)
	if err != nil {
		return c.Reply("Usage: /addbalance @username <amount>")
	}

	acc, err := h.adminService.AddBalance(ctx, sender.ID, username, amount)
	if err != nil {
		return h.replyAdminError(c, err)
	}

	return c.Reply(fmt.Sprintf("Added %d to @%s's balance.", amount, acc.Username))
}

// HandleBroadcast handles the /broadcast command.
// Format: /broadcast <message>
func (h *AdminHandler) HandleBroadcast(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	text := strings.TrimSpace(strings.TrimPrefix(c.Text(), "/broadcast"))
	if text == "" {
		return c.Reply("Usage: /broadcast <message>")
	}

	targets, err := h.adminService.BroadcastTargets(ctx, sender.ID)
	if err != nil {
		return h.replyAdminError(c, err)
	}

	sent := 0
	for _, id := range targets {
		if _, err := c.Bot().Send(&tele.User{ID: id}, "📢 "+text); err != nil {
			// Users who blocked the bot are skipped.
			log.Debug().Err(err).Int64("user_id", id).Msg("Broadcast delivery failed")
			continue
		}
		sent++
	}

	return c.Reply(fmt.Sprintf("Broadcast sent to %d users!", sent))
}

func (h *AdminHandler) replyAdminError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		// Same silence the non-admin gets from the middleware.
		return nil
	case errors.Is(err, service.ErrUserNotFound):
		return c.Reply("User not found.")
	case errors.Is(err, service.ErrInvalidAmount):
		return c.Reply("Amount can't make the balance negative.")
	case errors.Is(err, service.ErrInsufficientBalance):
		return c.Reply("Amount can't make the balance negative.")
	}
	return c.Reply("Something went wrong, please try again later.")
}
