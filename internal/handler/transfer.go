package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"hiwa-mines-bot/internal/service"
	"hiwa-mines-bot/internal/store"
)

// TransferHandler handles the /gift command.
type TransferHandler struct {
	transferService *service.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService *service.TransferService) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

// HandleGift handles the /gift command.
// Format: /gift @username <amount>
func (h *TransferHandler) HandleGift(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 2 || !strings.HasPrefix(args[0], "@") {
		return c.Reply("Usage: /gift @username <amount>")
	}
	username := strings.TrimPrefix(args[0], "@")

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return c.Reply("Enter a valid amount.")
	}

	receipt, err := h.transferService.Gift(ctx, sender.ID, username, amount)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			return c.Reply(notRegisteredReply)
		case errors.Is(err, service.ErrInvalidAmount):
			return c.Reply("Enter a valid amount.")
		case errors.Is(err, service.ErrReceiverNotFound):
			return c.Reply("Receiver not found.")
		case errors.Is(err, service.ErrSelfGift):
			return c.Reply("You can't gift yourself.")
		case errors.Is(err, service.ErrInsufficientBalance):
			return c.Reply("Not enough balance.")
		}
		return c.Reply("Something went wrong, please try again later.")
	}

	return c.Reply(fmt.Sprintf("You sent %d Hiwa to @%s!", receipt.Amount, receipt.Receiver.Username))
}
