package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/assistant/internal/domain"
	"github.com/set-night/assistant/internal/middleware"
)

// handleServer shows the server address, sets a LAN IP ("/server 192.168.1.10")
// or goes back to the hosted default ("/server default").
func (h *Handler) handleServer(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	chatID := update.Message.Chat.ID
	_, args := splitCommand(update.Message.Text)

	if len(args) == 0 {
		ip, _ := d.Endpoint.ServerIP(ctx)
		base, err := d.Endpoint.BaseURL(ctx)
		if err != nil {
			h.replyError(ctx, b, chatID, "", err, "Server address is not configured.")
			return
		}
		source := "default server"
		if ip != "" {
			source = "IP " + ip
		}
		h.reply(ctx, b, chatID, fmt.Sprintf(
			"🌐 Using %s: `%s`\n\nSet a local server with `/server <ip>`, go back with `/server default`.", source, base))
		return
	}

	switch arg := strings.ToLower(args[0]); arg {
	case "default", "reset":
		if err := d.Endpoint.ClearServerIP(ctx); err != nil {
			h.replyError(ctx, b, chatID, "", err, "Could not reset the server address.")
			return
		}
	default:
		if err := d.Endpoint.SetServerIP(ctx, arg); err != nil {
			if errors.Is(err, domain.ErrInvalidServerIP) {
				h.reply(ctx, b, chatID, "❌ Invalid IP. Please enter a valid IP address, e.g. `192.168.1.100`.")
				return
			}
			h.replyError(ctx, b, chatID, "", err, "Could not save the server address.")
			return
		}
	}

	h.probe(ctx, b, chatID)
}

func (h *Handler) handlePing(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.probe(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) probe(ctx context.Context, b *bot.Bot, chatID int64) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	base, _ := d.Endpoint.BaseURL(ctx)
	if err := d.Endpoint.Probe(ctx); err != nil {
		h.replyError(ctx, b, chatID, "", err, "Could not connect to the server.")
		return
	}
	h.reply(ctx, b, chatID, fmt.Sprintf("✅ Connection successful! `%s`", base))
}
