package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/assistant/internal/middleware"
	"github.com/set-night/assistant/internal/service"
	tg "github.com/set-night/assistant/internal/telegram"
)

const helpText = "📋 *Commands:*\n" +
	"/server - Show or set the server address\n" +
	"/ping - Test the connection\n" +
	"/signup - Create an account\n" +
	"/login - Log in\n" +
	"/logout - Log out\n" +
	"/me - Your profile\n" +
	"/settings - Theme and account\n" +
	"/apikey - Set your model API key\n\n" +
	"Send a message to chat, a photo to upload an image, or a PDF to add a document."

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString("👋 *Personal Assistant*\n\n")
	sb.WriteString(h.statusLines(ctx, d))
	sb.WriteString("\n\n")
	sb.WriteString(helpText)

	tg.SendText(ctx, b, update.Message.Chat.ID, sb.String(), nil)
}

// statusLines summarizes the device: server and login state.
func (h *Handler) statusLines(ctx context.Context, d *service.Device) string {
	server := "unresolved"
	if base, err := d.Endpoint.BaseURL(ctx); err == nil {
		server = base
	}

	account := "not logged in"
	if sess := d.Gateway.Session(); sess.LoggedIn() {
		account = "*" + tg.EscapeMarkdown(sess.User.Username) + "*"
	}

	lines := fmt.Sprintf("🌐 Server: `%s`\n👤 Account: %s", server, account)
	if !h.cfg.PersistentStorage() {
		lines += "\n⚠️ Storage is in memory, settings and login are lost on restart."
	}
	return lines
}

func (h *Handler) handleMe(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sess := d.Gateway.Session()
	if !sess.LoggedIn() {
		h.reply(ctx, b, chatID, "🔒 You are not logged in. Use /login or /signup.")
		return
	}

	status := "active"
	if !sess.User.IsActive {
		status = "inactive"
	}
	h.reply(ctx, b, chatID, fmt.Sprintf(
		"👤 *Profile*\n\nID: `%d`\nUsername: %s\nEmail: %s\nStatus: %s",
		sess.User.ID,
		tg.EscapeMarkdown(sess.User.Username),
		tg.EscapeMarkdown(sess.User.Email),
		status,
	))
}
