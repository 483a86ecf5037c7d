package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	cbToggleTheme = "toggle_theme"
	cbLogout      = "logout"
)

// Register registers all command and callback handlers on the bot instance.
// Everything else (plain text, photos, documents) goes through HandleDefault.
func (h *Handler) Register() {
	// Commands
	h.command("start", h.handleStart)
	h.command("server", h.handleServer)
	h.command("ping", h.handlePing)
	h.command("signup", h.handleSignup)
	h.command("login", h.handleLogin)
	h.command("logout", h.handleLogout)
	h.command("me", h.handleMe)
	h.command("settings", h.handleSettings)
	h.command("theme", h.handleTheme)
	h.command("apikey", h.handleAPIKey)

	// Settings callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbToggleTheme, bot.MatchTypeExact, h.handleToggleThemeCallback)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbLogout, bot.MatchTypeExact, h.handleLogoutCallback)
}

// command matches "/name", "/name args" and "/name@bot args", but not "/names".
func (h *Handler) command(name string, fn bot.HandlerFunc) {
	h.bot.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		cmd, _ := splitCommand(update.Message.Text)
		return cmd == name
	}, fn)
}

// HandleDefault routes updates no registered handler matched.
func (h *Handler) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	switch {
	case len(msg.Photo) > 0:
		h.handlePhoto(ctx, b, update)
	case msg.Document != nil:
		h.handleDocument(ctx, b, update)
	case strings.HasPrefix(msg.Text, "/"):
		h.reply(ctx, b, msg.Chat.ID, "🤷 Unknown command. Send /start to see what I can do.")
	case strings.TrimSpace(msg.Text) != "":
		h.handleText(ctx, b, update)
	}
}
