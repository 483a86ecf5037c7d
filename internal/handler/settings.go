package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/assistant/internal/domain"
	"github.com/set-night/assistant/internal/middleware"
	"github.com/set-night/assistant/internal/service"
	tg "github.com/set-night/assistant/internal/telegram"
)

func themeLabel(pref domain.ThemePreference) string {
	if pref == domain.ThemeDark {
		return "🌙 Dark"
	}
	return "☀️ Light"
}

func (h *Handler) settingsView(ctx context.Context, d *service.Device) (string, *models.InlineKeyboardMarkup) {
	text := fmt.Sprintf("⚙️ *Settings*\n\n%s\n🎨 Theme: %s",
		h.statusLines(ctx, d), themeLabel(d.Theme.Preference()))

	next := domain.ThemeDark
	if d.Theme.IsDark() {
		next = domain.ThemeLight
	}
	rows := [][]models.InlineKeyboardButton{
		tg.ButtonRow(tg.InlineButton("Switch to "+themeLabel(next), cbToggleTheme)),
	}
	if d.Gateway.Session().LoggedIn() {
		rows = append(rows, tg.ButtonRow(tg.InlineButton("🚪 Logout", cbLogout)))
	}
	return text, tg.InlineKeyboard(rows...)
}

func (h *Handler) handleSettings(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	text, kb := h.settingsView(ctx, d)
	tg.SendText(ctx, b, update.Message.Chat.ID, text, kb)
}

func (h *Handler) handleToggleThemeCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.settingsCallback(ctx, b, update, func(d *service.Device) string {
		return "Theme: " + themeLabel(d.Theme.Toggle(ctx))
	})
}

func (h *Handler) handleLogoutCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.settingsCallback(ctx, b, update, func(d *service.Device) string {
		d.Gateway.Logout(ctx)
		return "Logged out"
	})
}

// settingsCallback applies fn, answers the callback and redraws the settings message.
func (h *Handler) settingsCallback(ctx context.Context, b *bot.Bot, update *models.Update, fn func(d *service.Device) string) {
	cq := update.CallbackQuery
	d := middleware.GetDevice(ctx)
	if cq == nil || d == nil {
		return
	}

	notice := fn(d)
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cq.ID,
		Text:            notice,
	}); err != nil {
		h.tgLogger.LogError(err, "answer callback")
	}

	if cq.Message.Message == nil {
		return
	}
	text, kb := h.settingsView(ctx, d)
	tg.EditText(ctx, b, cq.Message.Message.Chat.ID, cq.Message.Message.ID, text, kb)
}

// handleTheme: /theme [light|dark|toggle]
func (h *Handler) handleTheme(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	_, args := splitCommand(update.Message.Text)
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "dark":
			d.Theme.Set(ctx, domain.ThemeDark)
		case "light":
			d.Theme.Set(ctx, domain.ThemeLight)
		case "toggle":
			d.Theme.Toggle(ctx)
		default:
			h.reply(ctx, b, update.Message.Chat.ID, "Usage: `/theme [light|dark|toggle]`")
			return
		}
	}

	p := d.Theme.Palette()
	h.reply(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"🎨 Theme: %s\n\nBackground `%s`\nText `%s`\nPrimary `%s`\nSecondary `%s`\nCard `%s`\nBorder `%s`",
		themeLabel(d.Theme.Preference()), p.Background, p.Text, p.Primary, p.Secondary, p.Card, p.Border))
}

// handleAPIKey: /apikey <key>
func (h *Handler) handleAPIKey(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	msg := update.Message
	key := commandArgs(msg.Text)
	if key != "" {
		defer tg.DeleteMessage(ctx, b, msg.Chat.ID, msg.ID)
	}

	if err := d.Gateway.UpdateAPIKey(ctx, key); err != nil {
		h.replyError(ctx, b, msg.Chat.ID, "", err, "Failed to update API key")
		return
	}
	h.reply(ctx, b, msg.Chat.ID, "✅ API key updated successfully")
}
