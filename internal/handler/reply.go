package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"

	"github.com/set-night/assistant/internal/domain"
	tg "github.com/set-night/assistant/internal/telegram"
)

func (h *Handler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	tg.SendText(ctx, b, chatID, text, nil)
}

// replyError shows the user-facing message of err. Errors that did not come
// through the gateway are unexpected and also go to the operator chat.
func (h *Handler) replyError(ctx context.Context, b *bot.Bot, chatID int64, prefix string, err error, fallback string) {
	var de *domain.Error
	if errors.As(err, &de) {
		slog.Warn("request failed", "chat_id", chatID, "kind", de.Kind, "op", de.Op, "status", de.Status, "error", de.Err)
		if de.Status >= 500 {
			h.tgLogger.LogError(err, de.Op)
		}
	} else {
		slog.Error("unexpected error", "chat_id", chatID, "error", err)
		h.tgLogger.LogError(err, fallback)
	}

	entry := domain.ChatEntry{
		Sender:  domain.SenderAssistant,
		Text:    prefix + domain.UserMessage(err, fallback),
		IsError: true,
	}
	h.reply(ctx, b, chatID, renderEntry(entry))
}

// renderEntry formats a transcript entry as a legacy Markdown message.
func renderEntry(e domain.ChatEntry) string {
	text := tg.EscapeMarkdown(e.Text)
	switch {
	case e.IsError:
		return "❌ " + text
	case e.ImageRef != "":
		return "🖼 " + text + "\n`" + e.ImageRef + "`"
	case e.DocumentRef != "":
		return "📄 " + text + "\n`" + e.DocumentRef + "`"
	default:
		return text
	}
}
