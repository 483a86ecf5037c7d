package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs update processing time.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			next(ctx, b, update)

			// Message text is never logged, it may carry credentials.
			slog.Debug("update processed",
				"update_id", update.ID,
				"type", updateKind(update),
				"chat_id", ChatID(update),
				"duration", time.Since(start),
			)
		}
	}
}
