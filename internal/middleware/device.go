package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/assistant/internal/service"
)

type ctxKey string

const DeviceKey ctxKey = "device"

// GetDevice extracts the chat's device from context.
func GetDevice(ctx context.Context) *service.Device {
	d, ok := ctx.Value(DeviceKey).(*service.Device)
	if !ok {
		return nil
	}
	return d
}

// WithDevice stores d in ctx.
func WithDevice(ctx context.Context, d *service.Device) context.Context {
	return context.WithValue(ctx, DeviceKey, d)
}

// DeviceLoader returns middleware that attaches the chat's device to the
// context, creating and restoring it on the chat's first update.
func DeviceLoader(registry *service.Registry) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if chatID := ChatID(update); chatID != 0 {
				ctx = WithDevice(ctx, registry.Get(ctx, chatID))
			}
			next(ctx, b, update)
		}
	}
}
