package handler

import (
	"github.com/go-telegram/bot"

	"github.com/set-night/assistant/internal/config"
	"github.com/set-night/assistant/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
// The per-chat device comes from the request context.
type Handler struct {
	bot      *bot.Bot
	cfg      *config.Config
	tgLogger *telegram.TelegramLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot      *bot.Bot
	Cfg      *config.Config
	TgLogger *telegram.TelegramLogger
}

func New(deps Deps) *Handler {
	return &Handler{
		bot:      deps.Bot,
		cfg:      deps.Cfg,
		tgLogger: deps.TgLogger,
	}
}
