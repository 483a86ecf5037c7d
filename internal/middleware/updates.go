package middleware

import "github.com/go-telegram/bot/models"

// ChatID returns the chat an update belongs to, or 0 for updates that have none.
func ChatID(update *models.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID
	default:
		return 0
	}
}

func updateKind(update *models.Update) string {
	switch {
	case update.Message != nil && len(update.Message.Photo) > 0:
		return "photo"
	case update.Message != nil && update.Message.Document != nil:
		return "document"
	case update.Message != nil:
		return "message"
	case update.CallbackQuery != nil:
		return "callback_query"
	default:
		return "unknown"
	}
}
