package handler

import (
	"context"
	"path"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/assistant/internal/config"
	"github.com/set-night/assistant/internal/domain"
	"github.com/set-night/assistant/internal/middleware"
	"github.com/set-night/assistant/internal/service"
	tg "github.com/set-night/assistant/internal/telegram"
)

const noReplyText = "Sorry, I could not process your request."

// acquire claims the device for this update, or tells the user to wait for
// the request already in flight. The caller releases the device on true.
func (h *Handler) acquire(ctx context.Context, b *bot.Bot, chatID int64, d *service.Device) bool {
	if d.TryAcquire() {
		return true
	}
	h.reply(ctx, b, chatID, "⏳ Please wait for the reply to your previous message.")
	return false
}

func (h *Handler) handleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	msg := update.Message
	if !h.acquire(ctx, b, msg.Chat.ID, d) {
		return
	}
	defer d.Release()
	h.ask(ctx, b, d, msg.Chat.ID, msg.ID, msg.Text)
}

// ask sends text to the assistant and posts the reply.
func (h *Handler) ask(ctx context.Context, b *bot.Bot, d *service.Device, chatID int64, replyTo int, text string) {
	stopTyping := tg.StartTyping(ctx, b, chatID)
	reply, err := d.Gateway.SendMessage(ctx, text)
	stopTyping()

	if err != nil {
		h.replyError(ctx, b, chatID, "Error: ", err, "Failed to send message")
		return
	}

	content := reply.Content
	if strings.TrimSpace(content) == "" {
		content = noReplyText
	}
	if err := tg.SendReply(ctx, b, chatID, content, replyTo); err != nil {
		h.tgLogger.LogError(err, "send reply")
	}
}

func (h *Handler) handlePhoto(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	msg := update.Message
	if !h.acquire(ctx, b, msg.Chat.ID, d) {
		return
	}
	defer d.Release()

	// Telegram lists sizes smallest first.
	photo := msg.Photo[len(msg.Photo)-1]
	data, filePath, err := tg.DownloadFile(ctx, b, photo.FileID, config.MaxUploadBytes)
	if err != nil {
		h.replyError(ctx, b, msg.Chat.ID, "Error uploading image: ", err, "Could not download the photo")
		return
	}

	filename, err := d.Gateway.UploadImage(ctx, domain.Asset{
		Name: path.Base(filePath),
		Data: data,
	})
	if err != nil {
		h.replyError(ctx, b, msg.Chat.ID, "Error uploading image: ", err, "Failed to upload image")
		return
	}
	h.reply(ctx, b, msg.Chat.ID, renderEntry(domain.ChatEntry{
		Sender:   domain.SenderUser,
		Text:     "Image uploaded",
		ImageRef: filename,
	}))

	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		h.ask(ctx, b, d, msg.Chat.ID, msg.ID, caption)
	}
}

func isPDF(doc *models.Document) bool {
	return doc.MimeType == config.DefaultDocumentType ||
		strings.EqualFold(path.Ext(doc.FileName), ".pdf")
}

func (h *Handler) handleDocument(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	msg := update.Message
	doc := msg.Document
	if !isPDF(doc) {
		h.reply(ctx, b, msg.Chat.ID, "📄 Only PDF documents are supported.")
		return
	}
	if !h.acquire(ctx, b, msg.Chat.ID, d) {
		return
	}
	defer d.Release()

	data, _, err := tg.DownloadFile(ctx, b, doc.FileID, config.MaxUploadBytes)
	if err != nil {
		h.replyError(ctx, b, msg.Chat.ID, "Error uploading PDF: ", err, "Could not download the document")
		return
	}

	result, err := d.Gateway.UploadDocument(ctx, domain.Asset{
		Name:        doc.FileName,
		ContentType: config.DefaultDocumentType,
		Data:        data,
	})
	if err != nil {
		h.replyError(ctx, b, msg.Chat.ID, "Error uploading PDF: ", err, "Failed to upload document")
		return
	}

	text := result.Message
	if text == "" {
		text = "Document uploaded"
	}
	h.reply(ctx, b, msg.Chat.ID, renderEntry(domain.ChatEntry{
		Sender:      domain.SenderUser,
		Text:        text,
		DocumentRef: result.Filename,
	}))

	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		h.ask(ctx, b, d, msg.Chat.ID, msg.ID, caption)
	}
}
