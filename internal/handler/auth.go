package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/assistant/internal/middleware"
	tg "github.com/set-night/assistant/internal/telegram"
)

// handleSignup: /signup <username> <email> <password>
func (h *Handler) handleSignup(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	msg := update.Message
	_, args := splitCommand(msg.Text)
	if len(args) != 3 {
		h.reply(ctx, b, msg.Chat.ID, "Usage: `/signup <username> <email> <password>`")
		return
	}
	defer tg.DeleteMessage(ctx, b, msg.Chat.ID, msg.ID)

	sess, err := d.Gateway.Signup(ctx, args[0], args[1], args[2])
	if err != nil {
		h.replyError(ctx, b, msg.Chat.ID, "Signup failed: ", err, "Signup failed")
		return
	}

	h.tgLogger.LogRegistration(msg.Chat.ID, sess.User.ID, sess.User.Username)
	h.reply(ctx, b, msg.Chat.ID, fmt.Sprintf(
		"✅ Account created. You are logged in as *%s*.\n\nYour message with the password was removed.",
		tg.EscapeMarkdown(sess.User.Username)))
}

// handleLogin: /login <email> <password>
func (h *Handler) handleLogin(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	msg := update.Message
	_, args := splitCommand(msg.Text)
	if len(args) != 2 {
		h.reply(ctx, b, msg.Chat.ID, "Usage: `/login <email> <password>`")
		return
	}
	defer tg.DeleteMessage(ctx, b, msg.Chat.ID, msg.ID)

	profile, err := d.Gateway.Login(ctx, args[0], args[1])
	if err != nil {
		h.replyError(ctx, b, msg.Chat.ID, "Login failed: ", err, "An error occurred during login")
		return
	}
	h.reply(ctx, b, msg.Chat.ID, fmt.Sprintf("✅ Welcome back, *%s*!", tg.EscapeMarkdown(profile.Username)))
}

func (h *Handler) handleLogout(ctx context.Context, b *bot.Bot, update *models.Update) {
	d := middleware.GetDevice(ctx)
	if d == nil {
		return
	}
	d.Gateway.Logout(ctx)
	h.reply(ctx, b, update.Message.Chat.ID, "👋 You are logged out.")
}
