package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"quotecast-bot/internal/locales"
	"quotecast-bot/pkg/telegoapi"
)

// errNotAdmin is returned by handlers refused by the admin gate.
var errNotAdmin = errors.New("user is not a chat admin")

// reply sends an HTML message answering the given message.
func (h *MessageHandler) reply(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, text string, markup telego.ReplyMarkup) error {
	params := tu.Message(tu.ID(message.Chat.ID), text).WithParseMode(telego.ModeHTML)
	if message.MessageID != 0 {
		params.ReplyParameters = &telego.ReplyParameters{MessageID: message.MessageID, AllowSendingWithoutReply: true}
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send reply to chat %d: %w", message.Chat.ID, err)
	}
	return nil
}

// sendSuccess sends an HTML message to the chat. Failures are only logged.
func (h *MessageHandler) sendSuccess(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, text string, markup telego.ReplyMarkup) error {
	if err := h.reply(ctx, bot, message, text, markup); err != nil {
		log.Printf("Error sending success message to chat %d: %v", message.Chat.ID, err)
	}
	return nil
}

// sendError replies with the localized message for msgID and returns originalErr
// so the update loop can report it.
func (h *MessageHandler) sendError(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, msgID string, originalErr error) error {
	log.Printf("Error for user in chat %d: %v", message.Chat.ID, originalErr)

	localizer := h.getLocalizer(message.From)
	if sendErr := h.reply(ctx, bot, message, locales.GetMessage(localizer, msgID, nil, nil), nil); sendErr != nil {
		log.Printf("Error sending error message to chat %d: %v", message.Chat.ID, sendErr)
	}
	return originalErr
}

// getLocalizer picks a localizer for the user, falling back to the default language.
func (h *MessageHandler) getLocalizer(user *telego.User) *i18n.Localizer {
	if user != nil && user.LanguageCode != "" {
		return locales.NewLocalizer(user.LanguageCode, locales.DefaultLanguage)
	}
	return locales.NewLocalizer(locales.DefaultLanguage)
}

// requireAdmin replies with a refusal and returns errNotAdmin unless the sender
// administers the chat. Admin lookup failures count as "not admin".
func (h *MessageHandler) requireAdmin(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	isAdmin, err := h.adminChecker.IsAdmin(ctx, message.Chat.ID, message.From.ID)
	if err != nil {
		log.Printf("[AdminGate Chat:%d User:%d] Admin check failed: %v", message.Chat.ID, message.From.ID, err)
	}
	if isAdmin {
		return nil
	}
	localizer := h.getLocalizer(message.From)
	_ = h.sendSuccess(ctx, bot, message, locales.GetMessage(localizer, "MsgErrorRequiresAdmin", nil, nil), nil)
	return errNotAdmin
}

func isGroup(chat telego.Chat) bool {
	return chat.Type == telego.ChatTypeGroup || chat.Type == telego.ChatTypeSupergroup
}

// commandArgs returns the text after the command word, trimmed.
func commandArgs(text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// displayName returns an HTML-safe first name for the user.
func displayName(user *telego.User) string {
	if user == nil || user.FirstName == "" {
		return "User"
	}
	return html.EscapeString(user.FirstName)
}

// rankBadge decorates the first three places of a ranking.
func rankBadge(rank int) string {
	switch rank {
	case 1:
		return "🏅"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return ""
}

// podiumBadge is rankBadge with the ordinal spelled out, used for group rankings.
func podiumBadge(rank int) string {
	switch rank {
	case 1:
		return "🏆 " + humanize.Ordinal(rank)
	case 2, 3:
		return rankBadge(rank) + " " + humanize.Ordinal(rank)
	}
	return ""
}
