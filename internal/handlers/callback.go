package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"quotecast-bot/internal/callbacks"
	"quotecast-bot/internal/locales"
	"quotecast-bot/pkg/telegoapi"
)

var (
	minutePresets = []int{10, 20, 30, 40, 50, 60}
	hourPresets   = []int{1, 3, 5, 6}
)

const presetsPerRow = 3

// HandleCallbackQuery decodes the button payload and dispatches on the event type.
// Every query is answered so the client stops its loading indicator.
func (h *MessageHandler) HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error {
	logPrefix := fmt.Sprintf("[Callback User:%d QueryID:%s]", query.From.ID, query.ID)
	localizer := h.getLocalizer(&query.From)

	event, err := callbacks.Parse(query.Data)
	if err != nil {
		log.Printf("%s %v", logPrefix, err)
		h.answer(ctx, bot, query, locales.GetMessage(localizer, "MsgCallbackNotHandled", nil, nil), true)
		return nil
	}

	msg, _ := query.Message.(*telego.Message)

	switch ev := event.(type) {
	case callbacks.ReactionClick:
		if _, err := h.engagement.OnReactionClick(ctx, ev.ChatID, ev.MessageID, query.From.ID, ev.Kind); err != nil {
			h.answer(ctx, bot, query, locales.GetMessage(localizer, "MsgErrorReaction", nil, nil), false)
			return fmt.Errorf("%s reaction failed: %w", logPrefix, err)
		}
		h.answer(ctx, bot, query, "", false)
		return nil

	case callbacks.IntervalUnit:
		if !h.callbackFromAdmin(ctx, bot, query, ev.ChatID, localizer) {
			return nil
		}
		if msg == nil {
			h.answer(ctx, bot, query, "", false)
			return nil
		}
		text, markup := intervalPresets(localizer, ev)
		h.answer(ctx, bot, query, "", false)
		return h.editCard(ctx, bot, msg, text, markup)

	case callbacks.IntervalValue:
		if !h.callbackFromAdmin(ctx, bot, query, ev.ChatID, localizer) {
			return nil
		}
		interval := time.Duration(ev.Seconds) * time.Second
		if err := h.engagement.SetChatInterval(ev.ChatID, interval); err != nil {
			h.answer(ctx, bot, query, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil), false)
			return fmt.Errorf("%s failed to set interval: %w", logPrefix, err)
		}
		log.Printf("%s Interval of chat %d set to %s", logPrefix, ev.ChatID, interval)
		h.answer(ctx, bot, query, "", false)
		if msg == nil {
			return nil
		}
		return h.editCard(ctx, bot, msg, intervalConfirmation(localizer, ev.Seconds), nil)

	case callbacks.LeaderboardView:
		text, markup, err := h.leaderboardCard(localizer, ev.ChatID, ev.Mode)
		if err != nil {
			h.answer(ctx, bot, query, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil), false)
			return fmt.Errorf("%s leaderboard failed: %w", logPrefix, err)
		}
		h.answer(ctx, bot, query, "", false)
		if msg == nil {
			return nil
		}
		return h.editCard(ctx, bot, msg, text, markup)

	case callbacks.Menu:
		return h.handleMenu(ctx, bot, query, msg, ev.Action, localizer)
	}

	log.Printf("%s Callback query not handled", logPrefix)
	h.answer(ctx, bot, query, locales.GetMessage(localizer, "MsgCallbackNotHandled", nil, nil), true)
	return nil
}

func (h *MessageHandler) handleMenu(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery, msg *telego.Message, action callbacks.Action, localizer *i18n.Localizer) error {
	h.answer(ctx, bot, query, "", false)
	if msg == nil {
		return nil
	}

	switch action {
	case callbacks.ActionQuotes:
		return h.sendQuote(ctx, bot, *msg, &query.From)
	case callbacks.ActionHelp:
		text, markup := h.helpCard(localizer)
		return h.editCard(ctx, bot, msg, text, markup)
	case callbacks.ActionStart:
		text, markup, err := h.startCard(ctx, bot, localizer)
		if err != nil {
			return err
		}
		return h.editCard(ctx, bot, msg, text, markup)
	case callbacks.ActionClose:
		err := bot.DeleteMessage(ctx, &telego.DeleteMessageParams{ChatID: tu.ID(msg.Chat.ID), MessageID: msg.MessageID})
		if err != nil {
			return fmt.Errorf("failed to delete message %d in chat %d: %w", msg.MessageID, msg.Chat.ID, err)
		}
	}
	return nil
}

// callbackFromAdmin answers with a refusal and returns false unless the
// user pressing the button administers the chat.
func (h *MessageHandler) callbackFromAdmin(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery, chatID int64, localizer *i18n.Localizer) bool {
	isAdmin, err := h.adminChecker.IsAdmin(ctx, chatID, query.From.ID)
	if err != nil {
		log.Printf("[AdminGate Chat:%d User:%d] Admin check failed: %v", chatID, query.From.ID, err)
	}
	if !isAdmin {
		h.answer(ctx, bot, query, locales.GetMessage(localizer, "MsgErrorRequiresAdmin", nil, nil), true)
	}
	return isAdmin
}

func (h *MessageHandler) answer(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery, text string, alert bool) {
	params := &telego.AnswerCallbackQueryParams{CallbackQueryID: query.ID, Text: text, ShowAlert: alert}
	if err := bot.AnswerCallbackQuery(ctx, params); err != nil {
		log.Printf("Error answering callback query %s: %v", query.ID, err)
	}
}

// editCard replaces the text and buttons of a bot message.
func (h *MessageHandler) editCard(ctx context.Context, bot telegoapi.BotAPI, msg *telego.Message, text string, markup *telego.InlineKeyboardMarkup) error {
	_, err := bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:      tu.ID(msg.Chat.ID),
		MessageID:   msg.MessageID,
		Text:        text,
		ParseMode:   telego.ModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil && !isNotModified(err) {
		return fmt.Errorf("failed to edit message %d in chat %d: %w", msg.MessageID, msg.Chat.ID, err)
	}
	return nil
}

// isNotModified matches Telegram's refusal to apply an edit that changes nothing.
func isNotModified(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

func intervalPresets(localizer *i18n.Localizer, ev callbacks.IntervalUnit) (string, *telego.InlineKeyboardMarkup) {
	presets, unitSeconds, labelKey, titleKey := hourPresets, 3600, "MsgIntervalHoursButton", "MsgIntervalChooseHours"
	if ev.Unit == callbacks.Minutes {
		presets, unitSeconds, labelKey, titleKey = minutePresets, 60, "MsgIntervalMinutesButton", "MsgIntervalChooseMinutes"
	}

	var rows [][]telego.InlineKeyboardButton
	var row []telego.InlineKeyboardButton
	for _, n := range presets {
		data := callbacks.Encode(callbacks.IntervalValue{Seconds: n * unitSeconds, ChatID: ev.ChatID})
		label := locales.GetMessage(localizer, labelKey, map[string]interface{}{"Count": n}, nil)
		row = append(row, tu.InlineKeyboardButton(label).WithCallbackData(data))
		if len(row) == presetsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return locales.GetMessage(localizer, titleKey, nil, nil), &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// intervalConfirmation reports the interval in minutes up to one hour, in hours above.
func intervalConfirmation(localizer *i18n.Localizer, seconds int) string {
	if seconds <= 3600 {
		return locales.GetMessage(localizer, "MsgIntervalSetMinutes", map[string]interface{}{"Count": seconds / 60}, nil)
	}
	return locales.GetMessage(localizer, "MsgIntervalSetHours", map[string]interface{}{"Count": seconds / 3600}, nil)
}
