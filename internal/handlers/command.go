package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"quotecast-bot/internal/callbacks"
	"quotecast-bot/internal/chats"
	"quotecast-bot/internal/content"
	"quotecast-bot/internal/leaderboard"
	"quotecast-bot/internal/locales"
	"quotecast-bot/pkg/telegoapi"
)

// maxPollOptionRunes is the Telegram limit for a poll option.
const maxPollOptionRunes = 100

// HandleStart handles the /start command.
// It registers the command menu and sends the welcome card.
func (h *MessageHandler) HandleStart(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.setupCommands(ctx, bot); err != nil {
		log.Printf("[Cmd:start Chat:%d] %v", message.Chat.ID, err)
	}

	text, markup, err := h.startCard(ctx, bot, h.getLocalizer(message.From))
	if err != nil {
		return h.sendError(ctx, bot, message, "MsgErrorGeneral", err)
	}
	return h.sendSuccess(ctx, bot, message, text, markup)
}

func (h *MessageHandler) startCard(ctx context.Context, bot telegoapi.BotAPI, localizer *i18n.Localizer) (string, *telego.InlineKeyboardMarkup, error) {
	me, err := bot.GetMe(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	text := locales.GetMessage(localizer, "MsgStart", map[string]interface{}{
		"BotUsername": "@" + me.Username,
	}, nil)
	markup := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(locales.GetMessage(localizer, "MsgButtonCommands", nil, nil)).
				WithCallbackData(callbacks.Encode(callbacks.Menu{Action: callbacks.ActionHelp})),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(locales.GetMessage(localizer, "MsgButtonAddToGroup", nil, nil)).
				WithURL(fmt.Sprintf("https://t.me/%s?startgroup=true", me.Username)),
		),
	)
	return text, markup, nil
}

// HandleHelp handles the /help command.
func (h *MessageHandler) HandleHelp(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	text, markup := h.helpCard(h.getLocalizer(message.From))
	return h.sendSuccess(ctx, bot, message, text, markup)
}

func (h *MessageHandler) helpCard(localizer *i18n.Localizer) (string, *telego.InlineKeyboardMarkup) {
	button := func(key string, action callbacks.Action) telego.InlineKeyboardButton {
		return tu.InlineKeyboardButton(locales.GetMessage(localizer, key, nil, nil)).
			WithCallbackData(callbacks.Encode(callbacks.Menu{Action: action}))
	}
	markup := tu.InlineKeyboard(
		tu.InlineKeyboardRow(button("MsgButtonQuotes", callbacks.ActionQuotes), button("MsgButtonBack", callbacks.ActionStart)),
		tu.InlineKeyboardRow(button("MsgButtonClose", callbacks.ActionClose)),
	)
	return locales.GetMessage(localizer, "MsgHelp", nil, nil), markup
}

// HandleQuotes handles the /quotes command by posting a quote on demand.
func (h *MessageHandler) HandleQuotes(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	return h.sendQuote(ctx, bot, message, message.From)
}

func (h *MessageHandler) sendQuote(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, user *telego.User) error {
	logPrefix := fmt.Sprintf("[Cmd:quotes Chat:%d]", message.Chat.ID)
	var userID int64
	if user != nil {
		userID = user.ID
	}

	quoteCtx, cancel := context.WithTimeout(ctx, h.quoteTimeout)
	defer cancel()

	receipt, err := h.engagement.RequestQuote(quoteCtx, message.Chat.ID, userID, isGroup(message.Chat))
	if errors.Is(err, content.ErrContentUnavailable) {
		return h.sendError(ctx, bot, message, "MsgErrorQuoteFetch", fmt.Errorf("%s %w", logPrefix, err))
	}
	if err != nil {
		return h.sendError(ctx, bot, message, "MsgErrorQuoteSend", fmt.Errorf("%s %w", logPrefix, err))
	}
	log.Printf("%s Quote sent as message %d", logPrefix, receipt.MessageID)
	return nil
}

// HandleTotalQuotes ranks subscribed groups by the number of quotes they received.
func (h *MessageHandler) HandleTotalQuotes(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	subscribed := h.engagement.SubscribedChats()
	if len(subscribed) == 0 {
		return h.sendSuccess(ctx, bot, message, locales.GetMessage(localizer, "MsgTotalsEmpty", nil, nil), nil)
	}
	totals := h.engagement.QueryTotals()

	type groupStat struct {
		name  string
		count int
		id    int64
	}
	stats := make([]groupStat, 0, len(subscribed))
	for _, chatID := range subscribed {
		info, err := bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(chatID)})
		if err != nil {
			log.Printf("[Cmd:totalquotes] Failed to get title of chat %d: %v", chatID, err)
			continue
		}
		name := info.Title
		if name == "" {
			name = locales.GetMessage(localizer, "MsgUnknownGroup", nil, nil)
		}
		stats = append(stats, groupStat{name: name, count: totals.Count(chatID), id: chatID})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].id < stats[j].id
	})

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgTotalsHeader", map[string]interface{}{
		"Total": humanize.Comma(int64(totals.GrandTotal)),
	}, nil))
	b.WriteString("\n\n")
	if isGroup(message.Chat) {
		b.WriteString(locales.GetMessage(localizer, "MsgTotalsThisGroup", map[string]interface{}{
			"Count": humanize.Comma(int64(totals.Count(message.Chat.ID))),
		}, nil))
		b.WriteString("\n\n")
	}
	b.WriteString(locales.GetMessage(localizer, "MsgTotalsRankingHeader", nil, nil))
	b.WriteString("\n\n")
	if len(stats) == 0 {
		b.WriteString(locales.GetMessage(localizer, "MsgTotalsNone", nil, nil))
		b.WriteString("\n")
	}
	for i, s := range stats {
		b.WriteString(locales.GetMessage(localizer, "MsgTotalsEntry", map[string]interface{}{
			"Rank":  i + 1,
			"Name":  html.EscapeString(s.name),
			"Count": humanize.Comma(int64(s.count)),
			"Badge": podiumBadge(i + 1),
		}, nil))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(locales.GetMessage(localizer, "MsgTotalsGroups", map[string]interface{}{"Count": len(subscribed)}, nil))

	return h.sendSuccess(ctx, bot, message, b.String(), nil)
}

// HandleLeaderboard shows the overall leaderboard of the group with window buttons.
func (h *MessageHandler) HandleLeaderboard(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	if !isGroup(message.Chat) {
		return h.sendSuccess(ctx, bot, message, locales.GetMessage(localizer, "MsgErrorGroupOnly", nil, nil), nil)
	}
	text, markup, err := h.leaderboardCard(localizer, message.Chat.ID, leaderboard.Overall)
	if err != nil {
		return h.sendError(ctx, bot, message, "MsgErrorGeneral", err)
	}
	return h.sendSuccess(ctx, bot, message, text, markup)
}

func (h *MessageHandler) leaderboardCard(localizer *i18n.Localizer, chatID int64, mode leaderboard.Mode) (string, *telego.InlineKeyboardMarkup, error) {
	board, err := h.engagement.QueryLeaderboard(chatID, mode)
	if err != nil {
		return "", nil, err
	}

	titles := map[leaderboard.Mode]string{
		leaderboard.Daily:   "MsgLeaderboardTitleDaily",
		leaderboard.Weekly:  "MsgLeaderboardTitleWeekly",
		leaderboard.Overall: "MsgLeaderboardTitleOverall",
	}
	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, titles[mode], nil, nil))
	b.WriteString("\n\n")
	for i, e := range board.Entries {
		b.WriteString(locales.GetMessage(localizer, "MsgLeaderboardEntry", map[string]interface{}{
			"Rank":  i + 1,
			"Name":  html.EscapeString(e.Name),
			"Count": humanize.Comma(int64(e.Count)),
			"Badge": rankBadge(i + 1),
		}, nil))
		b.WriteString("\n")
	}
	if len(board.Entries) == 0 {
		b.WriteString(locales.GetMessage(localizer, "MsgLeaderboardEmpty", nil, nil))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(locales.GetMessage(localizer, "MsgLeaderboardTotalUsers", map[string]interface{}{"Count": board.TotalUsers}, nil))

	button := func(key string, m leaderboard.Mode) telego.InlineKeyboardButton {
		return tu.InlineKeyboardButton(locales.GetMessage(localizer, key, nil, nil)).
			WithCallbackData(callbacks.Encode(callbacks.LeaderboardView{Mode: m, ChatID: chatID}))
	}
	markup := tu.InlineKeyboard(tu.InlineKeyboardRow(
		button("MsgButtonDaily", leaderboard.Daily),
		button("MsgButtonWeekly", leaderboard.Weekly),
		button("MsgButtonOverall", leaderboard.Overall),
	))
	return b.String(), markup, nil
}

// HandleMyStats shows the sender's message counts in this chat.
func (h *MessageHandler) HandleMyStats(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	stats, ok := h.engagement.UserStats(message.Chat.ID, message.From.ID)
	if !ok {
		return h.sendSuccess(ctx, bot, message, locales.GetMessage(localizer, "MsgMyStatsEmpty", nil, nil), nil)
	}
	chatName := message.Chat.Title
	if chatName == "" {
		chatName = message.From.FirstName
	}
	text := locales.GetMessage(localizer, "MsgMyStats", map[string]interface{}{
		"Chat":    html.EscapeString(chatName),
		"Today":   humanize.Comma(int64(stats.Today)),
		"Week":    humanize.Comma(int64(stats.Week)),
		"Overall": humanize.Comma(int64(stats.Overall)),
	}, nil)
	return h.sendSuccess(ctx, bot, message, text, nil)
}

// HandleProfile shows the sender's engagement profile in this chat.
func (h *MessageHandler) HandleProfile(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	profile, _ := h.engagement.Profile(message.Chat.ID, message.From.ID)
	stats, _ := h.engagement.UserStats(message.Chat.ID, message.From.ID)

	joined := locales.GetMessage(localizer, "MsgProfileJoinedUnknown", nil, nil)
	if !profile.JoinedAt.IsZero() {
		joined = profile.JoinedAt.Format("2006-01-02")
	}
	text := locales.GetMessage(localizer, "MsgProfile", map[string]interface{}{
		"Name":      displayName(message.From),
		"Joined":    joined,
		"Reactions": humanize.Comma(int64(profile.ReactionsGiven)),
		"Requests":  humanize.Comma(int64(profile.QuoteRequests)),
		"Messages":  humanize.Comma(int64(stats.Overall)),
	}, nil)
	return h.sendSuccess(ctx, bot, message, text, nil)
}

// HandleSetType lets an admin choose between text and image quotes.
func (h *MessageHandler) HandleSetType(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.requireAdmin(ctx, bot, message); err != nil {
		return nil
	}
	localizer := h.getLocalizer(message.From)

	format, err := chats.ParseFormat(strings.ToLower(commandArgs(message.Text)))
	if err != nil {
		return h.sendSuccess(ctx, bot, message, locales.GetMessage(localizer, "MsgSetTypeUsage", nil, nil), nil)
	}
	if err := h.engagement.SetChatFormat(message.Chat.ID, format); err != nil {
		return h.sendError(ctx, bot, message, "MsgErrorGeneral", err)
	}
	log.Printf("[Cmd:settype Chat:%d] Format set to %s", message.Chat.ID, format)
	return h.sendSuccess(ctx, bot, message, locales.GetMessage(localizer, "MsgSetTypeDone", map[string]interface{}{
		"Format": string(format),
	}, nil), nil)
}

// HandleSetQuoteTime lets an admin pick the broadcast interval from presets.
func (h *MessageHandler) HandleSetQuoteTime(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.requireAdmin(ctx, bot, message); err != nil {
		return nil
	}
	localizer := h.getLocalizer(message.From)
	chatID := message.Chat.ID

	markup := tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton(locales.GetMessage(localizer, "MsgButtonHours", nil, nil)).
			WithCallbackData(callbacks.Encode(callbacks.IntervalUnit{Unit: callbacks.Hours, ChatID: chatID})),
		tu.InlineKeyboardButton(locales.GetMessage(localizer, "MsgButtonMinutes", nil, nil)).
			WithCallbackData(callbacks.Encode(callbacks.IntervalUnit{Unit: callbacks.Minutes, ChatID: chatID})),
	))
	return h.sendSuccess(ctx, bot, message, locales.GetMessage(localizer, "MsgIntervalChooseUnit", nil, nil), markup)
}

// HandleSetWelcome lets an admin set the text greeting new members.
func (h *MessageHandler) HandleSetWelcome(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.requireAdmin(ctx, bot, message); err != nil {
		return nil
	}
	localizer := h.getLocalizer(message.From)

	text := commandArgs(message.Text)
	if text == "" {
		return h.sendSuccess(ctx, bot, message, locales.GetMessage(localizer, "MsgSetWelcomeUsage", nil, nil), nil)
	}
	h.engagement.SetWelcome(message.Chat.ID, text)
	log.Printf("[Cmd:setwelcome Chat:%d] Welcome message set", message.Chat.ID)
	return h.sendSuccess(ctx, bot, message, locales.GetMessage(localizer, "MsgSetWelcomeDone", nil, nil), nil)
}

// HandlePollQuote posts a poll asking which of two fresh quotes is better.
func (h *MessageHandler) HandlePollQuote(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	logPrefix := fmt.Sprintf("[Cmd:pollquote Chat:%d]", message.Chat.ID)
	localizer := h.getLocalizer(message.From)

	quoteCtx, cancel := context.WithTimeout(ctx, h.quoteTimeout)
	defer cancel()

	items, err := h.engagement.FetchQuotes(quoteCtx, 2)
	if err != nil {
		return h.sendError(ctx, bot, message, "MsgErrorQuoteFetch", fmt.Errorf("%s %w", logPrefix, err))
	}

	options := make([]telego.InputPollOption, 0, len(items))
	for _, item := range items {
		options = append(options, telego.InputPollOption{Text: truncateRunes(item.Quote, maxPollOptionRunes)})
	}
	isAnonymous := false
	_, err = bot.SendPoll(ctx, &telego.SendPollParams{
		ChatID:      tu.ID(message.Chat.ID),
		Question:    locales.GetMessage(localizer, "MsgPollQuestion", nil, nil),
		Options:     options,
		IsAnonymous: &isAnonymous,
	})
	if err != nil {
		return h.sendError(ctx, bot, message, "MsgErrorPoll", fmt.Errorf("%s failed to send poll: %w", logPrefix, err))
	}
	log.Printf("%s Poll created", logPrefix)
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// setupCommands registers the bot's commands with Telegram.
// It builds the list of commands from the handler's configuration, localizes their descriptions,
// and uses the bot instance to set them.
func (h *MessageHandler) setupCommands(ctx context.Context, bot telegoapi.BotAPI) error {
	if len(h.commands) == 0 {
		log.Println("No commands defined in handler, skipping SetMyCommands.")
		return nil
	}

	localizer := locales.NewLocalizer(locales.DefaultLanguage)

	commands := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		commands = append(commands, telego.BotCommand{
			Command:     cmd.Command,
			Description: locales.GetMessage(localizer, cmd.Description, nil, nil),
		})
	}

	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	log.Printf("Successfully set %d bot commands.", len(commands))
	return nil
}
