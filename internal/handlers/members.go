package handlers

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"quotecast-bot/internal/locales"
	"quotecast-bot/pkg/telegoapi"
)

// selfID returns the bot's own user ID, resolving it once.
func (h *MessageHandler) selfID(ctx context.Context, bot telegoapi.BotAPI) (int64, error) {
	if id := h.botID.Load(); id != 0 {
		return id, nil
	}
	me, err := bot.GetMe(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get bot info: %w", err)
	}
	h.botID.Store(me.ID)
	return me.ID, nil
}

// HandleText counts plain group messages toward the activity leaderboard.
func (h *MessageHandler) HandleText(_ context.Context, _ telegoapi.BotAPI, message telego.Message) error {
	if !isGroup(message.Chat) || message.From == nil || message.From.IsBot {
		return nil
	}
	if message.Text == "" || strings.HasPrefix(message.Text, "/") {
		return nil
	}
	name := message.From.FirstName
	if name == "" {
		name = "User"
	}
	h.engagement.OnChatActivity(message.Chat.ID, message.From.ID, name)
	return nil
}

// HandleNewMembers subscribes the chat when the bot itself joins and greets
// everyone else with the chat's welcome text.
func (h *MessageHandler) HandleNewMembers(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	chatID := message.Chat.ID
	logPrefix := fmt.Sprintf("[Members Chat:%d]", chatID)

	self, err := h.selfID(ctx, bot)
	if err != nil {
		return fmt.Errorf("%s %w", logPrefix, err)
	}
	localizer := locales.NewLocalizer(locales.DefaultLanguage)

	for _, member := range message.NewChatMembers {
		if member.ID == self {
			if h.engagement.OnBotAdded(chatID) {
				log.Printf("%s Bot joined, chat subscribed", logPrefix)
			}
			text := locales.GetMessage(localizer, "MsgBotJoined", nil, nil)
			if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)); err != nil {
				log.Printf("%s Failed to send join message: %v", logPrefix, err)
			}
			continue
		}

		welcome, ok := h.engagement.Welcome(chatID)
		if !ok {
			welcome = locales.GetMessage(localizer, "MsgWelcomeDefault", nil, nil)
		}
		text := fmt.Sprintf("%s %s", mention(member), html.EscapeString(welcome))
		if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)); err != nil {
			log.Printf("%s Failed to welcome user %d: %v", logPrefix, member.ID, err)
		}
		h.engagement.OnMemberJoined(chatID, member.ID)
	}
	return nil
}

// HandleLeftMember unsubscribes the chat and purges its data when the bot is removed.
func (h *MessageHandler) HandleLeftMember(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if message.LeftChatMember == nil {
		return nil
	}
	self, err := h.selfID(ctx, bot)
	if err != nil {
		return fmt.Errorf("[Members Chat:%d] %w", message.Chat.ID, err)
	}
	if message.LeftChatMember.ID == self {
		h.engagement.OnBotRemoved(message.Chat.ID)
		log.Printf("[Members Chat:%d] Bot left, chat data purged", message.Chat.ID)
	}
	return nil
}

// HandleMyChatMember purges a chat the bot was kicked from or left without a
// service message reaching it.
func (h *MessageHandler) HandleMyChatMember(_ context.Context, _ telegoapi.BotAPI, update telego.ChatMemberUpdated) error {
	if update.NewChatMember == nil {
		return nil
	}
	switch update.NewChatMember.MemberStatus() {
	case telego.MemberStatusLeft, telego.MemberStatusBanned:
		h.engagement.OnBotRemoved(update.Chat.ID)
		log.Printf("[Members Chat:%d] Bot status is %s, chat data purged", update.Chat.ID, update.NewChatMember.MemberStatus())
	}
	return nil
}

func mention(user telego.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}
	name := user.FirstName
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, html.EscapeString(name))
}
