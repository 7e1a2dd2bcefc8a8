package handlers

import (
	"context"
	"time"

	"quotecast-bot/internal/chats"
	"quotecast-bot/internal/content"
	"quotecast-bot/internal/delivery"
	"quotecast-bot/internal/leaderboard"
	"quotecast-bot/internal/reactions"
)

// Engagement is the set of bot operations the handlers drive.
// It is implemented by engagement.Service.
type Engagement interface {
	OnReactionClick(ctx context.Context, chatID int64, messageID int, userID int64, kind reactions.Kind) (reactions.Counts, error)
	OnChatActivity(chatID, userID int64, name string)
	OnBotAdded(chatID int64) bool
	OnBotRemoved(chatID int64)
	OnMemberJoined(chatID, userID int64)

	SubscribedChats() []int64
	SetChatInterval(chatID int64, d time.Duration) error
	SetChatFormat(chatID int64, f chats.Format) error
	SetWelcome(chatID int64, text string)
	Welcome(chatID int64) (string, bool)

	QueryLeaderboard(chatID int64, mode leaderboard.Mode) (leaderboard.Board, error)
	QueryTotals() leaderboard.Totals
	UserStats(chatID, userID int64) (leaderboard.UserStats, bool)
	Profile(chatID, userID int64) (leaderboard.Profile, bool)

	RequestQuote(ctx context.Context, chatID, userID int64, inGroup bool) (delivery.Receipt, error)
	FetchQuotes(ctx context.Context, n int) ([]content.Item, error)
}

// AdminChecker reports whether a user administers a chat.
type AdminChecker interface {
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}
