package auth

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mymmrac/telego"

	"quotecast-bot/pkg/telegoapi"
)

// AdminChecker checks whether a user administers a given chat.
type AdminChecker struct {
	bot telegoapi.BotAPI
}

// NewAdminChecker creates a new AdminChecker.
func NewAdminChecker(bot telegoapi.BotAPI) (*AdminChecker, error) {
	if bot == nil {
		return nil, fmt.Errorf("telego bot instance cannot be nil")
	}
	return &AdminChecker{bot: bot}, nil
}

// IsAdmin reports whether the user is an administrator or the creator of the chat.
// A user missing from the chat is not an admin; other API failures are returned
// together with false.
func (ac *AdminChecker) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := ac.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: chatID},
		UserID: userID,
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "user not found") {
			return false, nil
		}
		log.Printf("[AdminCheck User:%d Chat:%d] Error checking chat member: %v. Assuming non-admin.", userID, chatID, err)
		return false, fmt.Errorf("failed to get chat member info: %w", err)
	}

	status := member.MemberStatus()
	return status == telego.MemberStatusCreator || status == telego.MemberStatusAdministrator, nil
}
