package handlers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mymmrac/telego"

	"quotecast-bot/pkg/telegoapi"
)

// QuoteTimeout bounds fetching content for /quotes and /pollquote.
const QuoteTimeout = 10 * time.Second

// Command represents a bot command, mapping the command string to its description and handler function.
type Command struct {
	Command     string                                                          // The command string (e.g., "start").
	Description string                                                          // Locale key of the description shown in the command menu.
	Handler     func(context.Context, telegoapi.BotAPI, telego.Message) error // The function to execute when the command is received.
}

// MessageHandler handles incoming Telegram messages and callbacks.
type MessageHandler struct {
	commands     []Command
	engagement   Engagement
	adminChecker AdminChecker
	quoteTimeout time.Duration
	botID        atomic.Int64
}

// NewMessageHandler creates and initializes a new MessageHandler instance.
// It defines the available bot commands.
func NewMessageHandler(engagement Engagement, adminChecker AdminChecker) (*MessageHandler, error) {
	if engagement == nil {
		return nil, fmt.Errorf("engagement service cannot be nil")
	}
	if adminChecker == nil {
		return nil, fmt.Errorf("admin checker cannot be nil")
	}
	h := &MessageHandler{
		engagement:   engagement,
		adminChecker: adminChecker,
		quoteTimeout: QuoteTimeout,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Handler: h.HandleStart},
		{Command: "help", Description: "CmdHelpDesc", Handler: h.HandleHelp},
		{Command: "quotes", Description: "CmdQuotesDesc", Handler: h.HandleQuotes},
		{Command: "totalquotes", Description: "CmdTotalQuotesDesc", Handler: h.HandleTotalQuotes},
		{Command: "leaderboard", Description: "CmdLeaderboardDesc", Handler: h.HandleLeaderboard},
		{Command: "mystats", Description: "CmdMyStatsDesc", Handler: h.HandleMyStats},
		{Command: "profile", Description: "CmdProfileDesc", Handler: h.HandleProfile},
		{Command: "settype", Description: "CmdSetTypeDesc", Handler: h.HandleSetType},
		{Command: "setquotetime", Description: "CmdSetQuoteTimeDesc", Handler: h.HandleSetQuoteTime},
		{Command: "setwelcome", Description: "CmdSetWelcomeDesc", Handler: h.HandleSetWelcome},
		{Command: "pollquote", Description: "CmdPollQuoteDesc", Handler: h.HandlePollQuote},
	}
	return h, nil
}

// GetCommandHandler retrieves the handler function associated with a specific command string (e.g., "start").
// It returns nil if the command is not found.
func (h *MessageHandler) GetCommandHandler(command string) func(context.Context, telegoapi.BotAPI, telego.Message) error {
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return cmd.Handler
		}
	}
	return nil
}

// Commands returns the registered commands in menu order.
func (h *MessageHandler) Commands() []Command {
	return h.commands
}
