package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	"go.uber.org/ratelimit"

	"quotecast-bot/internal/locales"
	telegoapi "quotecast-bot/pkg/telegoapi"
)

// ProcessingTimeout bounds the handling of a single update.
const ProcessingTimeout = 30 * time.Second

// UpdateHandler is the set of handlers the update loop routes to.
// It is implemented by handlers.MessageHandler.
type UpdateHandler interface {
	GetCommandHandler(command string) func(context.Context, telegoapi.BotAPI, telego.Message) error
	HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error
	HandleNewMembers(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error
	HandleLeftMember(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error
	HandleMyChatMember(ctx context.Context, bot telegoapi.BotAPI, update telego.ChatMemberUpdated) error
	HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error
}

// Bot represents the main application logic for the Telegram bot.
// It wraps the telego library, manages the update loop and routes each update type.
type Bot struct {
	bot         telegoapi.BotAPI
	updatesChan <-chan telego.Update
	debug       bool
	handler     UpdateHandler
	ratelimiter ratelimit.Limiter
	wg          sync.WaitGroup
}

// BotDeps holds the dependencies required by the Bot.
type BotDeps struct {
	Bot         telegoapi.BotAPI
	UpdatesChan <-chan telego.Update
	Debug       bool
	Handler     UpdateHandler
	// RateLimit caps processed updates per second. Zero means 20.
	RateLimit int
}

// New creates a new Bot instance from its dependencies.
// Returns the new Bot instance or an error if dependencies are missing.
func New(deps BotDeps) (*Bot, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	if deps.UpdatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}
	rate := deps.RateLimit
	if rate <= 0 {
		rate = 20
	}

	return &Bot{
		bot:         deps.Bot,
		updatesChan: deps.UpdatesChan,
		debug:       deps.Debug,
		handler:     deps.Handler,
		ratelimiter: ratelimit.New(rate),
	}, nil
}

// commandName extracts "quotes" from "/quotes@QuoteBot some args".
func commandName(text string) string {
	if len(text) < 2 || !strings.HasPrefix(text, "/") {
		return ""
	}
	word := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(word, '@'); at >= 0 {
		word = word[:at]
	}
	return strings.ToLower(word)
}

// handleCommandUpdate processes a message identified as a command.
func (b *Bot) handleCommandUpdate(ctx context.Context, message telego.Message) {
	command := commandName(message.Text)
	if command == "" {
		command = "unknown"
	}
	logPrefix := fmt.Sprintf("[Cmd:%s User:%d Chat:%d]", command, message.From.ID, message.Chat.ID)

	handlerFunc := b.handler.GetCommandHandler(command)
	if handlerFunc == nil {
		log.Printf("%s No handler found", logPrefix)
		// Groups see every bot's commands; only answer unknown ones in private.
		if message.Chat.Type != telego.ChatTypePrivate {
			return
		}
		localizer := locales.NewLocalizer(message.From.LanguageCode, locales.DefaultLanguage)
		unknownCmdMsg := locales.GetMessage(localizer, "MsgErrorUnknownCommand", nil, nil)
		params := &telego.SendMessageParams{ChatID: telego.ChatID{ID: message.Chat.ID}, Text: unknownCmdMsg}
		if _, err := b.bot.SendMessage(ctx, params); err != nil {
			log.Printf("%s Failed to send unknown command message: %v", logPrefix, err)
		}
		return
	}

	if b.debug {
		log.Printf("%s Executing handler", logPrefix)
	}
	if err := handlerFunc(ctx, b.bot, message); err != nil {
		log.Printf("%s Handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
	} else if b.debug {
		log.Printf("%s Handler finished successfully", logPrefix)
	}
}

// handleServiceMessage processes member join and leave notices.
func (b *Bot) handleServiceMessage(ctx context.Context, message telego.Message) {
	logPrefix := fmt.Sprintf("[Members Chat:%d Msg:%d]", message.Chat.ID, message.MessageID)
	var err error
	if len(message.NewChatMembers) > 0 {
		err = b.handler.HandleNewMembers(ctx, b.bot, message)
	} else {
		err = b.handler.HandleLeftMember(ctx, b.bot, message)
	}
	if err != nil {
		log.Printf("%s Handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
	}
}

// handleTextUpdate processes an incoming text message.
func (b *Bot) handleTextUpdate(ctx context.Context, message telego.Message) {
	if err := b.handler.HandleText(ctx, b.bot, message); err != nil {
		logPrefix := fmt.Sprintf("[Text User:%d Msg:%d]", message.From.ID, message.MessageID)
		log.Printf("%s Text handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s text handler error: %w", logPrefix, err))
	}
}

// handleCallbackQuery processes an incoming callback query.
func (b *Bot) handleCallbackQuery(ctx context.Context, query telego.CallbackQuery) {
	logPrefix := fmt.Sprintf("[Callback User:%d QueryID:%s]", query.From.ID, query.ID)
	if b.debug {
		log.Printf("%s Received callback query with data: %q", logPrefix, query.Data)
	}
	if err := b.handler.HandleCallbackQuery(ctx, b.bot, query); err != nil {
		log.Printf("%s Callback handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s callback handler error: %w", logPrefix, err))
	}
}

// handleMyChatMember processes changes of the bot's own membership.
func (b *Bot) handleMyChatMember(ctx context.Context, update telego.ChatMemberUpdated) {
	if err := b.handler.HandleMyChatMember(ctx, b.bot, update); err != nil {
		logPrefix := fmt.Sprintf("[MyChatMember Chat:%d]", update.Chat.ID)
		log.Printf("%s Handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
	}
}

// processUpdate routes incoming updates to the appropriate handlers.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in processUpdate: %v\n%s", r, debug.Stack())
			sentry.CurrentHub().Recover(r)
			sentry.Flush(time.Second * 2)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := *update.Message
		if message.From == nil {
			log.Printf("Ignoring message %d from chat %d without sender", message.MessageID, message.Chat.ID)
			return
		}

		switch {
		case len(message.NewChatMembers) > 0 || message.LeftChatMember != nil:
			b.handleServiceMessage(processingCtx, message)
		case strings.HasPrefix(message.Text, "/"):
			b.handleCommandUpdate(processingCtx, message)
		case message.Text != "":
			b.handleTextUpdate(processingCtx, message)
		default:
			if b.debug {
				log.Printf("Ignoring unhandled message type (ID: %d)", message.MessageID)
			}
		}

	case update.CallbackQuery != nil:
		b.handleCallbackQuery(processingCtx, *update.CallbackQuery)

	case update.MyChatMember != nil:
		b.handleMyChatMember(processingCtx, *update.MyChatMember)

	default:
		if b.debug {
			log.Printf("Ignoring unhandled update type (ID: %d)", update.UpdateID)
		}
	}
}

// Start runs the update loop until ctx is done or the updates channel closes.
// Each update is processed in its own goroutine; Start waits for them before returning.
func (b *Bot) Start(ctx context.Context) {
	log.Println("Listening for updates...")
	defer func() {
		b.wg.Wait()
		log.Println("All update processing finished.")
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("Context done, stopping update processing...")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				log.Println("Updates channel closed.")
				return
			}
			b.wg.Add(1)
			go func(up telego.Update) {
				defer b.wg.Done()
				b.processUpdate(ctx, up)
			}(update)
		}
	}
}
