package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/ratelimit"

	"quotecast-bot/internal/chats"
	"quotecast-bot/internal/content"
	"quotecast-bot/internal/locales"
	"quotecast-bot/internal/reactions"
	telegoapi "quotecast-bot/pkg/telegoapi"
)

// ErrDeliveryFailed is returned when a quote could not be posted to a chat.
var ErrDeliveryFailed = errors.New("delivery failed")

// ImageRenderer turns a quote into an image. It is optional; without one,
// image-format chats receive text.
type ImageRenderer interface {
	Render(ctx context.Context, item content.Item) ([]byte, error)
}

// Style selects the header used for a delivered quote.
type Style int

const (
	StyleScheduled Style = iota
	StyleOnDemand
)

// Receipt describes a successful delivery.
type Receipt struct {
	ChatID    int64
	MessageID int
	Format    chats.Format // format actually used, after any fallback
}

// Deliverer posts quotes to Telegram chats and maintains their reaction keyboards.
type Deliverer struct {
	bot        telegoapi.BotAPI
	limiter    ratelimit.Limiter
	renderer   ImageRenderer
	maxRetries int
}

// NewDeliverer creates a Deliverer. A nil limiter disables rate limiting and
// a nil renderer makes every delivery text.
func NewDeliverer(bot telegoapi.BotAPI, limiter ratelimit.Limiter, renderer ImageRenderer) *Deliverer {
	if limiter == nil {
		limiter = ratelimit.NewUnlimited()
	}
	return &Deliverer{
		bot:        bot,
		limiter:    limiter,
		renderer:   renderer,
		maxRetries: defaultMaxRetries,
	}
}

// Deliver posts a scheduled broadcast.
func (d *Deliverer) Deliver(ctx context.Context, chatID int64, item content.Item, format chats.Format) (Receipt, error) {
	return d.Send(ctx, chatID, item, format, StyleScheduled)
}

// Send posts the quote in the requested format and attaches the reaction keyboard.
// A failure to attach the keyboard is logged but does not fail the delivery.
func (d *Deliverer) Send(ctx context.Context, chatID int64, item content.Item, format chats.Format, style Style) (Receipt, error) {
	logPrefix := fmt.Sprintf("[Delivery Chat:%d]", chatID)
	localizer := locales.NewLocalizer(locales.DefaultLanguage)

	var (
		msg  *telego.Message
		err  error
		used = chats.FormatText
	)

	if format == chats.FormatImage {
		if img, ok := d.render(ctx, logPrefix, item); ok {
			captionID := "MsgQuoteCaptionScheduled"
			if style == StyleOnDemand {
				captionID = "MsgQuoteCaptionOnDemand"
			}
			params := tu.Photo(tu.ID(chatID), tu.File(tu.NameReader(bytes.NewReader(img), "quote.jpg"))).
				WithCaption(locales.GetMessage(localizer, captionID, nil, nil))
			msg, err = withRetry(ctx, logPrefix, d.maxRetries, func() (*telego.Message, error) {
				d.limiter.Take()
				return d.bot.SendPhoto(ctx, params)
			})
			used = chats.FormatImage
		}
	}

	if used == chats.FormatText {
		textID := "MsgQuoteScheduled"
		if style == StyleOnDemand {
			textID = "MsgQuoteOnDemand"
		}
		text := locales.GetMessage(localizer, textID, map[string]interface{}{
			"Quote": html.EscapeString(item.Text()),
		}, nil)
		params := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)
		msg, err = withRetry(ctx, logPrefix, d.maxRetries, func() (*telego.Message, error) {
			d.limiter.Take()
			return d.bot.SendMessage(ctx, params)
		})
	}

	if err != nil {
		return Receipt{}, fmt.Errorf("%w: chat %d: %w", ErrDeliveryFailed, chatID, err)
	}
	if msg == nil {
		return Receipt{}, fmt.Errorf("%w: chat %d: empty response", ErrDeliveryFailed, chatID)
	}

	receipt := Receipt{ChatID: chatID, MessageID: msg.MessageID, Format: used}
	if err := d.RenderReactionControl(ctx, chatID, msg.MessageID, nil, item.Text()); err != nil {
		log.Printf("%s Quote sent as message %d but keyboard failed: %v", logPrefix, msg.MessageID, err)
	}
	return receipt, nil
}

func (d *Deliverer) render(ctx context.Context, logPrefix string, item content.Item) ([]byte, bool) {
	if d.renderer == nil {
		return nil, false
	}
	img, err := d.renderer.Render(ctx, item)
	if err != nil || len(img) == 0 {
		log.Printf("%s Image rendering failed, falling back to text: %v", logPrefix, err)
		return nil, false
	}
	return img, true
}

// RenderReactionControl replaces the keyboard of a delivered quote with current counts.
// Nil counts render the empty keyboard.
func (d *Deliverer) RenderReactionControl(ctx context.Context, chatID int64, messageID int, counts reactions.Counts, share string) error {
	localizer := locales.NewLocalizer(locales.DefaultLanguage)
	params := &telego.EditMessageReplyMarkupParams{
		ChatID:      tu.ID(chatID),
		MessageID:   messageID,
		ReplyMarkup: ReactionKeyboard(localizer, chatID, messageID, counts, share),
	}
	logPrefix := fmt.Sprintf("[Reactions Chat:%d Msg:%d]", chatID, messageID)

	_, err := withRetry(ctx, logPrefix, d.maxRetries, func() (*telego.Message, error) {
		d.limiter.Take()
		return d.bot.EditMessageReplyMarkup(ctx, params)
	})
	if err != nil {
		return fmt.Errorf("failed to update reaction keyboard: %w", err)
	}
	return nil
}
