package delivery

import (
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"quotecast-bot/internal/callbacks"
	"quotecast-bot/internal/locales"
	"quotecast-bot/internal/reactions"
)

// maxInlineQueryRunes is the Telegram limit for a switch-inline-query payload.
const maxInlineQueryRunes = 256

// ReactionKeyboard builds the reaction buttons shown under a delivered quote,
// followed by a share button that preloads the quote as an inline query.
func ReactionKeyboard(localizer *i18n.Localizer, chatID int64, messageID int, counts reactions.Counts, share string) *telego.InlineKeyboardMarkup {
	kinds := reactions.Kinds()
	row := make([]telego.InlineKeyboardButton, 0, len(kinds))
	for _, k := range kinds {
		label := k.Emoji()
		if n := counts[k]; n > 0 {
			label = fmt.Sprintf("%s %d", k.Emoji(), n)
		}
		data := callbacks.Encode(callbacks.ReactionClick{Kind: k, ChatID: chatID, MessageID: messageID})
		row = append(row, tu.InlineKeyboardButton(label).WithCallbackData(data))
	}

	shareButton := tu.InlineKeyboardButton(locales.GetMessage(localizer, "MsgButtonShare", nil, nil)).
		WithSwitchInlineQuery(truncateRunes(share, maxInlineQueryRunes))

	return tu.InlineKeyboard(row, tu.InlineKeyboardRow(shareButton))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
