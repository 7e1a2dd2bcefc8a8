package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quotecast-bot/internal/callbacks"
	"quotecast-bot/internal/chats"
	"quotecast-bot/internal/content"
	"quotecast-bot/internal/database"
	"quotecast-bot/internal/delivery"
	"quotecast-bot/internal/engagement"
	"quotecast-bot/internal/leaderboard"
	"quotecast-bot/internal/locales"
	"quotecast-bot/internal/reactions"
	"quotecast-bot/pkg/telegoapi/telegoapitest"
)

func TestMain(m *testing.M) {
	locales.Init("en")
	os.Exit(m.Run())
}

// MockAdminChecker is a mock implementation of AdminChecker.
type MockAdminChecker struct {
	mock.Mock
}

func (m *MockAdminChecker) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

// stubSource serves the same quote, or an error, on every fetch.
type stubSource struct {
	item content.Item
	err  error
}

func (s stubSource) Fetch(context.Context) (content.Item, error) {
	return s.item, s.err
}

const (
	botUserID = int64(1000)
	groupID   = int64(-100)
	adminID   = int64(7)
)

var fixedNow = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	handler  *MessageHandler
	bot      *telegoapitest.MockBot
	admins   *MockAdminChecker
	svc      *engagement.Service
	registry *chats.Registry
	board    *leaderboard.Aggregator
}

func newTestEnv(t *testing.T, source engagement.ContentSource) *testEnv {
	t.Helper()
	if source == nil {
		source = stubSource{item: content.Item{Quote: "सच्चाई", Author: "कबीर"}}
	}
	bot := new(telegoapitest.MockBot)
	deliverer := delivery.NewDeliverer(bot, nil, nil)
	env := &testEnv{
		bot:      bot,
		admins:   new(MockAdminChecker),
		registry: chats.NewRegistry(),
		board:    leaderboard.NewAggregator(time.UTC),
	}
	svc, err := engagement.New(engagement.Deps{
		Registry: env.registry,
		Ledger:   reactions.NewLedger(),
		Board:    env.board,
		Store:    database.NewFileStore(filepath.Join(t.TempDir(), "bot_data.json")),
		Content:  source,
		Sender:   deliverer,
		Renderer: deliverer,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	env.svc = svc

	h, err := NewMessageHandler(svc, env.admins)
	require.NoError(t, err)
	env.handler = h
	return env
}

func groupMessage(text string, from telego.User) telego.Message {
	return telego.Message{
		MessageID: 10,
		Chat:      telego.Chat{ID: groupID, Type: telego.ChatTypeSupergroup, Title: "Group"},
		From:      &from,
		Text:      text,
	}
}

func textContains(sub string) interface{} {
	return mock.MatchedBy(func(p *telego.SendMessageParams) bool {
		return strings.Contains(p.Text, sub)
	})
}

func TestNewMessageHandlerValidates(t *testing.T) {
	_, err := NewMessageHandler(nil, new(MockAdminChecker))
	assert.Error(t, err)

	env := newTestEnv(t, nil)
	_, err = NewMessageHandler(env.svc, nil)
	assert.Error(t, err)
}

func TestGetCommandHandler(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, name := range []string{"start", "help", "quotes", "totalquotes", "leaderboard", "mystats", "profile", "settype", "setquotetime", "setwelcome", "pollquote"} {
		assert.NotNil(t, env.handler.GetCommandHandler(name), name)
	}
	assert.Nil(t, env.handler.GetCommandHandler("unknown"))
	assert.Len(t, env.handler.Commands(), 11)
}

func TestHandleStart(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.bot.On("SetMyCommands", ctx, mock.MatchedBy(func(p *telego.SetMyCommandsParams) bool {
		return len(p.Commands) == 11 && p.Commands[0].Command == "start" && p.Commands[0].Description == "Launch the bot"
	})).Return(nil).Once()
	env.bot.On("GetMe", ctx).Return(&telego.User{ID: botUserID, Username: "quotebot"}, nil).Once()
	env.bot.On("SendMessage", ctx, mock.MatchedBy(func(p *telego.SendMessageParams) bool {
		markup, ok := p.ReplyMarkup.(*telego.InlineKeyboardMarkup)
		return ok && strings.Contains(p.Text, "@quotebot") &&
			markup.InlineKeyboard[1][0].URL == "https://t.me/quotebot?startgroup=true"
	})).Return(&telego.Message{}, nil).Once()

	err := env.handler.HandleStart(ctx, env.bot, groupMessage("/start", telego.User{ID: 1}))
	require.NoError(t, err)
	env.bot.AssertExpectations(t)
}

func TestHandleQuotes(t *testing.T) {
	t.Run("GroupCountsTowardTotals", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.bot.On("SendMessage", mock.Anything, textContains("सच्चाई")).Return(&telego.Message{MessageID: 50}, nil).Once()
		env.bot.On("EditMessageReplyMarkup", mock.Anything, mock.MatchedBy(func(p *telego.EditMessageReplyMarkupParams) bool {
			return p.MessageID == 50
		})).Return(&telego.Message{}, nil).Once()

		err := env.handler.HandleQuotes(context.Background(), env.bot, groupMessage("/quotes", telego.User{ID: 5}))
		require.NoError(t, err)
		assert.Equal(t, 1, env.svc.QueryTotals().Count(groupID))

		profile, ok := env.svc.Profile(groupID, 5)
		require.True(t, ok)
		assert.Equal(t, 1, profile.QuoteRequests)
		env.bot.AssertExpectations(t)
	})

	t.Run("FetchFailureRepliesWithError", func(t *testing.T) {
		env := newTestEnv(t, stubSource{err: content.ErrContentUnavailable})
		env.bot.On("SendMessage", mock.Anything, textContains("Could not fetch a quote")).Return(&telego.Message{}, nil).Once()

		err := env.handler.HandleQuotes(context.Background(), env.bot, groupMessage("/quotes", telego.User{ID: 5}))
		assert.ErrorIs(t, err, content.ErrContentUnavailable)
		assert.Equal(t, 0, env.svc.QueryTotals().GrandTotal)
		env.bot.AssertExpectations(t)
	})
}

func TestHandleTotalQuotes(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.svc.OnBotAdded(groupID)
	env.svc.OnBotAdded(-200)
	env.board.RecordBroadcast(groupID)
	env.board.RecordBroadcast(groupID)
	env.board.RecordBroadcast(-200)

	env.bot.On("GetChat", ctx, mock.MatchedBy(func(p *telego.GetChatParams) bool {
		return p.ChatID.ID == groupID
	})).Return(&telego.ChatFullInfo{Chat: telego.Chat{Title: "Alpha <1>"}}, nil)
	env.bot.On("GetChat", ctx, mock.MatchedBy(func(p *telego.GetChatParams) bool {
		return p.ChatID.ID == -200
	})).Return(nil, errors.New("chat not found"))

	var sent string
	env.bot.On("SendMessage", ctx, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*telego.SendMessageParams).Text
	}).Return(&telego.Message{}, nil).Once()

	require.NoError(t, env.handler.HandleTotalQuotes(ctx, env.bot, groupMessage("/totalquotes", telego.User{ID: 5})))

	assert.Contains(t, sent, "Total Quotes Sent: 3")
	assert.Contains(t, sent, "<b>This Group</b>: 2 quotes")
	assert.Contains(t, sent, "1. Alpha &lt;1&gt; — 2 quotes 🏆 1st")
	assert.NotContains(t, sent, "2. ")
	assert.Contains(t, sent, "<b>Total Groups</b>: 2")
}

func TestHandleTotalQuotesEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bot.On("SendMessage", mock.Anything, textContains("No quotes sent yet")).Return(&telego.Message{}, nil).Once()

	require.NoError(t, env.handler.HandleTotalQuotes(context.Background(), env.bot, groupMessage("/totalquotes", telego.User{ID: 5})))
	env.bot.AssertExpectations(t)
}

func TestHandleLeaderboard(t *testing.T) {
	t.Run("PrivateChatRefused", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.bot.On("SendMessage", mock.Anything, textContains("only works in groups")).Return(&telego.Message{}, nil).Once()

		msg := telego.Message{Chat: telego.Chat{ID: 5, Type: telego.ChatTypePrivate}, From: &telego.User{ID: 5}}
		require.NoError(t, env.handler.HandleLeaderboard(context.Background(), env.bot, msg))
		env.bot.AssertExpectations(t)
	})

	t.Run("GroupRanking", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.OnChatActivity(groupID, 1, "Ann")
		env.svc.OnChatActivity(groupID, 1, "Ann")
		env.svc.OnChatActivity(groupID, 2, "Bob")

		var sent *telego.SendMessageParams
		env.bot.On("SendMessage", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(1).(*telego.SendMessageParams)
		}).Return(&telego.Message{}, nil).Once()

		require.NoError(t, env.handler.HandleLeaderboard(context.Background(), env.bot, groupMessage("/leaderboard", telego.User{ID: 1})))
		require.NotNil(t, sent)
		assert.Contains(t, sent.Text, "Overall Leaderboard")
		assert.Contains(t, sent.Text, "1. Ann — 2 messages 🏅")
		assert.Contains(t, sent.Text, "2. Bob — 1 messages 🥈")
		assert.Contains(t, sent.Text, "<b>Total users</b>: 2")

		markup, ok := sent.ReplyMarkup.(*telego.InlineKeyboardMarkup)
		require.True(t, ok)
		require.Len(t, markup.InlineKeyboard[0], 3)
		assert.Equal(t, callbacks.Encode(callbacks.LeaderboardView{Mode: leaderboard.Daily, ChatID: groupID}), markup.InlineKeyboard[0][0].CallbackData)
	})
}

func TestAdminGatedCommands(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		isAdmin bool
		reply   string
		check   func(t *testing.T, env *testEnv)
	}{
		{
			name:  "SetTypeRefused",
			text:  "/settype img",
			reply: "Only admins",
			check: func(t *testing.T, env *testEnv) {
				assert.Equal(t, chats.FormatText, env.registry.Format(groupID))
			},
		},
		{
			name:    "SetTypeImage",
			text:    "/settype IMG",
			isAdmin: true,
			reply:   "<b>img</b>",
			check: func(t *testing.T, env *testEnv) {
				assert.Equal(t, chats.FormatImage, env.registry.Format(groupID))
			},
		},
		{
			name:    "SetTypeUsage",
			text:    "/settype gif",
			isAdmin: true,
			reply:   "Usage",
			check: func(t *testing.T, env *testEnv) {
				assert.Equal(t, chats.FormatText, env.registry.Format(groupID))
			},
		},
		{
			name:  "SetWelcomeRefused",
			text:  "/setwelcome hi",
			reply: "Only admins",
			check: func(t *testing.T, env *testEnv) {
				_, ok := env.registry.Welcome(groupID)
				assert.False(t, ok)
			},
		},
		{
			name:    "SetWelcome",
			text:    "/setwelcome Hello <b>there</b>",
			isAdmin: true,
			reply:   "Welcome message set",
			check: func(t *testing.T, env *testEnv) {
				text, ok := env.registry.Welcome(groupID)
				require.True(t, ok)
				assert.Equal(t, "Hello <b>there</b>", text)
			},
		},
		{
			name:  "SetQuoteTimeRefused",
			text:  "/setquotetime",
			reply: "Only admins",
		},
		{
			name:    "SetQuoteTimeShowsUnits",
			text:    "/setquotetime",
			isAdmin: true,
			reply:   "Choose how often",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.svc.OnBotAdded(groupID)
			ctx := context.Background()
			env.admins.On("IsAdmin", ctx, groupID, adminID).Return(tt.isAdmin, nil).Once()
			env.bot.On("SendMessage", ctx, textContains(tt.reply)).Return(&telego.Message{}, nil).Once()

			msg := groupMessage(tt.text, telego.User{ID: adminID})
			cmd := strings.TrimPrefix(strings.Fields(tt.text)[0], "/")
			require.NoError(t, env.handler.GetCommandHandler(cmd)(ctx, env.bot, msg))

			if tt.check != nil {
				tt.check(t, env)
			}
			env.admins.AssertExpectations(t)
			env.bot.AssertExpectations(t)
		})
	}
}

func TestHandlePollQuote(t *testing.T) {
	long := strings.Repeat("क", 150)
	env := newTestEnv(t, stubSource{item: content.Item{Quote: long, Author: "x"}})
	ctx := context.Background()

	env.bot.On("SendPoll", ctx, mock.MatchedBy(func(p *telego.SendPollParams) bool {
		return len(p.Options) == 2 &&
			len([]rune(p.Options[0].Text)) == maxPollOptionRunes &&
			p.IsAnonymous != nil && !*p.IsAnonymous &&
			p.Question == "Which quote do you like better? 🧠"
	})).Return(&telego.Message{}, nil).Once()

	require.NoError(t, env.handler.HandlePollQuote(ctx, env.bot, groupMessage("/pollquote", telego.User{ID: 5})))
	env.bot.AssertExpectations(t)
}

func TestHandleCallbackQuery(t *testing.T) {
	cardMessage := &telego.Message{MessageID: 77, Chat: telego.Chat{ID: groupID, Type: telego.ChatTypeSupergroup}}

	t.Run("Malformed", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.bot.On("AnswerCallbackQuery", mock.Anything, mock.MatchedBy(func(p *telego.AnswerCallbackQueryParams) bool {
			return p.ShowAlert && p.Text == "This button no longer works."
		})).Return(nil).Once()

		query := telego.CallbackQuery{ID: "q", From: telego.User{ID: 5}, Data: "garbage"}
		require.NoError(t, env.handler.HandleCallbackQuery(context.Background(), env.bot, query))
		env.bot.AssertExpectations(t)
	})

	t.Run("Reaction", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.bot.On("EditMessageReplyMarkup", mock.Anything, mock.MatchedBy(func(p *telego.EditMessageReplyMarkupParams) bool {
			return p.MessageID == 77 && p.ReplyMarkup.InlineKeyboard[0][1].Text == "❤️ 1"
		})).Return(&telego.Message{}, nil).Once()
		env.bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil).Once()

		query := telego.CallbackQuery{
			ID:   "q",
			From: telego.User{ID: 5},
			Data: callbacks.Encode(callbacks.ReactionClick{Kind: reactions.Love, ChatID: groupID, MessageID: 77}),
		}
		require.NoError(t, env.handler.HandleCallbackQuery(context.Background(), env.bot, query))

		profile, ok := env.svc.Profile(groupID, 5)
		require.True(t, ok)
		assert.Equal(t, 1, profile.ReactionsGiven)
		env.bot.AssertExpectations(t)
	})

	t.Run("IntervalUnitShowsPresets", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.admins.On("IsAdmin", mock.Anything, groupID, adminID).Return(true, nil).Once()
		env.bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil).Once()
		env.bot.On("EditMessageText", mock.Anything, mock.MatchedBy(func(p *telego.EditMessageTextParams) bool {
			kb := p.ReplyMarkup.InlineKeyboard
			return len(kb) == 2 && len(kb[0]) == 3 && kb[0][0].Text == "10 min" &&
				kb[1][2].CallbackData == callbacks.Encode(callbacks.IntervalValue{Seconds: 3600, ChatID: groupID})
		})).Return(&telego.Message{}, nil).Once()

		query := telego.CallbackQuery{
			ID:      "q",
			From:    telego.User{ID: adminID},
			Message: cardMessage,
			Data:    callbacks.Encode(callbacks.IntervalUnit{Unit: callbacks.Minutes, ChatID: groupID}),
		}
		require.NoError(t, env.handler.HandleCallbackQuery(context.Background(), env.bot, query))
		env.bot.AssertExpectations(t)
	})

	t.Run("IntervalValueRequiresAdmin", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.OnBotAdded(groupID)
		env.admins.On("IsAdmin", mock.Anything, groupID, int64(5)).Return(false, nil).Once()
		env.bot.On("AnswerCallbackQuery", mock.Anything, mock.MatchedBy(func(p *telego.AnswerCallbackQueryParams) bool {
			return p.ShowAlert && strings.Contains(p.Text, "Only admins")
		})).Return(nil).Once()

		query := telego.CallbackQuery{
			ID:      "q",
			From:    telego.User{ID: 5},
			Message: cardMessage,
			Data:    callbacks.Encode(callbacks.IntervalValue{Seconds: 1800, ChatID: groupID}),
		}
		require.NoError(t, env.handler.HandleCallbackQuery(context.Background(), env.bot, query))

		schedule, ok := env.registry.Schedule(groupID)
		require.True(t, ok)
		assert.NotEqual(t, 30*time.Minute, schedule.Interval)
		env.bot.AssertExpectations(t)
	})

	t.Run("IntervalValueSetsSchedule", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.OnBotAdded(groupID)
		env.admins.On("IsAdmin", mock.Anything, groupID, adminID).Return(true, nil).Once()
		env.bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil).Once()
		env.bot.On("EditMessageText", mock.Anything, mock.MatchedBy(func(p *telego.EditMessageTextParams) bool {
			return strings.Contains(p.Text, "every <b>30 minutes</b>")
		})).Return(&telego.Message{}, nil).Once()

		query := telego.CallbackQuery{
			ID:      "q",
			From:    telego.User{ID: adminID},
			Message: cardMessage,
			Data:    callbacks.Encode(callbacks.IntervalValue{Seconds: 1800, ChatID: groupID}),
		}
		require.NoError(t, env.handler.HandleCallbackQuery(context.Background(), env.bot, query))

		schedule, ok := env.registry.Schedule(groupID)
		require.True(t, ok)
		assert.Equal(t, 30*time.Minute, schedule.Interval)
		env.bot.AssertExpectations(t)
	})

	t.Run("LeaderboardViewEditsCard", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.OnChatActivity(groupID, 1, "Ann")
		env.bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil).Once()
		env.bot.On("EditMessageText", mock.Anything, mock.MatchedBy(func(p *telego.EditMessageTextParams) bool {
			return strings.Contains(p.Text, "Daily Leaderboard") && strings.Contains(p.Text, "Ann")
		})).Return(nil, errors.New("Bad Request: message is not modified")).Once()

		query := telego.CallbackQuery{
			ID:      "q",
			From:    telego.User{ID: 1},
			Message: cardMessage,
			Data:    callbacks.Encode(callbacks.LeaderboardView{Mode: leaderboard.Daily, ChatID: groupID}),
		}
		require.NoError(t, env.handler.HandleCallbackQuery(context.Background(), env.bot, query))
		env.bot.AssertExpectations(t)
	})

	t.Run("CloseDeletesMessage", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil).Once()
		env.bot.On("DeleteMessage", mock.Anything, &telego.DeleteMessageParams{ChatID: telego.ChatID{ID: groupID}, MessageID: 77}).Return(nil).Once()

		query := telego.CallbackQuery{
			ID:      "q",
			From:    telego.User{ID: 1},
			Message: cardMessage,
			Data:    callbacks.Encode(callbacks.Menu{Action: callbacks.ActionClose}),
		}
		require.NoError(t, env.handler.HandleCallbackQuery(context.Background(), env.bot, query))
		env.bot.AssertExpectations(t)
	})
}

func TestHandleNewMembers(t *testing.T) {
	t.Run("BotJoinSubscribes", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.bot.On("GetMe", mock.Anything).Return(&telego.User{ID: botUserID}, nil).Once()
		env.bot.On("SendMessage", mock.Anything, textContains("Thank you!")).Return(&telego.Message{}, nil).Once()

		msg := groupMessage("", telego.User{ID: adminID})
		msg.NewChatMembers = []telego.User{{ID: botUserID, IsBot: true}}
		require.NoError(t, env.handler.HandleNewMembers(context.Background(), env.bot, msg))

		assert.True(t, env.registry.IsSubscribed(groupID))
		env.bot.AssertExpectations(t)
	})

	t.Run("MemberGreetedWithEscapedWelcome", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.SetWelcome(groupID, "Hi <there>")
		env.bot.On("GetMe", mock.Anything).Return(&telego.User{ID: botUserID}, nil).Once()
		env.bot.On("SendMessage", mock.Anything, textContains("@neo Hi &lt;there&gt;")).Return(&telego.Message{}, nil).Once()
		env.bot.On("SendMessage", mock.Anything, textContains(`<a href="tg://user?id=9">Trin</a> Hi &lt;there&gt;`)).Return(&telego.Message{}, nil).Once()

		msg := groupMessage("", telego.User{ID: adminID})
		msg.NewChatMembers = []telego.User{{ID: 8, Username: "neo"}, {ID: 9, FirstName: "Trin"}}
		require.NoError(t, env.handler.HandleNewMembers(context.Background(), env.bot, msg))

		profile, ok := env.svc.Profile(groupID, 8)
		require.True(t, ok)
		assert.Equal(t, fixedNow, profile.JoinedAt)
		env.bot.AssertExpectations(t)
	})
}

func TestBotRemoval(t *testing.T) {
	t.Run("LeftChatMember", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.OnBotAdded(groupID)
		env.bot.On("GetMe", mock.Anything).Return(&telego.User{ID: botUserID}, nil).Once()

		msg := groupMessage("", telego.User{ID: adminID})
		msg.LeftChatMember = &telego.User{ID: botUserID}
		require.NoError(t, env.handler.HandleLeftMember(context.Background(), env.bot, msg))
		assert.False(t, env.registry.IsSubscribed(groupID))
	})

	t.Run("OtherMemberLeftIgnored", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.OnBotAdded(groupID)
		env.bot.On("GetMe", mock.Anything).Return(&telego.User{ID: botUserID}, nil).Once()

		msg := groupMessage("", telego.User{ID: adminID})
		msg.LeftChatMember = &telego.User{ID: 55}
		require.NoError(t, env.handler.HandleLeftMember(context.Background(), env.bot, msg))
		assert.True(t, env.registry.IsSubscribed(groupID))
	})

	t.Run("Kicked", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.OnBotAdded(groupID)

		update := telego.ChatMemberUpdated{
			Chat:          telego.Chat{ID: groupID},
			NewChatMember: &telego.ChatMemberBanned{Status: telego.MemberStatusBanned, User: telego.User{ID: botUserID}},
		}
		require.NoError(t, env.handler.HandleMyChatMember(context.Background(), env.bot, update))
		assert.False(t, env.registry.IsSubscribed(groupID))
	})
}

func TestHandleText(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.handler.HandleText(ctx, env.bot, groupMessage("hello", telego.User{ID: 1, FirstName: "Ann"})))
	require.NoError(t, env.handler.HandleText(ctx, env.bot, groupMessage("/quotes", telego.User{ID: 1, FirstName: "Ann"})))
	require.NoError(t, env.handler.HandleText(ctx, env.bot, groupMessage("beep", telego.User{ID: 2, IsBot: true})))

	private := telego.Message{Chat: telego.Chat{ID: 1, Type: telego.ChatTypePrivate}, From: &telego.User{ID: 1}, Text: "hi"}
	require.NoError(t, env.handler.HandleText(ctx, env.bot, private))

	stats, ok := env.svc.UserStats(groupID, 1)
	require.True(t, ok)
	assert.Equal(t, 1, stats.Overall)
	_, ok = env.svc.UserStats(groupID, 2)
	assert.False(t, ok)
}

func TestIntervalConfirmation(t *testing.T) {
	localizer := locales.NewLocalizer("en")
	assert.Contains(t, intervalConfirmation(localizer, 3600), "60 minutes")
	assert.Contains(t, intervalConfirmation(localizer, 5*3600), "5 hours")
}

func TestBadges(t *testing.T) {
	assert.Equal(t, "🏆 1st", podiumBadge(1))
	assert.Equal(t, "🥈 2nd", podiumBadge(2))
	assert.Equal(t, "🥉 3rd", podiumBadge(3))
	assert.Equal(t, "", podiumBadge(4))
	assert.Equal(t, "🏅", rankBadge(1))
}
