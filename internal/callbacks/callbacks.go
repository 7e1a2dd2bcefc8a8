// Package callbacks encodes and parses inline keyboard callback data.
//
// Every button press decodes into exactly one Event implementation; callers
// dispatch with a type switch over the concrete types.
package callbacks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"quotecast-bot/internal/leaderboard"
	"quotecast-bot/internal/reactions"
)

// ErrMalformed is returned for callback data that matches no event shape.
var ErrMalformed = errors.New("malformed callback data")

const (
	prefixInterval    = "interval"
	prefixSetInterval = "setinterval"
	prefixLeaderboard = "leaderboard"
)

// Event is a decoded callback. The unexported method closes the set.
type Event interface {
	event()
}

// ReactionClick is a press on one of the reaction buttons below a quote.
type ReactionClick struct {
	Kind      reactions.Kind
	ChatID    int64
	MessageID int
}

// Unit is the granularity an admin picks before choosing an interval.
type Unit string

const (
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
)

// IntervalUnit opens the preset list for the chosen unit.
type IntervalUnit struct {
	Unit   Unit
	ChatID int64
}

// IntervalValue applies a preset interval in seconds.
type IntervalValue struct {
	Seconds int
	ChatID  int64
}

// LeaderboardView switches the leaderboard window.
type LeaderboardView struct {
	Mode   leaderboard.Mode
	ChatID int64
}

// Action is a static menu button.
type Action string

const (
	ActionQuotes Action = "/quotes"
	ActionHelp   Action = "/help"
	ActionStart  Action = "/start"
	ActionClose  Action = "/close"
)

// Menu is a press on a static menu button.
type Menu struct {
	Action Action
}

func (ReactionClick) event()   {}
func (IntervalUnit) event()    {}
func (IntervalValue) event()   {}
func (LeaderboardView) event() {}
func (Menu) event()            {}

// Encode renders the event as callback data.
func Encode(e Event) string {
	switch ev := e.(type) {
	case ReactionClick:
		return fmt.Sprintf("%s:%d:%d", ev.Kind, ev.ChatID, ev.MessageID)
	case IntervalUnit:
		return fmt.Sprintf("%s:%s:%d", prefixInterval, ev.Unit, ev.ChatID)
	case IntervalValue:
		return fmt.Sprintf("%s:%d:%d", prefixSetInterval, ev.Seconds, ev.ChatID)
	case LeaderboardView:
		return fmt.Sprintf("%s:%s:%d", prefixLeaderboard, ev.Mode, ev.ChatID)
	case Menu:
		return string(ev.Action)
	default:
		panic(fmt.Sprintf("callbacks: unknown event %T", e))
	}
}

// Parse decodes callback data into an Event.
func Parse(data string) (Event, error) {
	switch Action(data) {
	case ActionQuotes, ActionHelp, ActionStart, ActionClose:
		return Menu{Action: Action(data)}, nil
	}

	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, data)
	}

	switch parts[0] {
	case prefixInterval:
		unit := Unit(parts[1])
		if unit != Minutes && unit != Hours {
			return nil, fmt.Errorf("%w: unknown unit %q", ErrMalformed, parts[1])
		}
		chatID, err := parseChatID(parts[2])
		if err != nil {
			return nil, err
		}
		return IntervalUnit{Unit: unit, ChatID: chatID}, nil

	case prefixSetInterval:
		secs, err := strconv.Atoi(parts[1])
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("%w: bad interval %q", ErrMalformed, parts[1])
		}
		chatID, err := parseChatID(parts[2])
		if err != nil {
			return nil, err
		}
		return IntervalValue{Seconds: secs, ChatID: chatID}, nil

	case prefixLeaderboard:
		mode, err := leaderboard.ParseMode(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		chatID, err := parseChatID(parts[2])
		if err != nil {
			return nil, err
		}
		return LeaderboardView{Mode: mode, ChatID: chatID}, nil
	}

	kind, err := reactions.ParseKind(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	chatID, err := parseChatID(parts[1])
	if err != nil {
		return nil, err
	}
	messageID, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad message id %q", ErrMalformed, parts[2])
	}
	return ReactionClick{Kind: kind, ChatID: chatID, MessageID: messageID}, nil
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad chat id %q", ErrMalformed, s)
	}
	return id, nil
}
