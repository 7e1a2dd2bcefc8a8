package leaderboard

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrInvalidMode is returned for an unknown leaderboard view.
var ErrInvalidMode = errors.New("invalid leaderboard mode")

// MaxEntries is the number of users a rendered leaderboard shows.
const MaxEntries = 10

// Mode selects the leaderboard window.
type Mode string

const (
	Daily   Mode = "daily"
	Weekly  Mode = "weekly"
	Overall Mode = "overall"
)

// ParseMode converts callback text into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Daily, Weekly, Overall:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Activity is the message counter state of one user in one chat.
type Activity struct {
	Name    string
	Overall int
	Daily   map[string]int
	Weekly  map[string]int
}

func (a *Activity) clone() *Activity {
	c := &Activity{
		Name:    a.Name,
		Overall: a.Overall,
		Daily:   make(map[string]int, len(a.Daily)),
		Weekly:  make(map[string]int, len(a.Weekly)),
	}
	for k, v := range a.Daily {
		c.Daily[k] = v
	}
	for k, v := range a.Weekly {
		c.Weekly[k] = v
	}
	return c
}

// Entry is one ranked row.
type Entry struct {
	UserID int64
	Name   string
	Count  int
}

// Board is a ranked view of a chat.
type Board struct {
	Mode       Mode
	Entries    []Entry
	TotalUsers int
}

// UserStats are the current window counters of a single user.
type UserStats struct {
	Today   int
	Week    int
	Overall int
}

// Aggregator keeps per-chat, per-user activity counters along with broadcast
// counters and user profiles. Each table has its own lock.
type Aggregator struct {
	loc *time.Location

	mu       sync.RWMutex
	activity map[int64]map[int64]*Activity

	countersMu sync.RWMutex
	perChat    map[int64]int
	grandTotal int

	profilesMu sync.RWMutex
	profiles   map[int64]map[int64]*Profile
}

// NewAggregator creates an empty aggregator computing bucket keys in loc.
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		loc:      loc,
		activity: make(map[int64]map[int64]*Activity),
		perChat:  make(map[int64]int),
		profiles: make(map[int64]map[int64]*Profile),
	}
}

// Location returns the time zone used for bucket keys.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// RecordActivity counts one message from the user in the chat.
func (a *Aggregator) RecordActivity(chatID, userID int64, name string, now time.Time) {
	now = now.In(a.loc)
	day, week := DateKey(now), WeekKey(now)

	a.mu.Lock()
	defer a.mu.Unlock()

	users, ok := a.activity[chatID]
	if !ok {
		users = make(map[int64]*Activity)
		a.activity[chatID] = users
	}
	act, ok := users[userID]
	if !ok {
		act = &Activity{Daily: make(map[string]int), Weekly: make(map[string]int)}
		users[userID] = act
	}
	act.Name = name
	act.Overall++
	act.Daily[day]++
	act.Weekly[week]++
}

// Rank returns the top users of a chat for the given window.
// Ties are broken by ascending user ID.
func (a *Aggregator) Rank(chatID int64, mode Mode, now time.Time) (Board, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return Board{}, err
	}
	now = now.In(a.loc)
	day, week := DateKey(now), WeekKey(now)

	a.mu.RLock()
	users := a.activity[chatID]
	board := Board{Mode: mode, TotalUsers: len(users)}
	for userID, act := range users {
		var count int
		switch mode {
		case Daily:
			count = act.Daily[day]
		case Weekly:
			count = act.Weekly[week]
		case Overall:
			count = act.Overall
		}
		if count > 0 {
			board.Entries = append(board.Entries, Entry{UserID: userID, Name: act.Name, Count: count})
		}
	}
	a.mu.RUnlock()

	sort.Slice(board.Entries, func(i, j int) bool {
		if board.Entries[i].Count != board.Entries[j].Count {
			return board.Entries[i].Count > board.Entries[j].Count
		}
		return board.Entries[i].UserID < board.Entries[j].UserID
	})
	if len(board.Entries) > MaxEntries {
		board.Entries = board.Entries[:MaxEntries]
	}
	return board, nil
}

// UserStats returns the user's counters for the current day, week and overall.
func (a *Aggregator) UserStats(chatID, userID int64, now time.Time) (UserStats, bool) {
	now = now.In(a.loc)

	a.mu.RLock()
	defer a.mu.RUnlock()

	act, ok := a.activity[chatID][userID]
	if !ok {
		return UserStats{}, false
	}
	return UserStats{
		Today:   act.Daily[DateKey(now)],
		Week:    act.Weekly[WeekKey(now)],
		Overall: act.Overall,
	}, true
}

// PruneStaleBuckets drops daily and weekly buckets older than the current ones.
// Overall counters are never touched. It returns the number of removed buckets.
func (a *Aggregator) PruneStaleBuckets(now time.Time) int {
	now = now.In(a.loc)
	day, week := DateKey(now), WeekKey(now)

	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for _, users := range a.activity {
		for _, act := range users {
			for k := range act.Daily {
				if k < day {
					delete(act.Daily, k)
					removed++
				}
			}
			for k := range act.Weekly {
				if k < week {
					delete(act.Weekly, k)
					removed++
				}
			}
		}
	}
	return removed
}

// RemoveChat purges all activity, counters and profiles of a chat.
// The grand total is kept since it counts broadcasts that really happened.
func (a *Aggregator) RemoveChat(chatID int64) {
	a.mu.Lock()
	delete(a.activity, chatID)
	a.mu.Unlock()

	a.countersMu.Lock()
	delete(a.perChat, chatID)
	a.countersMu.Unlock()

	a.profilesMu.Lock()
	delete(a.profiles, chatID)
	a.profilesMu.Unlock()
}

// ActivityRecord is a flattened activity row used for persistence.
type ActivityRecord struct {
	ChatID int64
	UserID int64
	*Activity
}

// ExportActivity returns deep copies of all activity rows ordered by chat and user.
func (a *Aggregator) ExportActivity() []ActivityRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []ActivityRecord
	for chatID, users := range a.activity {
		for userID, act := range users {
			out = append(out, ActivityRecord{ChatID: chatID, UserID: userID, Activity: act.clone()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChatID != out[j].ChatID {
			return out[i].ChatID < out[j].ChatID
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// ImportActivity replaces all activity rows.
func (a *Aggregator) ImportActivity(records []ActivityRecord) {
	activity := make(map[int64]map[int64]*Activity)
	for _, r := range records {
		if r.Activity == nil {
			continue
		}
		users, ok := activity[r.ChatID]
		if !ok {
			users = make(map[int64]*Activity)
			activity[r.ChatID] = users
		}
		act := r.Activity.clone()
		users[r.UserID] = act
	}

	a.mu.Lock()
	a.activity = activity
	a.mu.Unlock()
}
