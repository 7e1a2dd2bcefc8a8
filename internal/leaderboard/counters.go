package leaderboard

import (
	"sort"
	"time"
)

// ChatCount is the number of broadcasts delivered to one chat.
type ChatCount struct {
	ChatID int64
	Count  int
}

// Totals is a consistent copy of the broadcast counters.
type Totals struct {
	GrandTotal int
	PerChat    []ChatCount // sorted by count desc, then chat ID asc
}

// Count returns the counter of a chat, zero when absent.
func (t Totals) Count(chatID int64) int {
	for _, c := range t.PerChat {
		if c.ChatID == chatID {
			return c.Count
		}
	}
	return 0
}

// RecordBroadcast counts one delivered broadcast for the chat and the grand total.
func (a *Aggregator) RecordBroadcast(chatID int64) {
	a.countersMu.Lock()
	a.perChat[chatID]++
	a.grandTotal++
	a.countersMu.Unlock()
}

// Totals returns the grand total and per-chat broadcast counters.
func (a *Aggregator) Totals() Totals {
	a.countersMu.RLock()
	t := Totals{GrandTotal: a.grandTotal, PerChat: make([]ChatCount, 0, len(a.perChat))}
	for chatID, n := range a.perChat {
		t.PerChat = append(t.PerChat, ChatCount{ChatID: chatID, Count: n})
	}
	a.countersMu.RUnlock()

	sort.Slice(t.PerChat, func(i, j int) bool {
		if t.PerChat[i].Count != t.PerChat[j].Count {
			return t.PerChat[i].Count > t.PerChat[j].Count
		}
		return t.PerChat[i].ChatID < t.PerChat[j].ChatID
	})
	return t
}

// ImportTotals replaces the broadcast counters.
func (a *Aggregator) ImportTotals(t Totals) {
	perChat := make(map[int64]int, len(t.PerChat))
	for _, c := range t.PerChat {
		perChat[c.ChatID] = c.Count
	}

	a.countersMu.Lock()
	a.perChat = perChat
	a.grandTotal = t.GrandTotal
	a.countersMu.Unlock()
}

// Profile holds the engagement stats shown by /profile.
type Profile struct {
	JoinedAt       time.Time
	ReactionsGiven int
	QuoteRequests  int
}

func (a *Aggregator) profileLocked(chatID, userID int64, now time.Time) *Profile {
	users, ok := a.profiles[chatID]
	if !ok {
		users = make(map[int64]*Profile)
		a.profiles[chatID] = users
	}
	p, ok := users[userID]
	if !ok {
		p = &Profile{JoinedAt: now}
		users[userID] = p
	}
	return p
}

// RecordJoin creates the user's profile if it does not exist yet.
func (a *Aggregator) RecordJoin(chatID, userID int64, now time.Time) {
	a.profilesMu.Lock()
	a.profileLocked(chatID, userID, now)
	a.profilesMu.Unlock()
}

// RecordReactionGiven counts a reaction placed by the user.
func (a *Aggregator) RecordReactionGiven(chatID, userID int64, now time.Time) {
	a.profilesMu.Lock()
	a.profileLocked(chatID, userID, now).ReactionsGiven++
	a.profilesMu.Unlock()
}

// RecordQuoteRequest counts an on-demand quote requested by the user.
func (a *Aggregator) RecordQuoteRequest(chatID, userID int64, now time.Time) {
	a.profilesMu.Lock()
	a.profileLocked(chatID, userID, now).QuoteRequests++
	a.profilesMu.Unlock()
}

// Profile returns a copy of the user's profile.
func (a *Aggregator) Profile(chatID, userID int64) (Profile, bool) {
	a.profilesMu.RLock()
	defer a.profilesMu.RUnlock()

	p, ok := a.profiles[chatID][userID]
	if !ok {
		return Profile{}, false
	}
	return *p, true
}

// ProfileRecord is a flattened profile row used for persistence.
type ProfileRecord struct {
	ChatID int64
	UserID int64
	Profile
}

// ExportProfiles returns all profiles ordered by chat and user.
func (a *Aggregator) ExportProfiles() []ProfileRecord {
	a.profilesMu.RLock()
	var out []ProfileRecord
	for chatID, users := range a.profiles {
		for userID, p := range users {
			out = append(out, ProfileRecord{ChatID: chatID, UserID: userID, Profile: *p})
		}
	}
	a.profilesMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ChatID != out[j].ChatID {
			return out[i].ChatID < out[j].ChatID
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// ImportProfiles replaces all profiles.
func (a *Aggregator) ImportProfiles(records []ProfileRecord) {
	profiles := make(map[int64]map[int64]*Profile)
	for _, r := range records {
		users, ok := profiles[r.ChatID]
		if !ok {
			users = make(map[int64]*Profile)
			profiles[r.ChatID] = users
		}
		p := r.Profile
		users[r.UserID] = &p
	}

	a.profilesMu.Lock()
	a.profiles = profiles
	a.profilesMu.Unlock()
}
