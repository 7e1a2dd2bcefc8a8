package chats

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrInvalidInterval is returned for non-positive broadcast intervals.
	ErrInvalidInterval = errors.New("invalid broadcast interval")
	// ErrInvalidFormat is returned for an unknown delivery format.
	ErrInvalidFormat = errors.New("invalid delivery format")
)

// DefaultInterval is used for chats that never chose an interval.
const DefaultInterval = 24 * time.Hour

// Format is the preferred delivery format of a chat.
type Format string

const (
	FormatText  Format = "text"
	FormatImage Format = "img"
)

// ParseFormat converts command input into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatImage:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// Schedule is the broadcast timing of one chat.
// A zero LastSent means the chat has never been served and is due immediately.
type Schedule struct {
	Interval time.Duration
	LastSent time.Time
}

// Due reports whether the chat should be served at now.
func (s Schedule) Due(now time.Time) bool {
	if s.LastSent.IsZero() {
		return true
	}
	return now.Sub(s.LastSent) >= s.Interval
}

// Settings are the per-chat preferences set by admins.
type Settings struct {
	Format  Format
	Welcome string
}

// Registry holds subscribed chats with their schedules and settings.
type Registry struct {
	mu         sync.RWMutex
	subscribed map[int64]struct{}
	schedules  map[int64]*Schedule
	settings   map[int64]*Settings
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subscribed: make(map[int64]struct{}),
		schedules:  make(map[int64]*Schedule),
		settings:   make(map[int64]*Settings),
	}
}

// Subscribe adds the chat to the broadcast set. It reports whether the chat
// was newly added; re-subscribing keeps the existing schedule.
func (r *Registry) Subscribe(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribed[chatID]; ok {
		return false
	}
	r.subscribed[chatID] = struct{}{}
	if _, ok := r.schedules[chatID]; !ok {
		r.schedules[chatID] = &Schedule{Interval: DefaultInterval}
	}
	return true
}

// Unsubscribe removes the chat together with its schedule and settings.
func (r *Registry) Unsubscribe(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.subscribed[chatID]
	delete(r.subscribed, chatID)
	delete(r.schedules, chatID)
	delete(r.settings, chatID)
	return ok
}

// IsSubscribed reports whether the chat receives broadcasts.
func (r *Registry) IsSubscribed(chatID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subscribed[chatID]
	return ok
}

// Subscribed returns all subscribed chat IDs in ascending order.
func (r *Registry) Subscribed() []int64 {
	r.mu.RLock()
	out := make([]int64, 0, len(r.subscribed))
	for id := range r.subscribed {
		out = append(out, id)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetInterval changes the broadcast interval and makes the chat due right away.
// The schedule is kept even for chats that are not subscribed yet.
func (r *Registry) SetInterval(chatID int64, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}

	r.mu.Lock()
	r.schedules[chatID] = &Schedule{Interval: d}
	r.mu.Unlock()
	return nil
}

// Schedule returns a copy of the chat's schedule.
func (r *Registry) Schedule(chatID int64) (Schedule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schedules[chatID]
	if !ok {
		return Schedule{}, false
	}
	return *s, true
}

// DueChats returns every subscribed chat whose interval has elapsed, ascending.
func (r *Registry) DueChats(now time.Time) []int64 {
	r.mu.RLock()
	var due []int64
	for id := range r.subscribed {
		s, ok := r.schedules[id]
		if !ok || s.Due(now) {
			due = append(due, id)
		}
	}
	r.mu.RUnlock()

	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })
	return due
}

// MarkSent records a successful delivery. Unsubscribed chats are ignored so a
// delivery racing with removal does not resurrect the chat.
func (r *Registry) MarkSent(chatID int64, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribed[chatID]; !ok {
		return false
	}
	s, ok := r.schedules[chatID]
	if !ok {
		s = &Schedule{Interval: DefaultInterval}
		r.schedules[chatID] = s
	}
	s.LastSent = now
	return true
}

func (r *Registry) settingsLocked(chatID int64) *Settings {
	s, ok := r.settings[chatID]
	if !ok {
		s = &Settings{Format: FormatText}
		r.settings[chatID] = s
	}
	return s
}

// SetFormat stores the chat's preferred delivery format.
func (r *Registry) SetFormat(chatID int64, f Format) error {
	if _, err := ParseFormat(string(f)); err != nil {
		return err
	}

	r.mu.Lock()
	r.settingsLocked(chatID).Format = f
	r.mu.Unlock()
	return nil
}

// Format returns the chat's delivery format, text by default.
func (r *Registry) Format(chatID int64) Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.settings[chatID]; ok && s.Format != "" {
		return s.Format
	}
	return FormatText
}

// SetWelcome stores the greeting sent to new members. An empty text resets it.
func (r *Registry) SetWelcome(chatID int64, text string) {
	r.mu.Lock()
	r.settingsLocked(chatID).Welcome = text
	r.mu.Unlock()
}

// Welcome returns the custom greeting of the chat, if one was set.
func (r *Registry) Welcome(chatID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[chatID]
	if !ok || s.Welcome == "" {
		return "", false
	}
	return s.Welcome, true
}

// ChatRecord is the full state of one chat used for persistence.
type ChatRecord struct {
	ChatID     int64
	Subscribed bool
	Schedule   Schedule
	Settings   Settings
}

// Export returns every chat known to the registry, ordered by ID.
func (r *Registry) Export() []ChatRecord {
	r.mu.RLock()
	byID := make(map[int64]*ChatRecord)
	get := func(id int64) *ChatRecord {
		rec, ok := byID[id]
		if !ok {
			rec = &ChatRecord{ChatID: id, Settings: Settings{Format: FormatText}}
			byID[id] = rec
		}
		return rec
	}
	for id := range r.subscribed {
		get(id).Subscribed = true
	}
	for id, s := range r.schedules {
		get(id).Schedule = *s
	}
	for id, s := range r.settings {
		get(id).Settings = *s
	}
	r.mu.RUnlock()

	out := make([]ChatRecord, 0, len(byID))
	for _, rec := range byID {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}

// Import replaces the registry content. Invalid intervals fall back to the
// default and unknown formats to text; the number of fixed records is returned.
func (r *Registry) Import(records []ChatRecord) int {
	subscribed := make(map[int64]struct{})
	schedules := make(map[int64]*Schedule)
	settings := make(map[int64]*Settings)
	fixed := 0
	for _, rec := range records {
		if rec.Subscribed {
			subscribed[rec.ChatID] = struct{}{}
		}
		s := rec.Schedule
		switch {
		case s.Interval > 0:
			schedules[rec.ChatID] = &s
		case rec.Subscribed:
			s.Interval = DefaultInterval
			schedules[rec.ChatID] = &s
			fixed++
		}
		st := rec.Settings
		if _, err := ParseFormat(string(st.Format)); err != nil {
			st.Format = FormatText
			fixed++
		}
		settings[rec.ChatID] = &st
	}

	r.mu.Lock()
	r.subscribed = subscribed
	r.schedules = schedules
	r.settings = settings
	r.mu.Unlock()
	return fixed
}
