package reactions

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrInvalidReactionKind is returned when a reaction outside the fixed set is submitted.
var ErrInvalidReactionKind = errors.New("invalid reaction kind")

// Kind is one of the fixed reactions a user can put on a delivered quote.
type Kind string

const (
	Like    Kind = "like"
	Love    Kind = "love"
	Laugh   Kind = "laugh"
	Wow     Kind = "wow"
	Dislike Kind = "dislike"
)

// kinds holds the display order of the reaction buttons.
var kinds = []Kind{Like, Love, Laugh, Wow, Dislike}

var emojis = map[Kind]string{
	Like:    "👍",
	Love:    "❤️",
	Laugh:   "😂",
	Wow:     "😮",
	Dislike: "👎",
}

// Kinds returns all reaction kinds in display order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Emoji returns the button glyph for the kind.
func (k Kind) Emoji() string {
	return emojis[k]
}

// Valid reports whether k belongs to the fixed set.
func (k Kind) Valid() bool {
	_, ok := emojis[k]
	return ok
}

// ParseKind converts raw callback text into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidReactionKind, s)
	}
	return k, nil
}

// Counts maps every reaction kind to its number of active votes.
type Counts map[Kind]int

// Total returns the number of active votes across all kinds.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

func zeroCounts() Counts {
	c := make(Counts, len(kinds))
	for _, k := range kinds {
		c[k] = 0
	}
	return c
}

// Key identifies a delivered message within a chat.
type Key struct {
	ChatID    int64
	MessageID int
}

// record is the vote state of a single message.
type record struct {
	votes  map[int64]Kind
	counts Counts
}

// Outcome describes what an Apply call changed.
type Outcome int

const (
	OutcomeFirstVote Outcome = iota // user had no vote on the message
	OutcomeSwitched                 // user moved their vote to another kind
	OutcomeUnchanged                // user re-submitted the kind they already had
)

// Ledger keeps one active reaction per (chat, message, user).
type Ledger struct {
	mu      sync.RWMutex
	records map[Key]*record
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[Key]*record)}
}

// Apply records the user's reaction on a message and returns the resulting counts.
// A user switching kinds moves their single vote; re-submitting the same kind is a no-op.
func (l *Ledger) Apply(chatID int64, messageID int, userID int64, kind Kind) (Counts, Outcome, error) {
	if !kind.Valid() {
		return nil, OutcomeUnchanged, fmt.Errorf("%w: %q", ErrInvalidReactionKind, string(kind))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := Key{ChatID: chatID, MessageID: messageID}
	rec, ok := l.records[key]
	if !ok {
		rec = &record{votes: make(map[int64]Kind), counts: zeroCounts()}
		l.records[key] = rec
	}

	outcome := OutcomeFirstVote
	if prev, voted := rec.votes[userID]; voted {
		if prev == kind {
			return copyCounts(rec.counts), OutcomeUnchanged, nil
		}
		rec.counts[prev]--
		outcome = OutcomeSwitched
	}
	rec.votes[userID] = kind
	rec.counts[kind]++

	return copyCounts(rec.counts), outcome, nil
}

// Counts returns the tally for a message, zero-filled when nobody voted yet.
func (l *Ledger) Counts(chatID int64, messageID int) Counts {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[Key{ChatID: chatID, MessageID: messageID}]
	if !ok {
		return zeroCounts()
	}
	return copyCounts(rec.counts)
}

// Vote returns the user's current reaction on a message, if any.
func (l *Ledger) Vote(chatID int64, messageID int, userID int64) (Kind, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[Key{ChatID: chatID, MessageID: messageID}]
	if !ok {
		return "", false
	}
	k, ok := rec.votes[userID]
	return k, ok
}

// RemoveChat drops every record belonging to the chat.
func (l *Ledger) RemoveChat(chatID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key := range l.records {
		if key.ChatID == chatID {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// Ballot is one exported vote, used for persistence.
type Ballot struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Kind      Kind
}

// Export returns every active vote, ordered by chat, message and user.
func (l *Ledger) Export() []Ballot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Ballot
	for key, rec := range l.records {
		for userID, k := range rec.votes {
			out = append(out, Ballot{ChatID: key.ChatID, MessageID: key.MessageID, UserID: userID, Kind: k})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChatID != out[j].ChatID {
			return out[i].ChatID < out[j].ChatID
		}
		if out[i].MessageID != out[j].MessageID {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Import replaces the ledger content with the given ballots.
// Counts are rebuilt from the ballots; ballots with unknown kinds are skipped.
func (l *Ledger) Import(ballots []Ballot) int {
	records := make(map[Key]*record)
	skipped := 0
	for _, b := range ballots {
		if !b.Kind.Valid() {
			skipped++
			continue
		}
		key := Key{ChatID: b.ChatID, MessageID: b.MessageID}
		rec, ok := records[key]
		if !ok {
			rec = &record{votes: make(map[int64]Kind), counts: zeroCounts()}
			records[key] = rec
		}
		if prev, voted := rec.votes[b.UserID]; voted {
			rec.counts[prev]--
		}
		rec.votes[b.UserID] = b.Kind
		rec.counts[b.Kind]++
	}

	l.mu.Lock()
	l.records = records
	l.mu.Unlock()
	return skipped
}

func copyCounts(c Counts) Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
