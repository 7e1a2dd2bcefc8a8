package models

import "time"

// SnapshotID is the document ID of the single persisted snapshot.
const SnapshotID = "snapshot"

// SnapshotVersion is bumped on incompatible layout changes.
const SnapshotVersion = 1

// Snapshot is the persisted image of every mutable table of the bot.
type Snapshot struct {
	ID            string          `bson:"_id" json:"-"`
	Version       int             `bson:"version" json:"version"`
	SavedAt       time.Time       `bson:"saved_at" json:"saved_at"`
	GrandTotal    int             `bson:"grand_total" json:"grand_total"`
	Chats         []Chat          `bson:"chats" json:"chats"`
	Broadcasts    []ChatCount     `bson:"broadcasts" json:"broadcasts"`
	Activity      []UserActivity  `bson:"activity" json:"activity"`
	Profiles      []UserProfile   `bson:"profiles" json:"profiles"`
	Reactions     []Reaction      `bson:"reactions" json:"reactions"`
	LastDelivered []DeliveredItem `bson:"last_delivered" json:"last_delivered"`
}

// Chat holds subscription, schedule and settings of one chat.
type Chat struct {
	ChatID          int64     `bson:"chat_id" json:"chat_id"`
	Subscribed      bool      `bson:"subscribed" json:"subscribed"`
	IntervalSeconds int64     `bson:"interval_seconds,omitempty" json:"interval_seconds,omitempty"`
	LastSent        time.Time `bson:"last_sent,omitempty" json:"last_sent,omitempty"`
	Format          string    `bson:"format" json:"format"`
	Welcome         string    `bson:"welcome,omitempty" json:"welcome,omitempty"`
}

// ChatCount is the number of broadcasts delivered to a chat.
type ChatCount struct {
	ChatID int64 `bson:"chat_id" json:"chat_id"`
	Count  int   `bson:"count" json:"count"`
}

// UserActivity is the message counters of a user in a chat.
type UserActivity struct {
	ChatID  int64          `bson:"chat_id" json:"chat_id"`
	UserID  int64          `bson:"user_id" json:"user_id"`
	Name    string         `bson:"name" json:"name"`
	Overall int            `bson:"overall" json:"overall"`
	Daily   map[string]int `bson:"daily" json:"daily"`
	Weekly  map[string]int `bson:"weekly" json:"weekly"`
}

// UserProfile is the engagement stats of a user in a chat.
type UserProfile struct {
	ChatID         int64     `bson:"chat_id" json:"chat_id"`
	UserID         int64     `bson:"user_id" json:"user_id"`
	JoinedAt       time.Time `bson:"joined_at" json:"joined_at"`
	ReactionsGiven int       `bson:"reactions_given" json:"reactions_given"`
	QuoteRequests  int       `bson:"quote_requests" json:"quote_requests"`
}

// Reaction is one active vote on a delivered quote.
type Reaction struct {
	ChatID    int64  `bson:"chat_id" json:"chat_id"`
	MessageID int    `bson:"message_id" json:"message_id"`
	UserID    int64  `bson:"user_id" json:"user_id"`
	Kind      string `bson:"kind" json:"kind"`
}

// DeliveredItem is the last quote delivered to a chat, used by the share button.
type DeliveredItem struct {
	ChatID int64  `bson:"chat_id" json:"chat_id"`
	Quote  string `bson:"quote" json:"quote"`
	Author string `bson:"author" json:"author"`
}
