// Package engagement exposes the bot's operations to the Telegram layer and
// keeps the reaction, activity and chat tables consistent with persistence.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"golang.org/x/sync/errgroup"

	"quotecast-bot/internal/chats"
	"quotecast-bot/internal/content"
	"quotecast-bot/internal/database"
	"quotecast-bot/internal/delivery"
	"quotecast-bot/internal/leaderboard"
	"quotecast-bot/internal/reactions"
)

// ContentSource fetches quotes on demand.
type ContentSource interface {
	Fetch(ctx context.Context) (content.Item, error)
}

// Sender posts a quote to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, item content.Item, format chats.Format, style delivery.Style) (delivery.Receipt, error)
}

// ReactionRenderer redraws the reaction buttons under a delivered quote.
type ReactionRenderer interface {
	RenderReactionControl(ctx context.Context, chatID int64, messageID int, counts reactions.Counts, share string) error
}

// Deps holds the dependencies of a Service.
type Deps struct {
	Registry *chats.Registry
	Ledger   *reactions.Ledger
	Board    *leaderboard.Aggregator
	Store    database.SnapshotStore
	Content  ContentSource
	Sender   Sender
	Renderer ReactionRenderer
	Now      func() time.Time // defaults to time.Now
}

// Service coordinates the in-memory tables. Every mutation marks the
// snapshot dirty; Flush writes it out.
type Service struct {
	registry *chats.Registry
	ledger   *reactions.Ledger
	board    *leaderboard.Aggregator
	store    database.SnapshotStore
	content  ContentSource
	sender   Sender
	renderer ReactionRenderer
	now      func() time.Time

	lastMu sync.RWMutex
	last   map[int64]content.Item

	dirty   atomic.Bool
	flushMu sync.Mutex
}

// New creates a Service from its dependencies.
func New(deps Deps) (*Service, error) {
	switch {
	case deps.Registry == nil:
		return nil, fmt.Errorf("chat registry cannot be nil")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("reaction ledger cannot be nil")
	case deps.Board == nil:
		return nil, fmt.Errorf("leaderboard aggregator cannot be nil")
	case deps.Store == nil:
		return nil, fmt.Errorf("snapshot store cannot be nil")
	case deps.Content == nil:
		return nil, fmt.Errorf("content source cannot be nil")
	case deps.Sender == nil:
		return nil, fmt.Errorf("sender cannot be nil")
	case deps.Renderer == nil:
		return nil, fmt.Errorf("reaction renderer cannot be nil")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		registry: deps.Registry,
		ledger:   deps.Ledger,
		board:    deps.Board,
		store:    deps.Store,
		content:  deps.Content,
		sender:   deps.Sender,
		renderer: deps.Renderer,
		now:      now,
		last:     make(map[int64]content.Item),
	}, nil
}

func (s *Service) markDirty() { s.dirty.Store(true) }

// Dirty reports whether there are changes not yet flushed.
func (s *Service) Dirty() bool { return s.dirty.Load() }

// OnReactionClick applies a user's reaction and redraws the buttons.
// A render failure is logged and does not undo the vote.
func (s *Service) OnReactionClick(ctx context.Context, chatID int64, messageID int, userID int64, kind reactions.Kind) (reactions.Counts, error) {
	counts, outcome, err := s.ledger.Apply(chatID, messageID, userID, kind)
	if err != nil {
		return nil, err
	}
	if outcome == reactions.OutcomeUnchanged {
		return counts, nil
	}

	s.board.RecordReactionGiven(chatID, userID, s.now())
	s.markDirty()

	share := ""
	if item, ok := s.LastDelivered(chatID); ok {
		share = item.Text()
	}
	if err := s.renderer.RenderReactionControl(ctx, chatID, messageID, counts, share); err != nil {
		logPrefix := fmt.Sprintf("[Reaction Chat:%d Msg:%d]", chatID, messageID)
		log.Printf("%s Failed to render reaction control: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s failed to render reaction control: %w", logPrefix, err))
	}
	return counts, nil
}

// OnChatActivity counts one message from a user.
func (s *Service) OnChatActivity(chatID, userID int64, name string) {
	s.board.RecordActivity(chatID, userID, name, s.now())
	s.markDirty()
}

// OnBotAdded subscribes the chat with the default schedule and text format.
// It reports false when the chat was already subscribed.
func (s *Service) OnBotAdded(chatID int64) bool {
	added := s.registry.Subscribe(chatID)
	if added {
		s.markDirty()
	}
	return added
}

// OnBotRemoved unsubscribes the chat and purges all of its data.
// The grand total is kept.
func (s *Service) OnBotRemoved(chatID int64) {
	s.registry.Unsubscribe(chatID)
	removed := s.ledger.RemoveChat(chatID)
	s.board.RemoveChat(chatID)

	s.lastMu.Lock()
	delete(s.last, chatID)
	s.lastMu.Unlock()

	s.markDirty()
	log.Printf("[Chat:%d] Removed, %d reaction record(s) purged", chatID, removed)
}

// OnMemberJoined records when a user joined the chat.
func (s *Service) OnMemberJoined(chatID, userID int64) {
	s.board.RecordJoin(chatID, userID, s.now())
	s.markDirty()
}

// IsSubscribed reports whether the chat receives broadcasts.
func (s *Service) IsSubscribed(chatID int64) bool {
	return s.registry.IsSubscribed(chatID)
}

// SubscribedChats returns the subscribed chat IDs in ascending order.
func (s *Service) SubscribedChats() []int64 {
	return s.registry.Subscribed()
}

// SetChatInterval changes how often the chat receives a broadcast.
// The chat becomes due immediately.
func (s *Service) SetChatInterval(chatID int64, d time.Duration) error {
	if err := s.registry.SetInterval(chatID, d); err != nil {
		return err
	}
	s.markDirty()
	return nil
}

// SetChatFormat changes how quotes are posted in the chat.
func (s *Service) SetChatFormat(chatID int64, f chats.Format) error {
	if err := s.registry.SetFormat(chatID, f); err != nil {
		return err
	}
	s.markDirty()
	return nil
}

// ChatFormat returns the chat's delivery format.
func (s *Service) ChatFormat(chatID int64) chats.Format {
	return s.registry.Format(chatID)
}

// SetWelcome stores the chat's welcome text.
func (s *Service) SetWelcome(chatID int64, text string) {
	s.registry.SetWelcome(chatID, text)
	s.markDirty()
}

// Welcome returns the chat's custom welcome text, if set.
func (s *Service) Welcome(chatID int64) (string, bool) {
	return s.registry.Welcome(chatID)
}

// QueryLeaderboard ranks the chat's users for the mode.
func (s *Service) QueryLeaderboard(chatID int64, mode leaderboard.Mode) (leaderboard.Board, error) {
	return s.board.Rank(chatID, mode, s.now())
}

// QueryTotals returns the broadcast counters.
func (s *Service) QueryTotals() leaderboard.Totals {
	return s.board.Totals()
}

// UserStats returns a user's message counts in the chat.
func (s *Service) UserStats(chatID, userID int64) (leaderboard.UserStats, bool) {
	return s.board.UserStats(chatID, userID, s.now())
}

// Profile returns a user's engagement profile in the chat.
func (s *Service) Profile(chatID, userID int64) (leaderboard.Profile, bool) {
	return s.board.Profile(chatID, userID)
}

// RequestQuote fetches and posts a quote on demand. Group chats get their
// configured format and the post counts toward the broadcast totals;
// private chats always get text.
func (s *Service) RequestQuote(ctx context.Context, chatID, userID int64, inGroup bool) (delivery.Receipt, error) {
	item, err := s.content.Fetch(ctx)
	if err != nil {
		return delivery.Receipt{}, err
	}

	format := chats.FormatText
	if inGroup {
		format = s.registry.Format(chatID)
	}
	receipt, err := s.sender.Send(ctx, chatID, item, format, delivery.StyleOnDemand)
	if err != nil {
		return delivery.Receipt{}, err
	}

	if inGroup {
		s.board.RecordBroadcast(chatID)
	}
	s.board.RecordQuoteRequest(chatID, userID, s.now())
	s.remember(chatID, item)
	s.markDirty()
	return receipt, nil
}

// FetchQuotes fetches n quotes concurrently. Any failure fails the whole call.
func (s *Service) FetchQuotes(ctx context.Context, n int) ([]content.Item, error) {
	items := make([]content.Item, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range items {
		g.Go(func() error {
			item, err := s.content.Fetch(gctx)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// OnBroadcastDelivered remembers the item posted by a scheduled broadcast.
func (s *Service) OnBroadcastDelivered(receipt delivery.Receipt, item content.Item) {
	s.remember(receipt.ChatID, item)
	s.markDirty()
}

func (s *Service) remember(chatID int64, item content.Item) {
	s.lastMu.Lock()
	s.last[chatID] = item
	s.lastMu.Unlock()
}

// LastDelivered returns the last quote posted to the chat.
func (s *Service) LastDelivered(chatID int64) (content.Item, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	item, ok := s.last[chatID]
	return item, ok
}

// Prune drops stale daily and weekly buckets.
func (s *Service) Prune(_ context.Context) int {
	removed := s.board.PruneStaleBuckets(s.now())
	if removed > 0 {
		s.markDirty()
		log.Printf("[Prune] Removed %d stale bucket(s)", removed)
	}
	return removed
}

// Load restores state from the store. Missing data starts empty; unreadable
// data is reported and also starts empty.
func (s *Service) Load(ctx context.Context) error {
	snapshot, err := s.store.Load(ctx)
	if errors.Is(err, database.ErrNoSnapshot) {
		log.Println("[Persistence] No snapshot found, starting empty")
		return nil
	}
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Persistence] failed to load snapshot: %w", err))
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	s.restore(snapshot)
	log.Printf("[Persistence] Restored snapshot saved at %s", snapshot.SavedAt.Format(time.RFC3339))
	return nil
}

// Flush writes a snapshot when there are unsaved changes.
func (s *Service) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if !s.dirty.Swap(false) {
		return nil
	}
	if err := s.store.Save(ctx, s.Snapshot()); err != nil {
		s.markDirty()
		sentry.CaptureException(fmt.Errorf("[Persistence] failed to save snapshot: %w", err))
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
