// Package broadcast runs the periodic quote broadcast to subscribed chats.
package broadcast

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quotecast-bot/internal/chats"
	"quotecast-bot/internal/content"
	"quotecast-bot/internal/delivery"
)

// DefaultConcurrency bounds parallel deliveries within one pass.
const DefaultConcurrency = 8

// Registry is the part of the chat registry the scheduler needs.
type Registry interface {
	DueChats(now time.Time) []int64
	MarkSent(chatID int64, now time.Time) bool
	Format(chatID int64) chats.Format
}

// Counter records delivered broadcasts.
type Counter interface {
	RecordBroadcast(chatID int64)
}

// ContentSource fetches one quote per pass.
type ContentSource interface {
	Fetch(ctx context.Context) (content.Item, error)
}

// Deliverer posts a quote to a chat.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, item content.Item, format chats.Format) (delivery.Receipt, error)
}

// DeliveredFunc is called after each successful delivery.
type DeliveredFunc func(receipt delivery.Receipt, item content.Item)

// Result summarizes one dispatch pass.
type Result struct {
	RunID     string
	Due       []int64
	Delivered []int64
	Failed    []int64
	Err       error // set when the content fetch failed
}

// Scheduler decides on each tick which chats are due and serves them.
// It is either idle or dispatching; ticks arriving while dispatching are skipped.
type Scheduler struct {
	registry    Registry
	counter     Counter
	source      ContentSource
	deliverer   Deliverer
	onDelivered DeliveredFunc
	concurrency int
	now         func() time.Time

	dispatching atomic.Bool
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithConcurrency sets the delivery fan-out limit.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithDeliveredHook registers a callback for successful deliveries.
func WithDeliveredHook(fn DeliveredFunc) Option {
	return func(s *Scheduler) { s.onDelivered = fn }
}

// NewScheduler creates an idle scheduler.
func NewScheduler(registry Registry, counter Counter, source ContentSource, deliverer Deliverer, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:    registry,
		counter:     counter,
		source:      source,
		deliverer:   deliverer,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatching reports whether a pass is in progress.
func (s *Scheduler) Dispatching() bool {
	return s.dispatching.Load()
}

// Tick runs one dispatch pass unless another pass is still running.
// It reports whether a pass was run.
func (s *Scheduler) Tick(ctx context.Context) (Result, bool) {
	if !s.dispatching.CompareAndSwap(false, true) {
		log.Printf("[Scheduler] Previous dispatch still running, skipping tick")
		return Result{}, false
	}
	defer s.dispatching.Store(false)

	return s.Dispatch(ctx, s.now()), true
}

// Dispatch serves every chat due at now. Chats whose delivery fails stay due.
func (s *Scheduler) Dispatch(ctx context.Context, now time.Time) Result {
	res := Result{RunID: uuid.NewString()}
	logPrefix := fmt.Sprintf("[Scheduler Run:%s]", res.RunID[:8])

	res.Due = s.registry.DueChats(now)
	if len(res.Due) == 0 {
		return res
	}
	log.Printf("%s %d chat(s) due", logPrefix, len(res.Due))

	item, err := s.source.Fetch(ctx)
	if err != nil {
		res.Err = err
		log.Printf("%s Quote fetch failed, chats stay due: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s quote fetch failed: %w", logPrefix, err))
		return res
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, chatID := range res.Due {
		g.Go(func() error {
			receipt, err := s.deliverer.Deliver(ctx, chatID, item, s.registry.Format(chatID))
			if err != nil {
				log.Printf("%s Delivery to chat %d failed: %v", logPrefix, chatID, err)
				sentry.CaptureException(fmt.Errorf("%s delivery to chat %d failed: %w", logPrefix, chatID, err))
				mu.Lock()
				res.Failed = append(res.Failed, chatID)
				mu.Unlock()
				return nil
			}

			if s.registry.MarkSent(chatID, now) {
				s.counter.RecordBroadcast(chatID)
			}
			if s.onDelivered != nil {
				s.onDelivered(receipt, item)
			}
			mu.Lock()
			res.Delivered = append(res.Delivered, chatID)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Delivered, func(i, j int) bool { return res.Delivered[i] < res.Delivered[j] })
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i] < res.Failed[j] })
	log.Printf("%s Done: %d delivered, %d failed", logPrefix, len(res.Delivered), len(res.Failed))
	return res
}
