package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quotecast-bot/internal/chats"
	"quotecast-bot/internal/content"
	"quotecast-bot/internal/delivery"
	"quotecast-bot/internal/leaderboard"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Fetch(ctx context.Context) (content.Item, error) {
	args := m.Called(ctx)
	return args.Get(0).(content.Item), args.Error(1)
}

type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, chatID int64, item content.Item, format chats.Format) (delivery.Receipt, error) {
	args := m.Called(ctx, chatID, item, format)
	return args.Get(0).(delivery.Receipt), args.Error(1)
}

var item = content.Item{Quote: "q", Author: "a"}

func newFixture(t *testing.T, ids ...int64) (*chats.Registry, *leaderboard.Aggregator) {
	t.Helper()
	reg := chats.NewRegistry()
	for _, id := range ids {
		reg.Subscribe(id)
		require.NoError(t, reg.SetInterval(id, time.Minute))
	}
	return reg, leaderboard.NewAggregator(time.UTC)
}

func TestDispatchPartialFailure(t *testing.T) {
	const a, b, c = int64(1), int64(2), int64(3)
	reg, agg := newFixture(t, a, b, c)
	require.NoError(t, reg.SetFormat(c, chats.FormatImage))
	now := time.Unix(1000, 0)

	src := new(MockSource)
	src.On("Fetch", mock.Anything).Return(item, nil).Once()

	del := new(MockDeliverer)
	del.On("Deliver", mock.Anything, a, item, chats.FormatText).Return(delivery.Receipt{ChatID: a, MessageID: 10}, nil)
	del.On("Deliver", mock.Anything, b, item, chats.FormatText).Return(delivery.Receipt{}, delivery.ErrDeliveryFailed)
	del.On("Deliver", mock.Anything, c, item, chats.FormatImage).Return(delivery.Receipt{ChatID: c, MessageID: 11}, nil)

	var hooked sync.Map
	s := NewScheduler(reg, agg, src, del, WithDeliveredHook(func(r delivery.Receipt, it content.Item) {
		hooked.Store(r.ChatID, it)
	}))

	res := s.Dispatch(context.Background(), now)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []int64{a, b, c}, res.Due)
	assert.Equal(t, []int64{a, c}, res.Delivered)
	assert.Equal(t, []int64{b}, res.Failed)
	assert.NoError(t, res.Err)

	for _, id := range []int64{a, c} {
		sched, _ := reg.Schedule(id)
		assert.Equal(t, now, sched.LastSent)
		_, ok := hooked.Load(id)
		assert.True(t, ok)
	}
	sched, _ := reg.Schedule(b)
	assert.True(t, sched.LastSent.IsZero(), "failed chat keeps its last-sent time")
	_, ok := hooked.Load(b)
	assert.False(t, ok)

	totals := agg.Totals()
	assert.Equal(t, 2, totals.GrandTotal)
	assert.Equal(t, 1, totals.Count(a))
	assert.Equal(t, 0, totals.Count(b))
	assert.Equal(t, 1, totals.Count(c))

	assert.Equal(t, []int64{b}, reg.DueChats(now.Add(time.Second)), "failed chat stays due on the next tick")
	del.AssertExpectations(t)
	src.AssertExpectations(t)
}

func TestDispatchNothingDue(t *testing.T) {
	reg, agg := newFixture(t)
	src := new(MockSource)
	del := new(MockDeliverer)

	res := NewScheduler(reg, agg, src, del).Dispatch(context.Background(), time.Unix(1000, 0))
	assert.Empty(t, res.Due)
	src.AssertNotCalled(t, "Fetch", mock.Anything)
}

func TestDispatchFetchFailure(t *testing.T) {
	reg, agg := newFixture(t, 1, 2)
	src := new(MockSource)
	src.On("Fetch", mock.Anything).Return(content.Item{}, content.ErrContentUnavailable).Once()
	del := new(MockDeliverer)

	now := time.Unix(1000, 0)
	res := NewScheduler(reg, agg, src, del).Dispatch(context.Background(), now)
	assert.ErrorIs(t, res.Err, content.ErrContentUnavailable)
	assert.Empty(t, res.Delivered)
	del.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []int64{1, 2}, reg.DueChats(now), "no chat is marked after a failed fetch")
	assert.Zero(t, agg.Totals().GrandTotal)
}

type blockingDeliverer struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingDeliverer) Deliver(_ context.Context, chatID int64, _ content.Item, _ chats.Format) (delivery.Receipt, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	<-b.release
	return delivery.Receipt{ChatID: chatID}, nil
}

func TestTickSkipsWhileDispatching(t *testing.T) {
	reg, agg := newFixture(t, 1)
	src := new(MockSource)
	src.On("Fetch", mock.Anything).Return(item, nil)
	del := &blockingDeliverer{started: make(chan struct{}), release: make(chan struct{})}

	s := NewScheduler(reg, agg, src, del, WithClock(func() time.Time { return time.Unix(1000, 0) }))

	done := make(chan Result)
	go func() {
		res, ran := s.Tick(context.Background())
		assert.True(t, ran)
		done <- res
	}()

	<-del.started
	assert.True(t, s.Dispatching())
	_, ran := s.Tick(context.Background())
	assert.False(t, ran, "overlapping tick must be skipped")

	close(del.release)
	res := <-done
	assert.Equal(t, []int64{1}, res.Delivered)
	assert.False(t, s.Dispatching())
	assert.Equal(t, int32(1), del.calls.Load())
}

func TestDispatchConcurrencyLimit(t *testing.T) {
	ids := make([]int64, 20)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	reg, agg := newFixture(t, ids...)
	src := new(MockSource)
	src.On("Fetch", mock.Anything).Return(item, nil)

	var inFlight, peak atomic.Int32
	del := deliverFunc(func(chatID int64) (delivery.Receipt, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return delivery.Receipt{ChatID: chatID}, nil
	})

	res := NewScheduler(reg, agg, src, del, WithConcurrency(3)).Dispatch(context.Background(), time.Unix(1000, 0))
	assert.Len(t, res.Delivered, 20)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, 20, agg.Totals().GrandTotal)
}

type deliverFunc func(chatID int64) (delivery.Receipt, error)

func (f deliverFunc) Deliver(_ context.Context, chatID int64, _ content.Item, _ chats.Format) (delivery.Receipt, error) {
	return f(chatID)
}

func TestDispatchUnsubscribedDuringDelivery(t *testing.T) {
	reg, agg := newFixture(t, 1)
	src := new(MockSource)
	src.On("Fetch", mock.Anything).Return(item, nil)
	del := deliverFunc(func(chatID int64) (delivery.Receipt, error) {
		reg.Unsubscribe(chatID)
		return delivery.Receipt{ChatID: chatID}, nil
	})

	res := NewScheduler(reg, agg, src, del).Dispatch(context.Background(), time.Unix(1000, 0))
	assert.Equal(t, []int64{1}, res.Delivered)
	assert.Zero(t, agg.Totals().GrandTotal, "removed chat is not counted")
	assert.False(t, reg.IsSubscribed(1))
}

func TestDispatchDeliveryError(t *testing.T) {
	reg, agg := newFixture(t, 1)
	src := new(MockSource)
	src.On("Fetch", mock.Anything).Return(item, nil)
	del := deliverFunc(func(int64) (delivery.Receipt, error) {
		return delivery.Receipt{}, errors.New("network down")
	})

	res := NewScheduler(reg, agg, src, del).Dispatch(context.Background(), time.Unix(1000, 0))
	assert.Equal(t, []int64{1}, res.Failed)
}
