package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	c, err := New(16, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func counter(calls *atomic.Int32, value string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestNewRejectsInvalidSize(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}

func TestKey(t *testing.T) {
	key := Key{"sidebar-pages", "S1", "P1", "1"}
	require.True(t, key.HasPrefix(Key{"sidebar-pages", "S1"}))
	require.True(t, key.HasPrefix(nil))
	require.False(t, key.HasPrefix(Key{"sidebar-pages", "S2"}))
	require.False(t, Key{"pages"}.HasPrefix(Key{"pages", "x"}))
	require.NotEqual(t, Key{"a", "bc"}.String(), Key{"ab", "c"}.String())
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	c := newCache(t)
	release := make(chan struct{})
	var calls atomic.Int32

	producer := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Fetch(context.Background(), c, Key{"k"}, producer, Options{})
		}(i)
	}

	require.Eventually(t, func() bool { return c.Waiting() == n }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "value", results[i])
	}
}

func TestFetchStaleTime(t *testing.T) {
	clock := newFakeClock()
	c := newCache(t, WithClock(clock.Now))
	var calls atomic.Int32
	opts := Options{StaleTime: 5 * time.Minute}

	_, err := Fetch(context.Background(), c, Key{"pages", "A"}, counter(&calls, "A"), opts)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	clock.Advance(4 * time.Minute)
	_, err = Fetch(context.Background(), c, Key{"pages", "A"}, counter(&calls, "A"), opts)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load(), "within the window no new call is made")

	clock.Advance(time.Minute)
	_, err = Fetch(context.Background(), c, Key{"pages", "A"}, counter(&calls, "A"), opts)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load(), "after the window a new call is made")
}

func TestFetchZeroStaleTimeAlwaysRefetches(t *testing.T) {
	c := newCache(t)
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		_, err := Fetch(context.Background(), c, Key{"recent"}, counter(&calls, "v"), Options{})
		require.NoError(t, err)
	}
	require.Equal(t, int32(3), calls.Load())
}

func TestFetchErrorIsNotCached(t *testing.T) {
	c := newCache(t)
	boom := errors.New("boom")
	var calls atomic.Int32

	failing := func(context.Context) (string, error) {
		calls.Add(1)
		return "", boom
	}
	_, err := Fetch(context.Background(), c, Key{"k"}, failing, Options{StaleTime: time.Hour})
	require.ErrorIs(t, err, boom)

	_, ok := c.Get(Key{"k"})
	require.False(t, ok)

	value, err := Fetch(context.Background(), c, Key{"k"}, counter(&calls, "ok"), Options{StaleTime: time.Hour})
	require.NoError(t, err)
	require.Equal(t, "ok", value)
	require.Equal(t, int32(2), calls.Load())
}

func TestFetchServeStale(t *testing.T) {
	clock := newFakeClock()
	c := newCache(t, WithClock(clock.Now))
	opts := Options{StaleTime: time.Minute, ServeStale: true}

	_, err := Fetch(context.Background(), c, Key{"k"}, func(context.Context) (string, error) { return "old", nil }, opts)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	refreshed := make(chan struct{})
	value, err := Fetch(context.Background(), c, Key{"k"}, func(context.Context) (string, error) {
		defer close(refreshed)
		return "new", nil
	}, opts)
	require.NoError(t, err)
	require.Equal(t, "old", value, "stale value is served immediately")

	<-refreshed
	require.Eventually(t, func() bool {
		v, _ := c.Get(Key{"k"})
		return v == "new"
	}, time.Second, time.Millisecond)
}

func TestFetchCallerCancellationDoesNotAbortProducer(t *testing.T) {
	c := newCache(t)
	release := make(chan struct{})
	var producerErr atomic.Value

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, Key{"k"}, func(pctx context.Context) (string, error) {
			<-release
			if err := pctx.Err(); err != nil {
				producerErr.Store(err)
			}
			return "value", nil
		}, Options{StaleTime: time.Hour})
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Waiting() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		v, ok := c.Get(Key{"k"})
		return ok && v == "value"
	}, time.Second, time.Millisecond)
	require.Nil(t, producerErr.Load())
}

func TestFetchTypeMismatch(t *testing.T) {
	c := newCache(t)
	c.SetValue(Key{"k"}, 42)

	_, err := Fetch(context.Background(), c, Key{"k"}, func(context.Context) (string, error) { return "", nil }, Options{StaleTime: time.Hour})
	require.Error(t, err)
}

func TestSetValueIsFresh(t *testing.T) {
	c := newCache(t)
	var calls atomic.Int32

	c.SetValue(Key{"pages", "A"}, "manual")
	value, err := Fetch(context.Background(), c, Key{"pages", "A"}, counter(&calls, "remote"), Options{StaleTime: time.Minute})
	require.NoError(t, err)
	require.Equal(t, "manual", value)
	require.Zero(t, calls.Load())
}

func TestInvalidate(t *testing.T) {
	c := newCache(t)
	var calls atomic.Int32
	opts := Options{StaleTime: time.Hour}

	_, err := Fetch(context.Background(), c, Key{"pages", "A"}, counter(&calls, "v1"), opts)
	require.NoError(t, err)

	require.True(t, c.Invalidate(Key{"pages", "A"}))
	require.False(t, c.Invalidate(Key{"pages", "missing"}))

	value, ok := c.Get(Key{"pages", "A"})
	require.True(t, ok, "invalidated values stay readable")
	require.Equal(t, "v1", value)

	value, err = Fetch(context.Background(), c, Key{"pages", "A"}, counter(&calls, "v2"), opts)
	require.NoError(t, err)
	require.Equal(t, "v2", value)
	require.Equal(t, int32(2), calls.Load())
}

func TestInvalidatePrefix(t *testing.T) {
	c := newCache(t)
	c.SetValue(Key{"sidebar-pages", "S1", "", "1"}, "a")
	c.SetValue(Key{"sidebar-pages", "S1", "", "2"}, "b")
	c.SetValue(Key{"sidebar-pages", "S1", "P", "1"}, "c")
	c.SetValue(Key{"pages", "A"}, "d")

	require.Equal(t, 2, c.InvalidatePrefix(Key{"sidebar-pages", "S1", ""}))
	require.Equal(t, 3, c.InvalidatePrefix(Key{"sidebar-pages"}))
	require.Equal(t, 4, c.Len())

	var calls atomic.Int32
	_, err := Fetch(context.Background(), c, Key{"pages", "A"}, counter(&calls, "x"), Options{StaleTime: time.Hour})
	require.NoError(t, err)
	require.Zero(t, calls.Load(), "unrelated keys stay fresh")
}

func TestRemoveAndClear(t *testing.T) {
	c := newCache(t)
	c.SetValue(Key{"a"}, 1)
	c.SetValue(Key{"b"}, 2)

	require.True(t, c.Remove(Key{"a"}))
	require.False(t, c.Remove(Key{"a"}))
	require.Equal(t, 1, c.Len())

	c.Clear()
	require.Zero(t, c.Len())
}

func TestEviction(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)
	defer c.Close()

	c.SetValue(Key{"a"}, 1)
	c.SetValue(Key{"b"}, 2)
	c.SetValue(Key{"c"}, 3)

	_, ok := c.Get(Key{"a"})
	require.False(t, ok, "least recently used key is evicted")
	require.Equal(t, 2, c.Len())
}

func TestSubscribe(t *testing.T) {
	c := newCache(t)
	var mu sync.Mutex
	var events []Event
	unsubscribe := c.Subscribe(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	c.SetValue(Key{"pages", "A"}, "v")
	c.Invalidate(Key{"pages", "A"})
	c.Remove(Key{"pages", "A"})
	_, err := Fetch(context.Background(), c, Key{"pages", "B"}, func(context.Context) (string, error) { return "b", nil }, Options{})
	require.NoError(t, err)

	unsubscribe()
	unsubscribe()
	c.SetValue(Key{"pages", "C"}, "ignored")

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []Event{
		{Type: EventUpdated, Key: Key{"pages", "A"}},
		{Type: EventInvalidated, Key: Key{"pages", "A"}},
		{Type: EventRemoved, Key: Key{"pages", "A"}},
		{Type: EventUpdated, Key: Key{"pages", "B"}},
	}, events)
	require.Equal(t, "invalidated", EventInvalidated.String())
}

func TestClose(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	c.SetValue(Key{"a"}, 1)
	require.NoError(t, c.Close())
	require.Zero(t, c.Len())

	_, err = Fetch(context.Background(), c, Key{"a"}, func(context.Context) (int, error) { return 1, nil }, Options{})
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseCancelsRunningProducer(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Fetch(context.Background(), c, Key{"slow"}, func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		}, Options{})
		done <- err
	}()

	<-started
	require.NoError(t, c.Close())
	require.ErrorIs(t, <-done, context.Canceled)
}
