// Package querycache is a keyed cache for the results of remote reads.
//
// Each key holds at most one value. Fetch serves a fresh value from memory,
// otherwise runs the producer; concurrent Fetch calls for the same key share a
// single producer call and all receive its result. Failed producer calls are
// returned to every waiting caller and never stored, so the next Fetch retries.
//
// Producers run detached from the caller's context: a caller that gives up
// gets ctx.Err() while the fetch completes and fills the cache for the next
// caller. Producers are cancelled when the cache is closed.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by Fetch after Close
var ErrClosed = errors.New("querycache: closed")

// Key identifies a cached query, e.g. ["pages", "<id>"]
type Key []string

// String returns the flat form used for storage and deduplication
func (k Key) String() string {
	return strings.Join(k, "\x1f")
}

// HasPrefix reports whether k starts with every element of prefix
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Options control freshness for one Fetch call
type Options struct {
	// StaleTime is how long a stored value is served without refetching. Zero
	// means every Fetch goes to the producer.
	StaleTime time.Duration
	// ServeStale returns an expired value immediately and refreshes it in the background.
	ServeStale bool
}

// EventType describes a change to a cached key
type EventType int

const (
	EventUpdated EventType = iota
	EventInvalidated
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventUpdated:
		return "updated"
	case EventInvalidated:
		return "invalidated"
	case EventRemoved:
		return "removed"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is delivered to subscribers after a key changes
type Event struct {
	Type EventType
	Key  Key
}

type entry struct {
	key         Key
	value       any
	updatedAt   time.Time
	invalidated bool
}

// Cache is safe for concurrent use. Create it with New and release it with Close.
type Cache struct {
	mu     sync.Mutex
	store  *lru.Cache[string, *entry]
	group  singleflight.Group
	now    func() time.Time
	logger zerolog.Logger

	subsMu  sync.RWMutex
	subs    map[int]func(Event)
	nextSub int

	waiting atomic.Int64
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger used for background refresh failures
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a cache holding at most maxEntries keys; the least recently used
// key is evicted first.
func New(maxEntries int, opts ...Option) (*Cache, error) {
	store, err := lru.New[string, *entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		store:  store,
		now:    time.Now,
		logger: zerolog.Nop(),
		subs:   make(map[int]func(Event)),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch returns the value cached under key, running producer when the value is
// missing, invalidated or older than opts.StaleTime.
func Fetch[T any](ctx context.Context, c *Cache, key Key, producer func(context.Context) (T, error), opts Options) (T, error) {
	var zero T
	if c.ctx.Err() != nil {
		return zero, ErrClosed
	}

	run := func(ctx context.Context) (any, error) {
		return producer(ctx)
	}

	if value, ok, fresh := c.lookup(key, opts.StaleTime); ok {
		if fresh {
			return cast[T](key, value)
		}
		if opts.ServeStale {
			c.revalidate(ctx, key, run)
			return cast[T](key, value)
		}
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.run(ctx, key, run)
	})

	c.waiting.Add(1)
	defer c.waiting.Add(-1)

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return cast[T](key, res.Val)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func cast[T any](key Key, value any) (T, error) {
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("querycache: key %q holds %T, not %T", key.String(), value, zero)
	}
	return typed, nil
}

// lookup reports whether key is stored and whether it is still fresh
func (c *Cache) lookup(key Key, staleTime time.Duration) (any, bool, bool) {
	e, ok := c.store.Get(key.String())
	if !ok {
		return nil, false, false
	}
	fresh := !e.invalidated && c.now().Sub(e.updatedAt) < staleTime
	return e.value, true, fresh
}

// run executes one producer call and stores its result
func (c *Cache) run(ctx context.Context, key Key, producer func(context.Context) (any, error)) (any, error) {
	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	value, err := producer(pctx)
	if err != nil {
		return nil, err
	}
	if c.ctx.Err() != nil {
		return value, nil
	}

	c.mu.Lock()
	c.store.Add(key.String(), &entry{key: key, value: value, updatedAt: c.now()})
	c.mu.Unlock()

	c.publish(Event{Type: EventUpdated, Key: key})
	return value, nil
}

// revalidate refreshes key in the background, sharing any flight already running
func (c *Cache) revalidate(ctx context.Context, key Key, producer func(context.Context) (any, error)) {
	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.run(ctx, key, producer)
	})
	go func() {
		if res := <-ch; res.Err != nil {
			c.logger.Warn().Err(res.Err).Str("key", key.String()).Msg("background refresh failed")
		}
	}()
}

// Get returns the stored value for key regardless of freshness
func (c *Cache) Get(key Key) (any, bool) {
	e, ok := c.store.Peek(key.String())
	if !ok {
		return nil, false
	}
	return e.value, true
}

// UpdatedAt returns when key was last stored
func (c *Cache) UpdatedAt(key Key) (time.Time, bool) {
	e, ok := c.store.Peek(key.String())
	if !ok {
		return time.Time{}, false
	}
	return e.updatedAt, true
}

// SetValue stores value under key as fresh data
func (c *Cache) SetValue(key Key, value any) {
	c.mu.Lock()
	c.store.Add(key.String(), &entry{key: key, value: value, updatedAt: c.now()})
	c.mu.Unlock()

	c.publish(Event{Type: EventUpdated, Key: key})
}

// Invalidate marks key stale so the next Fetch runs its producer. The stored
// value stays available to ServeStale callers.
func (c *Cache) Invalidate(key Key) bool {
	c.mu.Lock()
	ok := c.invalidateLocked(key.String())
	c.mu.Unlock()

	if ok {
		c.publish(Event{Type: EventInvalidated, Key: key})
	}
	return ok
}

// InvalidatePrefix marks every key starting with prefix stale and returns how many were marked
func (c *Cache) InvalidatePrefix(prefix Key) int {
	var marked []Key

	c.mu.Lock()
	for _, k := range c.store.Keys() {
		e, ok := c.store.Peek(k)
		if !ok || !e.key.HasPrefix(prefix) {
			continue
		}
		if c.invalidateLocked(k) {
			marked = append(marked, e.key)
		}
	}
	c.mu.Unlock()

	for _, key := range marked {
		c.publish(Event{Type: EventInvalidated, Key: key})
	}
	return len(marked)
}

func (c *Cache) invalidateLocked(k string) bool {
	e, ok := c.store.Peek(k)
	if !ok {
		return false
	}
	copied := *e
	copied.invalidated = true
	c.store.Add(k, &copied)
	return true
}

// Remove deletes key from the cache
func (c *Cache) Remove(key Key) bool {
	c.mu.Lock()
	ok := c.store.Remove(key.String())
	c.mu.Unlock()

	if ok {
		c.publish(Event{Type: EventRemoved, Key: key})
	}
	return ok
}

// Len returns the number of stored keys
func (c *Cache) Len() int {
	return c.store.Len()
}

// Waiting returns how many Fetch callers are blocked on a producer call
func (c *Cache) Waiting() int {
	return int(c.waiting.Load())
}

// Clear removes every key without notifying subscribers
func (c *Cache) Clear() {
	c.mu.Lock()
	c.store.Purge()
	c.mu.Unlock()
}

// Subscribe registers fn for every change event and returns a function that
// unregisters it. fn runs synchronously on the goroutine that made the change
// and must not block.
func (c *Cache) Subscribe(fn func(Event)) func() {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			c.subsMu.Unlock()
		})
	}
}

func (c *Cache) publish(event Event) {
	c.subsMu.RLock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}

// Close cancels running producers, drops all keys and subscribers. Fetch
// returns ErrClosed afterwards.
func (c *Cache) Close() error {
	c.cancel()

	c.subsMu.Lock()
	c.subs = make(map[int]func(Event))
	c.subsMu.Unlock()

	c.Clear()
	return nil
}
