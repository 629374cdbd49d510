package pagecache

import (
	"context"
	"sync"

	"github.com/Project-Sylos/Canopy/internal/querycache"
	"github.com/Project-Sylos/Canopy/internal/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// InfiniteData is the cached state of a page stream: the loaded batches in
// ascending page order. Stored values are never modified.
type InfiniteData struct {
	Pages []types.PageList
}

// InfiniteQuery loads the batches of one scope on demand in both directions.
// Its state lives in the query cache under ["root-sidebar-pages", space, parent].
type InfiniteQuery struct {
	cache *Cache
	scope types.ScopeKey
	key   querycache.Key

	mu    sync.Mutex
	group singleflight.Group
}

// Scope returns the scope the stream lists
func (q *InfiniteQuery) Scope() types.ScopeKey {
	return q.scope
}

func (q *InfiniteQuery) data() *InfiniteData {
	value, ok := q.cache.queries.Get(q.key)
	if !ok {
		return nil
	}
	data, _ := value.(*InfiniteData)
	return data
}

func (q *InfiniteQuery) fetchBatch(ctx context.Context, pageNumber int) (*types.PageList, error) {
	return q.cache.remote.GetSidebarPages(ctx, q.cache.params(q.scope, pageNumber))
}

// Fetch returns the stream state, loading it when missing, invalidated or
// stale. A stream that is reloaded keeps its loaded batches: each of them is
// fetched again.
func (q *InfiniteQuery) Fetch(ctx context.Context) (*InfiniteData, error) {
	if err := validateScope(q.scope, 1); err != nil {
		return nil, err
	}
	return querycache.Fetch(ctx, q.cache.queries, q.key, func(ctx context.Context) (*InfiniteData, error) {
		return q.load(ctx, q.loadedPageNumbers())
	}, q.cache.listOptions())
}

func (q *InfiniteQuery) loadedPageNumbers() []int {
	loaded := q.Pages()
	if len(loaded) == 0 {
		return []int{1}
	}
	numbers := make([]int, 0, len(loaded))
	for _, batch := range loaded {
		numbers = append(numbers, batch.Meta.Page)
	}
	return numbers
}

// load fetches the given batches concurrently
func (q *InfiniteQuery) load(ctx context.Context, numbers []int) (*InfiniteData, error) {
	pages := make([]types.PageList, len(numbers))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range numbers {
		i, n := i, n
		g.Go(func() error {
			batch, err := q.fetchBatch(gctx, n)
			if err != nil {
				return err
			}
			pages[i] = *batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &InfiniteData{Pages: pages}, nil
}

// HasNextPage reports whether the last loaded batch has a successor
func (q *InfiniteQuery) HasNextPage() bool {
	data := q.data()
	if data == nil || len(data.Pages) == 0 {
		return false
	}
	return data.Pages[len(data.Pages)-1].Meta.HasNextPage
}

// HasPreviousPage reports whether the first loaded batch has a predecessor
func (q *InfiniteQuery) HasPreviousPage() bool {
	data := q.data()
	if data == nil || len(data.Pages) == 0 {
		return false
	}
	first := data.Pages[0].Meta
	return first.HasPrevPage && first.Page > 1
}

// FetchNextPage appends the batch after the last loaded one and returns it.
// It loads the first batch when nothing is loaded yet, and returns nil
// without a remote call when there is no next batch. Concurrent calls share
// one request.
func (q *InfiniteQuery) FetchNextPage(ctx context.Context) (*types.PageList, error) {
	return q.extend(ctx, "next", func(data *InfiniteData) (int, bool) {
		last := data.Pages[len(data.Pages)-1].Meta
		return last.Page + 1, last.HasNextPage
	}, func(pages []types.PageList, batch types.PageList) []types.PageList {
		return append(pages, batch)
	})
}

// FetchPreviousPage prepends the batch before the first loaded one and
// returns it, or nil when the first batch has no predecessor.
func (q *InfiniteQuery) FetchPreviousPage(ctx context.Context) (*types.PageList, error) {
	return q.extend(ctx, "previous", func(data *InfiniteData) (int, bool) {
		first := data.Pages[0].Meta
		return first.Page - 1, first.HasPrevPage && first.Page > 1
	}, func(pages []types.PageList, batch types.PageList) []types.PageList {
		return append([]types.PageList{batch}, pages...)
	})
}

func (q *InfiniteQuery) extend(
	ctx context.Context,
	direction string,
	target func(*InfiniteData) (int, bool),
	merge func([]types.PageList, types.PageList) []types.PageList,
) (*types.PageList, error) {
	if q.data() == nil {
		data, err := q.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		first := data.Pages[0]
		return &first, nil
	}

	ch := q.group.DoChan(direction, func() (any, error) {
		data := q.data()
		if data == nil || len(data.Pages) == 0 {
			return (*types.PageList)(nil), nil
		}
		pageNumber, ok := target(data)
		if !ok {
			return (*types.PageList)(nil), nil
		}

		batch, err := q.fetchBatch(context.WithoutCancel(ctx), pageNumber)
		if err != nil {
			return nil, err
		}

		q.mu.Lock()
		defer q.mu.Unlock()
		// Merge into the latest state; a concurrent fetch in the other direction may have stored since
		current := q.data()
		if current == nil {
			current = &InfiniteData{}
		}
		pages := merge(append([]types.PageList(nil), current.Pages...), *batch)
		q.cache.queries.SetValue(q.key, &InfiniteData{Pages: pages})
		return batch, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.PageList), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pages returns the loaded batches in page order
func (q *InfiniteQuery) Pages() []types.PageList {
	data := q.data()
	if data == nil {
		return nil
	}
	return append([]types.PageList(nil), data.Pages...)
}

// Items returns the items of every loaded batch in order. A page id seen in
// an earlier batch is skipped in later ones.
func (q *InfiniteQuery) Items() []types.Page {
	seen := make(map[string]struct{})
	items := make([]types.Page, 0)
	for _, batch := range q.Pages() {
		for _, page := range batch.Items {
			if _, dup := seen[page.ID]; dup {
				continue
			}
			seen[page.ID] = struct{}{}
			items = append(items, page)
		}
	}
	return items
}

// Refetch reloads every loaded batch regardless of freshness and replaces
// the stream state. With nothing loaded it loads the first batch.
func (q *InfiniteQuery) Refetch(ctx context.Context) (*InfiniteData, error) {
	if err := validateScope(q.scope, 1); err != nil {
		return nil, err
	}

	data, err := q.load(ctx, q.loadedPageNumbers())
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	q.cache.queries.SetValue(q.key, data)
	q.mu.Unlock()
	return data, nil
}
