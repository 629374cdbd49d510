package pagecache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Project-Sylos/Canopy/internal/types"
)

// fakeRemote is an in-memory RemoteStore that counts calls
type fakeRemote struct {
	mu      sync.Mutex
	pages   map[string]types.Page
	order   []string
	calls   map[string]int
	failing map[string]error
	block   chan struct{}
	nextID  int
}

func newFakeRemote(pages ...types.Page) *fakeRemote {
	f := &fakeRemote{
		pages:   make(map[string]types.Page),
		calls:   make(map[string]int),
		failing: make(map[string]error),
	}
	for _, p := range pages {
		f.pages[p.ID] = p
		f.order = append(f.order, p.ID)
	}
	return f
}

func (f *fakeRemote) record(method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.failing[method]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return err
}

func (f *fakeRemote) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRemote) fail(method string, err error) {
	f.mu.Lock()
	f.failing[method] = err
	f.mu.Unlock()
}

func (f *fakeRemote) hasChildren(id string) bool {
	for _, p := range f.pages {
		if p.ParentPageID == id {
			return true
		}
	}
	return false
}

func (f *fakeRemote) GetPageByID(ctx context.Context, id string) (*types.Page, error) {
	if err := f.record("GetPageByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, types.ErrNotFound)
	}
	p.HasChildren = f.hasChildren(id)
	return &p, nil
}

func (f *fakeRemote) GetSidebarPages(ctx context.Context, params types.SidebarPagesParams) (*types.PageList, error) {
	if err := f.record("GetSidebarPages"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var children []types.Page
	for _, id := range f.order {
		p, ok := f.pages[id]
		if !ok || p.SpaceID != params.SpaceID || p.ParentPageID != params.ParentPageID {
			continue
		}
		p.HasChildren = f.hasChildren(p.ID)
		children = append(children, p)
	}
	sort.SliceStable(children, func(i, j int) bool { return children[i].Position < children[j].Position })

	limit := params.Limit
	if limit <= 0 {
		limit = types.DefaultPageSize
	}
	start := (params.Page - 1) * limit
	end := start + limit
	if start > len(children) {
		start = len(children)
	}
	if end > len(children) {
		end = len(children)
	}

	return &types.PageList{
		Items: append([]types.Page{}, children[start:end]...),
		Meta: types.PaginationMeta{
			Page:        params.Page,
			Limit:       limit,
			HasNextPage: end < len(children),
			HasPrevPage: params.Page > 1,
		},
	}, nil
}

func (f *fakeRemote) GetRecentChanges(ctx context.Context, spaceID string) ([]types.Page, error) {
	if err := f.record("GetRecentChanges"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Page
	for _, id := range f.order {
		if p, ok := f.pages[id]; ok && p.SpaceID == spaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRemote) GetPageBreadcrumbs(ctx context.Context, id string) ([]types.Page, error) {
	if err := f.record("GetPageBreadcrumbs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var chain []types.Page
	for cur := id; cur != ""; {
		p, ok := f.pages[cur]
		if !ok {
			return nil, fmt.Errorf("page %s: %w", cur, types.ErrNotFound)
		}
		chain = append([]types.Page{p}, chain...)
		cur = p.ParentPageID
	}
	return chain, nil
}

func (f *fakeRemote) CreatePage(ctx context.Context, page *types.Page) (*types.Page, error) {
	if err := f.record("CreatePage"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := *page
	created.ID = fmt.Sprintf("new-%d", f.nextID)
	f.pages[created.ID] = created
	f.order = append(f.order, created.ID)
	return &created, nil
}

func (f *fakeRemote) UpdatePage(ctx context.Context, page *types.Page) (*types.Page, error) {
	if err := f.record("UpdatePage"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pages[page.ID]; !ok {
		return nil, fmt.Errorf("page %s: %w", page.ID, types.ErrNotFound)
	}
	f.pages[page.ID] = *page
	updated := *page
	return &updated, nil
}

func (f *fakeRemote) DeletePage(ctx context.Context, id string) error {
	if err := f.record("DeletePage"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pages[id]; !ok {
		return fmt.Errorf("page %s: %w", id, types.ErrNotFound)
	}
	f.deleteTree(id)
	return nil
}

func (f *fakeRemote) deleteTree(id string) {
	delete(f.pages, id)
	for childID, p := range f.pages {
		if p.ParentPageID == id {
			f.deleteTree(childID)
		}
	}
}

func (f *fakeRemote) MovePage(ctx context.Context, req types.MovePageRequest) error {
	if err := f.record("MovePage"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[req.PageID]
	if !ok {
		return fmt.Errorf("page %s: %w", req.PageID, types.ErrNotFound)
	}
	p.ParentPageID = req.ParentPageID
	p.Position = req.Position
	f.pages[req.PageID] = p
	return nil
}
