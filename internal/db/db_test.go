package db

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Project-Sylos/Canopy/internal/types"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPage(id, parent string, pos int, at time.Time) *types.Page {
	return &types.Page{
		ID:           id,
		SpaceID:      "S1",
		ParentPageID: parent,
		Title:        "Page " + id,
		Position:     pos,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

// seed inserts A(B(D), C) and E as roots in S1
func seed(t *testing.T, db *DB) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pages := []*types.Page{
		testPage("A", "", 0, base),
		testPage("E", "", 1, base.Add(time.Minute)),
		testPage("B", "A", 0, base.Add(2*time.Minute)),
		testPage("C", "A", 1, base.Add(3*time.Minute)),
		testPage("D", "B", 0, base.Add(4*time.Minute)),
	}
	if err := db.BulkInsertPages(pages); err != nil {
		t.Fatalf("BulkInsertPages failed: %v", err)
	}
}

// TestNew tests opening file and in-memory databases
func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		dbPath func(t *testing.T) string
	}{
		{
			name:   "in-memory database",
			dbPath: func(t *testing.T) string { return ":memory:" },
		},
		{
			name: "file database",
			dbPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "canopy.db")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.dbPath(t)
			db, err := New(path)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer db.Close()

			if db.conn == nil {
				t.Fatalf("Expected database connection but got nil")
			}
			if path != ":memory:" {
				if _, err := os.Stat(path); err != nil {
					t.Errorf("Expected database file at %s: %v", path, err)
				}
			}
		})
	}
}

func TestGetPageByID(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)

	page, err := db.GetPageByID("A")
	if err != nil {
		t.Fatalf("GetPageByID failed: %v", err)
	}
	if page.Title != "Page A" {
		t.Errorf("Expected title 'Page A', got %q", page.Title)
	}
	if !page.HasChildren {
		t.Errorf("Expected A to report children")
	}

	leaf, err := db.GetPageByID("D")
	if err != nil {
		t.Fatalf("GetPageByID failed: %v", err)
	}
	if leaf.HasChildren {
		t.Errorf("Expected D to have no children")
	}

	if _, err := db.GetPageByID("missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListChildren(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)

	tests := []struct {
		name     string
		parent   string
		page     int
		limit    int
		wantIDs  []string
		wantNext bool
		wantPrev bool
	}{
		{name: "roots", parent: "", page: 1, limit: 10, wantIDs: []string{"A", "E"}},
		{name: "children of A", parent: "A", page: 1, limit: 10, wantIDs: []string{"B", "C"}},
		{name: "first batch", parent: "A", page: 1, limit: 1, wantIDs: []string{"B"}, wantNext: true},
		{name: "second batch", parent: "A", page: 2, limit: 1, wantIDs: []string{"C"}, wantPrev: true},
		{name: "past the end", parent: "A", page: 3, limit: 1, wantIDs: []string{}, wantPrev: true},
		{name: "leaf", parent: "D", page: 1, limit: 10, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := db.ListChildren("S1", tt.parent, tt.page, tt.limit)
			if err != nil {
				t.Fatalf("ListChildren failed: %v", err)
			}

			got := make([]string, 0, len(list.Items))
			for _, p := range list.Items {
				got = append(got, p.ID)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Expected %v, got %v", tt.wantIDs, got)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("Expected %v, got %v", tt.wantIDs, got)
					break
				}
			}
			if list.Meta.HasNextPage != tt.wantNext {
				t.Errorf("Expected HasNextPage=%v, got %v", tt.wantNext, list.Meta.HasNextPage)
			}
			if list.Meta.HasPrevPage != tt.wantPrev {
				t.Errorf("Expected HasPrevPage=%v, got %v", tt.wantPrev, list.Meta.HasPrevPage)
			}
		})
	}
}

func TestUpdatePage(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)

	page, err := db.GetPageByID("C")
	if err != nil {
		t.Fatalf("GetPageByID failed: %v", err)
	}
	page.Title = "Renamed"
	page.UpdatedAt = page.UpdatedAt.Add(time.Hour)
	if err := db.UpdatePage(page); err != nil {
		t.Fatalf("UpdatePage failed: %v", err)
	}

	updated, err := db.GetPageByID("C")
	if err != nil {
		t.Fatalf("GetPageByID failed: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("Expected title 'Renamed', got %q", updated.Title)
	}

	missing := testPage("missing", "", 0, time.Now())
	if err := db.UpdatePage(missing); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNextPositionAndMove(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)

	next, err := db.NextPosition("S1", "A")
	if err != nil {
		t.Fatalf("NextPosition failed: %v", err)
	}
	if next != 2 {
		t.Errorf("Expected next position 2, got %d", next)
	}
	if next, _ := db.NextPosition("S1", "D"); next != 0 {
		t.Errorf("Expected next position 0 for leaf, got %d", next)
	}

	// Move E in front of B under A
	if err := db.MovePage("E", "A", 0, time.Now()); err != nil {
		t.Fatalf("MovePage failed: %v", err)
	}

	list, err := db.ListChildren("S1", "A", 1, 10)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	want := []string{"E", "B", "C"}
	if len(list.Items) != len(want) {
		t.Fatalf("Expected %d children, got %d", len(want), len(list.Items))
	}
	for i, p := range list.Items {
		if p.ID != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], p.ID)
		}
	}

	if err := db.MovePage("missing", "A", 0, time.Now()); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetAncestors(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)

	chain, err := db.GetAncestors("D")
	if err != nil {
		t.Fatalf("GetAncestors failed: %v", err)
	}
	want := []string{"A", "B", "D"}
	if len(chain) != len(want) {
		t.Fatalf("Expected %v, got %d pages", want, len(chain))
	}
	for i, p := range chain {
		if p.ID != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], p.ID)
		}
	}

	root, err := db.GetAncestors("A")
	if err != nil {
		t.Fatalf("GetAncestors failed: %v", err)
	}
	if len(root) != 1 || root[0].ID != "A" {
		t.Errorf("Expected [A], got %v", root)
	}

	if _, err := db.GetAncestors("missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeletePageTree(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)

	deleted, err := db.DeletePageTree("A")
	if err != nil {
		t.Fatalf("DeletePageTree failed: %v", err)
	}
	if deleted != 4 {
		t.Errorf("Expected 4 pages deleted, got %d", deleted)
	}

	count, err := db.GetPageCount("S1")
	if err != nil {
		t.Fatalf("GetPageCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 page left, got %d", count)
	}

	if _, err := db.DeletePageTree("A"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRecentPagesAndCounts(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)

	other := testPage("X", "", 0, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	other.SpaceID = "S2"
	if err := db.InsertPage(other); err != nil {
		t.Fatalf("InsertPage failed: %v", err)
	}

	recent, err := db.RecentPages("S1", 2)
	if err != nil {
		t.Fatalf("RecentPages failed: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "D" || recent[1].ID != "C" {
		t.Errorf("Expected [D C], got %v", recent)
	}

	all, err := db.RecentPages("", 1)
	if err != nil {
		t.Fatalf("RecentPages failed: %v", err)
	}
	if len(all) != 1 || all[0].ID != "X" {
		t.Errorf("Expected [X], got %v", all)
	}

	tables, err := db.GetTableInfo()
	if err != nil {
		t.Fatalf("GetTableInfo failed: %v", err)
	}
	if len(tables) != 2 || tables[0].Name != "S1" || tables[0].RowCount != 5 {
		t.Errorf("Unexpected table info: %v", tables)
	}

	if err := db.DeleteAllPages(); err != nil {
		t.Fatalf("DeleteAllPages failed: %v", err)
	}
	if count, _ := db.GetPageCount(""); count != 0 {
		t.Errorf("Expected empty table, got %d pages", count)
	}
}

func TestInsertPageShiftsSiblings(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)

	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := db.InsertPage(testPage("F", "A", 1, at)); err != nil {
		t.Fatalf("InsertPage failed: %v", err)
	}

	list, err := db.ListChildren("S1", "A", 1, 10)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	want := []string{"B", "F", "C"}
	if len(list.Items) != len(want) {
		t.Fatalf("Expected %d children, got %d", len(want), len(list.Items))
	}
	for i, p := range list.Items {
		if p.ID != want[i] || p.Position != i {
			t.Errorf("Position %d: expected %s, got %s at %d", i, want[i], p.ID, p.Position)
		}
	}

	// Roots are untouched
	e, err := db.GetPageByID("E")
	if err != nil {
		t.Fatalf("GetPageByID failed: %v", err)
	}
	if e.Position != 1 {
		t.Errorf("Expected E to stay at position 1, got %d", e.Position)
	}
}
