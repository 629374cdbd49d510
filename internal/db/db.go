package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Project-Sylos/Canopy/internal/types"
	_ "github.com/marcboeker/go-duckdb"
)

// maxAncestorDepth bounds ancestor walks so a corrupted parent chain cannot loop forever
const maxAncestorDepth = 1024

// DB wraps a DuckDB connection and provides CRUD operations on the pages table
type DB struct {
	conn *sql.DB
	mu   sync.Mutex // Protects all database operations from concurrent access
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// New opens the database at dbPath and initializes the schema. ":memory:" or
// an empty path opens an in-memory database.
func New(dbPath string) (*DB, error) {
	if dbPath == ":memory:" {
		dbPath = ""
	}

	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.InitializeSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitializeSchema creates the pages table if it does not exist
func (db *DB) InitializeSchema() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(BuildPagesTableSQL()); err != nil {
		return fmt.Errorf("failed to create pages table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func scanPage(row rowScanner) (*types.Page, error) {
	page := &types.Page{}
	err := row.Scan(
		&page.ID,
		&page.SpaceID,
		&page.ParentPageID,
		&page.Title,
		&page.Icon,
		&page.Content,
		&page.ContentChecksum,
		&page.Position,
		&page.CreatedAt,
		&page.UpdatedAt,
		&page.HasChildren,
	)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func scanPages(rows *sql.Rows) ([]types.Page, error) {
	defer rows.Close()

	pages := make([]types.Page, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}
	return pages, nil
}

func pageValues(page *types.Page) []any {
	return []any{
		page.ID,
		page.SpaceID,
		page.ParentPageID,
		page.Title,
		page.Icon,
		page.Content,
		page.ContentChecksum,
		page.Position,
		page.CreatedAt,
		page.UpdatedAt,
	}
}

func insertPageSQL() string {
	return fmt.Sprintf("INSERT INTO pages (%s) VALUES (%s)",
		strings.Join(pageColumns, ", "),
		placeholders(len(pageColumns)))
}

// InsertPage inserts a new page at its position; siblings at or after it move down by one
func (db *DB) InsertPage(page *types.Page) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	shift := `UPDATE pages SET position = position + 1
WHERE space_id = ? AND parent_page_id = ? AND position >= ?`
	if _, err := tx.Exec(shift, page.SpaceID, page.ParentPageID, page.Position); err != nil {
		return fmt.Errorf("failed to shift siblings of %s: %w", page.ID, err)
	}

	if _, err := tx.Exec(insertPageSQL(), pageValues(page)...); err != nil {
		return fmt.Errorf("failed to insert page %s: %w", page.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// BulkInsertPages inserts multiple pages in a single transaction
func (db *DB) BulkInsertPages(pages []*types.Page) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(pages) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertPageSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, page := range pages {
		if _, err := stmt.Exec(pageValues(page)...); err != nil {
			return fmt.Errorf("failed to insert page %s: %w", page.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPageByID retrieves a page by its ID
func (db *DB) GetPageByID(id string) (*types.Page, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.getPageLocked(id)
}

func (db *DB) getPageLocked(id string) (*types.Page, error) {
	row := db.conn.QueryRow(selectPageSQL()+" WHERE p.id = ?", id)
	page, err := scanPage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("page %s: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get page %s: %w", id, err)
	}
	return page, nil
}

// ListChildren returns one batch of the children of parentID ("" for roots)
// in spaceID, ordered by position. Pages are numbered from 1.
func (db *DB) ListChildren(spaceID, parentID string, page, limit int) (*types.PageList, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = types.DefaultPageSize
	}

	// Fetch one extra row to learn whether another batch follows
	query := selectPageSQL() + `
WHERE p.space_id = ? AND p.parent_page_id = ?
ORDER BY p.position, p.created_at, p.id
LIMIT ? OFFSET ?`

	rows, err := db.conn.Query(query, spaceID, parentID, limit+1, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query children of %q in space %s: %w", parentID, spaceID, err)
	}
	items, err := scanPages(rows)
	if err != nil {
		return nil, err
	}

	hasNext := len(items) > limit
	if hasNext {
		items = items[:limit]
	}

	return &types.PageList{
		Items: items,
		Meta: types.PaginationMeta{
			Page:        page,
			Limit:       limit,
			HasNextPage: hasNext,
			HasPrevPage: page > 1,
		},
	}, nil
}

// NextPosition returns the position after the last child of parentID
func (db *DB) NextPosition(spaceID, parentID string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var next int
	query := "SELECT COALESCE(MAX(position) + 1, 0) FROM pages WHERE space_id = ? AND parent_page_id = ?"
	if err := db.conn.QueryRow(query, spaceID, parentID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next position under %q: %w", parentID, err)
	}
	return next, nil
}

// UpdatePage writes the editable fields of page
func (db *DB) UpdatePage(page *types.Page) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	query := `UPDATE pages SET title = ?, icon = ?, content = ?, content_checksum = ?, updated_at = ? WHERE id = ?`
	result, err := db.conn.Exec(query, page.Title, page.Icon, page.Content, page.ContentChecksum, page.UpdatedAt, page.ID)
	if err != nil {
		return fmt.Errorf("failed to update page %s: %w", page.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("page %s: %w", page.ID, types.ErrNotFound)
	}
	return nil
}

// MovePage reparents a page and places it at position, shifting the siblings
// at or after position one slot down.
func (db *DB) MovePage(id, parentID string, position int, updatedAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	page, err := db.getPageLocked(id)
	if err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	shift := `UPDATE pages SET position = position + 1
WHERE space_id = ? AND parent_page_id = ? AND position >= ? AND id <> ?`
	if _, err := tx.Exec(shift, page.SpaceID, parentID, position, id); err != nil {
		return fmt.Errorf("failed to shift siblings of %s: %w", id, err)
	}

	move := `UPDATE pages SET parent_page_id = ?, position = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.Exec(move, parentID, position, updatedAt, id); err != nil {
		return fmt.Errorf("failed to move page %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAncestors returns the chain from the space root down to id, inclusive
func (db *DB) GetAncestors(id string) ([]types.Page, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	query := `
WITH RECURSIVE ancestors(id, parent_page_id, depth) AS (
	SELECT id, parent_page_id, 0 FROM pages WHERE id = ?
	UNION ALL
	SELECT pp.id, pp.parent_page_id, a.depth + 1
	FROM pages pp JOIN ancestors a ON pp.id = a.parent_page_id
	WHERE a.depth < ?
)
` + selectPageSQL() + `
JOIN ancestors a ON p.id = a.id
ORDER BY a.depth DESC`

	rows, err := db.conn.Query(query, id, maxAncestorDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to query ancestors of %s: %w", id, err)
	}
	pages, err := scanPages(rows)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("page %s: %w", id, types.ErrNotFound)
	}
	return pages, nil
}

// DeletePageTree deletes a page and all of its descendants, returning how many rows were removed
func (db *DB) DeletePageTree(id string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	query := `
WITH RECURSIVE subtree(id) AS (
	SELECT id FROM pages WHERE id = ?
	UNION
	SELECT pp.id FROM pages pp JOIN subtree s ON pp.parent_page_id = s.id
)
SELECT id FROM subtree`

	rows, err := db.conn.Query(query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to collect subtree of %s: %w", id, err)
	}
	var ids []any
	for rows.Next() {
		var childID string
		if err := rows.Scan(&childID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan subtree id: %w", err)
		}
		ids = append(ids, childID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating subtree: %w", err)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("page %s: %w", id, types.ErrNotFound)
	}

	result, err := db.conn.Exec("DELETE FROM pages WHERE id IN ("+placeholders(len(ids))+")", ids...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete page %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// RecentPages returns the most recently updated pages, optionally limited to one space
func (db *DB) RecentPages(spaceID string, limit int) ([]types.Page, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	query := selectPageSQL()
	args := []any{}
	if spaceID != "" {
		query += " WHERE p.space_id = ?"
		args = append(args, spaceID)
	}
	query += " ORDER BY p.updated_at DESC, p.id LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent pages: %w", err)
	}
	return scanPages(rows)
}

// DeleteAllPages removes all pages (for Reset)
func (db *DB) DeleteAllPages() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec("DELETE FROM pages"); err != nil {
		return fmt.Errorf("failed to delete from pages table: %w", err)
	}
	return nil
}

// GetPageCount returns the number of pages in a space, or in all spaces when spaceID is empty
func (db *DB) GetPageCount(spaceID string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	query := "SELECT COUNT(*) FROM pages"
	args := []any{}
	if spaceID != "" {
		query += " WHERE space_id = ?"
		args = append(args, spaceID)
	}

	var count int
	if err := db.conn.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}

// GetTableInfo returns the page count per space
func (db *DB) GetTableInfo() ([]types.TableInfo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query("SELECT space_id, COUNT(*) FROM pages GROUP BY space_id ORDER BY space_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query space counts: %w", err)
	}
	defer rows.Close()

	var tables []types.TableInfo
	for rows.Next() {
		var info types.TableInfo
		if err := rows.Scan(&info.Name, &info.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan space count: %w", err)
		}
		tables = append(tables, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating space counts: %w", err)
	}
	return tables, nil
}
