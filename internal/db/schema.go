package db

import "strings"

// pageColumns lists the stored page columns in scan order
var pageColumns = []string{
	"id",
	"space_id",
	"parent_page_id",
	"title",
	"icon",
	"content",
	"content_checksum",
	"position",
	"created_at",
	"updated_at",
}

// BuildPagesTableSQL returns the DDL for the pages table
func BuildPagesTableSQL() string {
	return `
CREATE TABLE IF NOT EXISTS pages (
	id VARCHAR PRIMARY KEY,
	space_id VARCHAR NOT NULL,
	parent_page_id VARCHAR NOT NULL DEFAULT '',
	title VARCHAR NOT NULL,
	icon VARCHAR NOT NULL DEFAULT '',
	content VARCHAR NOT NULL DEFAULT '',
	content_checksum VARCHAR NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`
}

// selectPageSQL returns a SELECT over pages aliased as p, including the
// computed has_children column
func selectPageSQL() string {
	cols := make([]string, 0, len(pageColumns)+1)
	for _, col := range pageColumns {
		cols = append(cols, "p."+col)
	}
	cols = append(cols, "EXISTS (SELECT 1 FROM pages c WHERE c.parent_page_id = p.id) AS has_children")
	return "SELECT " + strings.Join(cols, ", ") + " FROM pages p"
}

// placeholders returns n comma separated bind parameters
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
