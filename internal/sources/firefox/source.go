// Package firefox reads bookmark trees from a Firefox places.sqlite database.
package firefox

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/marksync/agent/internal/domain"
	"github.com/marksync/agent/internal/utils"
)

// moz_bookmarks type discriminators.
const (
	typeBookmark = 1
	typeFolder   = 2
)

// rootParentID is the id of the places root; its direct children are the
// standard root folders (menu, toolbar, unfiled, mobile).
const rootParentID = 1

type row struct {
	id        int64
	parent    int64
	position  int64
	rowType   int64
	title     string
	url       string
	dateAdded int64 // microseconds since the Unix epoch, 0 when unknown
}

// Source reads one profile's places.sqlite.
type Source struct {
	dbPath string
}

// NewSource creates a firefox bookmark source for the given database file.
func NewSource(dbPath string) *Source {
	return &Source{dbPath: dbPath}
}

func (s *Source) Name() string { return "firefox" }

// Collect opens the database read-only, rebuilds the bookmark tree from
// parent links and flattens it. The standard root folders form the top
// level; their names do not appear in folder paths.
func (s *Source) Collect(ctx context.Context) ([]domain.BookmarkRecord, error) {
	// immutable avoids fighting a running browser over the database lock.
	db, err := sql.Open("sqlite", "file:"+s.dbPath+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open places database: %w", err)
	}
	defer utils.Close(db)

	rows, err := db.QueryContext(ctx, `
		SELECT b.id, b.parent, b.position, b.type,
		       IFNULL(b.title, ''), IFNULL(p.url, ''), IFNULL(b.dateAdded, 0)
		FROM moz_bookmarks b
		LEFT JOIN moz_places p ON p.id = b.fk
		WHERE b.type IN (?, ?)`,
		typeBookmark, typeFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer utils.Close(rows)

	byParent := make(map[int64][]row)
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.parent, &r.position, &r.rowType, &r.title, &r.url, &r.dateAdded); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark row: %w", err)
		}
		byParent[r.parent] = append(byParent[r.parent], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}

	// The root folders themselves are containers under the places root; their
	// children are the top level of the user's tree.
	var top []domain.Node
	for _, rootFolder := range sorted(byParent[rootParentID]) {
		top = append(top, buildChildren(byParent, rootFolder.id)...)
	}

	return domain.Flatten(top), nil
}

func buildChildren(byParent map[int64][]row, parent int64) []domain.Node {
	children := byParent[parent]
	if len(children) == 0 {
		return nil
	}

	nodes := make([]domain.Node, 0, len(children))
	for _, r := range sorted(children) {
		node := domain.Node{
			Title:     r.title,
			CreatedAt: parseDateAdded(r.dateAdded),
		}
		if r.rowType == typeBookmark {
			if r.url == "" {
				continue
			}
			node.URL = r.url
		} else {
			node.Children = buildChildren(byParent, r.id)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func sorted(rows []row) []row {
	out := make([]row, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].position < out[j].position })
	return out
}

func parseDateAdded(micros int64) *time.Time {
	if micros <= 0 {
		return nil
	}
	t := time.Unix(micros/1_000_000, (micros%1_000_000)*1000).UTC()
	return &t
}
