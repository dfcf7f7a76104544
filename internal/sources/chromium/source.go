// Package chromium reads the Chromium family's JSON "Bookmarks" profile file.
package chromium

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/marksync/agent/internal/domain"
)

// windowsEpochOffsetSeconds is the gap between the Windows epoch (1601-01-01)
// used by Chromium's date_added and the Unix epoch.
const windowsEpochOffsetSeconds = 11644473600

// rootOrder fixes the traversal order of the top-level roots so collection
// output is stable across runs.
var rootOrder = []string{"bookmark_bar", "other", "synced"}

// Source reads one profile's Bookmarks file.
type Source struct {
	filePath string
}

// NewSource creates a chromium bookmark source for the given file.
func NewSource(filePath string) *Source {
	return &Source{filePath: filePath}
}

func (s *Source) Name() string { return "chromium" }

// Collect parses the Bookmarks file and flattens it. The children of the
// standard roots form the top level; the root folder names themselves do not
// appear in folder paths.
func (s *Source) Collect(ctx context.Context) ([]domain.BookmarkRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}

	var file bookmarksFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks file: %w", err)
	}

	var top []domain.Node
	for _, rootName := range rootOrder {
		root, ok := file.Roots[rootName]
		if !ok {
			continue
		}
		for _, child := range root.Children {
			top = append(top, mapNode(child))
		}
	}

	return domain.Flatten(top), nil
}

func mapNode(n bookmarkNode) domain.Node {
	node := domain.Node{
		Title:     n.Name,
		CreatedAt: parseDateAdded(n.DateAdded),
	}

	if n.Type == "url" {
		node.URL = n.URL
		return node
	}

	for _, child := range n.Children {
		node.Children = append(node.Children, mapNode(child))
	}
	return node
}

// parseDateAdded converts Chromium's microseconds-since-1601 string into a
// timestamp. "0", empty and malformed values map to nil.
func parseDateAdded(raw string) *time.Time {
	if raw == "" || raw == "0" {
		return nil
	}
	micros, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || micros <= 0 {
		return nil
	}

	seconds := micros/1_000_000 - windowsEpochOffsetSeconds
	nanos := (micros % 1_000_000) * 1000
	t := time.Unix(seconds, nanos).UTC()
	return &t
}
