// Package homepage reads Homepage-style bookmarks.yaml files, so homelab
// bookmark collections can be synced to the same backend as browser trees.
package homepage

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/marksync/agent/internal/domain"
)

// Source reads one bookmarks.yaml file.
type Source struct {
	filePath string
}

// NewSource creates a homepage bookmark source for the given file.
func NewSource(filePath string) *Source {
	return &Source{filePath: filePath}
}

func (s *Source) Name() string { return "homepage" }

// Collect parses the YAML file and flattens it. Categories become folders;
// entries become leaves. Homepage files carry no creation timestamps, so
// created_at is always null.
func (s *Source) Collect(ctx context.Context) ([]domain.BookmarkRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}

	// Strip Homepage template variables ({{HOMEPAGE_VAR_...}})
	data = stripTemplateVariables(data)

	var config BookmarksConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
	}

	return domain.Flatten(mapCategories(config)), nil
}

// mapCategories converts the parsed YAML into a bookmark tree: one container
// per category holding one leaf per entry.
func mapCategories(config BookmarksConfig) []domain.Node {
	var top []domain.Node

	for _, category := range config {
		for categoryName, bookmarkList := range category {
			folder := domain.Node{Title: categoryName}

			for _, bookmarkMap := range bookmarkList {
				for bookmarkName, entryList := range bookmarkMap {
					// Each bookmark has a list with a single entry
					if len(entryList) == 0 {
						continue
					}
					entry := entryList[0]

					if entry.Href == "" {
						continue
					}

					title := bookmarkName
					if entry.Abbr != "" {
						title = entry.Abbr
					}

					folder.Children = append(folder.Children, domain.Node{
						Title: title,
						URL:   entry.Href,
					})
				}
			}

			top = append(top, folder)
		}
	}

	return top
}

func stripTemplateVariables(data []byte) []byte {
	// Match {{...}} patterns
	re := regexp.MustCompile(`\{\{[^}]+\}\}`)
	return re.ReplaceAll(data, []byte(`""`))
}
