package domain

import "time"

// Flatten walks the bookmark tree in pre-order and returns one record per
// leaf. Folder titles accumulate into FolderPath; untitled folders count as
// "Folder". The host tree is assumed acyclic and finite, so no cycle
// detection is performed.
func Flatten(nodes []Node) []BookmarkRecord {
	records := make([]BookmarkRecord, 0)
	flattenInto(&records, nodes, "")
	return records
}

func flattenInto(records *[]BookmarkRecord, nodes []Node, path string) {
	for _, node := range nodes {
		if node.IsLeaf() {
			*records = append(*records, BookmarkRecord{
				Title:      node.Title,
				URL:        node.URL,
				FolderPath: path,
				CreatedAt:  formatCreatedAt(node.CreatedAt),
			})
			continue
		}

		title := node.Title
		if title == "" {
			title = DefaultFolderTitle
		}

		childPath := title
		if path != "" {
			childPath = path + "/" + title
		}

		// A folder without a children list is simply empty.
		flattenInto(records, node.Children, childPath)
	}
}

func formatCreatedAt(t *time.Time) *string {
	if t == nil {
		return nil
	}
	iso := t.UTC().Format(time.RFC3339)
	return &iso
}
