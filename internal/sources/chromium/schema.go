package chromium

// bookmarksFile is the root of a Chromium "Bookmarks" profile file.
// Roots is keyed by "bookmark_bar", "other" and "synced".
type bookmarksFile struct {
	Roots map[string]bookmarkNode `json:"roots"`
}

// bookmarkNode is one entry of the tree. Type is "url" for leaves and
// "folder" for containers. DateAdded is microseconds since 1601-01-01 encoded
// as a decimal string.
type bookmarkNode struct {
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	URL       string         `json:"url"`
	DateAdded string         `json:"date_added"`
	Children  []bookmarkNode `json:"children"`
}
