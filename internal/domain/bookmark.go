package domain

import "time"

const (
	// DefaultIntervalMinutes is used when the stored auto-sync interval is
	// missing or not a positive integer.
	DefaultIntervalMinutes = 15

	// DefaultBrowserName and DefaultProfileName fill blank metadata fields.
	// The device fallback is runtime-dependent and supplied by the caller.
	DefaultBrowserName = "unknown"
	DefaultProfileName = "Default"

	// DefaultFolderTitle names a container that has no title of its own.
	DefaultFolderTitle = "Folder"
)

// Node is one node of the host bookmark tree. A node with a URL is a leaf
// bookmark; a node without one is a folder that may hold children.
type Node struct {
	Title     string
	URL       string
	CreatedAt *time.Time
	Children  []Node
}

// IsLeaf reports whether the node is a bookmark rather than a folder.
func (n Node) IsLeaf() bool { return n.URL != "" }

// BookmarkRecord is the flat wire representation of one leaf bookmark.
// FolderPath is the "/"-joined lineage of ancestor folder titles, empty for
// top-level bookmarks. CreatedAt is RFC3339 or null when unknown.
type BookmarkRecord struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	FolderPath string  `json:"folder_path"`
	CreatedAt  *string `json:"created_at"`
}

// SyncMetadata identifies the origin of one sync batch to the backend.
type SyncMetadata struct {
	BrowserName string `json:"browser_name"`
	DeviceName  string `json:"device_name"`
	ProfileName string `json:"profile_name"`
}

// ApplyDefaults replaces blank fields with their component defaults.
// fallbackDevice is used for a blank device name (typically the hostname).
func (m *SyncMetadata) ApplyDefaults(fallbackDevice string) {
	if m.BrowserName == "" {
		m.BrowserName = DefaultBrowserName
	}
	if m.DeviceName == "" {
		m.DeviceName = fallbackDevice
	}
	if m.ProfileName == "" {
		m.ProfileName = DefaultProfileName
	}
}

// SyncSettings is the persisted auto-sync preference pair.
type SyncSettings struct {
	Enabled         bool
	IntervalMinutes int
}

// Interval returns the schedule period, coercing invalid values to the default.
func (s SyncSettings) Interval() time.Duration {
	minutes := s.IntervalMinutes
	if minutes <= 0 {
		minutes = DefaultIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// SyncOutcome is the backend's report for one completed exchange.
type SyncOutcome struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}
