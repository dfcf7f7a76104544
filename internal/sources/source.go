// Package sources reads bookmark trees from host browser profiles and
// flattens them into wire records.
package sources

import (
	"context"
	"fmt"

	"github.com/marksync/agent/internal/domain"
	"github.com/marksync/agent/internal/sources/chromium"
	"github.com/marksync/agent/internal/sources/firefox"
	"github.com/marksync/agent/internal/sources/homepage"
)

// Supported bookmark file formats.
const (
	FormatChromium = "chromium"
	FormatFirefox  = "firefox"
	FormatHomepage = "homepage"
)

// Source reads the full bookmark tree from one host location and returns the
// flat, pre-order record sequence. Collect reads the tree fresh on every
// call; nothing is cached between passes.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]domain.BookmarkRecord, error)
}

// ForFormat returns the source for the given format and file path.
func ForFormat(format, path string) (Source, error) {
	switch format {
	case FormatChromium:
		return chromium.NewSource(path), nil
	case FormatFirefox:
		return firefox.NewSource(path), nil
	case FormatHomepage:
		return homepage.NewSource(path), nil
	default:
		return nil, fmt.Errorf("unknown bookmark format %q (supported: %s, %s, %s)",
			format, FormatChromium, FormatFirefox, FormatHomepage)
	}
}
