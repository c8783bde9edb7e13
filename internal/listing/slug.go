// File: internal/listing/slug.go
package listing

import (
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	maxSlugBaseLength = 60
	fallbackSlugBase  = "listing"
)

// GenerateSlug derives a URL slug from the title, trimmed at a word boundary,
// with the first eight characters of the listing ID appended for uniqueness.
func GenerateSlug(title string, id uuid.UUID) string {
	base := slug.Make(title)
	if len(base) > maxSlugBaseLength {
		cut := base[:maxSlugBaseLength]
		if i := strings.LastIndex(cut, "-"); i > 0 && base[maxSlugBaseLength] != '-' {
			cut = cut[:i]
		}
		base = cut
	}
	base = strings.Trim(base, "-")
	if base == "" {
		base = fallbackSlugBase
	}
	return base + "-" + id.String()[:8]
}
