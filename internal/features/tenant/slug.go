package tenant

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugBase = 40

// SlugFor builds the public slug of a clinic. The id suffix lets two clinics share a name.
func SlugFor(name string, id primitive.ObjectID) string {
	base := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(base) > maxSlugBase {
		base = strings.TrimRight(base[:maxSlugBase], "-")
	}
	if base == "" {
		base = "clinic"
	}
	return base + "-" + id.Hex()[20:]
}
