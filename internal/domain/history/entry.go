// Package history holds the persisted lookup history records.
package history

import (
	"strings"
	"time"
)

// DefaultRetentionLimit caps the number of history entries kept per owner.
const DefaultRetentionLimit = 10

// Entry is a persisted landmark lookup owned by a single user.
// CreatedAt is refreshed on every touch, so it is effectively a
// last-looked-up timestamp.
type Entry struct {
	ID          string
	OwnerID     string
	Name        string // trimmed, display case preserved
	WikiLink    string
	ImageURL    string
	Summary     string
	Coordinates string
	Confidence  *float64
	CreatedAt   time.Time
}

// NormalizedName returns the dedup key for this entry's name.
func (e Entry) NormalizedName() string {
	return NormalizeName(e.Name)
}

// NormalizeName produces the case-insensitive comparison form of a
// landmark name: trimmed and lowercased. Exact match only, no fuzzing.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
