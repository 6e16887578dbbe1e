// Package landmark holds the ephemeral values produced by the
// recognition and enrichment pipeline before they are persisted.
package landmark

import (
	"fmt"
	"strings"

	"github.com/travellens-cloud/travellens/internal/domain"
)

// DefaultSummary is used when the encyclopedia lookup yields no extract.
const DefaultSummary = "No description available."

// Guess is a normalized landmark classification from the recognition service.
type Guess struct {
	Name       string
	WikiLink   string   // empty when the service returned no reference link
	Confidence *float64 // nil when absent or unparsable
}

// NewGuess validates and creates a Guess. The name must be non-empty
// after trimming; the recognition client trims before calling.
func NewGuess(name, wikiLink string, confidence *float64) (Guess, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Guess{}, fmt.Errorf("landmark name is empty: %w", domain.ErrRecognitionFailed)
	}
	return Guess{Name: name, WikiLink: strings.TrimSpace(wikiLink), Confidence: confidence}, nil
}

// Enrichment carries the encyclopedia data for a guess. A zero value is
// never used directly; Defaults provides the degraded fallback.
type Enrichment struct {
	Summary     string
	ImageURL    string
	Coordinates string // "Lat: <lat>, Lon: <lon>", empty when unknown
}

// Defaults returns the enrichment used when the encyclopedia lookup is
// skipped or fails.
func Defaults(placeholderImage string) Enrichment {
	return Enrichment{
		Summary:  DefaultSummary,
		ImageURL: placeholderImage,
	}
}

// FormatCoordinates renders latitude/longitude in the fixed display format.
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("Lat: %g, Lon: %g", lat, lon)
}

// Enriched is a guess combined with its enrichment, ready for persistence.
type Enriched struct {
	Guess
	Enrichment
}
