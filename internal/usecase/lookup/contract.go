package lookup

import (
	"context"

	domhist "github.com/travellens-cloud/travellens/internal/domain/history"
	"github.com/travellens-cloud/travellens/internal/domain/landmark"
)

// Recognizer classifies an image into a landmark guess.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, filename, contentType string) (landmark.Guess, error)
}

// Enricher fetches encyclopedia data for a guess. It never fails:
// implementations degrade to defaults on any error.
type Enricher interface {
	Enrich(ctx context.Context, wikiLink string) landmark.Enrichment
}

// Ledger records lookups into the owner's history.
type Ledger interface {
	RecordLookup(ctx context.Context, ownerID string, lm landmark.Enriched) (domhist.Entry, error)
}
