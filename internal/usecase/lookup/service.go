// Package lookup orchestrates an image search: recognition, encyclopedia
// enrichment, and persistence into the lookup history.
package lookup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/travellens-cloud/travellens/internal/domain"
	domhist "github.com/travellens-cloud/travellens/internal/domain/history"
	"github.com/travellens-cloud/travellens/internal/domain/landmark"
)

// Result is the outcome of an image search. When Persisted is false the
// entry was assembled in memory only (blank id); the next successful
// lookup of the same name heals the history.
type Result struct {
	Entry     domhist.Entry
	Persisted bool
}

// Service sequences the search pipeline.
type Service struct {
	recognizer Recognizer
	enricher   Enricher
	ledger     Ledger
	logger     *zap.Logger
}

// New creates a lookup orchestrator.
func New(recognizer Recognizer, enricher Enricher, ledger Ledger, logger *zap.Logger) *Service {
	return &Service{recognizer: recognizer, enricher: enricher, ledger: ledger, logger: logger}
}

// Search runs the pipeline for one uploaded image.
//
// A recognition failure aborts before anything is persisted. Enrichment
// cannot fail (the client degrades to defaults). A persistence failure
// is logged and the in-memory result is still returned: durability is
// best-effort here and the ledger self-heals on the next write.
func (s *Service) Search(
	ctx context.Context, ownerID string, image []byte, filename, contentType string,
) (Result, error) {
	if ownerID == "" {
		return Result{}, fmt.Errorf("owner id is required: %w", domain.ErrValidation)
	}
	if len(image) == 0 {
		return Result{}, fmt.Errorf("no image uploaded: %w", domain.ErrValidation)
	}

	guess, err := s.recognizer.Recognize(ctx, image, filename, contentType)
	if err != nil {
		return Result{}, fmt.Errorf("recognize image: %w", err)
	}

	enriched := landmark.Enriched{
		Guess:      guess,
		Enrichment: s.enricher.Enrich(ctx, guess.WikiLink),
	}

	entry, err := s.ledger.RecordLookup(ctx, ownerID, enriched)
	if err != nil {
		s.logger.Error("failed to persist lookup, returning in-memory result",
			zap.String("owner_id", ownerID),
			zap.String("name", guess.Name),
			zap.Error(err),
		)
		return Result{Entry: inMemoryEntry(ownerID, enriched)}, nil
	}

	return Result{Entry: entry, Persisted: true}, nil
}

// inMemoryEntry builds a display-only entry when persistence failed.
func inMemoryEntry(ownerID string, lm landmark.Enriched) domhist.Entry {
	return domhist.Entry{
		OwnerID:     ownerID,
		Name:        lm.Name,
		WikiLink:    lm.WikiLink,
		ImageURL:    lm.ImageURL,
		Summary:     lm.Summary,
		Coordinates: lm.Coordinates,
		Confidence:  lm.Confidence,
		CreatedAt:   time.Now().UTC(),
	}
}
