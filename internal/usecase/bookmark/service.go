// Package bookmark implements explicit user bookmarks: deduplicated on
// save, removed only by the owner, never capped.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/travellens-cloud/travellens/internal/domain"
	dombm "github.com/travellens-cloud/travellens/internal/domain/bookmark"
	domhist "github.com/travellens-cloud/travellens/internal/domain/history"
	"github.com/travellens-cloud/travellens/internal/domain/landmark"
)

// Service handles bookmark save, remove, and listing.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New creates a bookmark service.
func New(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Save stores a bookmark for the owner. Saving an already-bookmarked
// name (case-insensitive) only refreshes its timestamp and reports
// created=false; stored fields are left untouched.
func (s *Service) Save(ctx context.Context, ownerID string, lm landmark.Enriched) (dombm.Bookmark, bool, error) {
	if ownerID == "" {
		return dombm.Bookmark{}, false, fmt.Errorf("owner id is required: %w", domain.ErrValidation)
	}
	normName := domhist.NormalizeName(lm.Name)
	if normName == "" {
		return dombm.Bookmark{}, false, fmt.Errorf("landmark name is required: %w", domain.ErrValidation)
	}

	existingID, err := s.repo.FindIDByName(ctx, ownerID, normName)
	switch {
	case err == nil:
		existing, getErr := s.repo.Get(ctx, ownerID, existingID)
		if getErr != nil && !errors.Is(getErr, domain.ErrNotFound) {
			return dombm.Bookmark{}, false,
				fmt.Errorf("load bookmark %s: %w: %w", existingID, domain.ErrPersistenceFailed, getErr)
		}
		if errors.Is(getErr, domain.ErrNotFound) {
			break // stale name mapping, insert fresh below
		}
		existing.CreatedAt = s.now().UTC()
		if putErr := s.repo.Put(ctx, existing); putErr != nil {
			return dombm.Bookmark{}, false,
				fmt.Errorf("refresh bookmark %s: %w: %w", existingID, domain.ErrPersistenceFailed, putErr)
		}
		return existing, false, nil
	case errors.Is(err, domain.ErrNotFound):
		// insert below
	default:
		return dombm.Bookmark{}, false, fmt.Errorf("find by name: %w: %w", domain.ErrPersistenceFailed, err)
	}

	b := dombm.Bookmark{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        lm.Name,
		WikiLink:    lm.WikiLink,
		ImageURL:    lm.ImageURL,
		Description: lm.Summary,
		Coordinates: lm.Coordinates,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Put(ctx, b); err != nil {
		return dombm.Bookmark{}, false, fmt.Errorf("insert bookmark: %w: %w", domain.ErrPersistenceFailed, err)
	}
	return b, true, nil
}

// Remove deletes a bookmark if it belongs to the owner. A missing id or
// one owned by another user is a silent no-op reported as deleted=false,
// so existence of other users' bookmarks is never leaked.
func (s *Service) Remove(ctx context.Context, ownerID, id string) (bool, error) {
	if ownerID == "" || id == "" {
		return false, fmt.Errorf("owner id and bookmark id are required: %w", domain.ErrValidation)
	}

	b, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load bookmark %s: %w: %w", id, domain.ErrPersistenceFailed, err)
	}

	if err := s.repo.Delete(ctx, ownerID, id, b.NormalizedName()); err != nil {
		return false, fmt.Errorf("delete bookmark %s: %w: %w", id, domain.ErrPersistenceFailed, err)
	}
	return true, nil
}

// List returns the owner's bookmarks newest first, deduplicated by
// normalized name (first seen by recency wins).
func (s *Service) List(ctx context.Context, ownerID string) ([]dombm.Bookmark, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required: %w", domain.ErrValidation)
	}

	bookmarks, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w: %w", domain.ErrPersistenceFailed, err)
	}

	sort.SliceStable(bookmarks, func(i, j int) bool {
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})

	seen := make(map[string]struct{}, len(bookmarks))
	out := bookmarks[:0]
	for _, b := range bookmarks {
		key := b.NormalizedName()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	return out, nil
}

// Get returns a single bookmark for the details view.
func (s *Service) Get(ctx context.Context, ownerID, id string) (dombm.Bookmark, error) {
	b, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return dombm.Bookmark{}, domain.ErrNotFound
		}
		return dombm.Bookmark{}, fmt.Errorf("get bookmark %s: %w: %w", id, domain.ErrPersistenceFailed, err)
	}
	return b, nil
}
