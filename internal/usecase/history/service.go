// Package history implements the lookup history ledger: idempotent
// persistence of landmark lookups into a capped, deduplicated,
// recency-ordered per-owner collection.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/travellens-cloud/travellens/internal/domain"
	domhist "github.com/travellens-cloud/travellens/internal/domain/history"
	"github.com/travellens-cloud/travellens/internal/domain/landmark"
	"github.com/travellens-cloud/travellens/internal/metrics"
)

// Service is the history ledger. Writes for the same owner are
// serialized through a per-owner mutex; cross-owner writes are
// fully independent.
type Service struct {
	repo   Repository
	limit  int
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a history ledger service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		limit:  domhist.DefaultRetentionLimit,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithRetentionLimit overrides the per-owner entry cap.
func (s *Service) WithRetentionLimit(limit int) *Service {
	if limit > 0 {
		s.limit = limit
	}
	return s
}

// RecordLookup persists a landmark lookup for the owner.
//
// If an entry for the case-insensitive name already exists it is
// touched: non-empty new values overwrite stored fields and the
// timestamp is refreshed. Otherwise a new entry is created. Either way
// the owner's recency index is rewritten from the authoritative
// timestamp-sorted entry set, truncated to the retention limit, so any
// prior index drift is healed on every write.
func (s *Service) RecordLookup(ctx context.Context, ownerID string, lm landmark.Enriched) (domhist.Entry, error) {
	if ownerID == "" {
		return domhist.Entry{}, fmt.Errorf("owner id is required: %w", domain.ErrValidation)
	}
	normName := domhist.NormalizeName(lm.Name)
	if normName == "" {
		return domhist.Entry{}, fmt.Errorf("landmark name is required: %w", domain.ErrValidation)
	}

	lock := s.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := s.writeEntry(ctx, ownerID, normName, lm)
	if err != nil {
		return domhist.Entry{}, err
	}

	if err := s.enforceRetention(ctx, ownerID, entry.ID); err != nil {
		return domhist.Entry{}, err
	}

	return entry, nil
}

// writeEntry runs the touch-or-insert half of RecordLookup.
func (s *Service) writeEntry(
	ctx context.Context, ownerID, normName string, lm landmark.Enriched,
) (domhist.Entry, error) {
	existingID, err := s.repo.FindIDByName(ctx, ownerID, normName)
	switch {
	case err == nil:
		entry, getErr := s.repo.Get(ctx, ownerID, existingID)
		if getErr != nil && !errors.Is(getErr, domain.ErrNotFound) {
			return domhist.Entry{}, fmt.Errorf("load entry %s: %w: %w", existingID, domain.ErrPersistenceFailed, getErr)
		}
		if errors.Is(getErr, domain.ErrNotFound) {
			// Stale name mapping without a record. Recreate.
			return s.insertEntry(ctx, ownerID, lm)
		}
		return s.touchEntry(ctx, entry, lm)
	case errors.Is(err, domain.ErrNotFound):
		return s.insertEntry(ctx, ownerID, lm)
	default:
		return domhist.Entry{}, fmt.Errorf("find by name: %w: %w", domain.ErrPersistenceFailed, err)
	}
}

// touchEntry refreshes an existing entry, overwriting fields only with
// non-empty new values so a degraded lookup never erases known data.
func (s *Service) touchEntry(
	ctx context.Context, entry domhist.Entry, lm landmark.Enriched,
) (domhist.Entry, error) {
	entry.Name = lm.Name // same name modulo case; keep the freshest spelling
	if lm.WikiLink != "" {
		entry.WikiLink = lm.WikiLink
	}
	if lm.ImageURL != "" {
		entry.ImageURL = lm.ImageURL
	}
	if lm.Summary != "" {
		entry.Summary = lm.Summary
	}
	if lm.Coordinates != "" {
		entry.Coordinates = lm.Coordinates
	}
	if lm.Confidence != nil {
		entry.Confidence = lm.Confidence
	}
	entry.CreatedAt = s.now().UTC()

	if err := s.repo.Put(ctx, entry); err != nil {
		return domhist.Entry{}, fmt.Errorf("touch entry %s: %w: %w", entry.ID, domain.ErrPersistenceFailed, err)
	}

	metrics.HistoryLookupsTotal.WithLabelValues("touched").Inc()
	return entry, nil
}

func (s *Service) insertEntry(
	ctx context.Context, ownerID string, lm landmark.Enriched,
) (domhist.Entry, error) {
	entry := domhist.Entry{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        lm.Name,
		WikiLink:    lm.WikiLink,
		ImageURL:    lm.ImageURL,
		Summary:     lm.Summary,
		Coordinates: lm.Coordinates,
		Confidence:  lm.Confidence,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Put(ctx, entry); err != nil {
		return domhist.Entry{}, fmt.Errorf("insert entry: %w: %w", domain.ErrPersistenceFailed, err)
	}

	metrics.HistoryLookupsTotal.WithLabelValues("created").Inc()
	return entry, nil
}

// enforceRetention recomputes recency order from the authoritative
// entry set, evicts entries beyond the limit, and rewrites the index
// to exactly the surviving ids.
func (s *Service) enforceRetention(ctx context.Context, ownerID, freshID string) error {
	entries, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list entries: %w: %w", domain.ErrPersistenceFailed, err)
	}

	sortByRecency(entries, freshID)

	for _, stale := range entriesBeyond(entries, s.limit) {
		if err := s.repo.Delete(ctx, ownerID, stale.ID, stale.NormalizedName()); err != nil {
			return fmt.Errorf("evict entry %s: %w: %w", stale.ID, domain.ErrPersistenceFailed, err)
		}
		metrics.HistoryEvictionsTotal.Inc()
		s.logger.Debug("evicted history entry",
			zap.String("owner_id", ownerID),
			zap.String("entry_id", stale.ID),
			zap.String("name", stale.Name),
		)
	}

	survivors := entries
	if len(survivors) > s.limit {
		survivors = survivors[:s.limit]
	}
	ids := make([]string, len(survivors))
	for i, e := range survivors {
		ids[i] = e.ID
	}
	if err := s.repo.SetIndex(ctx, ownerID, ids); err != nil {
		return fmt.Errorf("set index: %w: %w", domain.ErrPersistenceFailed, err)
	}
	return nil
}

// Recent returns the owner's history in recency order, deduplicated by
// normalized name. The cached index drives ordering; when it is empty
// but entries exist, ordering falls back to the entries' timestamps.
func (s *Service) Recent(ctx context.Context, ownerID string) ([]domhist.Entry, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required: %w", domain.ErrValidation)
	}

	entries, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w: %w", domain.ErrPersistenceFailed, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids, err := s.repo.GetIndex(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get index: %w: %w", domain.ErrPersistenceFailed, err)
	}

	byID := make(map[string]domhist.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	ordered := make([]domhist.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
			delete(byID, id)
		}
	}
	if len(ordered) == 0 {
		// Index missing or fully stale; order by timestamps instead.
		sortByRecency(entries, "")
		ordered = entries
		if len(ordered) > s.limit {
			ordered = ordered[:s.limit]
		}
	}

	return dedupeByName(ordered), nil
}

// Get returns a single entry for the details view.
func (s *Service) Get(ctx context.Context, ownerID, id string) (domhist.Entry, error) {
	entry, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domhist.Entry{}, domain.ErrNotFound
		}
		return domhist.Entry{}, fmt.Errorf("get entry %s: %w: %w", id, domain.ErrPersistenceFailed, err)
	}
	return entry, nil
}

func (s *Service) ownerLock(ownerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[ownerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ownerID] = l
	}
	return l
}

// sortByRecency orders entries newest first. Entries sharing a
// timestamp tie-break in favor of the just-written id so the fresh
// lookup always lands at position 0.
func sortByRecency(entries []domhist.Entry, freshID string) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID == freshID && entries[j].ID != freshID
	})
}

// entriesBeyond returns the tail of a recency-sorted slice past the limit.
func entriesBeyond(entries []domhist.Entry, limit int) []domhist.Entry {
	if len(entries) <= limit {
		return nil
	}
	return entries[limit:]
}

// dedupeByName keeps the first (most recent) entry per normalized name.
// Guards against historical data that predates write-time dedup.
func dedupeByName(entries []domhist.Entry) []domhist.Entry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		key := e.NormalizedName()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
