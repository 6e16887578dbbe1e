// Package history is the storage adapter for lookup history entries.
//
// Per owner it keeps three structures:
//   - one hash per entry:           <prefix>history:<owner>:entry:<id>
//   - a name lookup hash:           <prefix>history:<owner>:names   (normalized name -> id)
//   - the denormalized recency index: <prefix>history:<owner>:index (JSON array of ids)
//
// The index is always written as a whole value, so a SetIndex is atomic
// with respect to concurrent readers.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/travellens-cloud/travellens/internal/db"
	"github.com/travellens-cloud/travellens/internal/domain"
	domhist "github.com/travellens-cloud/travellens/internal/domain/history"
)

// store is the consumer interface for history entries (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HGet(ctx context.Context, key, field string) (string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, key string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/history.Repository.
type Repo struct {
	store  store
	prefix string
}

// New creates a history repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

// Get returns an entry by owner and id.
func (r *Repo) Get(ctx context.Context, ownerID, id string) (domhist.Entry, error) {
	key := r.entryKey(ownerID, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domhist.Entry{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domhist.Entry{}, domain.ErrNotFound
	}
	return entryFromHash(m)
}

// FindIDByName resolves a normalized name to an entry id for the owner.
// Returns domain.ErrNotFound when no entry exists for the name.
func (r *Repo) FindIDByName(ctx context.Context, ownerID, normName string) (string, error) {
	id, err := r.store.HGet(ctx, r.namesKey(ownerID), normName)
	if err != nil {
		if errors.Is(err, db.ErrFieldNotFound) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("hget names %s: %w", normName, err)
	}
	return id, nil
}

// Put stores an entry and its name mapping.
func (r *Repo) Put(ctx context.Context, e domhist.Entry) error {
	key := r.entryKey(e.OwnerID, e.ID)
	if err := r.store.HSet(ctx, key, entryToHash(e)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	if err := r.store.HSet(ctx, r.namesKey(e.OwnerID), map[string]string{e.NormalizedName(): e.ID}); err != nil {
		return fmt.Errorf("hset names %s: %w", e.NormalizedName(), err)
	}
	return nil
}

// Delete removes an entry and its name mapping.
func (r *Repo) Delete(ctx context.Context, ownerID, id, normName string) error {
	key := r.entryKey(ownerID, id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if err := r.store.HDel(ctx, r.namesKey(ownerID), normName); err != nil {
		return fmt.Errorf("hdel names %s: %w", normName, err)
	}
	return nil
}

// ListByOwner returns all entries for the owner in storage order.
// The caller sorts; this is the authoritative set, not the cached index.
func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]domhist.Entry, error) {
	keys, err := r.store.Scan(ctx, r.entryKey(ownerID, "*"))
	if err != nil {
		return nil, fmt.Errorf("scan entries for %s: %w", ownerID, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w", err)
	}

	entries := make([]domhist.Entry, 0, len(hashes))
	for i, m := range hashes {
		if len(m) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		e, err := entryFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("hydrate %s: %w", keys[i], err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// GetIndex returns the owner's cached recency index. Missing index
// yields an empty slice, not an error.
func (r *Repo) GetIndex(ctx context.Context, ownerID string) ([]string, error) {
	data, err := r.store.Get(ctx, r.indexKey(ownerID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get index: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}
	return ids, nil
}

// SetIndex replaces the owner's recency index with exactly the given ids.
func (r *Repo) SetIndex(ctx context.Context, ownerID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := r.store.Set(ctx, r.indexKey(ownerID), data); err != nil {
		return fmt.Errorf("set index: %w", err)
	}
	return nil
}

func (r *Repo) entryKey(ownerID, id string) string {
	return fmt.Sprintf("%shistory:%s:entry:%s", r.prefix, ownerID, id)
}

func (r *Repo) namesKey(ownerID string) string {
	return fmt.Sprintf("%shistory:%s:names", r.prefix, ownerID)
}

func (r *Repo) indexKey(ownerID string) string {
	return fmt.Sprintf("%shistory:%s:index", r.prefix, ownerID)
}
