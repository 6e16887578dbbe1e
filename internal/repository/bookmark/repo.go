// Package bookmark is the storage adapter for saved bookmarks.
//
// Per owner it keeps one hash per bookmark at
// <prefix>bookmark:<owner>:entry:<id> and a name lookup hash at
// <prefix>bookmark:<owner>:names (normalized name -> id). Bookmarks
// have no recency index and no retention cap.
package bookmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/travellens-cloud/travellens/internal/db"
	"github.com/travellens-cloud/travellens/internal/domain"
	dombm "github.com/travellens-cloud/travellens/internal/domain/bookmark"
)

// store is the consumer interface for bookmarks (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HGet(ctx context.Context, key, field string) (string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/bookmark.Repository.
type Repo struct {
	store  store
	prefix string
}

// New creates a bookmark repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

// Get returns a bookmark by owner and id.
func (r *Repo) Get(ctx context.Context, ownerID, id string) (dombm.Bookmark, error) {
	key := r.entryKey(ownerID, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return dombm.Bookmark{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return dombm.Bookmark{}, domain.ErrNotFound
	}
	return bookmarkFromHash(m)
}

// FindIDByName resolves a normalized name to a bookmark id for the owner.
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

// Put stores a bookmark and its name mapping.
func (r *Repo) Put(ctx context.Context, b dombm.Bookmark) error {
	key := r.entryKey(b.OwnerID, b.ID)
	if err := r.store.HSet(ctx, key, bookmarkToHash(b)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	if err := r.store.HSet(ctx, r.namesKey(b.OwnerID), map[string]string{b.NormalizedName(): b.ID}); err != nil {
		return fmt.Errorf("hset names %s: %w", b.NormalizedName(), err)
	}
	return nil
}

// Delete removes a bookmark and its name mapping.
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

// ListByOwner returns all bookmarks for the owner in storage order.
func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]dombm.Bookmark, error) {
	keys, err := r.store.Scan(ctx, r.entryKey(ownerID, "*"))
	if err != nil {
		return nil, fmt.Errorf("scan bookmarks for %s: %w", ownerID, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w", err)
	}

	bookmarks := make([]dombm.Bookmark, 0, len(hashes))
	for i, m := range hashes {
		if len(m) == 0 {
			continue
		}
		b, err := bookmarkFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("hydrate %s: %w", keys[i], err)
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, nil
}

func (r *Repo) entryKey(ownerID, id string) string {
	return fmt.Sprintf("%sbookmark:%s:entry:%s", r.prefix, ownerID, id)
}

func (r *Repo) namesKey(ownerID string) string {
	return fmt.Sprintf("%sbookmark:%s:names", r.prefix, ownerID)
}
