package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/travellens-cloud/travellens/internal/domain"
	domhist "github.com/travellens-cloud/travellens/internal/domain/history"
)

// fakeRepo is an in-memory Repository with the same semantics as the
// real storage: entries keyed by id, a normalized-name lookup map, and
// a separately stored index.
type fakeRepo struct {
	mu      sync.Mutex
	entries map[string]map[string]domhist.Entry // owner -> id -> entry
	names   map[string]map[string]string        // owner -> normName -> id
	index   map[string][]string                 // owner -> ids

	findErr     error
	getErr      error
	putErr      error
	deleteErr   error
	listErr     error
	getIndexErr error
	setIndexErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		entries: make(map[string]map[string]domhist.Entry),
		names:   make(map[string]map[string]string),
		index:   make(map[string][]string),
	}
}

func (f *fakeRepo) Get(_ context.Context, ownerID, id string) (domhist.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domhist.Entry{}, f.getErr
	}
	e, ok := f.entries[ownerID][id]
	if !ok {
		return domhist.Entry{}, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeRepo) FindIDByName(_ context.Context, ownerID, normName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return "", f.findErr
	}
	id, ok := f.names[ownerID][normName]
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (f *fakeRepo) Put(_ context.Context, e domhist.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	if f.entries[e.OwnerID] == nil {
		f.entries[e.OwnerID] = make(map[string]domhist.Entry)
		f.names[e.OwnerID] = make(map[string]string)
	}
	f.entries[e.OwnerID][e.ID] = e
	f.names[e.OwnerID][e.NormalizedName()] = e.ID
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, ownerID, id, normName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.entries[ownerID], id)
	if f.names[ownerID][normName] == id {
		delete(f.names[ownerID], normName)
	}
	return nil
}

func (f *fakeRepo) ListByOwner(_ context.Context, ownerID string) ([]domhist.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domhist.Entry, 0, len(f.entries[ownerID]))
	for _, e := range f.entries[ownerID] {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeRepo) GetIndex(_ context.Context, ownerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getIndexErr != nil {
		return nil, f.getIndexErr
	}
	return append([]string(nil), f.index[ownerID]...), nil
}

func (f *fakeRepo) SetIndex(_ context.Context, ownerID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setIndexErr != nil {
		return f.setIndexErr
	}
	f.index[ownerID] = append([]string(nil), ids...)
	return nil
}

func (f *fakeRepo) storedIndex(ownerID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.index[ownerID]...)
}

func (f *fakeRepo) entryCount(ownerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries[ownerID])
}

// fakeClock hands out strictly increasing timestamps so recency
// ordering is deterministic.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(repo Repository) *Service {
	svc := New(repo, zap.NewNop())
	return svc
}

func withClock(svc *Service, clock *fakeClock) *Service {
	svc.now = clock.Now
	return svc
}
