package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/travellens-cloud/travellens/internal/domain"
	dombm "github.com/travellens-cloud/travellens/internal/domain/bookmark"
	domhist "github.com/travellens-cloud/travellens/internal/domain/history"
	"github.com/travellens-cloud/travellens/internal/domain/landmark"
	bookmarkuc "github.com/travellens-cloud/travellens/internal/usecase/bookmark"
	healthuc "github.com/travellens-cloud/travellens/internal/usecase/health"
	historyuc "github.com/travellens-cloud/travellens/internal/usecase/history"
	lookupuc "github.com/travellens-cloud/travellens/internal/usecase/lookup"
)

// --- in-memory repositories ---

type memHistoryRepo struct {
	mu      sync.Mutex
	entries map[string]map[string]domhist.Entry
	names   map[string]map[string]string
	index   map[string][]string
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{
		entries: make(map[string]map[string]domhist.Entry),
		names:   make(map[string]map[string]string),
		index:   make(map[string][]string),
	}
}

func (m *memHistoryRepo) Get(_ context.Context, ownerID, id string) (domhist.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ownerID][id]
	if !ok {
		return domhist.Entry{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *memHistoryRepo) FindIDByName(_ context.Context, ownerID, normName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.names[ownerID][normName]
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (m *memHistoryRepo) Put(_ context.Context, e domhist.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[e.OwnerID] == nil {
		m.entries[e.OwnerID] = make(map[string]domhist.Entry)
		m.names[e.OwnerID] = make(map[string]string)
	}
	m.entries[e.OwnerID][e.ID] = e
	m.names[e.OwnerID][e.NormalizedName()] = e.ID
	return nil
}

func (m *memHistoryRepo) Delete(_ context.Context, ownerID, id, normName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries[ownerID], id)
	if m.names[ownerID][normName] == id {
		delete(m.names[ownerID], normName)
	}
	return nil
}

func (m *memHistoryRepo) ListByOwner(_ context.Context, ownerID string) ([]domhist.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domhist.Entry, 0, len(m.entries[ownerID]))
	for _, e := range m.entries[ownerID] {
		out = append(out, e)
	}
	return out, nil
}

func (m *memHistoryRepo) GetIndex(_ context.Context, ownerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.index[ownerID]...), nil
}

func (m *memHistoryRepo) SetIndex(_ context.Context, ownerID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index[ownerID] = append([]string(nil), ids...)
	return nil
}

type memBookmarkRepo struct {
	mu        sync.Mutex
	bookmarks map[string]map[string]dombm.Bookmark
	names     map[string]map[string]string
}

func newMemBookmarkRepo() *memBookmarkRepo {
	return &memBookmarkRepo{
		bookmarks: make(map[string]map[string]dombm.Bookmark),
		names:     make(map[string]map[string]string),
	}
}

func (m *memBookmarkRepo) Get(_ context.Context, ownerID, id string) (dombm.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookmarks[ownerID][id]
	if !ok {
		return dombm.Bookmark{}, domain.ErrNotFound
	}
	return b, nil
}

func (m *memBookmarkRepo) FindIDByName(_ context.Context, ownerID, normName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.names[ownerID][normName]
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (m *memBookmarkRepo) Put(_ context.Context, b dombm.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookmarks[b.OwnerID] == nil {
		m.bookmarks[b.OwnerID] = make(map[string]dombm.Bookmark)
		m.names[b.OwnerID] = make(map[string]string)
	}
	m.bookmarks[b.OwnerID][b.ID] = b
	m.names[b.OwnerID][b.NormalizedName()] = b.ID
	return nil
}

func (m *memBookmarkRepo) Delete(_ context.Context, ownerID, id, normName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookmarks[ownerID], id)
	if m.names[ownerID][normName] == id {
		delete(m.names[ownerID], normName)
	}
	return nil
}

func (m *memBookmarkRepo) ListByOwner(_ context.Context, ownerID string) ([]dombm.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dombm.Bookmark, 0, len(m.bookmarks[ownerID]))
	for _, b := range m.bookmarks[ownerID] {
		out = append(out, b)
	}
	return out, nil
}

// --- pipeline stubs ---

type stubRecognizer struct {
	guess landmark.Guess
	err   error
}

func (s *stubRecognizer) Recognize(_ context.Context, _ []byte, _, _ string) (landmark.Guess, error) {
	return s.guess, s.err
}

type stubEnricher struct {
	enrichment landmark.Enrichment
}

func (s *stubEnricher) Enrich(_ context.Context, _ string) landmark.Enrichment {
	return s.enrichment
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

// --- test server wiring ---

type testEnv struct {
	router     *chi.Mux
	recognizer *stubRecognizer
	enricher   *stubEnricher
	pinger     *stubPinger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	recognizer := &stubRecognizer{guess: landmark.Guess{
		Name:     "Eiffel Tower",
		WikiLink: "https://en.wikipedia.org/wiki/Eiffel_Tower",
	}}
	enricher := &stubEnricher{enrichment: landmark.Enrichment{
		Summary:  "Iron lattice tower.",
		ImageURL: "https://example.org/tower.jpg",
	}}
	pinger := &stubPinger{}

	ledger := historyuc.New(newMemHistoryRepo(), logger)
	bookmarks := bookmarkuc.New(newMemBookmarkRepo())
	lookups := lookupuc.New(recognizer, enricher, ledger, logger)
	health := healthuc.New(pinger, nil)

	server := NewServer(lookups, ledger, bookmarks, health, 1<<20, logger)

	r := chi.NewRouter()
	r.Use(BearerAuthMiddleware(nil))
	server.Routes(r)

	return &testEnv{router: r, recognizer: recognizer, enricher: enricher, pinger: pinger}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
