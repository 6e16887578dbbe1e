// Package chi is the HTTP transport: request decoding, response
// encoding, and mapping of domain errors onto status codes.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

// Error codes returned to clients.
const (
	codeBadRequest        = "bad_request"
	codeUnauthorized      = "unauthorized"
	codeValidationFailed  = "validation_failed"
	codeNotFound          = "not_found"
	codeRecognitionFailed = "recognition_failed"
	codePersistenceFailed = "persistence_failed"
	codeInternalError     = "internal_error"
	codeUploadTooLarge    = "upload_too_large"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server carries the usecase services behind the HTTP API.
type Server struct {
	lookups        *lookupuc.Service
	history        *historyuc.Service
	bookmarks      *bookmarkuc.Service
	health         *healthuc.Service
	logger         *zap.Logger
	maxUploadBytes int64
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	lookups *lookupuc.Service,
	history *historyuc.Service,
	bookmarks *bookmarkuc.Service,
	health *healthuc.Service,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		lookups:        lookups,
		history:        history,
		bookmarks:      bookmarks,
		health:         health,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrRecognitionFailed, http.StatusBadGateway, codeRecognitionFailed),
		sentinelHandler(domain.ErrPersistenceFailed, http.StatusServiceUnavailable, codePersistenceFailed),
	}
	return s
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search/image", s.SearchImage)
		r.Get("/history", s.ListHistory)
		r.Get("/history/{id}", s.GetDetails)
		r.Get("/bookmarks", s.ListBookmarks)
		r.Post("/bookmarks", s.SaveBookmark)
		r.Delete("/bookmarks/{id}", s.RemoveBookmark)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchImage handles POST /api/v1/search/image.
// Multipart form with the image under field "image".
func (s *Server) SearchImage(w http.ResponseWriter, r *http.Request) {
	owner := OwnerFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, codeUploadTooLarge, "image exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "no image uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read image")
		return
	}

	result, err := s.lookups.Search(
		r.Context(), owner, image, header.Filename, header.Header.Get("Content-Type"),
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, searchResponse{
		Entry:     entryToResponse(result.Entry),
		Persisted: result.Persisted,
	})
}

// ListHistory handles GET /api/v1/history.
func (s *Server) ListHistory(w http.ResponseWriter, r *http.Request) {
	owner := OwnerFromContext(r.Context())

	entries, err := s.history.Recent(r.Context(), owner)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]entryResponse, len(entries))
	for i, e := range entries {
		items[i] = entryToResponse(e)
	}
	writeJSON(w, http.StatusOK, listResponse[entryResponse]{Items: items})
}

// GetDetails handles GET /api/v1/history/{id}. Falls back to the
// bookmark with the same id, so bookmark links share the details view.
func (s *Server) GetDetails(w http.ResponseWriter, r *http.Request) {
	owner := OwnerFromContext(r.Context())
	id := chi.URLParam(r, "id")

	entry, err := s.history.Get(r.Context(), owner, id)
	if err == nil {
		writeJSON(w, http.StatusOK, entryToResponse(entry))
		return
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.handleDomainError(w, err)
		return
	}

	b, err := s.bookmarks.Get(r.Context(), owner, id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarkToResponse(b))
}

// ListBookmarks handles GET /api/v1/bookmarks.
func (s *Server) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	owner := OwnerFromContext(r.Context())

	bookmarks, err := s.bookmarks.List(r.Context(), owner)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]bookmarkResponse, len(bookmarks))
	for i, b := range bookmarks {
		items[i] = bookmarkToResponse(b)
	}
	writeJSON(w, http.StatusOK, listResponse[bookmarkResponse]{Items: items})
}

// SaveBookmark handles POST /api/v1/bookmarks.
func (s *Server) SaveBookmark(w http.ResponseWriter, r *http.Request) {
	owner := OwnerFromContext(r.Context())

	var req saveBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	b, created, err := s.bookmarks.Save(r.Context(), owner, req.toEnriched())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, saveBookmarkResponse{
		Bookmark: bookmarkToResponse(b),
		Created:  created,
	})
}

// RemoveBookmark handles DELETE /api/v1/bookmarks/{id}.
// A foreign or unknown id reports deleted=false without revealing
// whether the bookmark exists for someone else.
func (s *Server) RemoveBookmark(w http.ResponseWriter, r *http.Request) {
	owner := OwnerFromContext(r.Context())
	id := chi.URLParam(r, "id")

	deleted, err := s.bookmarks.Remove(r.Context(), owner, id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removeBookmarkResponse{Deleted: deleted})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- wire types ---

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

type searchResponse struct {
	Entry     entryResponse `json:"entry"`
	Persisted bool          `json:"persisted"`
}

type entryResponse struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	WikiLink    string    `json:"wikiLink,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Coordinates string    `json:"coordinates,omitempty"`
	Confidence  *float64  `json:"confidence,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type bookmarkResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	WikiLink    string    `json:"wikiLink,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Description string    `json:"description,omitempty"`
	Coordinates string    `json:"coordinates,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type saveBookmarkRequest struct {
	Name        string   `json:"name"`
	WikiLink    string   `json:"wikiLink"`
	ImageURL    string   `json:"imageUrl"`
	Description string   `json:"description"`
	Coordinates string   `json:"coordinates"`
	Confidence  *float64 `json:"confidence"`
}

func (req saveBookmarkRequest) toEnriched() landmark.Enriched {
	return landmark.Enriched{
		Guess: landmark.Guess{
			Name:       req.Name,
			WikiLink:   req.WikiLink,
			Confidence: req.Confidence,
		},
		Enrichment: landmark.Enrichment{
			Summary:     req.Description,
			ImageURL:    req.ImageURL,
			Coordinates: req.Coordinates,
		},
	}
}

type saveBookmarkResponse struct {
	Bookmark bookmarkResponse `json:"bookmark"`
	Created  bool             `json:"created"`
}

type removeBookmarkResponse struct {
	Deleted bool `json:"deleted"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func entryToResponse(e domhist.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		Name:        e.Name,
		WikiLink:    e.WikiLink,
		ImageURL:    e.ImageURL,
		Summary:     e.Summary,
		Coordinates: e.Coordinates,
		Confidence:  e.Confidence,
		CreatedAt:   e.CreatedAt,
	}
}

func bookmarkToResponse(b dombm.Bookmark) bookmarkResponse {
	return bookmarkResponse{
		ID:          b.ID,
		Name:        b.Name,
		WikiLink:    b.WikiLink,
		ImageURL:    b.ImageURL,
		Description: b.Description,
		Coordinates: b.Coordinates,
		CreatedAt:   b.CreatedAt,
	}
}

// --- error mapping ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client
// without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrRecognitionFailed,
		domain.ErrPersistenceFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
