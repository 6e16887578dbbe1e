package recognition

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/travellens-cloud/travellens/internal/domain"
)

func newTestClient(endpoint string) *Client {
	return NewClient(&Config{
		Endpoint: endpoint,
		Timeout:  2 * time.Second,
		Logger:   zap.NewNop(),
	})
}

func recognitionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func TestRecognize_CamelCaseFields(t *testing.T) {
	srv := recognitionServer(t, http.StatusOK,
		`{"landmarkName": "Eiffel Tower", "wikiLink": "https://en.wikipedia.org/wiki/Eiffel_Tower", "score": 0.97}`)
	defer srv.Close()

	guess, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guess.Name != "Eiffel Tower" {
		t.Errorf("expected 'Eiffel Tower', got %q", guess.Name)
	}
	if guess.WikiLink != "https://en.wikipedia.org/wiki/Eiffel_Tower" {
		t.Errorf("unexpected wiki link %q", guess.WikiLink)
	}
	if guess.Confidence == nil || *guess.Confidence != 0.97 {
		t.Errorf("expected confidence 0.97, got %v", guess.Confidence)
	}
}

func TestRecognize_AlternateSpellings(t *testing.T) {
	srv := recognitionServer(t, http.StatusOK,
		`{"name": "Colosseum", "wikipedialink": "https://en.wikipedia.org/wiki/Colosseum", "confidence": 0.8}`)
	defer srv.Close()

	guess, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guess.Name != "Colosseum" {
		t.Errorf("expected 'Colosseum', got %q", guess.Name)
	}
	if guess.WikiLink != "https://en.wikipedia.org/wiki/Colosseum" {
		t.Errorf("unexpected wiki link %q", guess.WikiLink)
	}
	if guess.Confidence == nil || *guess.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %v", guess.Confidence)
	}
}

func TestRecognize_SnakeCaseSpellings(t *testing.T) {
	srv := recognitionServer(t, http.StatusOK,
		`{"landmark_name": "Big Ben", "wiki_link": "https://en.wikipedia.org/wiki/Big_Ben"}`)
	defer srv.Close()

	guess, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guess.Name != "Big Ben" {
		t.Errorf("expected 'Big Ben', got %q", guess.Name)
	}
	if guess.Confidence != nil {
		t.Errorf("expected nil confidence, got %v", *guess.Confidence)
	}
}

func TestRecognize_SpellingPrecedence(t *testing.T) {
	// landmarkName wins over name; score wins over confidence.
	srv := recognitionServer(t, http.StatusOK,
		`{"landmarkName": "Primary", "name": "Secondary", "score": 0.9, "confidence": 0.1}`)
	defer srv.Close()

	guess, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guess.Name != "Primary" {
		t.Errorf("expected precedence winner 'Primary', got %q", guess.Name)
	}
	if guess.Confidence == nil || *guess.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", guess.Confidence)
	}
}

func TestRecognize_NumericStringConfidence(t *testing.T) {
	srv := recognitionServer(t, http.StatusOK, `{"name": "Colosseum", "score": "0.75"}`)
	defer srv.Close()

	guess, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guess.Confidence == nil || *guess.Confidence != 0.75 {
		t.Errorf("expected confidence 0.75, got %v", guess.Confidence)
	}
}

func TestRecognize_UnparsableConfidenceDropped(t *testing.T) {
	srv := recognitionServer(t, http.StatusOK, `{"name": "Colosseum", "score": "high"}`)
	defer srv.Close()

	guess, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guess.Confidence != nil {
		t.Errorf("expected nil confidence for unparsable value, got %v", *guess.Confidence)
	}
}

func TestRecognize_MissingName(t *testing.T) {
	srv := recognitionServer(t, http.StatusOK, `{"wikiLink": "https://en.wikipedia.org/wiki/X"}`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if !errors.Is(err, domain.ErrRecognitionFailed) {
		t.Errorf("expected ErrRecognitionFailed, got %v", err)
	}
}

func TestRecognize_Non2xxStatus(t *testing.T) {
	srv := recognitionServer(t, http.StatusInternalServerError, `{"error": "boom"}`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if !errors.Is(err, domain.ErrRecognitionFailed) {
		t.Errorf("expected ErrRecognitionFailed, got %v", err)
	}
}

func TestRecognize_MalformedBody(t *testing.T) {
	srv := recognitionServer(t, http.StatusOK, `not json`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if !errors.Is(err, domain.ErrRecognitionFailed) {
		t.Errorf("expected ErrRecognitionFailed, got %v", err)
	}
}

func TestRecognize_ServiceUnreachable(t *testing.T) {
	srv := recognitionServer(t, http.StatusOK, `{}`)
	srv.Close() // closed before the call

	_, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "p.jpg", "image/jpeg")
	if !errors.Is(err, domain.ErrRecognitionFailed) {
		t.Errorf("expected ErrRecognitionFailed, got %v", err)
	}
}

func TestRecognize_MultipartUpload(t *testing.T) {
	var gotField, gotFilename, gotPartType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		gotField = "file"
		gotFilename = header.Filename
		gotPartType = header.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(file)
		_, _ = io.WriteString(w, `{"name": "Colosseum"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Recognize(
		context.Background(), []byte("image-bytes"), "tower.png", "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotField != "file" {
		t.Error("expected the image under form field 'file'")
	}
	if gotFilename != "tower.png" {
		t.Errorf("expected filename 'tower.png', got %q", gotFilename)
	}
	if gotPartType != "image/png" {
		t.Errorf("expected part content type 'image/png', got %q", gotPartType)
	}
	if string(gotBody) != "image-bytes" {
		t.Errorf("expected image bytes forwarded, got %q", gotBody)
	}
}

func TestRecognize_DefaultFilenameAndType(t *testing.T) {
	var gotFilename, gotPartType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		_ = file.Close()
		gotFilename = header.Filename
		gotPartType = header.Header.Get("Content-Type")
		_, _ = io.WriteString(w, `{"name": "Colosseum"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Recognize(context.Background(), []byte("img"), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFilename != "upload.jpg" {
		t.Errorf("expected default filename 'upload.jpg', got %q", gotFilename)
	}
	if gotPartType != "image/jpeg" {
		t.Errorf("expected default part type 'image/jpeg', got %q", gotPartType)
	}
}

// --- HealthCheck tests ---

func TestHealthCheck_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("expected /health, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(&Config{
		Endpoint:   srv.URL + "/api/predict",
		HealthPath: "/health",
		Logger:     zap.NewNop(),
	})
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealthCheck_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(&Config{
		Endpoint:   srv.URL + "/api/predict",
		HealthPath: "/health",
		Logger:     zap.NewNop(),
	})
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestHealthCheck_NoPathConfigured(t *testing.T) {
	c := NewClient(&Config{Endpoint: "http://localhost:1/api/predict", Logger: zap.NewNop()})
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected nil without health path, got %v", err)
	}
}
