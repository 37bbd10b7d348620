package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/hszk-dev/redis-url-shortener/internal/shortener"
)

type fakeHealth struct {
	err error
}

func (f fakeHealth) Ping(ctx context.Context) error {
	return f.err
}

func newTestApp(alloc shortener.IDAllocator, repo shortener.Repository) *App {
	return &App{
		Service: shortener.NewService(alloc, repo),
		Health:  fakeHealth{},
		BaseURL: "http://localhost:8080",
	}
}

func TestShortenHandler(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    string
		mockID         uint64
		mockAllocError error
		mockPutError   error
		expectedStatus int
		checkResponse  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "successful URL shortening",
			requestBody:    `{"url":"https://www.google.com"}`,
			mockID:         1,
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp ShortenResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if resp.ShortCode != "1" {
					t.Errorf("Expected short_code '1', got '%s'", resp.ShortCode)
				}
				if resp.ShortURL != "http://localhost:8080/1" {
					t.Errorf("Expected short_url 'http://localhost:8080/1', got '%s'", resp.ShortURL)
				}
			},
		},
		{
			name:           "multi-digit short code",
			requestBody:    `{"url":"https://github.com"}`,
			mockID:         12345,
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp ShortenResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if resp.ShortCode != "3d7" {
					t.Errorf("Expected short_code '3d7', got '%s'", resp.ShortCode)
				}
			},
		},
		{
			name:           "empty URL",
			requestBody:    `{"url":""}`,
			expectedStatus: http.StatusBadRequest,
			checkResponse:  bodyContains("URL is required"),
		},
		{
			name:           "missing URL field",
			requestBody:    `{}`,
			expectedStatus: http.StatusBadRequest,
			checkResponse:  bodyContains("URL is required"),
		},
		{
			name:           "invalid JSON",
			requestBody:    `{invalid json}`,
			expectedStatus: http.StatusBadRequest,
			checkResponse:  bodyContains("Invalid request body"),
		},
		{
			name:           "invalid URL scheme (ftp)",
			requestBody:    `{"url":"ftp://example.com"}`,
			expectedStatus: http.StatusBadRequest,
			checkResponse:  bodyContains("Invalid URL format"),
		},
		{
			name:           "invalid URL (no scheme)",
			requestBody:    `{"url":"www.google.com"}`,
			expectedStatus: http.StatusBadRequest,
			checkResponse:  bodyContains("Invalid URL format"),
		},
		{
			name:           "store unavailable",
			requestBody:    `{"url":"https://www.example.com"}`,
			mockAllocError: fmt.Errorf("%w: incr next_short_id: connection refused", shortener.ErrStoreUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
			checkResponse:  bodyContains("Service unavailable"),
		},
		{
			name:           "store not initialized",
			requestBody:    `{"url":"https://www.example.com"}`,
			mockAllocError: shortener.ErrNotInitialized,
			expectedStatus: http.StatusInternalServerError,
			checkResponse:  bodyContains("Internal server error"),
		},
		{
			name:           "timeout",
			requestBody:    `{"url":"https://www.example.com"}`,
			mockID:         2,
			mockPutError:   fmt.Errorf("%w: set 2: %w", shortener.ErrStoreUnavailable, context.DeadlineExceeded),
			expectedStatus: http.StatusRequestTimeout,
			checkResponse:  bodyContains("Request timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAlloc := &shortener.MockAllocator{
				NextIDFunc: func(ctx context.Context) (uint64, error) {
					return tt.mockID, tt.mockAllocError
				},
			}
			mockRepo := &shortener.MockRepository{
				PutFunc: func(ctx context.Context, code, url string) error {
					return tt.mockPutError
				},
			}
			app := newTestApp(mockAlloc, mockRepo)

			req := httptest.NewRequest("POST", "/api/shorten", bytes.NewBufferString(tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			app.ShortenHandler(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestShortenHandler_ContentType(t *testing.T) {
	mockAlloc := &shortener.MockAllocator{
		NextIDFunc: func(ctx context.Context) (uint64, error) {
			return 1, nil
		},
	}
	app := newTestApp(mockAlloc, &shortener.MockRepository{})

	req := httptest.NewRequest("POST", "/api/shorten",
		bytes.NewBufferString(`{"url":"https://www.google.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	app.ShortenHandler(w, req)

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}
}

func TestShortenLongURLHandler(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    string
		mockAllocError error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "success",
			requestBody:    `{"long_url":"https://www.google.com"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"short_url":"http://localhost:8080/1"}`,
		},
		{
			name:           "missing long_url",
			requestBody:    `{"url":"https://www.google.com"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Missing 'long_url' in request body"}`,
		},
		{
			name:           "wrong scheme",
			requestBody:    `{"long_url":"ftp://example.com"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"URL must start with http:// or https://"}`,
		},
		{
			name:           "invalid JSON",
			requestBody:    `not json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid JSON in request body"}`,
		},
		{
			name:           "store unavailable",
			requestBody:    `{"long_url":"https://www.google.com"}`,
			mockAllocError: fmt.Errorf("%w: incr next_short_id: connection refused", shortener.ErrStoreUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"error":"Service unavailable"}`,
		},
		{
			name:           "timeout",
			requestBody:    `{"long_url":"https://www.google.com"}`,
			mockAllocError: fmt.Errorf("%w: incr next_short_id: %w", shortener.ErrStoreUnavailable, context.DeadlineExceeded),
			expectedStatus: http.StatusRequestTimeout,
			expectedBody:   `{"error":"Request timeout"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAlloc := &shortener.MockAllocator{
				NextIDFunc: func(ctx context.Context) (uint64, error) {
					return 1, tt.mockAllocError
				},
			}
			app := newTestApp(mockAlloc, &shortener.MockRepository{})

			req := httptest.NewRequest("POST", "/shorten", bytes.NewBufferString(tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			app.ShortenLongURLHandler(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
			}
			if body := strings.TrimSpace(w.Body.String()); body != tt.expectedBody {
				t.Errorf("Expected body %s, got %s", tt.expectedBody, body)
			}
		})
	}
}

func TestIndexHandler(t *testing.T) {
	app := newTestApp(&shortener.MockAllocator{}, &shortener.MockRepository{})

	w := httptest.NewRecorder()
	app.IndexHandler(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected text/html, got '%s'", ct)
	}
	bodyContains("http://localhost:8080")(t, w)
}

func TestRedirectHandler(t *testing.T) {
	tests := []struct {
		name           string
		shortCode      string
		mockURL        string
		mockError      error
		expectedStatus int
		expectedHeader string
		checkResponse  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "successful redirect",
			shortCode:      "1",
			mockURL:        "https://www.google.com",
			expectedStatus: http.StatusFound,
			expectedHeader: "https://www.google.com",
		},
		{
			name:           "URL not found",
			shortCode:      "xyz",
			mockError:      shortener.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			checkResponse:  bodyContains("URL not found"),
		},
		{
			name:           "code outside the alphabet is just unknown",
			shortCode:      "invalid!@#",
			mockError:      shortener.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			checkResponse:  bodyContains("URL not found"),
		},
		{
			name:           "store unavailable",
			shortCode:      "1",
			mockError:      fmt.Errorf("%w: get 1: connection refused", shortener.ErrStoreUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "store not initialized",
			shortCode:      "1",
			mockError:      shortener.ErrNotInitialized,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "timeout error",
			shortCode:      "1",
			mockError:      context.DeadlineExceeded,
			expectedStatus: http.StatusRequestTimeout,
			checkResponse:  bodyContains("Request timeout"),
		},
		{
			name:           "redirect with long URL",
			shortCode:      "3d7",
			mockURL:        "https://github.com/golang/go/issues/12345",
			expectedStatus: http.StatusFound,
			expectedHeader: "https://github.com/golang/go/issues/12345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &shortener.MockRepository{
				GetFunc: func(ctx context.Context, code string) (string, error) {
					return tt.mockURL, tt.mockError
				},
			}
			app := newTestApp(&shortener.MockAllocator{}, mockRepo)

			req := httptest.NewRequest("GET", "/", nil)
			req = mux.SetURLVars(req, map[string]string{
				"shortCode": tt.shortCode,
			})
			w := httptest.NewRecorder()

			app.RedirectHandler(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusFound {
				if location := w.Header().Get("Location"); location != tt.expectedHeader {
					t.Errorf("Expected Location header '%s', got '%s'", tt.expectedHeader, location)
				}
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		expectedStatus int
	}{
		{"healthy", nil, http.StatusOK},
		{"store down", shortener.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"never connected", shortener.ErrNotInitialized, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&shortener.MockAllocator{}, &shortener.MockRepository{})
			app.Health = fakeHealth{err: tt.pingErr}

			w := httptest.NewRecorder()
			app.HealthHandler(w, httptest.NewRequest("GET", "/health", nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestRouter(t *testing.T) {
	mockAlloc := &shortener.MockAllocator{
		NextIDFunc: func(ctx context.Context) (uint64, error) {
			return 62, nil
		},
	}
	stored := map[string]string{}
	mockRepo := &shortener.MockRepository{
		PutFunc: func(ctx context.Context, code, url string) error {
			stored[code] = url
			return nil
		},
		GetFunc: func(ctx context.Context, code string) (string, error) {
			url, ok := stored[code]
			if !ok {
				return "", shortener.ErrNotFound
			}
			return url, nil
		},
	}
	router := NewRouter(newTestApp(mockAlloc, mockRepo))

	// Shorten then follow the code through the router.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/shorten",
		bytes.NewBufferString(`{"url":"https://example.com/x"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/shorten: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/shorten",
		bytes.NewBufferString(`{"long_url":"https://example.com/x"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("POST /shorten: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/10", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("GET /10: expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://example.com/x" {
		t.Errorf("GET /10: Location = %s", loc)
	}

	routes := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/", http.StatusOK},
		// GET falls through to the short code route and misses.
		{"GET", "/shorten", http.StatusNotFound},
		{"GET", "/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/docs/swagger.yml", http.StatusOK},
		{"GET", "/unknown", http.StatusNotFound},
		{"GET", "/api/shorten", http.StatusMethodNotAllowed},
	}
	for _, rt := range routes {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
		if w.Code != rt.status {
			t.Errorf("%s %s: expected %d, got %d", rt.method, rt.path, rt.status, w.Code)
		}
	}
}

func TestWriteError_Unknown(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, "Test", errors.New("boom"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func bodyContains(want string) func(*testing.T, *httptest.ResponseRecorder) {
	return func(t *testing.T, w *httptest.ResponseRecorder) {
		t.Helper()
		body := strings.TrimSpace(w.Body.String())
		if !strings.Contains(body, want) {
			t.Errorf("Expected '%s' in body, got: %s", want, body)
		}
	}
}
