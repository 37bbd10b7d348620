package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/hszk-dev/redis-url-shortener/docs"
	"github.com/hszk-dev/redis-url-shortener/internal/config"
	"github.com/hszk-dev/redis-url-shortener/internal/metrics"
	"github.com/hszk-dev/redis-url-shortener/internal/shortener"
	"github.com/hszk-dev/redis-url-shortener/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
)

// HealthChecker reports whether the backing store answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type App struct {
	Service *shortener.Service
	Health  HealthChecker
	BaseURL string
}

type ShortenRequest struct {
	URL string `json:"url"`
}

type ShortenResponse struct {
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
}

func (a *App) ShortenHandler(w http.ResponseWriter, r *http.Request) {
	var req ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	shortCode, err := a.Service.Shorten(r.Context(), req.URL)
	if err != nil {
		writeError(w, "Shorten", err)
		return
	}

	resp := ShortenResponse{
		ShortCode: shortCode,
		ShortURL:  fmt.Sprintf("%s/%s", a.BaseURL, shortCode),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// LongURLRequest is the body of POST /shorten, the endpoint behind the home
// page form.
type LongURLRequest struct {
	LongURL string `json:"long_url"`
}

type LongURLResponse struct {
	ShortURL string `json:"short_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ShortenLongURLHandler is the JSON-in, JSON-out variant of ShortenHandler:
// it reads long_url and reports failures as {"error": ...}.
func (a *App) ShortenLongURLHandler(w http.ResponseWriter, r *http.Request) {
	var req LongURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON in request body"})
		return
	}

	shortCode, err := a.Service.Shorten(r.Context(), req.LongURL)
	if err != nil {
		writeJSONError(w, "Shorten", err)
		return
	}

	writeJSON(w, http.StatusOK, LongURLResponse{
		ShortURL: fmt.Sprintf("%s/%s", a.BaseURL, shortCode),
	})
}

func (a *App) IndexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.RenderIndex(w, web.IndexData{BaseURL: a.BaseURL}); err != nil {
		log.Printf("Index render error: %v", err)
	}
}

func (a *App) RedirectHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	shortCode := vars["shortCode"]

	originalURL, err := a.Service.Resolve(r.Context(), shortCode)
	if err != nil {
		writeError(w, "Redirect", err)
		return
	}

	// 302 Found so every hit reaches the service
	http.Redirect(w, r, originalURL, http.StatusFound)
}

func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.Health.Ping(ctx); err != nil {
		log.Printf("Health check failed: %v", err)
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// writeError maps workflow errors to HTTP responses. Client mistakes are
// 4xx; store trouble is 5xx and gets logged.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "Request timeout", http.StatusRequestTimeout)
	case errors.Is(err, shortener.ErrURLRequired):
		http.Error(w, "URL is required", http.StatusBadRequest)
	case errors.Is(err, shortener.ErrInvalidInput):
		http.Error(w, "Invalid URL format. Must be http:// or https://", http.StatusBadRequest)
	case errors.Is(err, shortener.ErrNotFound):
		http.Error(w, "URL not found", http.StatusNotFound)
	case errors.Is(err, shortener.ErrStoreUnavailable):
		log.Printf("%s error: %v", op, err)
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
	default:
		log.Printf("%s error: %v", op, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSONError is writeError for the JSON endpoints.
func writeJSONError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusRequestTimeout, errorResponse{Error: "Request timeout"})
	case errors.Is(err, shortener.ErrURLRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing 'long_url' in request body"})
	case errors.Is(err, shortener.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL must start with http:// or https://"})
	case errors.Is(err, shortener.ErrStoreUnavailable):
		log.Printf("%s error: %v", op, err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Service unavailable"})
	default:
		log.Printf("%s error: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func serveSwaggerSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(docs.Swagger)
}

// NewRouter wires the HTTP routes. Fixed paths are registered before the
// catch-all short code route so they take precedence.
func NewRouter(app *App) *mux.Router {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.HandleFunc("/", app.IndexHandler).Methods("GET")
	r.HandleFunc("/api/shorten", app.ShortenHandler).Methods("POST")
	r.HandleFunc("/shorten", app.ShortenLongURLHandler).Methods("POST")
	r.HandleFunc("/health", app.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/docs/swagger.yml", serveSwaggerSpec).Methods("GET")
	r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))
	r.HandleFunc("/{shortCode}", app.RedirectHandler).Methods("GET")

	return r
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	metrics.Init()

	// Connect to Redis. A failure is logged and the server still starts;
	// store-backed requests then fail individually until Redis is back.
	store := shortener.NewStore(shortener.StoreOptions{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout+time.Second)
	if err := store.Connect(connectCtx); err != nil {
		log.Printf("Could not connect to redis, starting degraded: %v", err)
	}
	cancel()
	defer store.Close()

	// Initialize Service
	service := shortener.NewService(
		shortener.NewRedisAllocator(store, cfg.Redis.CounterKey),
		shortener.NewRedisRepository(store),
	)
	app := &App{
		Service: service,
		Health:  store,
		BaseURL: cfg.BaseURL,
	}

	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        NewRouter(app),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Printf("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
