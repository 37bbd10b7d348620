//go:build e2e

package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// The suite talks to a running server and to the Redis behind it. Both
// addresses come from the same variables the server reads.
var (
	serviceURL = envOr("E2E_BASE_URL", "http://localhost:8080")
	redisAddr  = net.JoinHostPort(envOr("REDIS_HOST", "localhost"), envOr("REDIS_PORT", "6379"))

	// rdb is an admin connection used to reset and disturb the store.
	rdb *redis.Client

	// noRedirect lets tests see the 302 itself.
	noRedirect = &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type shortenResult struct {
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
}

// flushStore empties the Redis database so the counter restarts at 1.
func flushStore(t *testing.T) {
	t.Helper()
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
}

// shorten calls POST /api/shorten and requires a 200.
func shorten(t *testing.T, longURL string) shortenResult {
	t.Helper()

	status, body := post(t, "/api/shorten", map[string]string{"url": longURL})
	require.Equal(t, http.StatusOK, status, "shorten %s: %s", longURL, body)

	var res shortenResult
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func post(t *testing.T, path string, payload any) (int, []byte) {
	t.Helper()

	status, body, err := postJSON(path, payload)
	require.NoError(t, err)
	return status, body
}

// postJSON is safe to call from goroutines other than the test's.
func postJSON(path string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	resp, err := noRedirect.Post(serviceURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

// get returns the status, headers and body of a GET without following redirects.
func get(t *testing.T, path string) (int, http.Header, string) {
	t.Helper()

	resp, err := noRedirect.Get(serviceURL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, string(body)
}

func healthStatus() (int, error) {
	resp, err := noRedirect.Get(serviceURL + "/health")
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func TestMain(m *testing.M) {
	rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := waitHealthy(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "e2e: %v\n", err)
		fmt.Fprintf(os.Stderr, "start redis-server and `go run .`, then: go test -tags=e2e ./tests/\n")
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// waitHealthy waits until both Redis and the server's /health answer.
func waitHealthy(ctx context.Context) error {
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()

	for {
		var err error
		if err = rdb.Ping(ctx).Err(); err == nil {
			var status int
			if status, err = healthStatus(); err == nil && status != http.StatusOK {
				err = fmt.Errorf("/health returned %d", status)
			}
		}
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s not ready (redis %s): %w", serviceURL, redisAddr, err)
		case <-tick.C:
		}
	}
}
