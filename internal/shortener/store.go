package shortener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/hszk-dev/redis-url-shortener/internal/metrics"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrStoreUnavailable wraps every failed operation against Redis.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotInitialized is returned when the store is used before Connect.
	ErrNotInitialized = errors.New("store not initialized")
)

type connState int

const (
	disconnected connState = iota
	connected
)

func (s connState) String() string {
	switch s {
	case disconnected:
		return "disconnected"
	case connected:
		return "connected"
	default:
		return fmt.Sprintf("connState(%d)", int(s))
	}
}

// StoreOptions describes how to reach the shared Redis instance.
type StoreOptions struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Store owns the process-wide Redis connection. It starts disconnected and
// must be connected explicitly; the allocator and the repository receive it at
// construction time and ask it for the client on every call.
type Store struct {
	opts   StoreOptions
	logger *log.Logger

	mu     sync.RWMutex
	state  connState
	client *redis.Client
}

func NewStore(opts StoreOptions) *Store {
	return &Store{
		opts:   opts,
		logger: log.New(os.Stderr, "[store] ", log.LstdFlags),
		state:  disconnected,
	}
}

// Connect installs the Redis client and verifies it with a PING.
//
// A failed PING is reported to the caller but the client stays installed: the
// process keeps serving in a degraded state and each store call fails on its
// own with ErrStoreUnavailable until Redis becomes reachable.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case connected:
		s.mu.Unlock()
		return nil
	case disconnected:
		s.client = redis.NewClient(&redis.Options{
			Addr:         s.opts.Addr,
			Password:     s.opts.Password,
			DB:           s.opts.DB,
			DialTimeout:  s.opts.DialTimeout,
			ReadTimeout:  s.opts.ReadTimeout,
			WriteTimeout: s.opts.WriteTimeout,
			// INCR is not idempotent; a transparent retry could burn or
			// double-count identifiers.
			MaxRetries: -1,
		})
		s.state = connected
	}
	client := s.client
	s.mu.Unlock()

	if err := client.Ping(ctx).Err(); err != nil {
		metrics.StoreUp.Set(0)
		return storeError("ping "+s.opts.Addr, err)
	}
	metrics.StoreUp.Set(1)
	s.logger.Printf("connected to redis at %s (db=%d)", s.opts.Addr, s.opts.DB)
	return nil
}

// Client returns the live Redis client, or ErrNotInitialized before Connect
// and after Close.
func (s *Store) Client() (*redis.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.state {
	case connected:
		return s.client, nil
	case disconnected:
		return nil, ErrNotInitialized
	default:
		return nil, fmt.Errorf("unexpected store state %s", s.state)
	}
}

// Ping checks that Redis answers. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	client, err := s.Client()
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		metrics.StoreUp.Set(0)
		return storeError("ping "+s.opts.Addr, err)
	}
	metrics.StoreUp.Set(1)
	return nil
}

// Close releases the connection pool and returns the store to the
// disconnected state. Closing a disconnected store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case disconnected:
		return nil
	case connected:
		err := s.client.Close()
		s.client = nil
		s.state = disconnected
		metrics.StoreUp.Set(0)
		if err != nil {
			return fmt.Errorf("failed to close redis: %w", err)
		}
	}
	return nil
}

// storeError tags a Redis failure with ErrStoreUnavailable while keeping the
// underlying cause (e.g. context.DeadlineExceeded) reachable via errors.Is.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
