package shortener

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound = errors.New("url not found")
)

// Repository stores short code to URL mappings.
type Repository interface {
	Put(ctx context.Context, shortCode, originalURL string) error
	Get(ctx context.Context, shortCode string) (string, error)
}

// RedisRepository keeps one plain string key per short code. Keys carry no
// prefix and no expiry.
type RedisRepository struct {
	store  *Store
	logger *log.Logger
}

func NewRedisRepository(store *Store) *RedisRepository {
	return &RedisRepository{
		store:  store,
		logger: log.New(os.Stderr, "[repository] ", log.LstdFlags),
	}
}

// Put writes the mapping unconditionally. Uniqueness of shortCode is the
// allocator's job, so an existing key is simply overwritten.
func (r *RedisRepository) Put(ctx context.Context, shortCode, originalURL string) error {
	client, err := r.store.Client()
	if err != nil {
		return err
	}

	if err := client.Set(ctx, shortCode, originalURL, 0).Err(); err != nil {
		r.logger.Printf("redis set failed for key=%s: %v", shortCode, err)
		return storeError("set "+shortCode, err)
	}
	return nil
}

// Get returns the URL stored under shortCode, or ErrNotFound.
func (r *RedisRepository) Get(ctx context.Context, shortCode string) (string, error) {
	client, err := r.store.Client()
	if err != nil {
		return "", err
	}

	val, err := client.Get(ctx, shortCode).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		r.logger.Printf("redis get failed for key=%s: %v", shortCode, err)
		return "", storeError("get "+shortCode, err)
	}
	return val, nil
}
