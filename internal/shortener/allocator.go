package shortener

import "context"

// DefaultCounterKey is the Redis key holding the identifier counter.
const DefaultCounterKey = "next_short_id"

// IDAllocator hands out identifiers that are never reused.
type IDAllocator interface {
	NextID(ctx context.Context) (uint64, error)
}

// RedisAllocator issues identifiers with a single INCR on a shared counter, so
// concurrent callers across any number of instances never see the same value.
type RedisAllocator struct {
	store *Store
	key   string
}

func NewRedisAllocator(store *Store, key string) *RedisAllocator {
	if key == "" {
		key = DefaultCounterKey
	}
	return &RedisAllocator{
		store: store,
		key:   key,
	}
}

// NextID increments the counter and returns the new value. A missing counter
// counts as 0, so the first identifier is 1.
func (a *RedisAllocator) NextID(ctx context.Context) (uint64, error) {
	client, err := a.store.Client()
	if err != nil {
		return 0, err
	}

	n, err := client.Incr(ctx, a.key).Result()
	if err != nil {
		return 0, storeError("incr "+a.key, err)
	}
	return uint64(n), nil
}
