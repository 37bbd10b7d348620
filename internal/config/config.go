package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Redis Redis
}

type Redis struct {
	Host         string
	Port         int
	DB           int
	Password     string
	CounterKey   string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns host:port for the Redis client.
func (r Redis) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

func defaults() Config {
	return Config{
		Addr:            ":8080",
		BaseURL:         "http://localhost:8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     time.Minute,
		ShutdownTimeout: 10 * time.Second,

		Redis: Redis{
			Host:         "localhost",
			Port:         6379,
			DB:           0,
			CounterKey:   "next_short_id",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
}

// Load reads configuration from the environment, after loading a .env file
// if one is present. Unset variables keep their defaults; set but malformed
// ones are an error.
func Load() (*Config, error) {
	const op = "config.Load"

	// Load .env
	_ = godotenv.Load()

	cfg := defaults()
	l := loader{}

	l.str("ADDR", &cfg.Addr)
	l.str("BASE_URL", &cfg.BaseURL)
	l.duration("READ_TIMEOUT", &cfg.ReadTimeout)
	l.duration("WRITE_TIMEOUT", &cfg.WriteTimeout)
	l.duration("IDLE_TIMEOUT", &cfg.IdleTimeout)
	l.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	l.str("REDIS_HOST", &cfg.Redis.Host)
	l.integer("REDIS_PORT", &cfg.Redis.Port, 1, 65535)
	l.integer("REDIS_DB", &cfg.Redis.DB, 0, 1<<16)
	l.str("REDIS_PASSWORD", &cfg.Redis.Password)
	l.str("COUNTER_KEY", &cfg.Redis.CounterKey)
	l.duration("REDIS_DIAL_TIMEOUT", &cfg.Redis.DialTimeout)
	l.duration("REDIS_READ_TIMEOUT", &cfg.Redis.ReadTimeout)
	l.duration("REDIS_WRITE_TIMEOUT", &cfg.Redis.WriteTimeout)

	if l.err != nil {
		return nil, fmt.Errorf("%s: %w", op, l.err)
	}
	return &cfg, nil
}

// loader remembers the first parse error so Load can read every key in one
// straight run.
type loader struct {
	err error
}

func (l *loader) lookup(key string) (string, bool) {
	if l.err != nil {
		return "", false
	}
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

func (l *loader) str(key string, dst *string) {
	if v, ok := l.lookup(key); ok {
		*dst = v
	}
}

func (l *loader) integer(key string, dst *int, min, max int) {
	v, ok := l.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	if n < min || n > max {
		l.err = fmt.Errorf("%s: %d out of range [%d, %d]", key, n, min, max)
		return
	}
	*dst = n
}

func (l *loader) duration(key string, dst *time.Duration) {
	v, ok := l.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = d
}
