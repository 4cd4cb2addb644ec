package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

// Store is the shared key-value space every tab reads and writes. It is the
// only transport between tabs: there are no transactions and no versioning,
// so every mutation is a whole-collection read-modify-write and the last
// writer wins.
type Store struct {
	rdb *redis.Client
	log *slog.Logger
}

func New(rdb *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		rdb: rdb,
		log: logger,
	}
}

// Connect connects to the Redis server backing the shared store and pings it
// to ensure the connection is working.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

// Get returns the raw serialized value for key, with ok reporting whether the
// key exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set writes the raw serialized value for key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, key, value, 0).Err()
}

// Load reads key and decodes the stored JSON into v. An absent key and an
// undecodable value both leave v untouched: a reader never fails because
// another writer stored garbage. This tolerant-decode policy is applied at
// the storage boundary only.
func (s *Store) Load(ctx context.Context, key string, v any) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		s.log.Warn("[STORE] Read failed, treating as empty", "key", key, "error", err)
		return
	}
	if !ok {
		return
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.log.Warn("[STORE] Undecodable value, treating as empty", "key", key, "error", err)
	}
}

// Save marshals v and writes it under key. Write failures are logged and
// dropped; the caller carries on with whatever the next sync tick delivers.
func (s *Store) Save(ctx context.Context, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Error("[STORE] Failed to marshal value", "key", key, "error", err)
		return
	}

	if err := s.Set(ctx, key, string(payload)); err != nil {
		s.log.Error("[STORE] Write failed, dropping update", "key", key, "error", err)
	}
}
