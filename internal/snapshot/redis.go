package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
)

// RedisStore keeps snapshots and schedule markers in redis so several
// instances can share them. Values never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger logging.Logger
}

// NewRedisStore builds a client from the redis config block
func NewRedisStore(cfg config.RedisConfig, logger logging.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}

	return NewRedisStoreFromClient(redis.NewClient(opts), cfg.KeyPrefix, logger), nil
}

func NewRedisStoreFromClient(client *redis.Client, prefix string, logger logging.Logger) *RedisStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.WithField("component", "snapshot_redis"),
	}
}

func (s *RedisStore) snapshotKey(key string) string {
	return s.namespaced("snapshot", key)
}

func (s *RedisStore) markerKey(key string) string {
	return s.namespaced("schedule", key)
}

func (s *RedisStore) namespaced(kind, key string) string {
	if s.prefix == "" {
		return fmt.Sprintf("%s:%s", kind, key)
	}
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, key)
}

func (s *RedisStore) Load(ctx context.Context, key string) (json.RawMessage, error) {
	if err := checkKey(key); err != nil {
		return nil, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.snapshotKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Snapshot unreadable, treating as missing", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return nil, ErrNotFound
	}

	if !json.Valid(data) {
		s.logger.Warn("Snapshot corrupt, treating as missing", map[string]interface{}{"key": key})
		return nil, ErrNotFound
	}
	return json.RawMessage(data), nil
}

func (s *RedisStore) Save(ctx context.Context, key string, data interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.snapshotKey(key), payload, 0).Err(); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) LastScheduledRun(ctx context.Context, key string) (time.Time, bool) {
	if checkKey(key) != nil {
		return time.Time{}, false
	}

	raw, err := s.client.Get(ctx, s.markerKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Schedule marker unreadable, treating as never run", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return time.Time{}, false
	}
	return parseMarker(raw)
}

func (s *RedisStore) MarkScheduledRun(ctx context.Context, key string, at time.Time) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.client.Set(ctx, s.markerKey(key), formatMarker(at), 0).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
