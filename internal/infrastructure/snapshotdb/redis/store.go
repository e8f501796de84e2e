// Package redis provides a Redis implementation of the snapshot store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

const (
	keyPrefix = "pagewatch:snapshot:"
	indexKey  = "pagewatch:snapshots"

	fieldHash      = "hash"
	fieldUpdatedAt = "updated_at"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Store implements ports.SnapshotRepository on Redis hashes.
type Store struct {
	client *redis.Client
}

// NewStore connects to cfg.RedisAddr and verifies the server answers.
func NewStore(ctx context.Context, cfg config.SnapshotConfig) (*Store, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Read returns the snapshot stored for url, or nil when there is none.
func (s *Store) Read(ctx context.Context, url string) (*entities.Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, snapshotKey(url)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return toSnapshot(url, fields)
}

// Write stores the digest for url. The hash and the index entry are written
// in one MULTI/EXEC transaction.
func (s *Store) Write(ctx context.Context, url, hash string) error {
	updatedAt := timeNow().UTC().Format(time.RFC3339Nano)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, snapshotKey(url), fieldHash, hash, fieldUpdatedAt, updatedAt)
		pipe.SAdd(ctx, indexKey, url)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// List returns every indexed snapshot ordered by URL.
func (s *Store) List(ctx context.Context) ([]entities.Snapshot, error) {
	urls, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	slices.Sort(urls)

	// Use pipeline to fetch every hash in one round trip
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(urls))
	for i, url := range urls {
		cmds[i] = pipe.HGetAll(ctx, snapshotKey(url))
	}
	if len(urls) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
	}

	snapshots := make([]entities.Snapshot, 0, len(urls))
	for i, url := range urls {
		snap, err := toSnapshot(url, cmds[i].Val())
		if err != nil {
			return nil, err
		}
		// Index entries whose hash was removed out of band are skipped.
		if snap != nil {
			snapshots = append(snapshots, *snap)
		}
	}
	return snapshots, nil
}

func snapshotKey(url string) string {
	return keyPrefix + url
}

func toSnapshot(url string, fields map[string]string) (*entities.Snapshot, error) {
	hash, ok := fields[fieldHash]
	if !ok {
		return nil, nil
	}

	snap := &entities.Snapshot{URL: url, Hash: hash}
	if raw := fields[fieldUpdatedAt]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at %q: %w", raw, err)
		}
		snap.UpdatedAt = t
	}
	return snap, nil
}
