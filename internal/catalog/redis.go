package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore reads catalogs from one hash per user, field = asset ID,
// value = name.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore parses the URL and creates a client. The connection is
// established lazily.
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opt), prefix: prefix}, nil
}

// Key returns the hash key holding a user's catalog.
func (s *RedisStore) Key(userID string) string {
	return s.prefix + userID
}

// Snapshot returns the user's assets ordered by ID.
func (s *RedisStore) Snapshot(ctx context.Context, userID string) ([]Asset, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	fields, err := s.client.HGetAll(ctx, s.Key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return assetsFromHash(fields), nil
}

// Close closes the client.
func (s *RedisStore) Close(context.Context) error {
	return s.client.Close()
}

func assetsFromHash(fields map[string]string) []Asset {
	out := make([]Asset, 0, len(fields))
	for id, name := range fields {
		if name == "" {
			continue
		}
		out = append(out, Asset{ID: AssetID(id), Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
