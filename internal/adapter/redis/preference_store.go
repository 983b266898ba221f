package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/syncpulse/internal/domain"
)

const preferencesKey = "syncpulse:prefs"

// PreferenceStore keeps preferences as fields of one Redis hash.
type PreferenceStore struct {
	rdb goredis.Cmdable
	key string
}

func NewPreferenceStore(rdb goredis.Cmdable) *PreferenceStore {
	return &PreferenceStore{rdb: rdb, key: preferencesKey}
}

func (s *PreferenceStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.HGet(ctx, s.key, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrPreferenceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return v, nil
}

func (s *PreferenceStore) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

func (s *PreferenceStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}
