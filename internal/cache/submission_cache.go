package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"gopherform/internal/model"
)

const (
	submissionListKey    = "form:submissions:list"
	submissionVersionKey = "form:submissions:version"
)

// SubmissionListCache holds the latest full listing as one JSON blob tagged
// with the version it was read at. Every write bumps the version, so a blob
// filled from a read that raced a write is never served.
type SubmissionListCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

type cachedList struct {
	Version int64              `json:"version"`
	Items   []model.Submission `json:"items"`
}

func NewSubmissionListCache(client *redisv9.Client, ttl time.Duration) *SubmissionListCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SubmissionListCache{
		client: client,
		ttl:    ttl,
	}
}

// GetList returns the cached listing when it matches the current version.
// The current version is returned on a miss too; pass it to SetList.
func (c *SubmissionListCache) GetList(ctx context.Context) ([]model.Submission, int64, bool, error) {
	vals, err := c.client.MGet(ctx, submissionVersionKey, submissionListKey).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get submission list failed: %w", err)
	}

	version, err := parseVersion(vals[0])
	if err != nil {
		return nil, 0, false, err
	}

	raw, ok := vals[1].(string)
	if !ok {
		return nil, version, false, nil
	}

	var cached cachedList
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, version, false, fmt.Errorf("unmarshal cached submission list failed: %w", err)
	}
	if cached.Version != version {
		return nil, version, false, nil
	}
	if cached.Items == nil {
		cached.Items = []model.Submission{}
	}
	return cached.Items, version, true, nil
}

// SetList stores list as read at version.
func (c *SubmissionListCache) SetList(ctx context.Context, version int64, list []model.Submission) error {
	if list == nil {
		list = []model.Submission{}
	}
	payload, err := json.Marshal(cachedList{Version: version, Items: list})
	if err != nil {
		return fmt.Errorf("marshal submission list failed: %w", err)
	}
	if err := c.client.Set(ctx, submissionListKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set submission list failed: %w", err)
	}
	return nil
}

func (c *SubmissionListCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Incr(ctx, submissionVersionKey)
		pipe.Del(ctx, submissionListKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate submission list failed: %w", err)
	}
	return nil
}

func (c *SubmissionListCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func parseVersion(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse submission list version failed: %w", err)
	}
	return version, nil
}
