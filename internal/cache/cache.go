// Package cache keeps a Redis snapshot of each user's last fetched
// bookmark list so the CLI and dashboard can show something before the
// backend answers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
)

const keyPrefix = "bookmarks:user:"

// ListKey is the sorted set holding a user's bookmarks scored by creation time.
func ListKey(userID string) string { return keyPrefix + userID }

// SyncedKey records when ListKey was last replaced.
func SyncedKey(userID string) string { return keyPrefix + userID + ":synced_at" }

type Cache struct {
	client *redis.Client
	logger logger.Logger
	now    func() time.Time
}

func New(client *redis.Client, log logger.Logger) *Cache {
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{client: client, logger: log, now: time.Now}
}

// Save replaces the user's snapshot with list in one transaction.
func (c *Cache) Save(ctx context.Context, userID string, list []models.Bookmark) error {
	members := make([]*redis.Z, 0, len(list))
	for _, b := range list {
		if b.IsTemp() {
			continue
		}
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode bookmark %s: %w", b.ID, err)
		}
		members = append(members, &redis.Z{Score: score(b.CreatedAt), Member: data})
	}

	key := ListKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, key, members...)
		}
		pipe.Set(ctx, SyncedKey(userID), c.now().Unix(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	c.logger.Debug("snapshot saved", logger.String("user_id", userID), logger.Int("count", len(members)))
	return nil
}

// Load returns the snapshot newest first. A missing snapshot is an empty list.
func (c *Cache) Load(ctx context.Context, userID string) ([]models.Bookmark, error) {
	raw, err := c.client.ZRevRange(ctx, ListKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	out := make([]models.Bookmark, 0, len(raw))
	for _, member := range raw {
		var b models.Bookmark
		if err := json.Unmarshal([]byte(member), &b); err != nil {
			c.logger.Warn("skipping unreadable snapshot entry", logger.Error(err))
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// SyncedAt reports when the snapshot was written; zero when never.
func (c *Cache) SyncedAt(ctx context.Context, userID string) (time.Time, error) {
	v, err := c.client.Get(ctx, SyncedKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse synced_at: %w", err)
	}
	return time.Unix(sec, 0), nil
}

// Clear drops the user's snapshot, used on sign-out.
func (c *Cache) Clear(ctx context.Context, userID string) error {
	return c.client.Del(ctx, ListKey(userID), SyncedKey(userID)).Err()
}

func (c *Cache) Close() error { return c.client.Close() }

func score(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}
