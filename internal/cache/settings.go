package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/meetsched/internal/model"
	"github.com/md-rashed-zaman/meetsched/internal/schedule"
	"github.com/redis/go-redis/v9"
)

// Settings is a redis read-through cache in front of a settings store.
// Schedule builds hit the settings row on every request, so settings are kept
// hot as JSON values with a short TTL. Cache failures degrade to the inner
// store and never fail the request.
type Settings struct {
	inner  schedule.SettingsStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewSettings(inner schedule.SettingsStore, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Settings {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Settings{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func settingsKey(userID string) string {
	return "settings:" + userID
}

func (c *Settings) Get(ctx context.Context, userID string) (model.UserSettings, error) {
	if raw, err := c.rdb.Get(ctx, settingsKey(userID)).Bytes(); err == nil {
		var s model.UserSettings
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
		// Unreadable entry: drop it and fall through to the store.
		_ = c.rdb.Del(ctx, settingsKey(userID)).Err()
	} else if err != redis.Nil {
		c.logger.Warn("settings cache read failed", "err", err, "user_id", userID)
	}

	s, err := c.inner.Get(ctx, userID)
	if err != nil {
		return model.UserSettings{}, err
	}
	if raw, err := json.Marshal(s); err == nil {
		if err := c.rdb.Set(ctx, settingsKey(userID), raw, c.ttl).Err(); err != nil {
			c.logger.Warn("settings cache write failed", "err", err, "user_id", userID)
		}
	}
	return s, nil
}

func (c *Settings) Upsert(ctx context.Context, settings model.UserSettings) error {
	if err := c.inner.Upsert(ctx, settings); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, settingsKey(settings.UserID)).Err(); err != nil {
		c.logger.Warn("settings cache invalidation failed", "err", err, "user_id", settings.UserID)
	}
	return nil
}

func (c *Settings) IsNotFound(err error) bool {
	return c.inner.IsNotFound(err)
}
