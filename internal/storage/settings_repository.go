package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/meetsched/internal/model"
	"github.com/md-rashed-zaman/meetsched/libs/db"
)

const defaultLookaheadDays = 7

type SettingsRepository struct {
	pool *db.Pool
}

func NewSettingsRepository(pool *db.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// availability_rules is a JSONB column; rules travel as this wire shape.
type ruleRow struct {
	Day   string      `json:"day"`
	Hours [][2]string `json:"hours"`
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (model.UserSettings, error) {
	var s model.UserSettings
	var rulesJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, duration_minutes, timezone, max_lookahead_days, availability_rules, updated_at
		FROM user_schedule_settings
		WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.DurationMinutes, &s.Timezone, &s.MaxLookaheadDays, &rulesJSON, &s.UpdatedAt)
	if err != nil {
		return model.UserSettings{}, err
	}

	var rows []ruleRow
	if len(rulesJSON) > 0 {
		if err := json.Unmarshal(rulesJSON, &rows); err != nil {
			return model.UserSettings{}, fmt.Errorf("decode availability rules for %s: %w", userID, err)
		}
	}
	s.Rules = make([]model.AvailabilityRule, 0, len(rows))
	for _, row := range rows {
		s.Rules = append(s.Rules, model.AvailabilityRule{Day: row.Day, Hours: row.Hours})
	}
	return s, nil
}

// Upsert writes duration, timezone and rules. The lookahead window is not
// writable through the settings API; inserts get the default and updates keep
// the stored value.
func (r *SettingsRepository) Upsert(ctx context.Context, s model.UserSettings) error {
	rows := make([]ruleRow, 0, len(s.Rules))
	for _, rule := range s.Rules {
		rows = append(rows, ruleRow{Day: rule.Day, Hours: rule.Hours})
	}
	rulesJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode availability rules for %s: %w", s.UserID, err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_schedule_settings (user_id, duration_minutes, timezone, max_lookahead_days, availability_rules, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET duration_minutes = EXCLUDED.duration_minutes,
			timezone = EXCLUDED.timezone,
			availability_rules = EXCLUDED.availability_rules,
			updated_at = EXCLUDED.updated_at
	`, s.UserID, s.DurationMinutes, s.Timezone, defaultLookaheadDays, rulesJSON, s.UpdatedAt)
	return err
}

func (r *SettingsRepository) IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
