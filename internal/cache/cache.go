package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// Store is the key/value cache behind settings, schedules, sessions and the token blacklist.
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	DeletePattern(ctx context.Context, pattern string) (int64, error)
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error

	// Incr bumps a counter that lives for window from its first hit and
	// returns the new count and the time left until it resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

const (
	SystemSettingsKey = "system_settings"

	SystemSettingsTTL   = time.Hour
	ThisWeekScheduleTTL = 2 * time.Hour
	NextWeekScheduleTTL = 5 * time.Minute
)

func ThisWeekScheduleKey(start domain.Date) string {
	return fmt.Sprintf("schedule_this_week_%s", start)
}

func NextWeekScheduleKey(start domain.Date) string {
	return fmt.Sprintf("schedule_next_week_%s", start)
}

func RateLimitKey(scope, subject string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, subject)
}

func SessionKey(id string) string {
	return "session:" + id
}

func BlacklistKey(jti string) string {
	return "jwt_blacklist:" + jti
}

// InvalidateSchedules drops every cached weekly schedule.
func InvalidateSchedules(ctx context.Context, s Store) error {
	if _, err := s.DeletePattern(ctx, "schedule_*"); err != nil {
		return err
	}
	return nil
}
