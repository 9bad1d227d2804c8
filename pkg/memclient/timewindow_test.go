package memclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeWindow(t *testing.T) {
	day := 24 * time.Hour

	cases := map[string]time.Duration{
		"yesterday":      day,
		"today":          day,
		"last-day":       day,
		"last_week":      7 * day,
		"Last Week":      7 * day,
		"past week":      7 * day,
		"last-2-weeks":   14 * day,
		"last two weeks": 14 * day,
		"last-month":     30 * day,
		"this month":     30 * day,
		"":               30 * day,
		"whenever":       30 * day,
	}

	for input, want := range cases {
		assert.Equal(t, want, ParseTimeWindow(input), "window %q", input)
	}
}

func TestWithinWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	recent := float64(now.Add(-3 * 24 * time.Hour).UnixMilli())
	stale := float64(now.Add(-10 * 24 * time.Hour).UnixMilli())

	assert.True(t, withinWindow(recent, week, now))
	assert.False(t, withinWindow(stale, week, now))
	assert.True(t, withinWindow(0, week, now), "undated memories pass")
}

func TestNormalizeTimestamp(t *testing.T) {
	assert.Equal(t, float64(1700000000000), NormalizeTimestamp(1700000000))
	assert.Equal(t, float64(1700000000000), NormalizeTimestamp(1700000000000))
	assert.Equal(t, float64(0), NormalizeTimestamp(0))
	assert.Equal(t, float64(-5), NormalizeTimestamp(-5))
}
