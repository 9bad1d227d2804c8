package memclient

import (
	"strings"
	"time"
)

const defaultWindow = 30 * 24 * time.Hour

/*
ParseTimeWindow maps a small natural-language vocabulary onto a lookback
duration. Unrecognized inputs default to the last month.
*/
func ParseTimeWindow(window string) time.Duration {
	normalized := strings.ToLower(strings.TrimSpace(window))
	normalized = strings.ReplaceAll(normalized, "_", " ")
	normalized = strings.ReplaceAll(normalized, "-", " ")

	switch normalized {
	case "yesterday", "last day", "today":
		return 24 * time.Hour
	case "last week", "this week", "past week":
		return 7 * 24 * time.Hour
	case "last 2 weeks", "last two weeks", "past 2 weeks":
		return 14 * 24 * time.Hour
	case "last month", "this month", "past month":
		return defaultWindow
	}

	return defaultWindow
}

// withinWindow reports whether a normalized millisecond timestamp falls
// inside the lookback window ending at now.
func withinWindow(createdAtMillis float64, window time.Duration, now time.Time) bool {
	if createdAtMillis <= 0 {
		// Undated memories survive time filtering.
		return true
	}
	created := time.UnixMilli(int64(createdAtMillis))
	return now.Sub(created) <= window
}
