package analytics

import (
	"fmt"
	"time"
)

// Timeframe is a preset window used by price charts.
type Timeframe string

const (
	Week        Timeframe = "WEEK"
	Month       Timeframe = "MONTH"
	ThreeMonths Timeframe = "THREE_MONTHS"
	Year        Timeframe = "YEAR"
	AllTime     Timeframe = "ALL_TIME"
)

// DailyInterval is the bucket size used for long windows.
const DailyInterval = 24 * 60 * 60

// ParseTimeframe accepts the preset names case-sensitively.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case Week, Month, ThreeMonths, Year, AllTime:
		return tf, nil
	}
	return "", fmt.Errorf("invalid timeframe: %q", s)
}

// StartTime returns the unix start of the window ending at now.
func StartTime(tf Timeframe, now time.Time) int64 {
	now = now.UTC()
	switch tf {
	case Week:
		return endOfDay(now.AddDate(0, 0, -7)) - 1
	case Month:
		return endOfDay(now.AddDate(0, -1, 0)) - 1
	case ThreeMonths:
		return endOfDay(now.AddDate(0, -3, 0)) - 1
	case Year:
		return endOfDay(now.AddDate(-1, 0, 0)) - 1
	default:
		ago := now.AddDate(-1, 0, 0)
		return time.Date(ago.Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Unix() - 1
	}
}

func endOfDay(t time.Time) int64 {
	return t.Truncate(24*time.Hour).Unix() + DailyInterval - 1
}

// EffectiveInterval widens the requested bucket size for long windows to keep
// the number of block lookups bounded.
func EffectiveInterval(tf Timeframe, interval int64) int64 {
	switch tf {
	case Year, AllTime:
		return DailyInterval
	case ThreeMonths:
		return max(interval, DailyInterval)
	}
	return interval
}
