package finance

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLookback is used when a chat command gives no window.
const DefaultLookback = "1y"

// parseLookback parses window strings like 30d, 6w, 3m, 2y into calendar days.
func parseLookback(window string) (int, error) {
	window = strings.ToLower(strings.TrimSpace(window))
	if window == "" {
		window = DefaultLookback
	}

	unit := window[len(window)-1]
	var n int
	if _, err := fmt.Sscanf(window[:len(window)-1], "%d", &n); err != nil || n < 1 {
		return 0, fmt.Errorf("invalid window format: %s (use format like 30d, 6w, 3m, 1y)", window)
	}

	switch unit {
	case 'd':
		return n, nil
	case 'w':
		return n * 7, nil
	case 'm':
		return n * 30, nil // approximate
	case 'y':
		return n * 365, nil
	default:
		return 0, fmt.Errorf("invalid window format: %s (use format like 30d, 6w, 3m, 1y)", window)
	}
}

// LookbackRange turns a window string into a [start, end] date range ending at end.
func LookbackRange(window string, end time.Time) (time.Time, time.Time, error) {
	days, err := parseLookback(window)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end = truncateDay(end)
	return end.AddDate(0, 0, -days), end, nil
}

// IsLookback reports whether s looks like a window string rather than a ticker or weight.
func IsLookback(s string) bool {
	_, err := parseLookback(s)
	return err == nil
}

// yahooRangeForDays maps a day count to the smallest Yahoo range parameter that covers it.
func yahooRangeForDays(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	case days <= 1826:
		return "5y"
	case days <= 3652:
		return "10y"
	default:
		return "max"
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
