package types

import (
	"fmt"
	"time"
)

// DateKeyLayout is the layout of a date key (YYYY-MM-DD).
const DateKeyLayout = "2006-01-02"

// JST is the zone the site's calendar follows.
var JST = time.FixedZone("JST", 9*60*60)

// TodayKey returns the JST calendar date of now as a date key.
func TodayKey(now time.Time) string {
	return now.In(JST).Format(DateKeyLayout)
}

// ParseDateKey parses a date key as midnight JST.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyLayout, key, JST)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}
