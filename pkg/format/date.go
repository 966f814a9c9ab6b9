package format

import (
	"fmt"
	"strings"
	"time"

	"collectorkit/internal/domain"
)

// DefaultDateLayout is used when Date is called with an empty layout.
const DefaultDateLayout = "2006-01-02 15:04:05"

var inputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// Date formats v with layout in loc. v may be a time.Time, unix seconds
// (int, int64) or a date string in one of the accepted input layouts.
// Strings that match none fail with domain.ErrParseError.
func Date(v any, layout string, loc *time.Location) (string, error) {
	t, err := ParseTime(v, loc)
	if err != nil {
		return "", err
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.Format(layout), nil
}

// ParseTime converts v to a time in loc (UTC when nil).
func ParseTime(v any, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch x := v.(type) {
	case time.Time:
		return x.In(loc), nil
	case int64:
		return time.Unix(x, 0).In(loc), nil
	case int:
		return time.Unix(int64(x), 0).In(loc), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range inputLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.In(loc), nil
			}
		}
		return time.Time{}, fmt.Errorf("parse date %q: %w", x, domain.ErrParseError)
	default:
		return time.Time{}, fmt.Errorf("parse date of type %T: %w", v, domain.ErrParseError)
	}
}

// TimeDifference returns the absolute distance between start and end as a
// whole number of seconds, e.g. "90 seconds". A zero end means now.
func TimeDifference(start, end time.Time) string {
	if end.IsZero() {
		end = time.Now()
	}
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	return fmt.Sprintf("%d seconds", int64(d/time.Second))
}
