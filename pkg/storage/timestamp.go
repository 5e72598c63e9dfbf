package storage

import "time"

// TimeFormat is the fixed width UTC layout timestamps are stored in, so
// text ordering matches time ordering.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a TimeFormat value.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeFormat, s)
}
