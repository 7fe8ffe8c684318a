package common

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned when a timestamp matches no accepted ISO-8601 form.
var ErrInvalidTimestamp = errors.New("timestamp must be an ISO-8601 date or date-time")

// timestampLayouts are tried in order. Layouts without an offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 date or date-time. A value with an offset
// keeps it; one without is taken as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}
