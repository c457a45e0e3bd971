package shared

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LocalDateTimeLayout is the ISO-8601 local date-time used on the wire.
// Parsing also accepts fractional seconds.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

const localDateTimeNoSeconds = "2006-01-02T15:04"

// FormatLocalDateTime renders t without zone, keeping non-zero fractions.
func FormatLocalDateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.999999999")
}

// ParseLocalDateTime parses an ISO-8601 local date-time. Seconds are optional.
func ParseLocalDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation(LocalDateTimeLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localDateTimeNoSeconds, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("shared: invalid local date-time %q", raw)
	}
	return t, nil
}

// LocalDateTime is a zone-less timestamp in JSON bodies.
type LocalDateTime struct {
	time.Time
}

// MarshalJSON implements json.Marshaler.
func (l LocalDateTime) MarshalJSON() ([]byte, error) {
	if l.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(FormatLocalDateTime(l.Time))
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *LocalDateTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		l.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := ParseLocalDateTime(raw)
	if err != nil {
		return err
	}
	l.Time = t
	return nil
}
