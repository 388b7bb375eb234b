package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp is an instant as it sits on disk: either an ISO-8601 string
// (Text set) or a native time, encoded as unix milliseconds. Native times
// therefore round-trip at millisecond precision. The original representation
// is kept so records are written back as they were read.
type Timestamp struct {
	Time time.Time
	Text string
}

// TimestampOf returns the native-time form of t
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// TimestampText returns the string form of an instant
func TimestampText(s string) Timestamp {
	return Timestamp{Text: s}
}

var textLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Instant resolves the timestamp to a time.Time. ok is false when the string
// form cannot be parsed; the returned time is then the zero value.
func (ts Timestamp) Instant() (t time.Time, ok bool) {
	if ts.Text == "" {
		return ts.Time, !ts.Time.IsZero()
	}
	s := strings.TrimSpace(ts.Text)
	for _, layout := range textLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// IsZero reports whether no instant is recorded
func (ts Timestamp) IsZero() bool {
	return ts.Text == "" && ts.Time.IsZero()
}

// After compares instants; unparseable values sort as the zero time
func (ts Timestamp) After(other Timestamp) bool {
	a, _ := ts.Instant()
	b, _ := other.Instant()
	return a.After(b)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Text != "" {
		return json.Marshal(ts.Text)
	}
	if ts.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Time.UnixMilli())
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*ts = Timestamp{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid timestamp string: %w", err)
		}
		*ts = Timestamp{Text: s}
		return nil
	default:
		var ms int64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("invalid timestamp number: %w", err)
		}
		*ts = Timestamp{Time: time.UnixMilli(ms).UTC()}
		return nil
	}
}
