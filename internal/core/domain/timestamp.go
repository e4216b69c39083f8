package domain

import (
	"encoding/json"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp reads an ISO 8601 value. Values without an offset are taken
// as UTC; a "+" decoded to a space in the offset is restored.
func ParseTimestamp(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)

	if n := len(raw); n > 6 && raw[n-6] == ' ' && raw[n-3] == ':' {
		raw = raw[:n-6] + "+" + raw[n-5:]
	}

	var err error

	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, err
}

// Timestamp is a time.Time that decodes from JSON with ParseTimestamp.
type Timestamp time.Time

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}

	*t = Timestamp(parsed)

	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t))
}

func (t *Timestamp) Time() *time.Time {
	if t == nil {
		return nil
	}

	value := time.Time(*t)

	return &value
}
