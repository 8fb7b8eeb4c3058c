// Package timex holds time helpers shared by config and cache code.
package timex

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from either a Go duration string
// ("5s", "1m30s") or an integer number of nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val)
	case int:
		d.Duration = time.Duration(val)
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		d.Duration = parsed
	case nil:
		d.Duration = 0
	default:
		return fmt.Errorf("invalid duration type %T", v)
	}
	return nil
}

// UnixMilli returns t as epoch milliseconds, the timestamp unit used in
// persisted documents and cache entries.
func UnixMilli(t time.Time) int64 {
	return t.UnixMilli()
}

// HourWindow names the wall-clock hour that contains t, e.g. "2026-10-18T18".
func HourWindow(t time.Time) string {
	return t.Format("2006-01-02T15")
}

// Date is the calendar day of t, e.g. "2026-10-18".
func Date(t time.Time) string {
	return t.Format(time.DateOnly)
}
