// Package timex extends time.Duration with JSON support and a day unit.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const Day = 24 * time.Hour

// Duration wraps time.Duration so config files can write "15m", "7d" or a
// plain integer number of nanoseconds.
type Duration struct {
	time.Duration
}

// ParseDuration accepts everything time.ParseDuration does plus a leading
// whole-day component, e.g. "7d" or "1d12h".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	days, rest, ok := strings.Cut(s, "d")
	if !ok {
		return time.ParseDuration(s)
	}

	n, err := strconv.Atoi(days)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("timex: invalid day count in %q", s)
	}

	d := time.Duration(n) * Day
	if rest == "" {
		return d, nil
	}

	r, err := time.ParseDuration(rest)
	if err != nil {
		return 0, fmt.Errorf("timex: %w", err)
	}
	return d + r, nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("timex: invalid duration")
	}
}
