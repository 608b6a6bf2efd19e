package shared

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date layout used by every persisted record.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day, serialised as "2006-01-02".
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date value for the named field.
func ParseDate(field, raw string) (Date, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Date{}, fmt.Errorf("%s: date is required: %w", field, ErrValidation)
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		// records exported with a full timestamp are accepted too
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return Date{}, fmt.Errorf("%s: invalid date %q: %w", field, raw, ErrValidation)
		}
	}
	return NewDate(t), nil
}

// MustDate parses a literal date and panics on failure. Intended for tests and seeds.
func MustDate(raw string) Date {
	d, err := ParseDate("date", raw)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the current UTC calendar date.
func Today() Date {
	return NewDate(time.Now().UTC())
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Time.AddDate(0, 0, n))
}

// DaysSince returns the signed number of calendar days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(NewDate(d.Time).Sub(NewDate(other.Time).Time).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate("date", raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
