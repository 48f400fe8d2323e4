package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// DayOfWeek is the ordinal weekday used for recurring slots (Monday = 1 .. Sunday = 7).
type DayOfWeek int

const (
	Monday DayOfWeek = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// DaysOfWeek returns all weekdays in fixed Monday-first order.
func DaysOfWeek() []DayOfWeek {
	return []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// Valid reports whether the value is within the Monday..Sunday range.
func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Sunday
}

// String returns the uppercase English day name.
func (d DayOfWeek) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DAY(%d)", int(d))
	}
	return dayNames[d-1]
}

// ParseDayOfWeek converts a case-insensitive day name into its ordinal.
func ParseDayOfWeek(s string) (DayOfWeek, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range dayNames {
		if name == upper {
			return DayOfWeek(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", s)
}

// MarshalJSON renders the day as its uppercase name.
func (d DayOfWeek) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("day of week out of range: %d", int(d))
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either a day name or an ordinal.
func (d *DayOfWeek) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, perr := ParseDayOfWeek(name)
		if perr != nil {
			return perr
		}
		*d = parsed
		return nil
	}

	var ordinal int
	if err := json.Unmarshal(data, &ordinal); err != nil {
		return fmt.Errorf("day of week must be a name or ordinal: %s", string(data))
	}
	candidate := DayOfWeek(ordinal)
	if !candidate.Valid() {
		return fmt.Errorf("day of week ordinal out of range: %d", ordinal)
	}
	*d = candidate
	return nil
}

// Value stores the ordinal in the database.
func (d DayOfWeek) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("day of week out of range: %d", int(d))
	}
	return int64(d), nil
}

// Scan reads the ordinal back from the database.
func (d *DayOfWeek) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		candidate := DayOfWeek(v)
		if !candidate.Valid() {
			return fmt.Errorf("day of week ordinal out of range: %d", v)
		}
		*d = candidate
		return nil
	case []byte:
		parsed, err := ParseDayOfWeek(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDayOfWeek(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into DayOfWeek", src)
	}
}
