package core

import (
	"time"
)

type (
	// Month is a calendar month in YYYY-MM form.
	Month string

	// Date is a calendar day in YYYY-MM-DD form, no time component.
	Date string
)

func (m Month) String() string { return string(m) }
func (d Date) String() string  { return string(d) }

// Validate checks shape and range (month 01-12).
func (m Month) Validate() error {
	if _, err := time.Parse("2006-01", string(m)); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

func (d Date) Validate() error {
	if _, err := time.Parse("2006-01-02", string(d)); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Month returns the calendar month the date falls in.
func (d Date) Month() Month {
	if len(d) < 7 {
		return ""
	}
	return Month(d[:7])
}

// Prev returns the preceding calendar month, rolling January back into
// December of the prior year. Must only be called on a valid month.
func (m Month) Prev() Month {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return m
	}
	return Month(t.AddDate(0, -1, 0).Format("2006-01"))
}

// CurrentMonth is the server's local notion of "this month".
func CurrentMonth() Month {
	return Month(time.Now().Format("2006-01"))
}

// Today is the server's local calendar date.
func Today() Date {
	return Date(time.Now().Format("2006-01-02"))
}

// ResolveMonth validates an optional caller-supplied month, defaulting to the
// current one when absent.
func ResolveMonth(raw string) (Month, error) {
	if raw == "" {
		return CurrentMonth(), nil
	}
	m := Month(raw)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}
