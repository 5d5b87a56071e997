package license

import (
	"time"
)

const dateLayout = "20060102"

// Date is a calendar day without time of day or zone.
type Date struct {
	year  int
	month time.Month
	day   int
}

// ParseDate parses an 8-digit YYYYMMDD string.
func ParseDate(text string) (Date, error) {
	if len(text) != 8 {
		return Date{}, newError("parse date", ErrInvalidFormat, text, nil)
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return Date{}, newError("parse date", ErrInvalidFormat, text, nil)
		}
	}
	t, err := time.Parse(dateLayout, text)
	if err != nil {
		return Date{}, newError("parse date", ErrInvalidFormat, text, err)
	}
	return DateOf(t), nil
}

// NewDate builds a Date and fails when the triple is not a real calendar day.
func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day || year < 0 || year > 9999 {
		return Date{}, newError("new date", ErrInvalidFormat, t.Format(dateLayout), nil)
	}
	return Date{year: year, month: month, day: day}, nil
}

// MustDate is NewDate for constants and tests.
func MustDate(year int, month time.Month, day int) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// Today returns the current day in the local time zone.
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) Year() int          { return d.year }
func (d Date) Month() time.Month  { return d.month }
func (d Date) Day() int           { return d.day }
func (d Date) IsZero() bool       { return d == Date{} }
func (d Date) Equal(o Date) bool  { return d == o }
func (d Date) Before(o Date) bool { return d.compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.compare(o) > 0 }

// BeforeOrEqual reports d <= o.
func (d Date) BeforeOrEqual(o Date) bool { return d.compare(o) <= 0 }

func (d Date) compare(o Date) int {
	switch {
	case d.year != o.year:
		return cmpInt(d.year, o.year)
	case d.month != o.month:
		return cmpInt(int(d.month), int(o.month))
	default:
		return cmpInt(d.day, o.day)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// String returns the canonical YYYYMMDD form.
func (d Date) String() string {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return nil, newError("marshal date", ErrInvalidFormat, "", nil)
	}
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
