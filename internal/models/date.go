package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date without time of day or zone.
//
// Dates are stored and sent on the wire as DD/MM/YYYY; date pickers use
// YYYY-MM-DD. Both forms parse into the same value and always print with
// zero-padded day and month.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const (
	storedSep = "/"
	pickerSep = "-"
)

// NewDate builds a Date from a time.Time, ignoring the clock part
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current local date
func Today() Date {
	return NewDate(time.Now())
}

// ParseStoredDate parses DD/MM/YYYY. Day and month may be unpadded.
func ParseStoredDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), storedSep)
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("invalid stored date %q: expected DD/MM/YYYY", s)
	}
	return buildDate(s, parts[2], parts[1], parts[0])
}

// ParsePickerDate parses YYYY-MM-DD. Day and month may be unpadded.
func ParsePickerDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), pickerSep)
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("invalid picker date %q: expected YYYY-MM-DD", s)
	}
	return buildDate(s, parts[0], parts[1], parts[2])
}

func buildDate(raw, year, month, day string) (Date, error) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil || len(year) != 4 {
		return Date{}, fmt.Errorf("invalid date %q", raw)
	}

	// Reject dates that time.Date would normalize (31/02 -> 03/03)
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return Date{}, fmt.Errorf("invalid calendar date %q", raw)
	}

	return Date{Year: y, Month: time.Month(m), Day: d}, nil
}

// Stored formats the date as DD/MM/YYYY
func (d Date) Stored() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// Picker formats the date as YYYY-MM-DD
func (d Date) Picker() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// String returns the stored form
func (d Date) String() string {
	return d.Stored()
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Compare returns -1, 0 or 1. The zero date sorts before every real date.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
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

// ToPickerFormat converts DD/MM/YYYY to YYYY-MM-DD. Empty input stays empty.
func ToPickerFormat(stored string) (string, error) {
	if strings.TrimSpace(stored) == "" {
		return "", nil
	}
	d, err := ParseStoredDate(stored)
	if err != nil {
		return "", err
	}
	return d.Picker(), nil
}

// ToStoredFormat converts YYYY-MM-DD to DD/MM/YYYY. Empty input stays empty.
func ToStoredFormat(picker string) (string, error) {
	if strings.TrimSpace(picker) == "" {
		return "", nil
	}
	d, err := ParsePickerDate(picker)
	if err != nil {
		return "", err
	}
	return d.Stored(), nil
}
