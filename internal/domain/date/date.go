// Package date provides a calendar day type for daily price series.
package date

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const readFormat = "2006-1-2" // permissive: accepts 2017-1-5

// Format is the ISO-8601 layout used when writing dates.
const Format = "2006-01-02"

// Date is a day with no time of day. The zero value is 0000-00-00 and is
// reported by IsZero.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date, so New(2017, 1, 32) is 2017-02-01.
func New(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{t.Year(), t.Month(), t.Day()}
}

// FromTime returns the UTC calendar day of t.
func FromTime(t time.Time) Date { return New(t.UTC().Date()) }

// FromUnixMilli returns the UTC day of a millisecond timestamp, the unit
// candle stores use.
func FromUnixMilli(ms int64) Date { return FromTime(time.UnixMilli(ms)) }

// Parse parses YYYY-MM-DD, tolerating single digit month and day.
func Parse(s string) (Date, error) {
	t, err := time.Parse(readFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", s, Format, err)
	}
	return FromTime(t), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// UnixMilli returns midnight UTC of the day in milliseconds.
func (d Date) UnixMilli() int64 { return d.Time().UnixMilli() }

func (d Date) Year() int          { return d.y }
func (d Date) Month() time.Month  { return d.m }
func (d Date) Day() int           { return d.d }
func (d Date) IsZero() bool       { return d == Date{} }
func (d Date) Add(days int) Date  { return New(d.y, d.m, d.d+days) }
func (d Date) Before(x Date) bool { return d.Time().Before(x.Time()) }
func (d Date) After(x Date) bool  { return d.Time().After(x.Time()) }

// DaysSince returns the whole number of days from x to d (negative if d is
// before x).
func (d Date) DaysSince(x Date) int {
	return int(d.Time().Sub(x.Time()).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(Format)
}

// MarshalJSON writes the zero date as "", which UnmarshalJSON reads back.
func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.set(s)
}

// MarshalText lets dates be used in TOML and as JSON map keys.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error { return d.set(string(b)) }

func (d *Date) set(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Range is an inclusive span of days.
type Range struct{ From, To Date }

// Contains reports whether d is within the range, boundaries included. A zero
// boundary is open.
func (r Range) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// Sort sorts dates in ascending order.
func Sort(ds []Date) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}

// Ascending reports whether ds is strictly increasing (sorted, no duplicates).
func Ascending(ds []Date) bool {
	for i := 1; i < len(ds); i++ {
		if !ds[i-1].Before(ds[i]) {
			return false
		}
	}
	return true
}
