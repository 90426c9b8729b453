package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Date is a calendar date without time-of-day or zone. It is comparable and
// usable as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.Time().Format(time.DateOnly)
}

// MarshalText renders d as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses YYYY-MM-DD.
func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// TimeRole selects which timestamp of a trade groups it into a day.
type TimeRole string

const (
	GroupByOpen  TimeRole = "open"
	GroupByClose TimeRole = "close"
)

// ColumnRole returns the column role holding this timestamp.
func (r TimeRole) ColumnRole() Role {
	if r == GroupByClose {
		return RoleCloseTime
	}
	return RoleOpenTime
}

// Other returns the opposite time role.
func (r TimeRole) Other() TimeRole {
	if r == GroupByClose {
		return GroupByOpen
	}
	return GroupByClose
}

// Transaction is one normalized statement row.
type Transaction struct {
	Row        int             `json:"row"`
	OpenDate   *Date           `json:"open_date,omitempty"`
	CloseDate  *Date           `json:"close_date,omitempty"`
	Profit     decimal.Decimal `json:"profit"`
	Swap       decimal.Decimal `json:"swap"`
	Commission decimal.Decimal `json:"commission"`
	// Symbol is nil when the statement has no symbol column.
	Symbol *string `json:"symbol,omitempty"`
}

// NetProfit returns profit + swap + commission.
func (t Transaction) NetProfit() decimal.Decimal {
	return t.Profit.Add(t.Swap).Add(t.Commission)
}

// GroupingDate returns the date selected by role, if it parsed.
func (t Transaction) GroupingDate(role TimeRole) (Date, bool) {
	d := t.OpenDate
	if role == GroupByClose {
		d = t.CloseDate
	}
	if d == nil {
		return Date{}, false
	}
	return *d, true
}
