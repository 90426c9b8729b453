package dataprocessing

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"statementcheck/pkg/contracts/domain"
)

// Layouts that read the same regardless of day/month order.
var unambiguousLayouts = []string{
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006.01.02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"02-Jan-2006 15:04:05",
	"02-Jan-2006",
}

var monthFirstLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"1/2/06 15:04:05",
	"1/2/06 15:04",
	"1/2/06",
	"1-2-2006 15:04:05",
	"1-2-2006 15:04",
	"1-2-2006",
	"1-2-06 15:04",
	"1-2-06",
	"1.2.2006 15:04:05",
	"1.2.2006 15:04",
	"1.2.2006",
}

var dayFirstLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 3:04:05 PM",
	"2/1/2006 3:04 PM",
	"2/1/2006",
	"2/1/06 15:04:05",
	"2/1/06 15:04",
	"2/1/06",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2-1-06 15:04",
	"2-1-06",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
}

// Excel serial numbers accepted as timestamps: 1954-10-03 to 2173-10-14.
const (
	minExcelSerial = 20000
	maxExcelSerial = 100000
)

// ParseTimestamp parses a statement timestamp in UTC. Without dayFirst only
// month-first numeric dates are accepted; with dayFirst day-first layouts are
// tried before month-first ones.
func ParseTimestamp(raw string, dayFirst bool) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || isMissingToken(s) {
		return time.Time{}, false
	}

	if t, ok := parseWithLayouts(s, unambiguousLayouts); ok {
		return t, true
	}
	if dayFirst {
		if t, ok := parseWithLayouts(s, dayFirstLayouts); ok {
			return t, true
		}
	}
	if t, ok := parseWithLayouts(s, monthFirstLayouts); ok {
		return t, true
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial < maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseWithLayouts(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateColumn is a parsed time column. Dates[i] is nil when row i did not parse.
type DateColumn struct {
	Dates    []*domain.Date
	DayFirst bool
	NonEmpty int
	Failed   int
}

// ParseDateColumn parses a whole column. When more than failureRatio of the
// non-empty cells fail the month-first pass, the entire column is re-read with
// day-first interpretation.
func ParseDateColumn(values []string, failureRatio float64) DateColumn {
	col := parseDates(values, false)
	if col.NonEmpty > 0 && float64(col.Failed)/float64(col.NonEmpty) > failureRatio {
		col = parseDates(values, true)
	}
	return col
}

func parseDates(values []string, dayFirst bool) DateColumn {
	col := DateColumn{Dates: make([]*domain.Date, len(values)), DayFirst: dayFirst}
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		col.NonEmpty++
		t, ok := ParseTimestamp(v, dayFirst)
		if !ok {
			col.Failed++
			continue
		}
		d := domain.DateOf(t)
		col.Dates[i] = &d
	}
	return col
}

// timestampRatio is the share of non-empty values that parse as timestamps in
// either day/month order. Plain numbers never count, so ticket and amount
// columns are not mistaken for Excel serial dates.
func timestampRatio(values []string) float64 {
	nonEmpty, parsed := 0, 0
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		nonEmpty++
		if _, isNumber := ParseNumber(v); isNumber {
			continue
		}
		if _, ok := ParseTimestamp(v, true); ok {
			parsed++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(parsed) / float64(nonEmpty)
}
