package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"statementcheck/pkg/contracts/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv or xlsx)", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// formatDecimal formats money with exactly 2 decimal places.
func formatDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName derives the export file name from the account number, or from the
// input file name when the statement carried no account.
func FileName(result *domain.AnalysisResult, format Format) string {
	base := ""
	if result.Identity.AccountNumber != nil {
		base = strings.TrimSpace(*result.Identity.AccountNumber)
		if i := strings.IndexAny(base, " ("); i > 0 {
			base = base[:i]
		}
	}
	if base == "" || base == domain.IdentityPlaceholder {
		base = strings.TrimSuffix(filepath.Base(result.FileName), filepath.Ext(result.FileName))
	}
	base = strings.Trim(unsafeFileChars.ReplaceAllString(base, "_"), "_.")
	if base == "" {
		base = "statement"
	}
	return fmt.Sprintf("%s_daily.%s", base, format)
}

// Write renders result in format to w.
func Write(w io.Writer, format Format, result *domain.AnalysisResult) error {
	return WriteWithLogger(w, format, result, nil)
}

// WriteWithLogger is Write with an explicit logger for the writers.
func WriteWithLogger(w io.Writer, format Format, result *domain.AnalysisResult, logger *slog.Logger) error {
	if result == nil {
		return fmt.Errorf("nothing to export")
	}
	table := NewTable(result)
	switch format {
	case FormatCSV:
		return NewCSVWriter(logger).WriteTable(w, table)
	case FormatXLSX:
		return NewXLSXWriter(logger).WriteTable(w, table)
	}
	return fmt.Errorf("unsupported export format %q", format)
}
