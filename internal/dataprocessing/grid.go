package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// gridFormat is the parser that produced a grid.
type gridFormat int

const (
	formatSpreadsheet gridFormat = iota
	formatDelimited
)

func (f gridFormat) String() string {
	if f == formatDelimited {
		return "delimited"
	}
	return "spreadsheet"
}

// gridSource remembers how a grid was read so the second pass reads it the same way.
type gridSource struct {
	format gridFormat
	sheet  string
}

var errNotText = errors.New("input is not text")

// preferredFormats orders the parsers by file extension. Unknown extensions try the
// spreadsheet parser first.
func preferredFormats(name string) []gridFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		return []gridFormat{formatDelimited, formatSpreadsheet}
	default:
		return []gridFormat{formatSpreadsheet, formatDelimited}
	}
}

// readGrid parses r with the parser in src. For spreadsheets with no sheet chosen
// yet, the first sheet holding a transaction header wins, else the first sheet.
func readGrid(r io.Reader, src gridSource, headerLimit int) ([][]string, gridSource, error) {
	if src.format == formatDelimited {
		rows, err := readDelimited(r)
		return rows, src, err
	}
	return readSpreadsheet(r, src.sheet, headerLimit)
}

func readSpreadsheet(r io.Reader, sheet string, headerLimit int) ([][]string, gridSource, error) {
	src := gridSource{format: formatSpreadsheet, sheet: sheet}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, src, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet != "" {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, src, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		return rows, src, nil
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, src, fmt.Errorf("workbook has no sheets")
	}

	var fallback [][]string
	for i, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if i == 0 {
			fallback = rows
		}
		if _, ok := findHeaderRow(rows, headerLimit); ok {
			src.sheet = name
			return rows, src, nil
		}
	}

	src.sheet = sheets[0]
	return fallback, src, nil
}

func readDelimited(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("input is empty")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited text: %w", err)
	}
	return rows, nil
}

// decodeText strips a UTF-8 BOM and decodes UTF-16 exports marked with a BOM.
// Input that is not valid UTF-8 is read as Windows-1252, the code page of
// older MetaTrader terminals.
func decodeText(data []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	if bytes.IndexByte(out, 0) >= 0 {
		return "", errNotText
	}
	if utf8.Valid(out) {
		return string(out), nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(out)
	if err != nil || hasControlBytes(decoded) {
		return "", errNotText
	}
	return string(decoded), nil
}

// hasControlBytes reports C0 control characters other than tab, CR and LF.
func hasControlBytes(b []byte) bool {
	for _, c := range b {
		if c < 0x20 && c != '\t' && c != '\r' && c != '\n' {
			return true
		}
	}
	return false
}

// sniffDelimiter picks the candidate with the highest count on any single line
// among the leading lines. Ties keep the comma.
func sniffDelimiter(text string) rune {
	candidates := []rune{',', ';', '\t'}
	lines := strings.SplitN(text, "\n", 101)
	if len(lines) > 100 {
		lines = lines[:100]
	}

	best, bestCount := ',', 0
	for _, c := range candidates {
		most := 0
		for _, line := range lines {
			if n := strings.Count(line, string(c)); n > most {
				most = n
			}
		}
		if most > bestCount {
			best, bestCount = c, most
		}
	}
	return best
}
