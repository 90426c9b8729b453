package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	apperrors "statementcheck/internal/errors"
	"statementcheck/pkg/contracts/domain"
)

// LoadedReport is the Report Loader output for one file.
type LoadedReport struct {
	Identity domain.AccountIdentity
	Table    *domain.RawTable
	Format   string
	Sheet    string
}

// ReportLoader finds the account identity and the transaction table inside a
// statement whose layout is not known in advance.
type ReportLoader struct {
	logger     *slog.Logger
	thresholds Thresholds
}

// NewReportLoader creates a loader. A nil logger uses slog.Default().
func NewReportLoader(logger *slog.Logger, thresholds Thresholds) *ReportLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportLoader{
		logger:     logger.With(slog.String("component", "report_loader")),
		thresholds: thresholds.withDefaults(),
	}
}

// Load reads r twice: once as a plain grid to discover identity and the header
// row, then again with the header row applied. r must be rewindable.
func (l *ReportLoader) Load(ctx context.Context, name string, r io.ReadSeeker) (*LoadedReport, error) {
	grid, src, err := l.discover(name, r)
	if err != nil {
		return nil, apperrors.NewUnparseableFileError(name, err)
	}

	headerIdx, found := findHeaderRow(grid, l.thresholds.HeaderScanLimit)
	identity := scanIdentity(grid, headerIdx)
	if !found {
		scanned := len(grid)
		if limit := l.thresholds.HeaderScanLimit; limit > 0 && limit < scanned {
			scanned = limit
		}
		l.logger.WarnContext(ctx, "no transaction header found",
			slog.String("file", name),
			slog.String("format", src.format.String()),
			slog.Int("rows_scanned", scanned))
		return nil, apperrors.NewNoTransactionHeaderError(name, scanned)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: failed to rewind input", name), err)
	}
	table, _, err := readGrid(r, src, l.thresholds.HeaderScanLimit)
	if err != nil {
		return nil, apperrors.NewUnparseableFileError(name, err)
	}

	report := &LoadedReport{
		Identity: identity,
		Table:    buildTable(table, headerIdx),
		Format:   src.format.String(),
		Sheet:    src.sheet,
	}

	l.logger.DebugContext(ctx, "statement loaded",
		slog.String("file", name),
		slog.String("format", report.Format),
		slog.String("sheet", report.Sheet),
		slog.Int("header_row", headerIdx),
		slog.Int("data_rows", len(report.Table.Rows)),
		slog.Any("labels", report.Table.Labels))

	return report, nil
}

// discover tries each parser in extension order until one yields a grid.
func (l *ReportLoader) discover(name string, r io.ReadSeeker) ([][]string, gridSource, error) {
	var errs []error
	for _, format := range preferredFormats(name) {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, gridSource{}, err
		}
		grid, src, err := readGrid(r, gridSource{format: format}, l.thresholds.HeaderScanLimit)
		if err == nil {
			return grid, src, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", format, err))
	}
	return nil, gridSource{}, errors.Join(errs...)
}

// findHeaderRow returns the first row, within limit rows, holding a cell that
// mentions "time" and a cell that mentions "profit".
func findHeaderRow(grid [][]string, limit int) (int, bool) {
	for i, row := range grid {
		if limit > 0 && i >= limit {
			break
		}
		hasTime, hasProfit := false, false
		for _, cell := range row {
			v := strings.ToLower(strings.TrimSpace(cell))
			if v == "" {
				continue
			}
			if strings.Contains(v, "time") {
				hasTime = true
			}
			if strings.Contains(v, "profit") {
				hasProfit = true
			}
		}
		if hasTime && hasProfit {
			return i, true
		}
	}
	return -1, false
}

// labelCell matches a "Label:" cell such as "Name:" or "Currency: USD".
var labelCell = regexp.MustCompile(`^\pL[\pL ]*:`)

// scanIdentity looks for "Name:" and "Account:" fields. A field's value is the
// text after the colon plus any following cells up to the next label, so both
// "Name: Jane Doe" and "Name:" | "Jane Doe" read the same. Later matches
// overwrite earlier ones. Above the header row a bare "Name" or "Account" first
// cell also counts, with the remaining cells as the value.
func scanIdentity(grid [][]string, headerIdx int) domain.AccountIdentity {
	var id identity
	for i, row := range grid {
		cells := nonEmptyCells(row)
		if len(cells) == 0 {
			continue
		}

		matched := false
		for j, cell := range cells {
			field := identityField(cell)
			if field == "" {
				continue
			}
			matched = true
			_, head, _ := strings.Cut(cell, ":")
			parts := []string{strings.TrimSpace(head)}
			for _, next := range cells[j+1:] {
				if labelCell.MatchString(next) {
					break
				}
				parts = append(parts, next)
			}
			id.set(field, strings.TrimSpace(strings.Join(parts, " ")))
		}
		if matched || (headerIdx >= 0 && i >= headerIdx) || len(cells) < 2 {
			continue
		}

		field := strings.ToLower(strings.TrimSuffix(cells[0], ":"))
		if field == "name" || field == "account" {
			id.set(field, strings.Join(cells[1:], " "))
		}
	}
	return id.AccountIdentity
}

type identity struct {
	domain.AccountIdentity
}

func (id *identity) set(field, value string) {
	if value == "" {
		return
	}
	switch field {
	case "name":
		id.Name = &value
	case "account":
		id.AccountNumber = &value
	}
}

func identityField(cell string) string {
	lower := strings.ToLower(cell)
	switch {
	case strings.HasPrefix(lower, "name:"):
		return "name"
	case strings.HasPrefix(lower, "account:"):
		return "account"
	}
	return ""
}

func nonEmptyCells(row []string) []string {
	cells := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

// buildTable applies the header row at headerIdx. Fully empty data rows are skipped.
func buildTable(grid [][]string, headerIdx int) *domain.RawTable {
	table := &domain.RawTable{HeaderIndex: headerIdx}
	if headerIdx < 0 || headerIdx >= len(grid) {
		return table
	}

	width := len(grid[headerIdx])
	for _, row := range grid[headerIdx+1:] {
		if len(row) > width {
			width = len(row)
		}
	}

	raw := make([]string, width)
	copy(raw, grid[headerIdx])
	table.Labels = uniqueLabels(raw)

	for i := headerIdx + 1; i < len(grid); i++ {
		if len(nonEmptyCells(grid[i])) == 0 {
			continue
		}
		cells := make([]string, width)
		for j, c := range grid[i] {
			cells[j] = strings.TrimSpace(c)
		}
		table.Rows = append(table.Rows, domain.RawRow{Index: i, Cells: cells})
	}
	return table
}

// uniqueLabels trims labels, names blank ones "Unnamed: <col>" and suffixes
// repeats with ".1", ".2" in order of appearance.
func uniqueLabels(raw []string) []string {
	labels := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	counts := make(map[string]int)

	for i, l := range raw {
		base := strings.TrimSpace(l)
		if base == "" {
			base = fmt.Sprintf("Unnamed: %d", i)
		}
		name := base
		if used[name] {
			n := counts[base]
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if !used[name] {
					break
				}
			}
			counts[base] = n
		}
		used[name] = true
		labels[i] = name
	}
	return labels
}
