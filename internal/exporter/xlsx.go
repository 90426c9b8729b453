package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

const (
	dailySheet   = "Daily"
	summarySheet = "Summary"
)

// Excel built-in number formats.
const (
	numFmtInteger = 1
	numFmtMoney   = 4 // #,##0.00
	numFmtDate    = 14
)

type xlsxStyles struct {
	header int
	text   int
	date   int
	count  int
	money  int
	pass   int
	fail   int
}

// XLSXWriter writes export tables as workbooks.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a workbook writer.
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// WriteTable writes a "Daily" sheet with one row per day and a "Summary" sheet.
func (x *XLSXWriter) WriteTable(w io.Writer, table Table) error {
	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), dailySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	styles, err := createStyles(fx)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	if err := writeDailySheet(fx, table, styles); err != nil {
		return err
	}
	if err := writeSummarySheet(fx, table, styles); err != nil {
		return err
	}

	x.logger.Debug("writing XLSX export", slog.Int("record_count", len(table.Rows)))
	if _, err := fx.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func createStyles(fx *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	s.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return s, err
	}
	if s.text, err = fx.NewStyle(&excelize.Style{Border: border}); err != nil {
		return s, err
	}
	if s.date, err = fx.NewStyle(&excelize.Style{NumFmt: numFmtDate, Border: border}); err != nil {
		return s, err
	}
	if s.count, err = fx.NewStyle(&excelize.Style{NumFmt: numFmtInteger, Border: border}); err != nil {
		return s, err
	}
	s.money, err = fx.NewStyle(&excelize.Style{
		NumFmt:    numFmtMoney,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return s, err
	}
	s.pass, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "008000"},
		Border: border,
	})
	if err != nil {
		return s, err
	}
	s.fail, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FF0000"},
		Border: border,
	})
	return s, err
}

func writeDailySheet(fx *excelize.File, table Table, s xlsxStyles) error {
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := fx.SetSheetRow(dailySheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := fx.SetCellStyle(dailySheet, "A1", last, s.header); err != nil {
		return err
	}

	for i, r := range table.Rows {
		row := i + 2
		values := []interface{}{
			r.Name,
			r.Account,
			r.Date.Time(),
			r.Trades,
			r.GrossProfit.InexactFloat64(),
			r.Swap.InexactFloat64(),
			r.Commission.InexactFloat64(),
			r.NetProfit.InexactFloat64(),
			r.ChosenSum.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := fx.SetSheetRow(dailySheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		if err := styleRange(fx, dailySheet, row, 1, 2, s.text); err != nil {
			return err
		}
		if err := styleRange(fx, dailySheet, row, 3, 3, s.date); err != nil {
			return err
		}
		if err := styleRange(fx, dailySheet, row, 4, 4, s.count); err != nil {
			return err
		}
		if err := styleRange(fx, dailySheet, row, 5, len(Headers), s.money); err != nil {
			return err
		}
	}

	widths := map[string]float64{"A": 24, "B": 16, "C": 12, "D": 8, "E": 14, "F": 12, "G": 12, "H": 14, "I": 14}
	for col, width := range widths {
		if err := fx.SetColWidth(dailySheet, col, col, width); err != nil {
			return err
		}
	}
	return fx.SetPanes(dailySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummarySheet(fx *excelize.File, table Table, s xlsxStyles) error {
	for i, rec := range table.SummaryRecords() {
		row := i + 1
		label, _ := excelize.CoordinatesToCellName(1, row)
		if err := fx.SetCellStr(summarySheet, label, rec[0]); err != nil {
			return err
		}
		if err := fx.SetCellStyle(summarySheet, label, label, s.header); err != nil {
			return err
		}

		value, _ := excelize.CoordinatesToCellName(2, row)
		style := s.text
		switch rec[0] {
		case "Status":
			style = s.fail
			if table.Summary.Passed() {
				style = s.pass
			}
		}
		if err := fx.SetCellStr(summarySheet, value, rec[1]); err != nil {
			return err
		}
		if err := fx.SetCellStyle(summarySheet, value, value, style); err != nil {
			return err
		}
	}
	return fx.SetColWidth(summarySheet, "A", "B", 24)
}

func styleRange(fx *excelize.File, sheet string, row, fromCol, toCol, style int) error {
	from, _ := excelize.CoordinatesToCellName(fromCol, row)
	to, _ := excelize.CoordinatesToCellName(toCol, row)
	return fx.SetCellStyle(sheet, from, to, style)
}
