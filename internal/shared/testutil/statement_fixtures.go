package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a generated workbook.
type Sheet struct {
	Name string
	Rows [][]string
}

// XLSXBytes builds a workbook in memory. Cells are written as text so the
// statement parser sees exactly what the test wrote.
func XLSXBytes(t *testing.T, sheets ...Sheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		name := sheet.Name
		if name == "" {
			name = "Sheet" + string(rune('1'+i))
		}
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheet.Rows {
			for c, v := range row {
				if v == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellStr(name, cell, v))
			}
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// CSVBytes renders rows with the given delimiter.
func CSVBytes(t *testing.T, delimiter rune, rows [][]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	require.NoError(t, w.WriteAll(rows))
	return buf.Bytes()
}

// WriteFile stores data under dir and returns the full path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// MT5Statement is a positions report as exported by MetaTrader 5: identity rows,
// a repeated "Time" label and commission/swap before profit.
func MT5Statement() [][]string {
	return [][]string{
		{"Trade History Report"},
		{"Name:", "Jane Doe"},
		{"Account:", "51234567 (USD, Demo)"},
		{"Company:", "Example Markets Ltd"},
		{},
		{"Positions"},
		{"Time", "Position", "Symbol", "Type", "Volume", "Price", "S / L", "T / P", "Time", "Price", "Commission", "Swap", "Profit"},
		{"2024.01.01 09:15:00", "1001", "EURUSD", "buy", "0.10", "1.10450", "", "", "2024.01.01 11:20:00", "1.10550", "-0.70", "0.00", "10.00"},
		{"2024.01.01 13:00:00", "1002", "XAUUSD", "sell", "0.05", "2065.10", "", "", "2024.01.02 10:05:00", "2065.70", "-0.35", "-1.20", "-3.00"},
		{"2024.01.02 08:30:00", "1003", "EURUSD", "buy", "0.10", "1.09800", "", "", "2024.01.02 16:45:00", "1.09850", "-0.70", "0.00", "5.00"},
	}
}

// MT4Statement is a detailed statement as exported by MetaTrader 4: an "Item"
// symbol column and "Open Time" / "Close Time" labels.
func MT4Statement() [][]string {
	return [][]string{
		{"Account: 2088776", "Name: John Smith", "Currency: USD"},
		{"Closed Transactions:"},
		{"Ticket", "Open Time", "Type", "Size", "Item", "Price", "S / L", "T / P", "Close Time", "Price", "Commission", "Taxes", "Swap", "Profit"},
		{"5001", "2024.03.04 10:00:00", "buy", "1.00", "gbpusd", "1.2650", "0", "0", "2024.03.04 12:00:00", "1.2660", "-7.00", "0.00", "0.00", "100.00"},
		{"5002", "2024.03.05 10:00:00", "sell", "1.00", "usdjpy", "150.10", "0", "0", "2024.03.05 15:00:00", "150.30", "-7.00", "0.00", "-2.50", "(133.20)"},
		{"5003", "2024.03.06 10:00:00", "buy", "0.50", "gbpusd", "1.2700", "0", "0", "2024.03.07 09:00:00", "1.2750", "-3.50", "0.00", "-1.10", "250.00"},
	}
}

// GenericStatement is a broker export with day-first dates, thousands separators
// and no symbol column.
func GenericStatement() [][]string {
	return [][]string{
		{"Client", "Acme Trader"},
		{"Open Time", "Close Time", "Net Profit", "Swap"},
		{"13/02/2024 10:00", "13/02/2024 11:00", "1,200.00", "0"},
		{"14/02/2024 10:00", "15/02/2024 11:00", "(300.00)", "-5"},
		{"15/02/2024 10:00", "15/02/2024 12:00", "100.50", ""},
		{"16/02/2024 09:00", "16/02/2024 17:00", "nan", "0"},
	}
}
