package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"statementcheck/pkg/contracts/domain"
)

func strPtr(s string) *string { return &s }

func sampleResult() *domain.AnalysisResult {
	d := decimal.RequireFromString
	first := domain.DailyBucket{
		Date:        domain.NewDate(2024, time.January, 1),
		Trades:      2,
		GrossProfit: d("7"),
		Swap:        d("-0.5"),
		Commission:  d("-1.25"),
		NetProfit:   d("5.25"),
		ChosenSum:   d("7"),
	}
	second := domain.DailyBucket{
		Date:        domain.NewDate(2024, time.January, 2),
		Trades:      1,
		GrossProfit: d("5"),
		Swap:        d("0"),
		Commission:  d("-0.2"),
		NetProfit:   d("4.8"),
		ChosenSum:   d("5"),
	}
	return &domain.AnalysisResult{
		FileName: "ReportHistory-51234567.xlsx",
		Identity: domain.AccountIdentity{
			Name:          strPtr("Jane Doe"),
			AccountNumber: strPtr("51234567 (USD, Demo)"),
		},
		GroupedBy: domain.GroupByOpen,
		Buckets:   []domain.DailyBucket{first, second},
		Summary: domain.SummaryStatistics{
			Basis:           domain.BasisGross,
			TradingDays:     2,
			Total:           d("12"),
			MaxBucket:       first,
			MaxDate:         first.Date,
			ContributionPct: d("58.3333333333333333"),
			Threshold:       d("30"),
			Status:          domain.StatusFail,
			ChallengeLevel:  d("9.6"),
			FastTrackLevel:  d("10.8"),
		},
	}
}

func TestNewTable(t *testing.T) {
	table := NewTable(sampleResult())

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Jane Doe", table.Rows[0].Name)
	assert.Equal(t, "51234567 (USD, Demo)", table.Rows[1].Account)

	records := table.Records()
	assert.Equal(t, []string{"Jane Doe", "51234567 (USD, Demo)", "2024-01-01", "2", "7.00", "-0.50", "-1.25", "5.25", "7.00"}, records[0])
	for _, rec := range records {
		assert.Len(t, rec, len(Headers))
	}

	summary := make(map[string]string)
	for _, rec := range table.SummaryRecords() {
		summary[rec[0]] = rec[1]
	}
	assert.Equal(t, "58.33", summary["Contribution %"])
	assert.Equal(t, "FAIL", summary["Status"])
	assert.Equal(t, "2024-01-01", summary["Max Day"])
	assert.Equal(t, "9.60", summary["Challenge Level (80%)"])
}

func TestNewTable_MissingIdentity(t *testing.T) {
	result := sampleResult()
	result.Identity = domain.AccountIdentity{}

	table := NewTable(result)
	for _, r := range table.Rows {
		assert.Equal(t, domain.IdentityPlaceholder, r.Name)
		assert.Equal(t, domain.IdentityPlaceholder, r.Account)
	}
}

func TestCSVWriter_WriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).WriteTable(&buf, NewTable(sampleResult())))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Headers, records[0])
	assert.Equal(t, "2024-01-02", records[2][2])
	assert.Equal(t, "4.80", records[2][7])
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{
			name:    "headers and records",
			options: WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "x,y"}}},
			want:    "a,b\n1,\"x,y\"\n",
		},
		{
			name:    "records only",
			options: WriteOptions{Records: [][]string{{"1"}}},
			want:    "1\n",
		},
		{
			name:    "bom",
			options: WriteOptions{Headers: []string{"a"}, BOMPrefix: true},
			want:    "\xEF\xBB\xBFa\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewCSVWriter(nil).WriteCSV(&buf, tt.options))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestXLSXWriter_WriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXWriter(nil).WriteTable(&buf, NewTable(sampleResult())))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{dailySheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(dailySheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "Jane Doe", rows[1][0])
	assert.Equal(t, "2", rows[1][3])
	assert.Equal(t, "7", rows[1][4])
	assert.Equal(t, "-1.25", rows[1][6])

	serial, err := f.GetCellValue(dailySheet, "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	date, err := excelize.ExcelDateToTime(mustFloat(t, serial), false)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", date.Format("2006-01-02"))

	status, err := f.GetCellValue(summarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "FAIL", status)
}

func TestWrite(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, format, sampleResult()))
			assert.NotZero(t, buf.Len())
		})
	}

	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("pdf"), sampleResult()))
	assert.Error(t, Write(&buf, FormatCSV, nil))
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d.InexactFloat64()
}
