package dataprocessing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementcheck/internal/shared/testutil"
	"statementcheck/pkg/contracts/domain"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"(1,234.50)", "-1234.5", true},
		{"987.65", "987.65", true},
		{"", "0", false},
		{"   ", "0", false},
		{"nan", "0", false},
		{"NaN", "0", false},
		{"-3.00", "-3", true},
		{"+12.5", "12.5", true},
		{"1 234.56", "1234.56", true},
		{"1\u00a0234.56", "1234.56", true},
		{"1.234,56", "1234.56", true},
		{"( 42 )", "-42", true},
		{"12,345,678", "12345678", true},
		{"abc", "0", false},
		{"2024.01.01", "0", false},
		{"()", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseNumber(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		dayFirst bool
		want     time.Time
		ok       bool
	}{
		{"metatrader", "2024.01.15 10:30:00", false, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"iso", "2024-01-15 10:30", false, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"rfc3339 keeps wall date", "2024-01-15T23:30:00+03:00", false, time.Date(2024, 1, 15, 23, 30, 0, 0, time.FixedZone("", 3*3600)), true},
		{"month first", "02/03/2024 10:00", false, time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC), true},
		{"day first", "02/03/2024 10:00", true, time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC), true},
		{"day first only", "25/03/2024", false, time.Time{}, false},
		{"day first fallback to month first", "03/25/2024", true, time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), true},
		{"named month", "Jan 2, 2024", false, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"excel serial", "45292", false, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"small number is not a date", "150", false, time.Time{}, false},
		{"empty", "", false, time.Time{}, false},
		{"NaT", "NaT", false, time.Time{}, false},
		{"text", "buy", false, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.raw, tt.dayFirst)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
				assert.Equal(t, domain.DateOf(tt.want), domain.DateOf(got))
			}
		})
	}
}

func TestParseDateColumn_DayFirstFallback(t *testing.T) {
	// 8 of 10 values only parse day-first; 2 are ambiguous.
	values := []string{
		"13/01/2024 10:00", "14/01/2024 10:00", "15/01/2024 10:00", "16/01/2024 10:00",
		"17/01/2024 10:00", "18/01/2024 10:00", "19/01/2024 10:00", "20/01/2024 10:00",
		"05/01/2024 10:00", "06/01/2024 10:00",
	}

	col := ParseDateColumn(values, DefaultThresholds().DateFailureRatio)

	assert.True(t, col.DayFirst)
	parsed := 0
	for _, d := range col.Dates {
		if d != nil {
			parsed++
		}
	}
	assert.GreaterOrEqual(t, parsed, 8)
	require.NotNil(t, col.Dates[8])
	assert.Equal(t, domain.NewDate(2024, time.January, 5), *col.Dates[8])
}

func TestParseDateColumn_NoFallbackOnMinorityFailure(t *testing.T) {
	values := []string{"01/02/2024", "01/03/2024", "01/04/2024", "25/01/2024", ""}

	col := ParseDateColumn(values, 0.5)

	assert.False(t, col.DayFirst)
	assert.Equal(t, 4, col.NonEmpty)
	assert.Equal(t, 1, col.Failed)
	require.NotNil(t, col.Dates[0])
	assert.Equal(t, domain.NewDate(2024, time.January, 2), *col.Dates[0])
	assert.Nil(t, col.Dates[3])
	assert.Nil(t, col.Dates[4])
}

func TestNormalizer_Normalize(t *testing.T) {
	table := &domain.RawTable{
		Labels: []string{"Time", "Symbol", "Profit", "Commission"},
		Rows: []domain.RawRow{
			{Index: 1, Cells: []string{"2024.01.01 10:00:00", " eurusd ", "(1,234.50)", "-1.5"}},
			{Index: 2, Cells: []string{"garbage", "EURUSD", "10", ""}},
			{Index: 3, Cells: []string{"2024.01.02 10:00:00", "XAUUSD", "", "nan"}},
		},
	}
	roles := domain.NewColumnRoleMap()
	roles.Bind(domain.RoleOpenTime, domain.ColumnRef{Index: 0, Label: "Time"})
	roles.Bind(domain.RoleSymbol, domain.ColumnRef{Index: 1, Label: "Symbol"})
	roles.Bind(domain.RoleProfit, domain.ColumnRef{Index: 2, Label: "Profit"})
	roles.Bind(domain.RoleCommission, domain.ColumnRef{Index: 3, Label: "Commission"})

	logger, handler := testutil.NewTestLogger(t)
	n := NewNormalizer(logger, DefaultThresholds())
	txs, stats := n.Normalize(context.Background(), table, roles, domain.GroupByOpen)

	require.Len(t, txs, 2)
	assert.Equal(t, 3, stats.RowsRead)
	assert.Equal(t, 1, stats.DroppedUnparseableTime)
	assert.Equal(t, 2, stats.Transactions)

	first := txs[0]
	assert.Equal(t, 1, first.Row)
	assert.True(t, decimal.RequireFromString("-1234.5").Equal(first.Profit))
	assert.True(t, decimal.RequireFromString("-1.5").Equal(first.Commission))
	assert.True(t, first.Swap.IsZero(), "unbound swap is constant zero")
	require.NotNil(t, first.Symbol)
	assert.Equal(t, "eurusd", *first.Symbol)
	assert.Nil(t, first.CloseDate)

	second := txs[1]
	assert.True(t, second.Profit.IsZero(), "missing profit sums as zero")
	assert.True(t, second.Commission.IsZero())

	testutil.AssertLogAttr(t, handler, "component", "normalizer")
}

func TestNormalizer_GroupByCloseDropsOnlyCloseFailures(t *testing.T) {
	table := &domain.RawTable{
		Labels: []string{"Open", "Close", "Profit"},
		Rows: []domain.RawRow{
			{Index: 1, Cells: []string{"bad", "2024-01-01", "1"}},
			{Index: 2, Cells: []string{"2024-01-01", "bad", "2"}},
		},
	}
	roles := domain.NewColumnRoleMap()
	roles.Bind(domain.RoleOpenTime, domain.ColumnRef{Index: 0})
	roles.Bind(domain.RoleCloseTime, domain.ColumnRef{Index: 1})
	roles.Bind(domain.RoleProfit, domain.ColumnRef{Index: 2})

	n := NewNormalizer(nil, DefaultThresholds())
	txs, stats := n.Normalize(context.Background(), table, roles, domain.GroupByClose)

	require.Len(t, txs, 1)
	assert.Equal(t, 1, txs[0].Row)
	assert.Nil(t, txs[0].OpenDate)
	assert.Equal(t, 1, stats.DroppedUnparseableTime)
	assert.InDelta(t, 0.5, stats.DropRatio(), 1e-9)
}

func BenchmarkParseNumber(b *testing.B) {
	values := make([]string, 100)
	for i := range values {
		values[i] = fmt.Sprintf("(%d,%03d.50)", i, i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseNumber(values[i%len(values)])
	}
}
