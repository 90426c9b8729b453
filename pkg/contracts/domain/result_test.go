package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisResult_Clone(t *testing.T) {
	name := "Jane Trader"
	columns := NewColumnRoleMap()
	columns.Bind(RoleProfit, ColumnRef{Index: 1, Label: "Profit"})

	original := &AnalysisResult{
		FileName: "a.csv",
		Identity: AccountIdentity{Name: &name},
		Columns:  columns,
		Options:  AnalysisOptions{PercentThreshold: 30, SymbolFilter: []string{"EURUSD"}},
		Buckets: []DailyBucket{
			{Date: NewDate(2024, time.January, 2), Trades: 2, GrossProfit: decimal.NewFromInt(10)},
		},
		Warnings: []string{"grouped by close time"},
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	*clone.Identity.Name = "changed"
	clone.Columns.Bind(RoleSwap, ColumnRef{Index: 2, Label: "Swap"})
	clone.Options.SymbolFilter[0] = "XAUUSD"
	clone.Buckets[0].Trades = 99
	clone.Warnings[0] = "changed"

	assert.Equal(t, "Jane Trader", *original.Identity.Name)
	assert.False(t, original.Columns.Has(RoleSwap))
	assert.Equal(t, []string{"EURUSD"}, original.Options.SymbolFilter)
	assert.Equal(t, 2, original.Buckets[0].Trades)
	assert.Equal(t, []string{"grouped by close time"}, original.Warnings)

	assert.Nil(t, (*AnalysisResult)(nil).Clone())
	empty := (&AnalysisResult{}).Clone()
	assert.Nil(t, empty.Buckets)
	assert.Nil(t, empty.Identity.Name)
}
