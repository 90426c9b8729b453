package dataprocessing

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"statementcheck/pkg/contracts/domain"
)

// ParseNumber reads an amount as exported by brokers: accounting negatives
// "(12.50)", thousands commas, embedded spaces and non-breaking spaces. ok is
// false for empty cells, "nan" and text that is not a number.
func ParseNumber(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || isMissingToken(s) {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(s)
	s = normalizeSeparators(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// normalizeSeparators drops thousands separators. A value holding both
// separators with the comma last ("1.234,56") is read as comma-decimal.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	if lastComma >= 0 && lastDot >= 0 && lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

func isMissingToken(s string) bool {
	return strings.EqualFold(s, "nan") || strings.EqualFold(s, "nat")
}

// Normalizer turns raw table rows into transactions.
type Normalizer struct {
	logger     *slog.Logger
	thresholds Thresholds
}

// NewNormalizer creates a Normalizer. A nil logger uses slog.Default().
func NewNormalizer(logger *slog.Logger, thresholds Thresholds) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger:     logger.With(slog.String("component", "normalizer")),
		thresholds: thresholds.withDefaults(),
	}
}

// Normalize converts every table row. Rows whose groupBy timestamp does not parse
// are dropped and counted. Missing amounts count as zero; unbound amount columns
// are constant zero.
func (n *Normalizer) Normalize(ctx context.Context, table *domain.RawTable, roles domain.ColumnRoleMap, groupBy domain.TimeRole) ([]domain.Transaction, domain.RowStats) {
	stats := domain.RowStats{RowsRead: len(table.Rows)}

	var openCol, closeCol *DateColumn
	if ref, ok := roles.Get(domain.RoleOpenTime); ok {
		col := ParseDateColumn(table.Column(ref.Index), n.thresholds.DateFailureRatio)
		openCol = &col
		stats.OpenTimeDayFirst = col.DayFirst
	}
	if ref, ok := roles.Get(domain.RoleCloseTime); ok {
		col := ParseDateColumn(table.Column(ref.Index), n.thresholds.DateFailureRatio)
		closeCol = &col
		stats.CloseTimeDayFirst = col.DayFirst
	}

	profit := n.amounts(table, roles, domain.RoleProfit)
	swap := n.amounts(table, roles, domain.RoleSwap)
	commission := n.amounts(table, roles, domain.RoleCommission)

	var symbols []string
	if ref, ok := roles.Get(domain.RoleSymbol); ok {
		symbols = table.Column(ref.Index)
	}

	txs := make([]domain.Transaction, 0, len(table.Rows))
	for i, row := range table.Rows {
		tx := domain.Transaction{
			Row:        row.Index,
			Profit:     profit[i],
			Swap:       swap[i],
			Commission: commission[i],
		}
		if openCol != nil {
			tx.OpenDate = openCol.Dates[i]
		}
		if closeCol != nil {
			tx.CloseDate = closeCol.Dates[i]
		}
		if symbols != nil {
			s := strings.TrimSpace(symbols[i])
			tx.Symbol = &s
		}

		if _, ok := tx.GroupingDate(groupBy); !ok {
			stats.DroppedUnparseableTime++
			continue
		}
		txs = append(txs, tx)
	}
	stats.Transactions = len(txs)

	n.logger.DebugContext(ctx, "rows normalized",
		slog.Int("rows_read", stats.RowsRead),
		slog.Int("dropped_unparseable_time", stats.DroppedUnparseableTime),
		slog.Bool("open_time_day_first", stats.OpenTimeDayFirst),
		slog.Bool("close_time_day_first", stats.CloseTimeDayFirst))

	return txs, stats
}

func (n *Normalizer) amounts(table *domain.RawTable, roles domain.ColumnRoleMap, role domain.Role) []decimal.Decimal {
	out := make([]decimal.Decimal, len(table.Rows))
	ref, ok := roles.Get(role)
	if !ok {
		return out
	}
	for i, v := range table.Column(ref.Index) {
		if d, ok := ParseNumber(v); ok {
			out[i] = d
		}
	}
	return out
}
