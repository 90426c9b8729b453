package dataprocessing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "statementcheck/internal/errors"
	"statementcheck/pkg/contracts/domain"
)

var hundred = decimal.NewFromInt(100)

// Aggregation is the Daily Aggregator output for one file.
type Aggregation struct {
	Buckets          []domain.DailyBucket
	Summary          domain.SummaryStatistics
	FilteredBySymbol int
}

// Aggregator groups transactions into daily buckets and evaluates the
// contribution rule.
type Aggregator struct {
	thresholds Thresholds
}

// NewAggregator creates an Aggregator.
func NewAggregator(thresholds Thresholds) *Aggregator {
	return &Aggregator{thresholds: thresholds.withDefaults()}
}

// Aggregate filters txs by the symbol allow-list, sums them per grouping date
// and computes the summary. stats are the Normalizer's row counts; when nothing
// is left to aggregate the no-valid-transactions error carries them.
func (a *Aggregator) Aggregate(name string, txs []domain.Transaction, stats domain.RowStats, groupBy domain.TimeRole, opts domain.AnalysisOptions) (*Aggregation, error) {
	if stats.RowsRead < len(txs)+stats.DroppedUnparseableTime {
		stats.RowsRead = len(txs) + stats.DroppedUnparseableTime
	}

	kept, filtered := filterSymbols(txs, opts.Symbols())
	if len(kept) == 0 {
		return nil, apperrors.NewNoValidTransactionsError(name, stats.RowsRead, stats.DroppedUnparseableTime, filtered)
	}

	basis := opts.Basis()
	byDate := make(map[domain.Date]*domain.DailyBucket)
	for _, tx := range kept {
		date, ok := tx.GroupingDate(groupBy)
		if !ok {
			continue
		}
		b, ok := byDate[date]
		if !ok {
			b = &domain.DailyBucket{Date: date}
			byDate[date] = b
		}
		b.Trades++
		b.GrossProfit = b.GrossProfit.Add(tx.Profit)
		b.Swap = b.Swap.Add(tx.Swap)
		b.Commission = b.Commission.Add(tx.Commission)
	}
	if len(byDate) == 0 {
		return nil, apperrors.NewNoValidTransactionsError(name, stats.RowsRead, stats.DroppedUnparseableTime+len(kept), filtered)
	}

	buckets := make([]domain.DailyBucket, 0, len(byDate))
	for _, b := range byDate {
		b.NetProfit = b.GrossProfit.Add(b.Swap).Add(b.Commission)
		b.ChosenSum = b.Sum(basis)
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date.Before(buckets[j].Date) })

	return &Aggregation{
		Buckets:          buckets,
		Summary:          a.summarize(buckets, basis, opts.PercentThreshold),
		FilteredBySymbol: filtered,
	}, nil
}

// summarize expects buckets sorted by date. Ties for the largest day go to the
// earliest date.
func (a *Aggregator) summarize(buckets []domain.DailyBucket, basis domain.ProfitBasis, threshold float64) domain.SummaryStatistics {
	total := decimal.Zero
	maxIdx := 0
	for i, b := range buckets {
		total = total.Add(b.ChosenSum)
		if b.ChosenSum.GreaterThan(buckets[maxIdx].ChosenSum) {
			maxIdx = i
		}
	}
	maxBucket := buckets[maxIdx]

	pct := decimal.Zero
	if !total.IsZero() {
		pct = maxBucket.ChosenSum.Div(total).Mul(hundred)
	}

	limit := decimal.NewFromFloat(threshold)
	status := domain.StatusFail
	if pct.LessThan(limit) {
		status = domain.StatusPass
	}

	return domain.SummaryStatistics{
		Basis:           basis,
		TradingDays:     len(buckets),
		Total:           total,
		MaxBucket:       maxBucket,
		MaxDate:         maxBucket.Date,
		ContributionPct: pct,
		Threshold:       limit,
		Status:          status,
		ChallengeLevel:  total.Mul(a.thresholds.ChallengeRatio),
		FastTrackLevel:  total.Mul(a.thresholds.FastTrackRatio),
	}
}

// filterSymbols keeps transactions whose upper-cased symbol is allowed. The
// filter is skipped when allowed is nil or no transaction carries a symbol.
func filterSymbols(txs []domain.Transaction, allowed map[string]struct{}) ([]domain.Transaction, int) {
	if allowed == nil || !anySymbol(txs) {
		return txs, 0
	}
	kept := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Symbol == nil {
			continue
		}
		if _, ok := allowed[strings.ToUpper(strings.TrimSpace(*tx.Symbol))]; ok {
			kept = append(kept, tx)
		}
	}
	return kept, len(txs) - len(kept)
}

func anySymbol(txs []domain.Transaction) bool {
	for _, tx := range txs {
		if tx.Symbol != nil {
			return true
		}
	}
	return false
}
