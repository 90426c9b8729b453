package domain

import "github.com/shopspring/decimal"

// ProfitBasis selects which daily sum drives the summary statistics.
type ProfitBasis string

const (
	BasisGross ProfitBasis = "gross"
	BasisNet   ProfitBasis = "net"
)

// Status is the outcome of the contribution rule.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// DailyBucket sums the trades of one calendar date.
type DailyBucket struct {
	Date        Date            `json:"date"`
	Trades      int             `json:"trades"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	Swap        decimal.Decimal `json:"swap"`
	Commission  decimal.Decimal `json:"commission"`
	NetProfit   decimal.Decimal `json:"net_profit"`
	ChosenSum   decimal.Decimal `json:"chosen_sum"`
}

// Sum returns the bucket value for basis.
func (b DailyBucket) Sum(basis ProfitBasis) decimal.Decimal {
	if basis == BasisNet {
		return b.NetProfit
	}
	return b.GrossProfit
}

// SummaryStatistics describes how concentrated the profit of an account is.
type SummaryStatistics struct {
	Basis           ProfitBasis     `json:"basis"`
	TradingDays     int             `json:"trading_days"`
	Total           decimal.Decimal `json:"total"`
	MaxBucket       DailyBucket     `json:"max_bucket"`
	MaxDate         Date            `json:"max_date"`
	ContributionPct decimal.Decimal `json:"contribution_pct"`
	Threshold       decimal.Decimal `json:"threshold"`
	Status          Status          `json:"status"`
	// ChallengeLevel and FastTrackLevel are the 80% and 90% reference levels of Total.
	ChallengeLevel decimal.Decimal `json:"challenge_level"`
	FastTrackLevel decimal.Decimal `json:"fast_track_level"`
}

// Passed reports whether the contribution rule passed.
func (s SummaryStatistics) Passed() bool {
	return s.Status == StatusPass
}
