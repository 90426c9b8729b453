package exporter

import (
	"github.com/shopspring/decimal"

	"statementcheck/pkg/contracts/domain"
)

// Headers of the export table, identity columns first.
var Headers = []string{
	"Name", "Account", "Date", "Trades",
	"Gross Profit", "Swap", "Commission", "Net Profit", "Chosen Sum",
}

// Row is one trading day annotated with the account identity.
type Row struct {
	Name        string
	Account     string
	Date        domain.Date
	Trades      int
	GrossProfit decimal.Decimal
	Swap        decimal.Decimal
	Commission  decimal.Decimal
	NetProfit   decimal.Decimal
	ChosenSum   decimal.Decimal
}

// Table is the exportable form of an analysis result.
type Table struct {
	Rows    []Row
	Summary domain.SummaryStatistics
}

// NewTable builds the export table of result. Missing identity fields use the
// placeholder.
func NewTable(result *domain.AnalysisResult) Table {
	name := result.Identity.DisplayName()
	account := result.Identity.DisplayAccount()

	rows := make([]Row, len(result.Buckets))
	for i, b := range result.Buckets {
		rows[i] = Row{
			Name:        name,
			Account:     account,
			Date:        b.Date,
			Trades:      b.Trades,
			GrossProfit: b.GrossProfit,
			Swap:        b.Swap,
			Commission:  b.Commission,
			NetProfit:   b.NetProfit,
			ChosenSum:   b.ChosenSum,
		}
	}
	return Table{Rows: rows, Summary: result.Summary}
}

// Records returns the table as text rows in Headers order.
func (t Table) Records() [][]string {
	records := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		records[i] = []string{
			r.Name,
			r.Account,
			r.Date.String(),
			formatInt(int64(r.Trades)),
			formatDecimal(r.GrossProfit),
			formatDecimal(r.Swap),
			formatDecimal(r.Commission),
			formatDecimal(r.NetProfit),
			formatDecimal(r.ChosenSum),
		}
	}
	return records
}

// SummaryRecords lists the summary statistics as label/value pairs.
func (t Table) SummaryRecords() [][]string {
	s := t.Summary
	return [][]string{
		{"Basis", string(s.Basis)},
		{"Trading Days", formatInt(int64(s.TradingDays))},
		{"Total", formatDecimal(s.Total)},
		{"Max Day", s.MaxDate.String()},
		{"Max Day Profit", formatDecimal(s.MaxBucket.ChosenSum)},
		{"Contribution %", formatDecimal(s.ContributionPct)},
		{"Threshold %", formatDecimal(s.Threshold)},
		{"Status", string(s.Status)},
		{"Challenge Level (80%)", formatDecimal(s.ChallengeLevel)},
		{"Fast-Track Level (90%)", formatDecimal(s.FastTrackLevel)},
	}
}
