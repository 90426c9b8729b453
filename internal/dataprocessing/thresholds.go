package dataprocessing

import "github.com/shopspring/decimal"

// Thresholds holds the tunable heuristics of statement ingestion. They are
// empirical and configurable through the analysis config section.
type Thresholds struct {
	// HeaderScanLimit bounds the rows searched for the transaction header. Zero scans everything.
	HeaderScanLimit int
	// NumericMinRatio is the share of non-empty cells that must parse as numbers
	// for a column to count as numeric.
	NumericMinRatio float64
	// SmallValueThreshold and SmallValueMinRatio describe profit-like columns when
	// no label mentions profit: most absolute values sit below the threshold.
	SmallValueThreshold decimal.Decimal
	SmallValueMinRatio  float64
	// DateFailureRatio above which a time column is re-read day-first.
	DateFailureRatio float64
	// TimeColumnMinRatio is the share of timestamp-like cells needed to treat an
	// unlabeled column as a time column.
	TimeColumnMinRatio float64
	// DropWarnRatio is the share of dropped rows above which a file gets a warning.
	DropWarnRatio  float64
	ChallengeRatio decimal.Decimal
	FastTrackRatio decimal.Decimal
}

// DefaultThresholds returns the defaults used by the CLI and the server.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeaderScanLimit:     100,
		NumericMinRatio:     0.5,
		SmallValueThreshold: decimal.NewFromInt(1000),
		SmallValueMinRatio:  0.4,
		DateFailureRatio:    0.5,
		TimeColumnMinRatio:  0.2,
		DropWarnRatio:       0.5,
		ChallengeRatio:      decimal.RequireFromString("0.80"),
		FastTrackRatio:      decimal.RequireFromString("0.90"),
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.HeaderScanLimit < 0 {
		t.HeaderScanLimit = d.HeaderScanLimit
	}
	if t.NumericMinRatio <= 0 {
		t.NumericMinRatio = d.NumericMinRatio
	}
	if t.SmallValueThreshold.IsZero() {
		t.SmallValueThreshold = d.SmallValueThreshold
	}
	if t.SmallValueMinRatio <= 0 {
		t.SmallValueMinRatio = d.SmallValueMinRatio
	}
	if t.DateFailureRatio <= 0 {
		t.DateFailureRatio = d.DateFailureRatio
	}
	if t.TimeColumnMinRatio <= 0 {
		t.TimeColumnMinRatio = d.TimeColumnMinRatio
	}
	if t.DropWarnRatio <= 0 {
		t.DropWarnRatio = d.DropWarnRatio
	}
	if t.ChallengeRatio.IsZero() {
		t.ChallengeRatio = d.ChallengeRatio
	}
	if t.FastTrackRatio.IsZero() {
		t.FastTrackRatio = d.FastTrackRatio
	}
	return t
}
