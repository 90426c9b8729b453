package domain

import "time"

// RowStats counts what happened to statement rows on the way to the daily buckets.
type RowStats struct {
	RowsRead               int  `json:"rows_read"`
	DroppedUnparseableTime int  `json:"dropped_unparseable_time"`
	FilteredBySymbol       int  `json:"filtered_by_symbol"`
	Transactions           int  `json:"transactions"`
	OpenTimeDayFirst       bool `json:"open_time_day_first"`
	CloseTimeDayFirst      bool `json:"close_time_day_first"`
}

// DropRatio is the share of rows lost to unparseable grouping timestamps.
func (s RowStats) DropRatio() float64 {
	if s.RowsRead == 0 {
		return 0
	}
	return float64(s.DroppedUnparseableTime) / float64(s.RowsRead)
}

// AnalysisResult is everything computed for one statement file.
type AnalysisResult struct {
	FileName  string            `json:"file_name"`
	Identity  AccountIdentity   `json:"identity"`
	Columns   ColumnRoleMap     `json:"columns"`
	GroupedBy TimeRole          `json:"grouped_by"`
	Options   AnalysisOptions   `json:"options"`
	Buckets   []DailyBucket     `json:"buckets"`
	Summary   SummaryStatistics `json:"summary"`
	Stats     RowStats          `json:"stats"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// Clone returns a deep copy of r. Results handed to different callers must
// not share slices, maps or identity pointers.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Identity = AccountIdentity{
		Name:          cloneString(r.Identity.Name),
		AccountNumber: cloneString(r.Identity.AccountNumber),
	}
	out.Columns = r.Columns.Clone()
	out.Options.SymbolFilter = cloneSlice(r.Options.SymbolFilter)
	out.Buckets = cloneSlice(r.Buckets)
	out.Warnings = cloneSlice(r.Warnings)
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// FileOutcome is the per-file entry of a batch: either a result or an error.
type FileOutcome struct {
	FileName  string          `json:"file_name"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Duration  time.Duration   `json:"duration_ns"`
}

// Succeeded reports whether the file produced a result.
func (o FileOutcome) Succeeded() bool {
	return o.Result != nil && o.Error == ""
}

// BatchReport collects the outcomes of one multi-file analysis in input order.
type BatchReport struct {
	BatchID   string        `json:"batch_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Files     []FileOutcome `json:"files"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}
