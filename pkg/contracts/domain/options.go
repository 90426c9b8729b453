package domain

import (
	"sort"
	"strings"
)

// DefaultPercentThreshold is the PASS boundary used when the caller sets none.
const DefaultPercentThreshold = 30.0

// AnalysisOptions are the caller-controlled settings of one analysis.
type AnalysisOptions struct {
	UseNetProfit     bool     `json:"use_net_profit"`
	PercentThreshold float64  `json:"percent_threshold" validate:"gt=0,lte=100"`
	SymbolFilter     []string `json:"symbol_filter,omitempty" validate:"omitempty,max=200,dive,required,max=64"`
	GroupingTimeRole TimeRole `json:"grouping_time_role" validate:"required,oneof=open close"`
}

// DefaultAnalysisOptions groups by open time on gross profit with a 30% threshold.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		UseNetProfit:     false,
		PercentThreshold: DefaultPercentThreshold,
		GroupingTimeRole: GroupByOpen,
	}
}

// Basis returns the profit basis selected by UseNetProfit.
func (o AnalysisOptions) Basis() ProfitBasis {
	if o.UseNetProfit {
		return BasisNet
	}
	return BasisGross
}

// Symbols returns the allow-list as an upper-cased set. A nil set disables filtering.
func (o AnalysisOptions) Symbols() map[string]struct{} {
	if len(o.SymbolFilter) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(o.SymbolFilter))
	for _, s := range o.SymbolFilter {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Canonical returns a copy with the symbol list upper-cased, de-duplicated and sorted,
// so equal option sets compare and hash equal.
func (o AnalysisOptions) Canonical() AnalysisOptions {
	set := o.Symbols()
	out := o
	out.SymbolFilter = nil
	for s := range set {
		out.SymbolFilter = append(out.SymbolFilter, s)
	}
	sort.Strings(out.SymbolFilter)
	if out.GroupingTimeRole == "" {
		out.GroupingTimeRole = GroupByOpen
	}
	return out
}

// ParseSymbolFilter splits a comma separated list such as "eurusd, XAUUSD".
func ParseSymbolFilter(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
