// Package api contains the HTTP API contracts of statementcheck.
// Version v1 represents the current stable API version.
package api

import (
	"statementcheck/pkg/contracts/domain"
)

// AnalyzeRequest holds the option fields of a multipart analyze upload.
// Unset fields fall back to the configured defaults.
type AnalyzeRequest struct {
	UseNetProfit     *bool    `json:"use_net_profit,omitempty"`
	PercentThreshold *float64 `json:"percent_threshold,omitempty" validate:"omitempty,gt=0,lte=100"`
	SymbolFilter     string   `json:"symbol_filter,omitempty" validate:"max=2048"`
	GroupingTimeRole string   `json:"grouping_time_role,omitempty" validate:"omitempty,oneof=open close"`
}

// Options applies the request on top of defaults.
func (r AnalyzeRequest) Options(defaults domain.AnalysisOptions) domain.AnalysisOptions {
	opts := defaults
	if r.UseNetProfit != nil {
		opts.UseNetProfit = *r.UseNetProfit
	}
	if r.PercentThreshold != nil {
		opts.PercentThreshold = *r.PercentThreshold
	}
	if r.SymbolFilter != "" {
		opts.SymbolFilter = domain.ParseSymbolFilter(r.SymbolFilter)
	}
	if r.GroupingTimeRole != "" {
		opts.GroupingTimeRole = domain.TimeRole(r.GroupingTimeRole)
	}
	return opts.Canonical()
}

// SuccessResponse wraps successful JSON payloads.
type SuccessResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// NewSuccessResponse builds a SuccessResponse with status "success".
func NewSuccessResponse(data interface{}) SuccessResponse {
	return SuccessResponse{Status: "success", Data: data}
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Clients int    `json:"websocket_clients"`
}
