package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"statementcheck/pkg/contracts/domain"
)

func TestAnalyzeRequest_Options(t *testing.T) {
	yes := true
	forty := 40.0

	tests := []struct {
		name string
		req  AnalyzeRequest
		want domain.AnalysisOptions
	}{
		{
			name: "empty request keeps defaults",
			req:  AnalyzeRequest{},
			want: domain.DefaultAnalysisOptions(),
		},
		{
			name: "every field set",
			req: AnalyzeRequest{
				UseNetProfit:     &yes,
				PercentThreshold: &forty,
				SymbolFilter:     "xauusd, EURUSD,,",
				GroupingTimeRole: "close",
			},
			want: domain.AnalysisOptions{
				UseNetProfit:     true,
				PercentThreshold: 40,
				SymbolFilter:     []string{"EURUSD", "XAUUSD"},
				GroupingTimeRole: domain.GroupByClose,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Options(domain.DefaultAnalysisOptions()))
		})
	}
}
