package http

import (
	"context"

	"statementcheck/internal/exporter"
	"statementcheck/internal/services"
	apiv1 "statementcheck/pkg/contracts/api/v1"
	"statementcheck/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the analysis operations used by the handlers
type AnalysisServiceInterface interface {
	Defaults() domain.AnalysisOptions
	MaxUploadBytes() int64
	ResolveOptions(req apiv1.AnalyzeRequest) (domain.AnalysisOptions, error)
	AnalyzeUploads(ctx context.Context, uploads []services.Upload, opts domain.AnalysisOptions) (*domain.BatchReport, error)
	Export(ctx context.Context, upload services.Upload, opts domain.AnalysisOptions, format exporter.Format) (*services.ExportFile, error)
}
