package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"statementcheck/internal/config"
	"statementcheck/internal/dataprocessing"
	apperrors "statementcheck/internal/errors"
	"statementcheck/internal/exporter"
	"statementcheck/internal/infrastructure"
	"statementcheck/internal/validation"
	apiv1 "statementcheck/pkg/contracts/api/v1"
	"statementcheck/pkg/contracts/domain"
	"statementcheck/pkg/contracts/events"
)

// ProgressBroadcaster receives batch progress events. *websocket.Hub implements it.
type ProgressBroadcaster interface {
	Broadcast(msg events.WebSocketMessage)
}

// Upload is one statement received in memory.
type Upload struct {
	Name string
	Data []byte
}

// ExportFile is a rendered export ready to be written or streamed.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Result      *domain.AnalysisResult
}

// AnalysisService validates inputs, runs batches, and reports their progress.
type AnalysisService struct {
	analyzer    dataprocessing.Analyzer
	batch       *dataprocessing.BatchProcessor
	cache       *cachedAnalyzer
	files       *validation.FileValidator
	validate    *validator.Validate
	broadcaster ProgressBroadcaster
	metrics     *infrastructure.AppMetrics
	defaults    domain.AnalysisOptions
	maxFiles    int
	logger      *slog.Logger
}

// NewAnalysisService wires the pipeline from cfg. broadcaster and metrics may be nil.
func NewAnalysisService(cfg *config.Config, broadcaster ProgressBroadcaster, metrics *infrastructure.AppMetrics, logger *slog.Logger) (*AnalysisService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "analysis_service"))

	s := &AnalysisService{
		files:       validation.NewFileValidator(logger, cfg.Analysis.MaxUploadBytes, config.StatementExtensions),
		validate:    validator.New(),
		broadcaster: broadcaster,
		metrics:     metrics,
		maxFiles:    config.MaxFilesPerRequest,
		logger:      logger,
	}

	s.defaults = dataprocessing.ApplyDefaults(cfg.Analysis.DefaultOptions())
	if err := s.validateOptions(s.defaults); err != nil {
		return nil, fmt.Errorf("configured default options: %w", err)
	}

	pipeline := dataprocessing.NewPipeline(logger, cfg.Analysis.Thresholds())
	s.analyzer = pipeline
	if cfg.Cache.Enabled {
		s.cache = newCachedAnalyzer(pipeline, cfg.Cache, metrics, logger)
		s.analyzer = s.cache
	}
	s.batch = dataprocessing.NewBatchProcessor(s.analyzer, logger, cfg.Analysis.MaxConcurrency)

	logger.Info("AnalysisService initialized",
		slog.Bool("cache_enabled", cfg.Cache.Enabled),
		slog.Int("max_concurrency", cfg.Analysis.MaxConcurrency),
		slog.Int64("max_upload_bytes", cfg.Analysis.MaxUploadBytes))
	return s, nil
}

// Defaults returns the options used for fields a caller leaves unset.
func (s *AnalysisService) Defaults() domain.AnalysisOptions {
	return s.defaults
}

// MaxUploadBytes is the per-file size limit.
func (s *AnalysisService) MaxUploadBytes() int64 {
	return s.files.MaxBytes()
}

// ResolveOptions validates req and applies it on top of the defaults.
func (s *AnalysisService) ResolveOptions(req apiv1.AnalyzeRequest) (domain.AnalysisOptions, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.AnalysisOptions{}, optionError(err)
	}
	opts := dataprocessing.ApplyDefaults(req.Options(s.defaults))
	if err := s.validateOptions(opts); err != nil {
		return domain.AnalysisOptions{}, err
	}
	return opts, nil
}

func (s *AnalysisService) validateOptions(opts domain.AnalysisOptions) error {
	if err := s.validate.Struct(opts); err != nil {
		return optionError(err)
	}
	return nil
}

func optionError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		err = errors.New(strings.Join(fields, "; "))
	}
	return apperrors.NewAppError(apperrors.ErrTypeValidation, err.Error(), ErrInvalidOption)
}

// AnalyzeUploads analyzes in-memory statements. Rejected uploads become failed
// outcomes; the call fails only for an empty or oversized request or cancellation.
func (s *AnalysisService) AnalyzeUploads(ctx context.Context, uploads []Upload, opts domain.AnalysisOptions) (*domain.BatchReport, error) {
	if err := s.checkCount(len(uploads)); err != nil {
		return nil, err
	}
	inputs := make([]dataprocessing.FileInput, len(uploads))
	for i, u := range uploads {
		if err := s.files.ValidateUpload(u.Name, int64(len(u.Data)), u.Data); err != nil {
			inputs[i] = rejectedInput(u.Name, err)
			continue
		}
		inputs[i] = dataprocessing.BytesInput(u.Name, u.Data)
	}
	return s.run(ctx, inputs, opts)
}

// AnalyzePaths analyzes statements on disk, in the given order.
func (s *AnalysisService) AnalyzePaths(ctx context.Context, paths []string, opts domain.AnalysisOptions) (*domain.BatchReport, error) {
	if len(paths) == 0 {
		return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, "no statement files to analyze", ErrNoFiles)
	}
	inputs := make([]dataprocessing.FileInput, len(paths))
	for i, p := range paths {
		if err := s.files.ValidateFile(p); err != nil {
			inputs[i] = rejectedInput(p, err)
			continue
		}
		inputs[i] = dataprocessing.PathInput(p)
	}
	return s.run(ctx, inputs, opts)
}

func (s *AnalysisService) checkCount(n int) error {
	if n == 0 {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "no statement files supplied", ErrNoFiles)
	}
	if n > s.maxFiles {
		return apperrors.NewAppError(apperrors.ErrTypeValidation,
			fmt.Sprintf("%d files supplied, at most %d allowed", n, s.maxFiles), ErrTooManyFiles)
	}
	return nil
}

func rejectedInput(name string, err error) dataprocessing.FileInput {
	in := dataprocessing.PathInput(name)
	in.Open = func() (io.ReadSeekCloser, error) { return nil, err }
	return in
}

func (s *AnalysisService) run(ctx context.Context, inputs []dataprocessing.FileInput, opts domain.AnalysisOptions) (*domain.BatchReport, error) {
	opts = dataprocessing.ApplyDefaults(opts)
	if err := s.validateOptions(opts); err != nil {
		return nil, err
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	traceID := infrastructure.GetTraceID(ctx)
	batchID := uuid.New().String()
	total := len(inputs)

	report, err := s.batch.ProcessBatch(ctx, batchID, inputs, opts, func(index int, outcome domain.FileOutcome) {
		s.recordFile(ctx, outcome)
		s.publish(events.NewMessage(events.MessageTypeFileAnalyzed, traceID, fileEvent(batchID, index, total, outcome)))
	})
	if err != nil {
		s.logger.WarnContext(ctx, "batch aborted", slog.String("error", err.Error()))
		return nil, err
	}

	s.metrics.RecordBatch(ctx, total)
	s.publish(events.NewMessage(events.MessageTypeBatchCompleted, traceID, events.BatchCompleted{
		BatchID:    report.BatchID,
		Total:      total,
		Succeeded:  report.Succeeded,
		Failed:     report.Failed,
		DurationMS: report.Duration.Milliseconds(),
	}))
	return report, nil
}

func (s *AnalysisService) recordFile(ctx context.Context, outcome domain.FileOutcome) {
	stats := infrastructure.FileStats{
		ErrorKind: outcome.ErrorKind,
		Duration:  outcome.Duration,
	}
	if outcome.Result != nil {
		stats.RowsRead = outcome.Result.Stats.RowsRead
		stats.Dropped = outcome.Result.Stats.DroppedUnparseableTime
		stats.Filtered = outcome.Result.Stats.FilteredBySymbol
	}
	s.metrics.RecordFile(ctx, stats)
}

func (s *AnalysisService) publish(msg events.WebSocketMessage) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(msg)
	}
}

func fileEvent(batchID string, index, total int, outcome domain.FileOutcome) events.FileAnalyzed {
	ev := events.FileAnalyzed{
		BatchID:    batchID,
		Index:      index,
		Total:      total,
		FileName:   outcome.FileName,
		Succeeded:  outcome.Succeeded(),
		ErrorKind:  outcome.ErrorKind,
		Error:      outcome.Error,
		DurationMS: outcome.Duration.Milliseconds(),
	}
	if r := outcome.Result; r != nil {
		ev.Status = string(r.Summary.Status)
		ev.ContributionPct = r.Summary.ContributionPct.StringFixed(2)
		ev.TradingDays = r.Summary.TradingDays
	}
	return ev
}

// Export analyzes one upload and renders its export table. Report failures
// are returned as errors of the internal/errors kinds.
func (s *AnalysisService) Export(ctx context.Context, upload Upload, opts domain.AnalysisOptions, format exporter.Format) (*ExportFile, error) {
	if err := s.files.ValidateUpload(upload.Name, int64(len(upload.Data)), upload.Data); err != nil {
		return nil, err
	}
	result, err := s.AnalyzeOne(ctx, upload.Name, bytes.NewReader(upload.Data), opts)
	if err != nil {
		return nil, err
	}
	return s.Render(ctx, result, format)
}

// AnalyzeOne runs a single statement outside of a batch.
func (s *AnalysisService) AnalyzeOne(ctx context.Context, name string, r io.ReadSeeker, opts domain.AnalysisOptions) (*domain.AnalysisResult, error) {
	opts = dataprocessing.ApplyDefaults(opts)
	if err := s.validateOptions(opts); err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, name, r, opts)

	outcome := domain.FileOutcome{FileName: name, Result: result, Duration: time.Since(start)}
	if err != nil {
		outcome.Error = err.Error()
		outcome.ErrorKind = apperrors.KindOf(err)
	}
	s.recordFile(ctx, outcome)
	return result, err
}

// Render writes the export table of result in format.
func (s *AnalysisService) Render(ctx context.Context, result *domain.AnalysisResult, format exporter.Format) (*ExportFile, error) {
	var buf bytes.Buffer
	if err := exporter.WriteWithLogger(&buf, format, result, s.logger); err != nil {
		s.logger.ErrorContext(ctx, "export rendering failed",
			slog.String("file", result.FileName),
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return nil, apperrors.NewExportError(fmt.Sprintf("failed to render %s export of %s", format, result.FileName), err)
	}
	return &ExportFile{
		Name:        exporter.FileName(result, format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
		Result:      result,
	}, nil
}

// CachedResults is the number of cached analysis results, or -1 when caching is off.
func (s *AnalysisService) CachedResults() int {
	if s.cache == nil {
		return -1
	}
	return s.cache.ItemCount()
}
