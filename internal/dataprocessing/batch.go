package dataprocessing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "statementcheck/internal/errors"
	"statementcheck/pkg/contracts/domain"
)

// FileInput is one statement of a batch. Open is called once, by the worker
// that processes the file.
type FileInput struct {
	Name string
	Open func() (io.ReadSeekCloser, error)
}

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }

// BytesInput wraps an in-memory upload.
func BytesInput(name string, data []byte) FileInput {
	return FileInput{
		Name: name,
		Open: func() (io.ReadSeekCloser, error) {
			return nopCloser{bytes.NewReader(data)}, nil
		},
	}
}

// PathInput reads a statement from disk.
func PathInput(path string) FileInput {
	return FileInput{
		Name: filepath.Base(path),
		Open: func() (io.ReadSeekCloser, error) {
			return os.Open(path)
		},
	}
}

// Analyzer analyzes one statement. *Pipeline is the production implementation.
type Analyzer interface {
	Analyze(ctx context.Context, name string, r io.ReadSeeker, opts domain.AnalysisOptions) (*domain.AnalysisResult, error)
}

// FileCallback observes each finished file. It may be called concurrently.
type FileCallback func(index int, outcome domain.FileOutcome)

// BatchProcessor runs an Analyzer over many files, each in isolation.
type BatchProcessor struct {
	analyzer    Analyzer
	logger      *slog.Logger
	concurrency int
}

// NewBatchProcessor creates a processor. concurrency <= 0 uses GOMAXPROCS.
func NewBatchProcessor(analyzer Analyzer, logger *slog.Logger, concurrency int) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		logger:      logger.With(slog.String("component", "batch_processor")),
		concurrency: concurrency,
	}
}

// Process analyzes every input and returns the outcomes in input order. A file
// failure is recorded in its outcome and never stops the batch; only context
// cancellation returns an error.
func (b *BatchProcessor) Process(ctx context.Context, inputs []FileInput, opts domain.AnalysisOptions, onFile FileCallback) (*domain.BatchReport, error) {
	return b.ProcessBatch(ctx, uuid.New().String(), inputs, opts, onFile)
}

// ProcessBatch is Process with a caller-chosen batch id, so callbacks can
// refer to the batch before it completes.
func (b *BatchProcessor) ProcessBatch(ctx context.Context, batchID string, inputs []FileInput, opts domain.AnalysisOptions, onFile FileCallback) (*domain.BatchReport, error) {
	report := &domain.BatchReport{
		BatchID:   batchID,
		StartedAt: time.Now().UTC(),
		Files:     make([]domain.FileOutcome, len(inputs)),
	}

	b.logger.InfoContext(ctx, "batch started",
		slog.String("batch_id", report.BatchID),
		slog.Int("files", len(inputs)),
		slog.Int("concurrency", b.concurrency))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := b.processOne(gctx, in, opts)
			report.Files[i] = outcome
			if onFile != nil {
				onFile(i, outcome)
			}
			if outcome.ErrorKind == apperrors.KindCanceled {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch %s canceled: %w", report.BatchID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch %s canceled: %w", report.BatchID, err)
	}

	for _, f := range report.Files {
		if f.Succeeded() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.Duration = time.Since(report.StartedAt)

	b.logger.InfoContext(ctx, "batch completed",
		slog.String("batch_id", report.BatchID),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration))
	return report, nil
}

func (b *BatchProcessor) processOne(ctx context.Context, in FileInput, opts domain.AnalysisOptions) domain.FileOutcome {
	start := time.Now()
	outcome := domain.FileOutcome{FileName: in.Name}

	result, err := b.analyze(ctx, in, opts)
	outcome.Duration = time.Since(start)
	if err != nil {
		outcome.Error = err.Error()
		outcome.ErrorKind = apperrors.KindOf(err)
		return outcome
	}
	outcome.Result = result
	return outcome
}

func (b *BatchProcessor) analyze(ctx context.Context, in FileInput, opts domain.AnalysisOptions) (*domain.AnalysisResult, error) {
	rc, err := in.Open()
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.NewUnparseableFileError(in.Name, err)
	}
	defer rc.Close()
	return b.analyzer.Analyze(ctx, in.Name, rc, opts)
}
