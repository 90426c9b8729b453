package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "statementcheck/internal/errors"
	"statementcheck/pkg/contracts/domain"
)

const tracerName = "statementcheck/dataprocessing"

// Pipeline runs Report Loader, Column Resolver, Normalizer and Aggregator over
// one statement. It holds no per-file state and is safe for concurrent use.
type Pipeline struct {
	logger     *slog.Logger
	thresholds Thresholds
	loader     *ReportLoader
	resolver   *ColumnResolver
	normalizer *Normalizer
	aggregator *Aggregator
	tracer     trace.Tracer
}

// NewPipeline wires the four components with shared thresholds.
func NewPipeline(logger *slog.Logger, thresholds Thresholds) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	thresholds = thresholds.withDefaults()
	return &Pipeline{
		logger:     logger.With(slog.String("component", "pipeline")),
		thresholds: thresholds,
		loader:     NewReportLoader(logger, thresholds),
		resolver:   NewColumnResolver(logger, thresholds),
		normalizer: NewNormalizer(logger, thresholds),
		aggregator: NewAggregator(thresholds),
		tracer:     otel.Tracer(tracerName),
	}
}

// Thresholds returns the effective heuristics.
func (p *Pipeline) Thresholds() Thresholds {
	return p.thresholds
}

// Analyze processes one statement. r is read twice and must be rewindable.
// Failures are report errors from internal/errors, or the context error.
func (p *Pipeline) Analyze(ctx context.Context, name string, r io.ReadSeeker, opts domain.AnalysisOptions) (*domain.AnalysisResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.analyze", trace.WithAttributes(
		attribute.String("file.name", name),
	))
	defer span.End()

	start := time.Now()
	opts = ApplyDefaults(opts)

	result, err := p.analyze(ctx, name, r, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", apperrors.KindOf(err)))
		p.logger.WarnContext(ctx, "statement analysis failed",
			slog.String("file", name),
			slog.String("error_kind", apperrors.KindOf(err)),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("buckets", len(result.Buckets)),
		attribute.String("status", string(result.Summary.Status)),
	)
	p.logger.InfoContext(ctx, "statement analyzed",
		slog.String("file", name),
		slog.Int("rows_read", result.Stats.RowsRead),
		slog.Int("dropped_unparseable_time", result.Stats.DroppedUnparseableTime),
		slog.Int("filtered_by_symbol", result.Stats.FilteredBySymbol),
		slog.Int("transactions", result.Stats.Transactions),
		slog.Int("trading_days", result.Summary.TradingDays),
		slog.String("contribution_pct", result.Summary.ContributionPct.StringFixed(2)),
		slog.String("status", string(result.Summary.Status)),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

func (p *Pipeline) analyze(ctx context.Context, name string, r io.ReadSeeker, opts domain.AnalysisOptions) (*domain.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stageCtx, span := p.tracer.Start(ctx, "pipeline.load")
	loaded, err := p.loader.Load(stageCtx, name, r)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stageCtx, span = p.tracer.Start(ctx, "pipeline.resolve")
	roles, err := p.resolver.Resolve(stageCtx, name, loaded.Table)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	var warnings []string
	groupBy := opts.GroupingTimeRole
	if !roles.Has(groupBy.ColumnRole()) {
		fallback := groupBy.Other()
		warnings = append(warnings, fmt.Sprintf(
			"no %s column found; grouped by %s time instead", groupBy.ColumnRole(), fallback))
		p.logger.WarnContext(ctx, "grouping time role unavailable",
			slog.String("file", name),
			slog.String("requested", string(groupBy)),
			slog.String("used", string(fallback)))
		groupBy = fallback
	}

	stageCtx, span = p.tracer.Start(ctx, "pipeline.normalize")
	txs, stats := p.normalizer.Normalize(stageCtx, loaded.Table, roles, groupBy)
	span.End()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, span = p.tracer.Start(ctx, "pipeline.aggregate")
	agg, err := p.aggregator.Aggregate(name, txs, stats, groupBy, opts)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	stats.FilteredBySymbol = agg.FilteredBySymbol
	stats.Transactions = len(txs) - agg.FilteredBySymbol

	if stats.DroppedUnparseableTime > 0 {
		msg := fmt.Sprintf("%d of %d rows dropped: unparseable %s time",
			stats.DroppedUnparseableTime, stats.RowsRead, groupBy)
		if stats.DropRatio() > p.thresholds.DropWarnRatio {
			msg += fmt.Sprintf(" (over %.0f%% of the statement)", p.thresholds.DropWarnRatio*100)
			p.logger.WarnContext(ctx, "high row drop rate",
				slog.String("file", name),
				slog.Int("rows_read", stats.RowsRead),
				slog.Int("dropped_unparseable_time", stats.DroppedUnparseableTime),
				slog.Float64("drop_ratio", stats.DropRatio()))
		}
		warnings = append(warnings, msg)
	}
	if opts.Symbols() != nil && agg.FilteredBySymbol == 0 && !roles.Has(domain.RoleSymbol) {
		warnings = append(warnings, "symbol filter ignored: no symbol column found")
	}

	return &domain.AnalysisResult{
		FileName:  name,
		Identity:  loaded.Identity,
		Columns:   roles,
		GroupedBy: groupBy,
		Options:   opts,
		Buckets:   agg.Buckets,
		Summary:   agg.Summary,
		Stats:     stats,
		Warnings:  warnings,
	}, nil
}

// ApplyDefaults fills unset options and canonicalizes the symbol list.
func ApplyDefaults(opts domain.AnalysisOptions) domain.AnalysisOptions {
	if opts.PercentThreshold <= 0 {
		opts.PercentThreshold = domain.DefaultPercentThreshold
	}
	return opts.Canonical()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.KindOf(err))
	}
	span.End()
}
