// Package dataprocessing turns broker statement exports into daily profit buckets
// and the concentration statistics used by funded-trading challenge rules.
//
// # Architecture
//
// The package is organized into four components consumed top to bottom:
//
// 1. ReportLoader: parses spreadsheet or delimited bytes into a grid, extracts the
// account identity and locates the transaction header row
// 2. ColumnResolver: binds table columns to semantic roles with an ordered rule table
// 3. Normalizer: converts raw cells into dates and decimals
// 4. Aggregator: groups transactions by calendar date and computes the summary
//
// Pipeline composes the four for a single file and BatchProcessor runs many files
// with no shared state between them.
//
// # Usage
//
//	pipeline := dataprocessing.NewPipeline(logger, dataprocessing.DefaultThresholds())
//	result, err := pipeline.Analyze(ctx, "statement.xlsx", file, domain.DefaultAnalysisOptions())
//	if err != nil {
//	    kind := apperrors.KindOf(err)
//	    ...
//	}
//
// # Error Handling
//
// Failures are per file and carry one of the kinds defined in internal/errors:
// NO_TRANSACTION_HEADER, MISSING_REQUIRED_COLUMN, NO_VALID_TRANSACTIONS or
// UNPARSEABLE_FILE. A batch keeps going past a failed file.
package dataprocessing
