// Package shared holds code used by several internal packages that belongs
// to none of them.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler and NewTestLogger for asserting on log records
//   - statement fixtures (MT4, MT5 and generic broker layouts) rendered as
//     CSV or XLSX bytes, and WriteFile for placing them in t.TempDir()
//
// Example:
//
//	logger, logs := testutil.NewTestLogger(t)
//	data := testutil.XLSXBytes(t, testutil.Sheet{Rows: testutil.MT5Statement()})
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelInfo, "statement analyzed")
package shared
