// Package exporter renders the daily buckets of an analyzed statement as a
// downloadable table.
//
// The export table carries the account identity as leading columns followed by
// one row per trading day:
//
//	Name | Account | Date | Trades | Gross Profit | Swap | Commission | Net Profit | Chosen Sum
//
// Two writers share the table:
//
// CSVWriter: UTF-8 with a BOM so spreadsheet applications detect the encoding.
//
// XLSXWriter: a "Daily" sheet with numeric cells and a "Summary" sheet holding
// the contribution statistics.
//
// Example usage:
//
//	table := exporter.NewTable(result)
//	err := exporter.Write(w, exporter.FormatXLSX, result)
//	name := exporter.FileName(result, exporter.FormatXLSX)
package exporter
