package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes export tables as CSV
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes headers and records to w
func (c *CSVWriter) WriteCSV(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTable writes the daily table with a BOM
func (c *CSVWriter) WriteTable(w io.Writer, table Table) error {
	c.logger.Debug("writing CSV export", slog.Int("record_count", len(table.Rows)))
	return c.WriteCSV(w, WriteOptions{
		Headers:   Headers,
		Records:   table.Records(),
		BOMPrefix: true,
	})
}
