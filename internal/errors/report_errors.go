package errors

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds of statement ingestion. Every kind is local to one file.
const (
	KindNoTransactionHeader   = "NO_TRANSACTION_HEADER"
	KindMissingRequiredColumn = "MISSING_REQUIRED_COLUMN"
	KindNoValidTransactions   = "NO_VALID_TRANSACTIONS"
	KindUnparseableFile       = "UNPARSEABLE_FILE"
	KindInvalidInput          = "INVALID_INPUT"
	KindCanceled              = "CANCELED"
	KindInternal              = "INTERNAL"
)

var (
	ErrNoTransactionHeader   = errors.New("no transaction header")
	ErrMissingRequiredColumn = errors.New("missing required column")
	ErrNoValidTransactions   = errors.New("no valid transactions")
	ErrUnparseableFile       = errors.New("unparseable file")
)

// NewNoTransactionHeaderError reports that no row with a time and a profit label
// was found among the first scanned rows.
func NewNoTransactionHeaderError(file string, scanned int) *AppError {
	return NewParsingError(
		fmt.Sprintf("%s: no row containing both a time and a profit label in the first %d rows", file, scanned),
		ErrNoTransactionHeader,
	).WithContext("file", file).WithContext("rows_scanned", scanned)
}

// NewMissingColumnError reports a load-bearing role that no column could fill.
func NewMissingColumnError(file, role string) *AppError {
	return NewParsingError(
		fmt.Sprintf("%s: could not find required column: %s", file, role),
		ErrMissingRequiredColumn,
	).WithContext("file", file).WithContext("role", role)
}

// NewNoValidTransactionsError reports an empty transaction set after
// normalization and filtering, with the rows lost at each step.
func NewNoValidTransactionsError(file string, rowsRead, droppedTime, filteredBySymbol int) *AppError {
	return NewAppError(ErrTypeValidation,
		fmt.Sprintf("%s: no valid transactions remain out of %d rows (%d dropped for unparseable time, %d filtered by symbol)",
			file, rowsRead, droppedTime, filteredBySymbol),
		ErrNoValidTransactions,
	).WithContext("file", file).
		WithContext("rows_read", rowsRead).
		WithContext("dropped_unparseable_time", droppedTime).
		WithContext("filtered_by_symbol", filteredBySymbol)
}

// NewUnparseableFileError reports that neither grid parser could read the file.
func NewUnparseableFileError(file string, cause error) *AppError {
	return NewParsingError(
		fmt.Sprintf("%s: neither spreadsheet nor delimited text: %v", file, cause),
		ErrUnparseableFile,
	).WithContext("file", file)
}

// KindOf returns the stable failure kind of err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoTransactionHeader):
		return KindNoTransactionHeader
	case errors.Is(err, ErrMissingRequiredColumn):
		return KindMissingRequiredColumn
	case errors.Is(err, ErrNoValidTransactions):
		return KindNoValidTransactions
	case errors.Is(err, ErrUnparseableFile):
		return KindUnparseableFile
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case hasType(err, ErrTypeValidation), hasType(err, ErrTypeNotFound):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// IsReportError reports whether err is one of the statement ingestion kinds.
func IsReportError(err error) bool {
	switch KindOf(err) {
	case KindNoTransactionHeader, KindMissingRequiredColumn, KindNoValidTransactions, KindUnparseableFile:
		return true
	}
	return false
}

// MissingRole returns the role named by a MissingRequiredColumn error.
func MissingRole(err error) (string, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) || !errors.Is(err, ErrMissingRequiredColumn) {
		return "", false
	}
	role, ok := appErr.Context["role"].(string)
	return role, ok
}

func hasType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}
