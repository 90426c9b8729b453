package dataprocessing

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "statementcheck/internal/errors"
	"statementcheck/internal/shared/testutil"
	"statementcheck/pkg/contracts/domain"
)

func batchInputs(t *testing.T) (FileInput, FileInput, FileInput) {
	a := BytesInput("mt5.xlsx", testutil.XLSXBytes(t, testutil.Sheet{Rows: testutil.MT5Statement()}))
	b := BytesInput("mt4.csv", testutil.CSVBytes(t, ',', testutil.MT4Statement()))
	bad := BytesInput("notes.csv", []byte("just,some\nwords,here\n"))
	return a, b, bad
}

func resultsByName(report *domain.BatchReport) map[string]domain.FileOutcome {
	out := make(map[string]domain.FileOutcome, len(report.Files))
	for _, f := range report.Files {
		f.Duration = 0
		out[f.FileName] = f
	}
	return out
}

func TestBatchProcessor_Isolation(t *testing.T) {
	a, b, bad := batchInputs(t)
	opts := domain.DefaultAnalysisOptions()
	pipeline := NewPipeline(nil, DefaultThresholds())

	sequential := NewBatchProcessor(pipeline, nil, 1)
	ab, err := sequential.Process(context.Background(), []FileInput{a, b, bad}, opts, nil)
	require.NoError(t, err)
	ba, err := sequential.Process(context.Background(), []FileInput{bad, b, a}, opts, nil)
	require.NoError(t, err)

	concurrent := NewBatchProcessor(pipeline, nil, 8)
	par, err := concurrent.Process(context.Background(), []FileInput{a, bad, b, a, b}, opts, nil)
	require.NoError(t, err)

	assert.Equal(t, resultsByName(ab), resultsByName(ba))
	assert.Equal(t, resultsByName(ab), resultsByName(par))

	assert.Equal(t, 2, ab.Succeeded)
	assert.Equal(t, 1, ab.Failed)
	assert.Equal(t, 4, par.Succeeded)
	assert.Equal(t, 1, par.Failed)
	assert.NotEqual(t, ab.BatchID, ba.BatchID)
}

func TestBatchProcessor_OutcomesInInputOrder(t *testing.T) {
	a, b, bad := batchInputs(t)
	processor := NewBatchProcessor(NewPipeline(nil, DefaultThresholds()), nil, 4)

	var mu sync.Mutex
	seen := make(map[int]string)
	report, err := processor.Process(context.Background(), []FileInput{bad, a, b}, domain.DefaultAnalysisOptions(),
		func(index int, outcome domain.FileOutcome) {
			mu.Lock()
			defer mu.Unlock()
			seen[index] = outcome.FileName
		})
	require.NoError(t, err)

	require.Len(t, report.Files, 3)
	assert.Equal(t, "notes.csv", report.Files[0].FileName)
	assert.False(t, report.Files[0].Succeeded())
	assert.Equal(t, apperrors.KindNoTransactionHeader, report.Files[0].ErrorKind)
	assert.Contains(t, report.Files[0].Error, "notes.csv")
	assert.True(t, report.Files[1].Succeeded())
	assert.True(t, report.Files[2].Succeeded())
	assert.Equal(t, map[int]string{0: "notes.csv", 1: "mt5.xlsx", 2: "mt4.csv"}, seen)
}

func TestBatchProcessor_PathInput(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "statement.csv", testutil.CSVBytes(t, ',', testutil.MT4Statement()))

	processor := NewBatchProcessor(NewPipeline(nil, DefaultThresholds()), nil, 0)
	report, err := processor.Process(context.Background(),
		[]FileInput{PathInput(path), PathInput(filepath.Join(dir, "missing.csv"))},
		domain.DefaultAnalysisOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, "statement.csv", report.Files[0].FileName)
	assert.True(t, report.Files[0].Succeeded())
	assert.Equal(t, apperrors.KindUnparseableFile, report.Files[1].ErrorKind)
}

func TestBatchProcessor_Canceled(t *testing.T) {
	a, b, _ := batchInputs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(NewPipeline(nil, DefaultThresholds()), nil, 2)
	_, err := processor.Process(ctx, []FileInput{a, b}, domain.DefaultAnalysisOptions(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(NewPipeline(nil, DefaultThresholds()), nil, 2)
	report, err := processor.Process(context.Background(), nil, domain.DefaultAnalysisOptions(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Files)
	assert.NotEmpty(t, report.BatchID)
}

func TestBatchProcessor_RejectedInputKeepsKind(t *testing.T) {
	rejected := FileInput{
		Name: "old.xls",
		Open: func() (io.ReadSeekCloser, error) {
			return nil, apperrors.NewAppValidationError("old.xls: extension not allowed")
		},
	}

	processor := NewBatchProcessor(NewPipeline(nil, DefaultThresholds()), nil, 1)
	report, err := processor.Process(context.Background(), []FileInput{rejected}, domain.DefaultAnalysisOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, apperrors.KindInvalidInput, report.Files[0].ErrorKind)
	assert.Equal(t, 1, report.Failed)
}

func TestBatchProcessor_ProcessBatchKeepsID(t *testing.T) {
	a, _, _ := batchInputs(t)
	processor := NewBatchProcessor(NewPipeline(nil, DefaultThresholds()), nil, 1)

	report, err := processor.ProcessBatch(context.Background(), "batch-42", []FileInput{a}, domain.DefaultAnalysisOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, "batch-42", report.BatchID)
}
