package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementcheck/internal/shared/testutil"
	"statementcheck/pkg/contracts"
	"statementcheck/pkg/contracts/domain"
)

func statementDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "mt5.csv", testutil.CSVBytes(t, ',', testutil.MT5Statement()))
	testutil.WriteFile(t, dir, "notes.txt", []byte("no trades in here\n"))
	testutil.WriteFile(t, dir, "readme.md", []byte("# ignored\n"))
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Arguments(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStderr string
	}{
		{name: "no inputs", args: nil, wantCode: 1, wantStderr: "at least one file"},
		{name: "help", args: []string{"-h"}, wantCode: 0, wantStderr: "usage: analyze"},
		{name: "version needs no inputs", args: []string{"-version"}, wantCode: 0},
		{name: "unknown flag", args: []string{"-nope", "x.csv"}, wantCode: 1},
		{name: "bad export format", args: []string{"-export", "pdf", "x.csv"}, wantCode: 1, wantStderr: "-export"},
		{name: "threshold out of range", args: []string{"-threshold", "150", "x.csv"}, wantCode: 1},
		{name: "bad grouping role", args: []string{"-group-by", "middle", "x.csv"}, wantCode: 1},
		{name: "missing path", args: []string{filepath.Join(t.TempDir(), "absent.csv")}, wantCode: 1, wantStderr: "cannot access"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantStderr != "" {
				assert.Contains(t, stderr, tt.wantStderr)
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "-version")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, "statementcheck v"+contracts.Version))
}

func TestRun_Directory(t *testing.T) {
	code, stdout, _ := runCLI(t, statementDir(t))

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "mt5.csv")
	assert.Contains(t, stdout, "51234567")
	assert.Contains(t, stdout, "FAILED")
	assert.Contains(t, stdout, "2 file(s): 1 succeeded, 1 failed")
	assert.NotContains(t, stdout, "readme.md")
}

func TestRun_AllFailedExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "empty.csv", []byte("a,b\n1,2\n"))

	code, stdout, _ := runCLI(t, path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "0 succeeded, 1 failed")
}

func TestRun_JSON(t *testing.T) {
	code, stdout, _ := runCLI(t, "-json", "-net", "-threshold", "60", statementDir(t))
	require.Equal(t, 0, code)

	var report domain.BatchReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Files, 2)
	assert.Equal(t, 1, report.Succeeded)

	var result *domain.AnalysisResult
	for _, f := range report.Files {
		if f.Result != nil {
			result = f.Result
		}
	}
	require.NotNil(t, result)
	assert.True(t, result.Options.UseNetProfit)
	assert.Equal(t, 60.0, result.Options.PercentThreshold)
	assert.Equal(t, domain.BasisNet, result.Summary.Basis)
}

func TestRun_Export(t *testing.T) {
	out := filepath.Join(t.TempDir(), "exports")

	code, _, stderr := runCLI(t, "-export", "xlsx", "-out", out, statementDir(t))
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "exported mt5.csv")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".xlsx"))

	// A second run keeps the first export.
	code, _, _ = runCLI(t, "-export", "xlsx", "-out", out, statementDir(t))
	require.Equal(t, 0, code)
	entries, err = os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFlags_RequestOnlyCarriesSetFlags(t *testing.T) {
	f, paths, err := parseFlags([]string{"-symbols", "eurusd, xauusd", "-group-by", "CLOSE", "a.csv"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv"}, paths)

	req := f.request()
	assert.Nil(t, req.UseNetProfit)
	assert.Nil(t, req.PercentThreshold)
	assert.Equal(t, "eurusd, xauusd", req.SymbolFilter)
	assert.Equal(t, "close", req.GroupingTimeRole)
}
