package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"statementcheck/internal/config"
	"statementcheck/internal/exporter"
	"statementcheck/internal/files"
	"statementcheck/internal/infrastructure"
	"statementcheck/internal/services"
	"statementcheck/pkg/contracts"
	apiv1 "statementcheck/pkg/contracts/api/v1"
	"statementcheck/pkg/contracts/domain"
)

const usage = `usage: analyze [flags] <file-or-dir>...

Analyzes trading statements and reports the share of profit made on the
best day. Directories are searched for .csv, .txt, .tsv, .xlsx and .xlsm files.

Flags:
`

// errUsage marks invalid arguments; the message has already been printed.
var errUsage = errors.New("invalid arguments")

type cliFlags struct {
	net        bool
	threshold  float64
	symbols    string
	groupBy    string
	export     string
	outDir     string
	configFile string
	asJSON     bool
	verbose    bool
	version    bool
	set        map[string]bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run returns the process exit status: 0 when at least one file succeeded,
// 1 when every file failed or the arguments are invalid.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, paths, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if f.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.LoadFile(f.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "analyze: invalid configuration: %v\n", err)
		return 1
	}
	// Logs go to stderr so stdout stays clean for -json.
	if !f.verbose {
		cfg.Logging.Level = "warn"
	}
	logger := infrastructure.NewLogger(cfg.Logging, stderr)
	ctx = infrastructure.EnsureTraceID(ctx)

	var format exporter.Format
	if f.export != "" {
		if format, err = exporter.ParseFormat(f.export); err != nil {
			fmt.Fprintf(stderr, "analyze: -export: %v\n", err)
			return 1
		}
	}

	service, err := services.NewAnalysisService(cfg, nil, nil, logger)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 1
	}

	opts, err := service.ResolveOptions(f.request())
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 1
	}

	inputs, err := files.NewDiscovery("").Expand(paths)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 1
	}
	if len(inputs) == 0 {
		fmt.Fprintln(stderr, "analyze: no statement files found")
		return 1
	}

	// The request limit protects the HTTP API; local runs take any number of files.
	report, err := analyzeAll(ctx, service, inputs, opts)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 1
	}

	if format != "" {
		writeExports(ctx, service, report, format, files.NewManager(f.outDir, logger), stderr)
	}

	if f.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "analyze: %v\n", err)
			return 1
		}
	} else {
		printReport(stdout, report)
	}

	if report.Succeeded == 0 {
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, []string, error) {
	f := &cliFlags{set: make(map[string]bool)}

	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&f.net, "net", false, "score net profit (profit + swap + commission) instead of gross")
	fs.Float64Var(&f.threshold, "threshold", domain.DefaultPercentThreshold, "maximum best-day share of total profit, in percent")
	fs.StringVar(&f.symbols, "symbols", "", "comma separated symbols to keep, e.g. EURUSD,XAUUSD")
	fs.StringVar(&f.groupBy, "group-by", string(domain.GroupByOpen), "timestamp that assigns a trade to a day: open or close")
	fs.StringVar(&f.export, "export", "", "write one export per file: csv or xlsx")
	fs.StringVar(&f.outDir, "out", ".", "directory for exports")
	fs.StringVar(&f.configFile, "config", "", "YAML configuration file")
	fs.BoolVar(&f.asJSON, "json", false, "print the batch report as JSON")
	fs.BoolVar(&f.verbose, "v", false, "log at the configured level instead of warn")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if f.version {
		return f, nil, nil
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "analyze: at least one file or directory is required")
		fs.Usage()
		return nil, nil, errUsage
	}
	return f, fs.Args(), nil
}

// request carries only the flags given on the command line so the
// configured defaults apply to the rest.
func (f *cliFlags) request() apiv1.AnalyzeRequest {
	var req apiv1.AnalyzeRequest
	if f.set["net"] {
		req.UseNetProfit = &f.net
	}
	if f.set["threshold"] {
		req.PercentThreshold = &f.threshold
	}
	if f.set["symbols"] {
		req.SymbolFilter = f.symbols
	}
	if f.set["group-by"] {
		req.GroupingTimeRole = strings.ToLower(f.groupBy)
	}
	return req
}

func analyzeAll(ctx context.Context, service *services.AnalysisService, paths []string, opts domain.AnalysisOptions) (*domain.BatchReport, error) {
	const chunk = config.MaxFilesPerRequest

	var merged *domain.BatchReport
	for start := 0; start < len(paths); start += chunk {
		end := min(start+chunk, len(paths))
		report, err := service.AnalyzePaths(ctx, paths[start:end], opts)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = report
			continue
		}
		merged.Files = append(merged.Files, report.Files...)
		merged.Succeeded += report.Succeeded
		merged.Failed += report.Failed
		merged.Duration += report.Duration
	}
	return merged, nil
}

func writeExports(ctx context.Context, service *services.AnalysisService, report *domain.BatchReport, format exporter.Format, manager *files.Manager, stderr io.Writer) {
	for i := range report.Files {
		outcome := report.Files[i]
		if !outcome.Succeeded() {
			continue
		}
		file, err := service.Render(ctx, outcome.Result, format)
		if err != nil {
			fmt.Fprintf(stderr, "analyze: %s: %v\n", outcome.FileName, err)
			continue
		}
		path, err := manager.WriteFile(manager.UniquePath(file.Name), file.Data)
		if err != nil {
			fmt.Fprintf(stderr, "analyze: %s: %v\n", outcome.FileName, err)
			continue
		}
		fmt.Fprintf(stderr, "exported %s -> %s\n", filepath.Base(outcome.FileName), path)
	}
}

func printReport(w io.Writer, report *domain.BatchReport) {
	for _, outcome := range report.Files {
		fmt.Fprintf(w, "== %s\n", outcome.FileName)
		if !outcome.Succeeded() {
			fmt.Fprintf(w, "   FAILED [%s] %s\n\n", outcome.ErrorKind, outcome.Error)
			continue
		}
		printResult(w, outcome.Result)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d file(s): %d succeeded, %d failed\n", len(report.Files), report.Succeeded, report.Failed)
}

func printResult(w io.Writer, r *domain.AnalysisResult) {
	s := r.Summary
	fmt.Fprintf(w, "   Name:    %s\n", r.Identity.DisplayName())
	fmt.Fprintf(w, "   Account: %s\n", r.Identity.DisplayAccount())
	fmt.Fprintf(w, "   Grouped by %s time, %s profit\n", r.GroupedBy, s.Basis)
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "   warning: %s\n", warning)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "   Date\tTrades\tGross\tSwap\tCommission\tNet\t")
	for _, b := range r.Buckets {
		fmt.Fprintf(tw, "   %s\t%d\t%s\t%s\t%s\t%s\t\n", b.Date, b.Trades,
			b.GrossProfit.StringFixed(2), b.Swap.StringFixed(2), b.Commission.StringFixed(2), b.NetProfit.StringFixed(2))
	}
	tw.Flush()

	fmt.Fprintf(w, "   Trading days: %d  Total: %s  Best day: %s (%s)\n",
		s.TradingDays, s.Total.StringFixed(2), s.MaxDate, s.MaxBucket.Sum(s.Basis).StringFixed(2))
	fmt.Fprintf(w, "   Contribution: %s%%  Threshold: %s%%  Status: %s\n",
		s.ContributionPct.StringFixed(2), s.Threshold.StringFixed(2), s.Status)
	fmt.Fprintf(w, "   Challenge level: %s  Fast track level: %s\n",
		s.ChallengeLevel.StringFixed(2), s.FastTrackLevel.StringFixed(2))
	fmt.Fprintf(w, "   Rows: %d read, %d dropped (unparseable time), %d filtered by symbol, %d kept\n",
		r.Stats.RowsRead, r.Stats.DroppedUnparseableTime, r.Stats.FilteredBySymbol, r.Stats.Transactions)
}
