package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sheldonz/invoscan/internal/config"
	"github.com/sheldonz/invoscan/internal/logger"
	"github.com/sheldonz/invoscan/internal/report"
	"github.com/sheldonz/invoscan/pkg/invoice"
	"github.com/sheldonz/invoscan/pkg/pipeline"
	"github.com/sheldonz/invoscan/pkg/vision"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "OCR every invoice under a directory and build summary reports",
	Long: `Scan walks the directory tree, rasterizes PDFs, sends every invoice
image to the configured vision model, and aggregates the extracted
amounts. Reports land next to the scanned files unless --output-dir
says otherwise.

Examples:
  # Amount-only extraction of the current directory
  invoscan scan .

  # Full extraction with authenticity and category passes
  invoscan scan ~/invoices --mode full --verify --classify

  # Rename files to <amount>-<buyer> after a successful batch
  invoscan scan ~/invoices --rename

  # Just the JSON report, somewhere else
  invoscan scan ~/invoices --report json --output-dir /tmp/reports`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addProviderFlags(scanCmd)

	flags := scanCmd.Flags()

	// Extraction settings
	flags.String("mode", "", "extraction depth: simple, full (default from config)")
	flags.Int("max-retries", 0, "total attempts per file (default from config)")
	flags.Duration("timeout", 0, "single model call timeout")

	// Pipeline passes
	flags.Bool("validate", false, "reject non-invoice files before extraction (full mode)")
	flags.Bool("verify", false, "add the authenticity pass (full mode)")
	flags.Bool("classify", false, "add the categorization pass (full mode)")
	flags.Bool("rename", false, "rename processed files to <amount>-<buyer>")

	// Selection
	flags.StringSlice("exclude", nil, "filename keywords to skip (default from config)")

	// Reports
	flags.StringSlice("report", nil, "report formats: xlsx, markdown, json, yaml, none (default from config)")
	flags.StringP("output-dir", "o", "", "directory for report files (default: scan dir)")
}

func runScan(cmd *cobra.Command, args []string) error {
	initLogger()

	cfg, err := loadConfig()
	if err != nil {
		logError("failed to load config: %v", err)
		return err
	}
	applyProviderFlags(cmd, cfg)
	applyScanFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		logError("%v", err)
		return err
	}

	scanRoot := cfg.ScanDir
	if len(args) > 0 {
		scanRoot = args[0]
	}
	if scanRoot == "" {
		scanRoot = "."
	}
	scanRoot, err = filepath.Abs(scanRoot)
	if err != nil {
		return err
	}

	mode, err := invoice.ParseMode(cfg.Mode)
	if err != nil {
		logError("%v", err)
		return err
	}

	formats, err := reportFormats(cmd, cfg)
	if err != nil {
		logError("%v", err)
		return err
	}

	provider, err := vision.NewProvider(cfg.ToProviderConfig())
	if err != nil {
		logError("failed to create provider: %v", err)
		return err
	}
	logInfo("provider: %s  model: %s  mode: %s", provider.Name(), provider.Model(), mode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stream := pipeline.NewEventStream(16)
	orch, err := pipeline.New(pipeline.Options{
		Provider:        provider,
		MaxRetries:      cfg.MaxRetries,
		Mode:            mode,
		Validate:        cfg.EnableValidate,
		Verify:          cfg.EnableVerify,
		Classify:        cfg.EnableClassify,
		Rename:          cfg.EnableRename,
		ExcludeKeywords: cfg.ExcludeKeywords,
		Observer:        retryObserver(),
		Hooks:           stream.Hooks(),
	})
	if err != nil {
		logError("failed to build pipeline: %v", err)
		return err
	}

	// The orchestrator runs in a worker goroutine; this goroutine owns the
	// terminal and drains the event stream until Done closes it.
	var runErr error
	go func() {
		res, err := orch.Run(ctx, scanRoot)
		if err != nil {
			runErr = err
		}
		stream.Done(res)
	}()

	var result *pipeline.Result
	for ev := range stream.Events() {
		switch ev.Kind {
		case pipeline.EventLog:
			logInfo("%s", ev.Message)
		case pipeline.EventProgress:
			logger.Debug("progress", "processed", ev.Processed, "total", ev.Total,
				"percent", fmt.Sprintf("%.1f", ev.Percent))
		case pipeline.EventDone:
			result = ev.Result
		}
	}
	if runErr != nil {
		logError("scan failed: %v", runErr)
		return runErr
	}
	if result == nil || result.Processed == 0 {
		logInfo("no invoice files found under %s", scanRoot)
		return nil
	}

	printSummary(result)

	if len(formats) > 0 {
		outDir := cfg.OutputDir
		if outDir == "" {
			outDir = scanRoot
		}
		writeReports(result, formats, outDir, report.Meta{
			ScanDir:  scanRoot,
			Provider: provider.Name(),
			Model:    provider.Model(),
			Mode:     string(mode),
		})
	}

	return nil
}

// applyScanFlags overlays the scan-only flags onto the loaded config.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("validate") {
		cfg.EnableValidate, _ = flags.GetBool("validate")
	}
	if flags.Changed("verify") {
		cfg.EnableVerify, _ = flags.GetBool("verify")
	}
	if flags.Changed("classify") {
		cfg.EnableClassify, _ = flags.GetBool("classify")
	}
	if flags.Changed("rename") {
		cfg.EnableRename, _ = flags.GetBool("rename")
	}
	if flags.Changed("exclude") {
		cfg.ExcludeKeywords, _ = flags.GetStringSlice("exclude")
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir, _ = flags.GetString("output-dir")
	}
}

// reportFormats resolves which report files to write. The --report flag
// replaces the config toggles entirely; "none" disables reports.
func reportFormats(cmd *cobra.Command, cfg *config.Config) ([]report.Format, error) {
	if cmd.Flags().Changed("report") {
		names, _ := cmd.Flags().GetStringSlice("report")
		var formats []report.Format
		for _, name := range names {
			if name == "none" {
				return nil, nil
			}
			f, err := report.ParseFormat(name)
			if err != nil {
				return nil, err
			}
			formats = append(formats, f)
		}
		return formats, nil
	}

	var formats []report.Format
	if cfg.EnableExcel {
		formats = append(formats, report.FormatExcel)
	}
	if cfg.EnableMarkdown {
		formats = append(formats, report.FormatMarkdown)
	}
	return formats, nil
}

// retryObserver surfaces per-attempt provider telemetry on the logger.
func retryObserver() vision.Observer {
	return vision.ObserverFunc(func(_ context.Context, ev vision.CallEvent) {
		if ev.Err == nil {
			logger.Debug("provider call",
				"provider", ev.Provider, "model", ev.Model,
				"attempt", ev.Attempt, "duration_ms", ev.Duration.Milliseconds())
			return
		}
		if ev.RetryIn > 0 {
			logger.Warn("provider call failed, retrying",
				"provider", ev.Provider, "attempt", ev.Attempt,
				"retry_in", ev.RetryIn.String(), "error", ev.Err)
			return
		}
		logger.Warn("provider call failed",
			"provider", ev.Provider, "attempt", ev.Attempt, "error", ev.Err)
	})
}

func printSummary(res *pipeline.Result) {
	a := res.Analysis

	logInfo("")
	logInfo("%s", strings.Repeat("=", 64))
	logInfo("invoices:      %d total, %d valid, %d failed", a.TotalCount, a.ValidCount, res.Failed)
	logInfo("total amount:  %s", humanize.CommafWithDigits(a.TotalAmount.InexactFloat64(), 2))
	if a.ValidCount > 0 {
		avg := a.TotalAmount.Div(decimal.NewFromInt(int64(a.ValidCount)))
		logInfo("average:       %s", humanize.CommafWithDigits(avg.InexactFloat64(), 2))
	}

	for _, d := range a.Duplicates {
		names := make([]string, 0, len(d.SourcePaths))
		for _, p := range d.SourcePaths {
			names = append(names, filepath.Base(p))
		}
		logInfo("duplicate invoice number %s: %s", d.InvoiceNumber, strings.Join(names, ", "))
	}
	for _, w := range a.Warnings {
		logInfo("warning: %s: %s", filepath.Base(w.SourcePath), w.Reason)
	}

	if len(a.ByMonth) > 0 {
		logInfo("")
		logInfo("by month:")
		for _, g := range a.ByMonth {
			logInfo("  %-10s %4d  %14s", g.Key, g.Count, invoice.FormatAmount(g.Subtotal))
		}
	}
	if len(a.ByBucket) > 0 {
		logInfo("")
		logInfo("by amount range:")
		for _, b := range a.ByBucket {
			logInfo("  %-10s %4d  %14s", b.Label, b.Count, invoice.FormatAmount(b.Subtotal))
		}
	}

	if res.Cancelled {
		logInfo("")
		logInfo("scan cancelled, partial results kept")
	}
	logInfo("")
	logInfo("elapsed: %s", res.Duration.Round(time.Millisecond))
}

func writeReports(res *pipeline.Result, formats []report.Format, outDir string, meta report.Meta) {
	payload := report.BuildPayload(res, meta)

	for _, format := range formats {
		path := filepath.Join(outDir, report.FileName(format))
		if err := writeReportFile(path, format, payload); err != nil {
			logError("failed to write %s report: %v", format, err)
			continue
		}
		logInfo("report written: %s", path)
	}
}

func writeReportFile(path string, format report.Format, p *report.Payload) error {
	f, err := os.Create(path) //#nosec G304 -- report path derives from the user-specified directory
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w, err := report.NewWriter(f, format)
	if err != nil {
		return err
	}
	return w.Write(p)
}
