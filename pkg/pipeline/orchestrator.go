package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sheldonz/invoscan/internal/logger"
	"github.com/sheldonz/invoscan/pkg/invoice"
	"github.com/sheldonz/invoscan/pkg/pdf"
	"github.com/sheldonz/invoscan/pkg/vision"
)

// Options configures one batch run.
type Options struct {
	// Provider is the vision backend. Required.
	Provider vision.Provider

	// Renderer rasterizes PDFs. Defaults to the pdftoppm renderer.
	Renderer pdf.Renderer

	// MaxRetries is the total attempt budget per file.
	MaxRetries int

	// Mode selects extraction depth. Defaults to ModeFull.
	Mode invoice.Mode

	// Validate asks the model whether each file is an invoice before
	// extracting fields (full mode only).
	Validate bool
	// Verify adds the authenticity enrichment pass (full mode only).
	Verify bool
	// Classify adds the categorization enrichment pass (full mode only).
	Classify bool
	// Rename renames processed files to "<amount>-<buyer>.<ext>".
	Rename bool

	// ExcludeKeywords filters walked file names. Defaults to
	// DefaultExcludeKeywords.
	ExcludeKeywords []string

	// Observer receives one event per provider attempt.
	Observer vision.Observer

	Hooks Hooks
}

// Result is the outcome of one finished (or cancelled) batch.
type Result struct {
	Records  []invoice.Record
	Analysis invoice.Analysis
	Renames  []RenameResult

	Processed int
	Valid     int
	Failed    int
	Cancelled bool
	Duration  time.Duration
}

// Orchestrator drives the pipeline file by file. Processing is sequential:
// the vision providers rate-limit aggressively enough that parallel uploads
// buy nothing.
type Orchestrator struct {
	provider vision.Provider
	client   *ExtractionClient
	renderer pdf.Renderer
	parser   *invoice.Parser
	mode     invoice.Mode

	validate bool
	verify   bool
	classify bool
	rename   bool

	exclude []string
	hooks   Hooks
}

// New builds an orchestrator. A nil provider is a configuration error.
func New(opts Options) (*Orchestrator, error) {
	if opts.Provider == nil {
		return nil, vision.NewError(vision.ErrConfig, "pipeline", "no provider configured")
	}

	mode := opts.Mode
	if mode == "" {
		mode = invoice.ModeFull
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = pdf.NewRenderer()
	}

	exclude := opts.ExcludeKeywords
	if exclude == nil {
		exclude = DefaultExcludeKeywords
	}

	var clientOpts []ClientOption
	if opts.Observer != nil {
		clientOpts = append(clientOpts, WithObserver(opts.Observer))
	}

	return &Orchestrator{
		provider: opts.Provider,
		client:   NewExtractionClient(opts.Provider, opts.MaxRetries, clientOpts...),
		renderer: renderer,
		parser:   invoice.NewParser(mode),
		mode:     mode,
		validate: opts.Validate && mode == invoice.ModeFull,
		verify:   opts.Verify && mode == invoice.ModeFull,
		classify: opts.Classify && mode == invoice.ModeFull,
		rename:   opts.Rename,
		exclude:  exclude,
		hooks:    opts.Hooks,
	}, nil
}

// Run processes every invoice file under root. Cancellation is polled
// between files; the file in flight always completes, so a cancelled run
// still returns a consistent partial Result.
func (o *Orchestrator) Run(ctx context.Context, root string) (*Result, error) {
	start := time.Now()

	files, err := Walk(root, o.exclude)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	total := len(files)
	o.hooks.log(fmt.Sprintf("found %d invoice files under %s", total, root))
	logger.Info("batch started",
		"root", root,
		"files", total,
		"provider", o.provider.Name(),
		"model", o.provider.Model(),
		"mode", string(o.mode))

	result := &Result{}
	for i, path := range files {
		if ctx.Err() != nil {
			result.Cancelled = true
			o.hooks.log("cancelled, stopping before next file")
			logger.Info("batch cancelled", "processed", i, "total", total)
			break
		}

		// The provider's own request timeout bounds the detached call, so
		// a cancelled batch finishes its current file instead of recording
		// a half-processed one.
		rec := o.processFile(context.WithoutCancel(ctx), path)

		result.Records = append(result.Records, rec)
		result.Processed++
		if rec.Valid() {
			result.Valid++
		} else {
			result.Failed++
		}

		o.hooks.fileDone(rec)
		o.hooks.progress(i+1, total)
		o.hooks.log(fileLogLine(i+1, total, rec))
	}

	result.Analysis = invoice.Analyze(result.Records)

	if o.rename && !result.Cancelled {
		result.Renames = RenameAll(result.Records)
		renamed := 0
		for _, op := range result.Renames {
			if op.Renamed {
				renamed++
			}
			o.hooks.log(op.String())
		}
		o.hooks.log(fmt.Sprintf("renamed %d of %d eligible files", renamed, len(result.Renames)))
	}

	result.Duration = time.Since(start)
	logger.Info("batch finished",
		"processed", result.Processed,
		"valid", result.Valid,
		"failed", result.Failed,
		"total_amount", invoice.FormatAmount(result.Analysis.TotalAmount),
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

func (o *Orchestrator) processFile(ctx context.Context, path string) invoice.Record {
	img, err := o.loadImage(ctx, path)
	if err != nil {
		var renderErr *pdf.RenderError
		if errors.As(err, &renderErr) {
			return invoice.FailedRecord(path, invoice.TagPdfRender, renderErr.Error())
		}
		return invoice.FailedRecord(path, invoice.TagFileRead, err.Error())
	}

	if o.validate {
		if rec, rejected := o.precheck(ctx, path, img); rejected {
			return rec
		}
	}

	resp, err := o.client.Extract(ctx, vision.Request{
		Prompt: invoice.PromptForMode(o.mode),
		Image:  img,
	})
	if err != nil {
		return invoice.FailedRecord(path, invoice.TagProvider, err.Error())
	}

	rec := o.parser.Parse(path, resp.Content)

	if rec.Valid() {
		if o.verify {
			o.verifyPass(ctx, &rec, img)
		}
		if o.classify {
			o.classifyPass(ctx, &rec, img)
		}
	}

	return rec
}

func (o *Orchestrator) loadImage(ctx context.Context, path string) (vision.ImageData, error) {
	if IsPDF(path) {
		data, err := o.renderer.RenderFirstPage(ctx, path)
		if err != nil {
			return vision.ImageData{}, err
		}
		return vision.NewImageData(data), nil
	}
	return vision.ReadImage(path)
}

// precheck asks the model whether the image is an invoice at all. Single
// attempt, no retry: an error here assumes "invoice" and moves on, only an
// explicit "no" rejects the file.
func (o *Orchestrator) precheck(ctx context.Context, path string, img vision.ImageData) (invoice.Record, bool) {
	resp, err := o.provider.Extract(ctx, vision.Request{
		Prompt: invoice.ValidatePrompt,
		Image:  img,
	})
	if err != nil {
		logger.Debug("validation precheck errored, assuming invoice", "path", path, "error", err)
		return invoice.Record{}, false
	}

	isInvoice, reason := invoice.ParseValidation(resp.Content)
	if isInvoice {
		return invoice.Record{}, false
	}

	if reason == "" {
		reason = "model judged this file not an invoice"
	}
	rec := invoice.FailedRecord(path, invoice.TagNotAnInvoice, reason)
	rec.RawModelText = resp.Content
	return rec, true
}

// verifyPass and classifyPass enrich a record in place. Both are
// best-effort single calls; failures log and leave the record untouched.
func (o *Orchestrator) verifyPass(ctx context.Context, rec *invoice.Record, img vision.ImageData) {
	resp, err := o.provider.Extract(ctx, vision.Request{Prompt: invoice.VerifyPrompt, Image: img})
	if err != nil {
		logger.Debug("verify pass errored", "path", rec.SourcePath, "error", err)
		return
	}
	v := invoice.ParseVerification(resp.Content)
	rec.RiskLevel = v.RiskLevel
	rec.HasStamp = v.HasStamp
	rec.ImageQuality = v.ImageQuality
}

func (o *Orchestrator) classifyPass(ctx context.Context, rec *invoice.Record, img vision.ImageData) {
	resp, err := o.provider.Extract(ctx, vision.Request{Prompt: invoice.ClassifyPrompt, Image: img})
	if err != nil {
		logger.Debug("classify pass errored", "path", rec.SourcePath, "error", err)
		return
	}
	c := invoice.ParseClassification(resp.Content)
	rec.InvoiceType = c.InvoiceType
	rec.ExpenseCategory = c.ExpenseCategory
}

// fileLogLine formats the per-file progress line.
func fileLogLine(idx, total int, rec invoice.Record) string {
	name := filepath.Base(rec.SourcePath)
	if len([]rune(name)) > 40 {
		name = string([]rune(name)[:40])
	}

	status := "ok"
	if len(rec.Errors) > 0 {
		status = rec.Errors[0]
	}
	return fmt.Sprintf("[%03d/%03d] %-40s %10s  %s",
		idx, total, name, invoice.FormatAmount(rec.AmountTotal), status)
}
