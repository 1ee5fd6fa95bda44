// Package pdf rasterizes the first page of PDF invoices to PNG using
// poppler's pdftoppm.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// renderDPI balances model legibility against upload size.
const renderDPI = "150"

// RenderError reports a failed rasterization of one PDF.
type RenderError struct {
	Path   string
	Stderr string
	Cause  error
}

func (e *RenderError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("render %s: %v: %s", e.Path, e.Cause, e.Stderr)
	}
	return fmt.Sprintf("render %s: %v", e.Path, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// Renderer turns the first page of a PDF into PNG bytes.
type Renderer interface {
	RenderFirstPage(ctx context.Context, path string) ([]byte, error)
}

// PdftoppmRenderer shells out to pdftoppm. Only the first page is rendered;
// Chinese e-invoices carry the totals block on page one.
type PdftoppmRenderer struct {
	runner Runner
}

// NewRenderer returns a renderer backed by the real pdftoppm binary.
func NewRenderer() *PdftoppmRenderer {
	return &PdftoppmRenderer{runner: NewRunner()}
}

// NewRendererWithRunner injects a command Runner, for tests.
func NewRendererWithRunner(r Runner) *PdftoppmRenderer {
	return &PdftoppmRenderer{runner: r}
}

// RenderFirstPage rasterizes page 1 of the PDF at path into a 150 DPI PNG.
func (p *PdftoppmRenderer) RenderFirstPage(ctx context.Context, path string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "invoscan-pdf-*")
	if err != nil {
		return nil, &RenderError{Path: path, Cause: err}
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	outPrefix := filepath.Join(tmpDir, "page")
	args := []string{"-png", "-r", renderDPI, "-f", "1", "-l", "1", "-singlefile", path, outPrefix}

	_, stderr, err := p.runner.Run(ctx, "pdftoppm", args...)
	if err != nil {
		return nil, &RenderError{
			Path:   path,
			Stderr: strings.TrimSpace(string(stderr)),
			Cause:  err,
		}
	}

	data, err := os.ReadFile(outPrefix + ".png")
	if err != nil {
		return nil, &RenderError{
			Path:   path,
			Stderr: strings.TrimSpace(string(stderr)),
			Cause:  fmt.Errorf("pdftoppm produced no output: %w", err),
		}
	}

	return data, nil
}

var _ Renderer = (*PdftoppmRenderer)(nil)
