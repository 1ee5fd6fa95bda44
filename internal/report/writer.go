// Package report renders a finished batch into summary report documents.
package report

import (
	"fmt"
	"io"
)

// Format represents report format types.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatExcel    Format = "xlsx"
)

// ParseFormat validates a format string from configuration or flags.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	}
	return "", fmt.Errorf("unsupported report format: %s", s)
}

// FileName returns the conventional report file name for a format.
func FileName(format Format) string {
	switch format {
	case FormatYAML:
		return "invoice_summary.yaml"
	case FormatMarkdown:
		return "invoice_summary.md"
	case FormatExcel:
		return "invoice_summary.xlsx"
	default:
		return "invoice_summary.json"
	}
}

// Writer renders one batch payload to its destination.
type Writer interface {
	Write(p *Payload) error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty     bool
	indent     string
	maxVendors int
}

// WithPretty enables pretty-printing for JSON output.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the JSON indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithMaxVendors caps the vendor table in the markdown and Excel formats.
// Zero means no cap.
func WithMaxVendors(n int) WriterOption {
	return func(c *writerConfig) {
		c.maxVendors = n
	}
}

// NewWriter creates a report writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty:     true,
		indent:     "  ",
		maxVendors: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	case FormatMarkdown:
		return NewMarkdownWriter(w, cfg.maxVendors), nil
	case FormatExcel:
		return NewExcelWriter(w, cfg.maxVendors), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}
