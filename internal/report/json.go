package report

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter writes the report as a single JSON document.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
}

// NewJSONWriter creates a JSON report writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// Write renders the payload as JSON.
func (w *JSONWriter) Write(p *Payload) error {
	var output []byte
	var err error

	if w.pretty {
		output, err = json.MarshalIndent(p, "", w.indent)
	} else {
		output, err = json.Marshal(p)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}

	return w.w.Flush()
}
