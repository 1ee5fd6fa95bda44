package pdf

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// stubRunner records the invocation and optionally writes the PNG the real
// pdftoppm would produce.
type stubRunner struct {
	writePNG bool
	stderr   string
	err      error

	gotName string
	gotArgs []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.gotName = name
	s.gotArgs = args

	if s.err != nil {
		return nil, []byte(s.stderr), s.err
	}
	if s.writePNG {
		out := args[len(args)-1] + ".png"
		if err := os.WriteFile(out, pngHeader, 0o644); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func TestPdftoppmRenderer_RenderFirstPage(t *testing.T) {
	stub := &stubRunner{writePNG: true}
	r := NewRendererWithRunner(stub)

	data, err := r.RenderFirstPage(context.Background(), "invoices/march.pdf")
	if err != nil {
		t.Fatalf("RenderFirstPage() error: %v", err)
	}
	if string(data) != string(pngHeader) {
		t.Errorf("RenderFirstPage() = %x, want rendered PNG bytes", data)
	}

	if stub.gotName != "pdftoppm" {
		t.Errorf("command = %q, want pdftoppm", stub.gotName)
	}
	for _, want := range []string{"-png", "-singlefile", "invoices/march.pdf"} {
		if !slices.Contains(stub.gotArgs, want) {
			t.Errorf("args missing %q: %v", want, stub.gotArgs)
		}
	}
	// First page only, at the fixed DPI.
	joined := strings.Join(stub.gotArgs, " ")
	if !strings.Contains(joined, "-r 150") || !strings.Contains(joined, "-f 1 -l 1") {
		t.Errorf("args = %q, want -r 150 -f 1 -l 1", joined)
	}
}

func TestPdftoppmRenderer_CommandFailure(t *testing.T) {
	stub := &stubRunner{err: errors.New("exit status 1"), stderr: "Syntax Error: couldn't read xref table"}
	r := NewRendererWithRunner(stub)

	_, err := r.RenderFirstPage(context.Background(), "bad.pdf")
	if err == nil {
		t.Fatal("expected error for failing pdftoppm")
	}

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("error type = %T, want *RenderError", err)
	}
	if renderErr.Path != "bad.pdf" {
		t.Errorf("Path = %q, want bad.pdf", renderErr.Path)
	}
	if !strings.Contains(renderErr.Stderr, "xref table") {
		t.Errorf("Stderr = %q, want pdftoppm stderr preserved", renderErr.Stderr)
	}
}

func TestPdftoppmRenderer_NoOutputProduced(t *testing.T) {
	// Command succeeds but never writes page.png.
	stub := &stubRunner{writePNG: false}
	r := NewRendererWithRunner(stub)

	_, err := r.RenderFirstPage(context.Background(), "empty.pdf")
	if err == nil {
		t.Fatal("expected error when no output file is produced")
	}

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("error type = %T, want *RenderError", err)
	}
	if !strings.Contains(renderErr.Error(), "no output") {
		t.Errorf("Error() = %q, want mention of missing output", renderErr.Error())
	}
}
