package pdf

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sheldonz/invoscan/internal/logger"
)

// Runner executes an external command. The seam keeps the renderer testable
// on machines without poppler installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	logger.Debug("running command", "cmd", name, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		logger.Error("command failed",
			"cmd", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", truncateStderr(errb.String()))
	} else {
		logger.Debug("command finished",
			"cmd", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"stdout_bytes", out.Len())
	}

	return out.Bytes(), errb.Bytes(), err
}

// truncateStderr caps stderr in log output.
func truncateStderr(s string) string {
	const max = 2 << 10
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
