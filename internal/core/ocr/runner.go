package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// stderrLogLimit caps how much engine stderr lands in a single log record.
const stderrLogLimit = 4 << 10

// Runner starts the OCR engine binary. Tests swap in a stub.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner starts real processes. Cancelling ctx kills the engine.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started).Milliseconds()

	if err != nil {
		logger.Error("ocr.engine.failed",
			"engine", name,
			"args", len(args),
			"elapsed_ms", elapsed,
			"error", err,
			"stderr", clip(stderr.String(), stderrLogLimit),
		)
		return stdout.Bytes(), stderr.Bytes(), err
	}
	logger.Debug("ocr.engine.done",
		"engine", name,
		"elapsed_ms", elapsed,
		"text_bytes", stdout.Len(),
	)
	return stdout.Bytes(), stderr.Bytes(), nil
}

// clip shortens s to at most n bytes, marking the cut.
func clip(s string, n int) string {
	if len(s) > n {
		return s[:n] + " [clipped]"
	}
	return s
}
