package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Config for the tesseract recognizer.
type Config struct {
	Tesseract   string // binary name or absolute path; default "tesseract"
	Language    string // default "eng"
	TessdataDir string
	PSM         int    // page segmentation mode, 0 = tesseract default
	ScratchDir  string // where the normalized image is written for the command
}

// Tesseract recognizes text by shelling out to the tesseract binary.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewTesseract builds a recognizer. A nil runner uses ExecRunner.
func NewTesseract(cfg Config, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

// Recognize writes img to a scratch file, runs tesseract on it and returns the
// normalized text. The scratch file is always removed.
func (t *Tesseract) Recognize(ctx context.Context, img []byte) (string, error) {
	start := time.Now()

	f, err := os.CreateTemp(t.cfg.ScratchDir, "ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("create scratch image: %w", err)
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			t.logger.Warn("ocr.scratch.remove_failed", "path", path, "error", rmErr)
		}
	}()

	if _, err := f.Write(img); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write scratch image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close scratch image: %w", err)
	}

	// tesseract <file> stdout -l <lang>
	args := []string{path, "stdout", "-l", t.cfg.Language}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.logger, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, clip(string(errb), 512))
	}

	txt := Normalize(string(out))
	t.logger.Debug("ocr.recognize.ok",
		"chars", len(txt),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return txt, nil
}
