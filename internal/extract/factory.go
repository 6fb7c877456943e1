package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/core/ocr"
	"github.com/joseph-ayodele/cardscan/internal/llm"
	"github.com/joseph-ayodele/cardscan/internal/llm/gemini"
	"github.com/joseph-ayodele/cardscan/internal/llm/openai"
)

// New builds the extractor selected by cfg. The returned close func releases
// any remote client and is never nil.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (Extractor, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = slog.Default()
	}

	switch constants.ExtractorStrategy(strings.ToLower(cfg.Extract.Strategy)) {
	case constants.ExtractorHeuristic:
		tess := ocr.NewTesseract(ocr.Config{
			Tesseract:   cfg.Extract.TesseractPath,
			Language:    cfg.Extract.Language,
			TessdataDir: cfg.Extract.TessdataDir,
			ScratchDir:  cfg.Extract.ScratchDir,
		}, nil, logger)
		logger.Info("extractor selected", "strategy", "heuristic")
		return NewHeuristicExtractor(tess, logger), noop, nil

	case constants.ExtractorVision:
		var (
			model   llm.VisionModel
			closeFn = noop
		)
		switch constants.VisionProvider(cfg.Vision.Provider) {
		case constants.VisionOpenAI:
			model = openai.NewClient(openai.Config{
				APIKey:      cfg.Vision.APIKey,
				BaseURL:     cfg.Vision.BaseURL,
				Model:       cfg.Vision.Model,
				Temperature: cfg.Vision.Temperature,
				Timeout:     cfg.Vision.Timeout,
			}, logger)
		case constants.VisionGemini:
			g, err := gemini.NewClient(ctx, gemini.Config{
				APIKey:      cfg.Vision.APIKey,
				Model:       cfg.Vision.Model,
				Temperature: cfg.Vision.Temperature,
			}, logger)
			if err != nil {
				return nil, noop, err
			}
			model, closeFn = g, g.Close
		default:
			return nil, noop, fmt.Errorf("unsupported vision provider %q", cfg.Vision.Provider)
		}
		logger.Info("extractor selected", "strategy", "vision", "model", model.Name())
		return NewVisionExtractor(model, cfg.Vision.Timeout, logger), closeFn, nil
	}
	return nil, noop, fmt.Errorf("unsupported extractor strategy %q", cfg.Extract.Strategy)
}
