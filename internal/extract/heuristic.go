package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/cardscan/internal/core/ocr"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

// HeuristicExtractor runs local OCR and parses the text with line heuristics.
type HeuristicExtractor struct {
	rec    Recognizer
	logger *slog.Logger
}

func NewHeuristicExtractor(rec Recognizer, logger *slog.Logger) *HeuristicExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeuristicExtractor{rec: rec, logger: logger}
}

func (h *HeuristicExtractor) Extract(ctx context.Context, image []byte) entity.CardFields {
	start := time.Now()

	prepared, err := ocr.PrepareForRecognition(image)
	if err != nil {
		h.logger.Warn("heuristic.extract.decode_failed", "error", err, "bytes", len(image))
		return entity.CardFields{}
	}

	text, err := h.rec.Recognize(ctx, prepared)
	if err != nil {
		h.logger.Warn("heuristic.extract.ocr_failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.CardFields{}
	}

	fields := ParseCardText(text)
	h.logger.Debug("heuristic.extract.ok",
		"has_name", fields.Name != "",
		"has_email", fields.Email != "",
		"has_phone", fields.Phone != "",
		"has_company", fields.Company != "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields
}
