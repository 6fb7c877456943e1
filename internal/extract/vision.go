package extract

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/core/ocr"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/llm"
)

// VisionExtractor asks a remote multimodal model for the card fields.
type VisionExtractor struct {
	model   llm.VisionModel
	timeout time.Duration
	schema  map[string]any
	logger  *slog.Logger
}

func NewVisionExtractor(model llm.VisionModel, timeout time.Duration, logger *slog.Logger) *VisionExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VisionExtractor{
		model:   model,
		timeout: timeout,
		schema:  llm.CardJSONSchema(),
		logger:  logger,
	}
}

func (v *VisionExtractor) Extract(ctx context.Context, image []byte) entity.CardFields {
	rid := uuid.New().String()
	start := time.Now()
	log := v.logger.With("req_id", rid, "model", v.model.Name())

	prepared, err := ocr.PrepareForVision(image)
	if err != nil {
		log.Warn("vision.extract.decode_failed", "error", err, "bytes", len(image))
		return entity.CardFields{}
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	raw, err := v.model.Generate(callCtx, llm.VisionRequest{
		Instruction: llm.Instruction,
		Image:       prepared,
		MimeType:    "image/jpeg",
	})
	if err != nil {
		err = errors.Join(common.ErrExtractorTransport, err)
		log.Error("vision.extract.transport_error",
			"error", err,
			"timed_out", errors.Is(callCtx.Err(), context.DeadlineExceeded),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.CardFields{}
	}

	fields, err := v.parse(raw)
	if err != nil {
		log.Warn("vision.extract.parse_error",
			"error", err,
			"raw_len", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.CardFields{}
	}

	log.Info("vision.extract.ok",
		"has_name", fields.Name != "",
		"has_email", fields.Email != "",
		"has_phone", fields.Phone != "",
		"has_company", fields.Company != "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields
}

func (v *VisionExtractor) parse(raw string) (entity.CardFields, error) {
	body := llm.StripCodeFence(raw)
	norm, changed, err := llm.NormalizeCardJSON([]byte(body))
	if err != nil {
		return entity.CardFields{}, err
	}
	if len(changed) > 0 {
		v.logger.Debug("vision.extract.normalized", "changed", changed)
	}
	if err := llm.ValidateJSONAgainstSchema(v.schema, norm); err != nil {
		return entity.CardFields{}, err
	}
	var out entity.CardFields
	if err := json.Unmarshal(norm, &out); err != nil {
		return entity.CardFields{}, err
	}
	return out.Trimmed(), nil
}
