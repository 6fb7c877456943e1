// Package extract turns card images into structured contact fields.
package extract

import (
	"context"

	"github.com/joseph-ayodele/cardscan/internal/entity"
)

// Extractor returns the best-effort fields for one card image. It never fails:
// any problem degrades to empty fields.
type Extractor interface {
	Extract(ctx context.Context, image []byte) entity.CardFields
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, image []byte) entity.CardFields

func (f ExtractorFunc) Extract(ctx context.Context, image []byte) entity.CardFields {
	return f(ctx, image)
}

// Recognizer is the character recognition step used by the heuristic strategy.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}
