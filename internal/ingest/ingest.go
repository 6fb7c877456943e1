// Package ingest runs batches of uploaded card images through extraction and
// into the record store, isolating per-item failures.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

// Item is one uploaded file in a batch.
type Item struct {
	Filename string
	Data     []byte
}

// CardStore is the part of the record store the pipeline writes to.
type CardStore interface {
	Insert(ctx context.Context, card *entity.Card) error
	FindDuplicate(ctx context.Context, name, email, phone string) (*entity.Card, error)
}

// Resolver maps free text to a country code and flag.
type Resolver interface {
	Resolve(s string) (code, flag string)
}

// IDSource issues unique card ids.
type IDSource interface {
	Next() int64
}

// Rejection reasons recorded on ItemResult.
const (
	ReasonEmpty     = "empty"
	ReasonDuplicate = "duplicate"
	ReasonStore     = "store"
	ReasonPanic     = "panic"
	ReasonScratch   = "scratch"
)

// ItemResult is the outcome of one item.
type ItemResult struct {
	Filename string
	Status   constants.ItemStatus
	Reason   string
	Card     *entity.Card
	Err      error
}

// ItemError pairs a failed item with its error.
type ItemError struct {
	Filename string
	Err      error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// BatchResult summarizes a batch. Total == Persisted + Rejected + Skipped.
type BatchResult struct {
	BatchID      string
	Total        int
	Persisted    int
	Skipped      int
	Rejected     int
	SkippedFiles []string
	Records      []*entity.Card
	Errors       []ItemError
	Items        []ItemResult
}

// SkippedSummary lists at most five skipped filenames, with "..." when there are more.
func (b *BatchResult) SkippedSummary() string {
	if len(b.SkippedFiles) <= constants.SkippedDisplayLimit {
		return strings.Join(b.SkippedFiles, ", ")
	}
	return strings.Join(b.SkippedFiles[:constants.SkippedDisplayLimit], ", ") + "..."
}

func (b *BatchResult) add(r ItemResult) {
	b.Total++
	b.Items = append(b.Items, r)
	switch r.Status {
	case constants.ItemSkipped:
		b.Skipped++
		b.SkippedFiles = append(b.SkippedFiles, r.Filename)
	case constants.ItemPersisted:
		b.Persisted++
		b.Records = append(b.Records, r.Card)
	default:
		b.Rejected++
	}
	if r.Err != nil {
		b.Errors = append(b.Errors, ItemError{Filename: r.Filename, Err: r.Err})
	}
}
