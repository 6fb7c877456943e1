package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/extract"
)

// Pipeline drives a batch through format check, scratch save, extraction,
// country resolution and persistence.
type Pipeline struct {
	extractor extract.Extractor
	store     CardStore
	resolver  Resolver
	ids       IDSource
	scratch   *Scratch
	logger    *slog.Logger

	workers        int
	itemTimeout    time.Duration
	skipDuplicates bool
}

type Option func(*Pipeline)

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithItemTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.itemTimeout = d
		}
	}
}

func WithSkipDuplicates(on bool) Option {
	return func(p *Pipeline) {
		p.skipDuplicates = on
	}
}

func NewPipeline(
	extractor extract.Extractor,
	store CardStore,
	resolver Resolver,
	ids IDSource,
	scratch *Scratch,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		extractor:   extractor,
		store:       store,
		resolver:    resolver,
		ids:         ids,
		scratch:     scratch,
		logger:      logger,
		workers:     1,
		itemTimeout: 2 * time.Minute,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run processes items and never aborts on a single item's failure. Results
// keep input order whatever the worker count.
func (p *Pipeline) Run(ctx context.Context, items []Item, event *entity.EventInfo) *BatchResult {
	batchID := uuid.NewString()
	ctx = common.WithBatchID(ctx, batchID)
	logger := common.LoggerFrom(ctx, p.logger)
	start := time.Now()
	logger.Info("ingest.batch.start", "items", len(items), "workers", p.workers)

	var ev entity.EventInfo
	if event != nil {
		ev = *event
	}

	results := make([]ItemResult, len(items))
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := min(p.workers, max(len(items), 1))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.processItem(ctx, logger.With("worker_id", workerID), items[i], ev)
			}
		}(w + 1)
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	batch := &BatchResult{BatchID: batchID}
	for _, r := range results {
		batch.add(r)
	}
	logger.Info("ingest.batch.done",
		"total", batch.Total,
		"persisted", batch.Persisted,
		"skipped", batch.Skipped,
		"rejected", batch.Rejected,
		"errors", len(batch.Errors),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return batch
}

func (p *Pipeline) processItem(ctx context.Context, logger *slog.Logger, item Item, event entity.EventInfo) (res ItemResult) {
	logger = logger.With("filename", item.Filename)
	res = ItemResult{Filename: item.Filename}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("ingest.item.panic", "panic", r)
			res = ItemResult{
				Filename: item.Filename,
				Status:   constants.ItemRejected,
				Reason:   ReasonPanic,
				Err:      fmt.Errorf("item processing panicked: %v", r),
			}
		}
	}()

	ext := constants.NormalizeExt(filepath.Ext(item.Filename))
	if !AllowedExt(ext) {
		logger.Info("ingest.item.skipped", "ext", ext)
		res.Status = constants.ItemSkipped
		return res
	}

	path, err := p.scratch.Save(item.Data, ext)
	if err != nil {
		logger.Error("ingest.item.scratch_failed", "error", err)
		return rejected(item.Filename, ReasonScratch, err)
	}
	defer func() {
		if err := p.scratch.Remove(path); err != nil {
			logger.Warn("ingest.item.cleanup_failed", "path", path, "error", err)
		}
	}()

	data, err := p.scratch.Read(path)
	if err != nil {
		logger.Error("ingest.item.scratch_failed", "error", err)
		return rejected(item.Filename, ReasonScratch, err)
	}

	ictx, cancel := context.WithTimeout(ctx, p.itemTimeout)
	fields := p.extractor.Extract(ictx, data).Trimmed()
	cancel()

	if !fields.Usable() {
		logger.Info("ingest.item.rejected", "reason", ReasonEmpty)
		res.Status = constants.ItemRejected
		res.Reason = ReasonEmpty
		return res
	}

	code, flag := p.resolver.Resolve(fields.Company)
	if code == constants.UnknownCountry && fields.Country != "" {
		code, flag = p.resolver.Resolve(fields.Country)
	}

	if p.skipDuplicates {
		dup, err := p.store.FindDuplicate(ctx, fields.Name, fields.Email, fields.Phone)
		if err != nil {
			logger.Error("ingest.item.duplicate_check_failed", "error", err)
			return rejected(item.Filename, ReasonStore, err)
		}
		if dup != nil {
			logger.Info("ingest.item.rejected", "reason", ReasonDuplicate, "existing_card_id", dup.ID)
			res.Status = constants.ItemRejected
			res.Reason = ReasonDuplicate
			return res
		}
	}

	card := &entity.Card{
		ID:        p.ids.Next(),
		Name:      fields.Name,
		Phone:     fields.Phone,
		Email:     fields.Email,
		Company:   fields.Company,
		Country:   code,
		Flag:      flag,
		IsSorted:  false,
		Event:     event,
		Filename:  item.Filename,
		ImageMime: constants.MimeForExt(ext),
		Image:     item.Data,
		CreatedAt: time.Now(),
	}
	if err := p.store.Insert(ctx, card); err != nil {
		logger.Error("ingest.item.store_failed", "error", err)
		if !errors.Is(err, common.ErrDatabase) && !errors.Is(err, common.ErrStoreUnavailable) {
			err = errors.Join(common.ErrStoreUnavailable, err)
		}
		return rejected(item.Filename, ReasonStore, err)
	}

	logger.Info("ingest.item.persisted", "card_id", card.ID, "country", code)
	res.Status = constants.ItemPersisted
	res.Card = card
	return res
}

func rejected(filename, reason string, err error) ItemResult {
	return ItemResult{
		Filename: filename,
		Status:   constants.ItemRejected,
		Reason:   reason,
		Err:      err,
	}
}
