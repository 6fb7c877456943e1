package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/country"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/extract"
	"github.com/joseph-ayodele/cardscan/internal/repository"
)

type memStore struct {
	mu     sync.Mutex
	cards  []*entity.Card
	failOn map[string]bool
}

func (s *memStore) Insert(_ context.Context, c *entity.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[c.Filename] {
		return errors.New("connection reset")
	}
	s.cards = append(s.cards, c)
	return nil
}

func (s *memStore) FindDuplicate(_ context.Context, name, email, phone string) (*entity.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if (name != "" && c.Name == name) || (email != "" && c.Email == email) || (phone != "" && c.Phone == phone) {
			return c, nil
		}
	}
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, ex extract.Extractor, store CardStore, opts ...Option) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	scratch, err := NewScratch(dir)
	require.NoError(t, err)
	resolver, err := country.NewCachedResolver(16)
	require.NoError(t, err)
	return NewPipeline(ex, store, resolver, repository.NewIDGenerator(), scratch, discardLogger(), opts...), dir
}

// fieldsByContent echoes the image bytes back as the card name.
func fieldsByContent() extract.Extractor {
	return extract.ExtractorFunc(func(_ context.Context, image []byte) entity.CardFields {
		return entity.CardFields{Name: string(image), Company: "Acme Technologies"}
	})
}

func assertScratchEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch artifacts left behind")
}

func TestPipeline_SkipsDisallowedExtension(t *testing.T) {
	var calls atomic.Int32
	ex := extract.ExtractorFunc(func(_ context.Context, _ []byte) entity.CardFields {
		calls.Add(1)
		return entity.CardFields{Name: "Jane Doe"}
	})
	store := &memStore{}
	p, dir := newTestPipeline(t, ex, store)

	res := p.Run(context.Background(), []Item{
		{Filename: "card.txt", Data: []byte("not an image")},
		{Filename: "card.jpg", Data: []byte("jpeg")},
	}, nil)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"card.txt"}, res.SkippedFiles)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Persisted)
	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, res.Records, 1)
	assert.Equal(t, "card.jpg", res.Records[0].Filename)
	assert.Equal(t, "image/jpeg", res.Records[0].ImageMime)
	assertScratchEmpty(t, dir)
}

func TestPipeline_RejectsEmptyExtraction(t *testing.T) {
	ex := extract.ExtractorFunc(func(_ context.Context, _ []byte) entity.CardFields {
		return entity.CardFields{Name: "   ", Country: "India"}
	})
	store := &memStore{}
	p, dir := newTestPipeline(t, ex, store)

	res := p.Run(context.Background(), []Item{{Filename: "blank.png", Data: []byte("x")}}, nil)

	assert.Equal(t, 1, res.Rejected)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Errors)
	assert.Empty(t, store.cards)
	assert.Equal(t, ReasonEmpty, res.Items[0].Reason)
	assertScratchEmpty(t, dir)
}

func TestPipeline_PanicIsIsolatedAndCleanedUp(t *testing.T) {
	ex := extract.ExtractorFunc(func(_ context.Context, image []byte) entity.CardFields {
		if string(image) == "boom" {
			panic("decoder exploded")
		}
		return entity.CardFields{Email: "ok@acme.com"}
	})
	store := &memStore{}
	p, dir := newTestPipeline(t, ex, store)

	res := p.Run(context.Background(), []Item{
		{Filename: "a.png", Data: []byte("boom")},
		{Filename: "b.webp", Data: []byte("fine")},
	}, nil)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 1, res.Persisted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "a.png", res.Errors[0].Filename)
	assert.Equal(t, ReasonPanic, res.Items[0].Reason)
	assertScratchEmpty(t, dir)
}

func TestPipeline_StoreFailureContinuesBatch(t *testing.T) {
	store := &memStore{failOn: map[string]bool{"first.jpg": true}}
	p, dir := newTestPipeline(t, fieldsByContent(), store)

	res := p.Run(context.Background(), []Item{
		{Filename: "first.jpg", Data: []byte("One")},
		{Filename: "second.jpg", Data: []byte("Two")},
	}, nil)

	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 1, res.Persisted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "first.jpg", res.Errors[0].Filename)
	assert.ErrorIs(t, res.Errors[0].Err, common.ErrStoreUnavailable)
	assert.Contains(t, res.Errors[0].Error(), "first.jpg")
	assertScratchEmpty(t, dir)
}

func TestPipeline_RecordFields(t *testing.T) {
	store := &memStore{}
	p, _ := newTestPipeline(t, fieldsByContent(), store)
	event := &entity.EventInfo{Name: "Tech Expo", Location: "Pune"}

	res := p.Run(context.Background(), []Item{{Filename: "Card.JPEG", Data: []byte("Jane")}}, event)

	require.Len(t, res.Records, 1)
	c := res.Records[0]
	assert.Equal(t, "Jane", c.Name)
	assert.Equal(t, "IN", c.Country)
	assert.Equal(t, "🇮🇳", c.Flag)
	assert.False(t, c.IsSorted)
	assert.False(t, c.HasLabel())
	assert.Equal(t, "Tech Expo", c.Event.Name)
	assert.Equal(t, []byte("Jane"), c.Image)
	assert.NotZero(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestPipeline_CountryFallsBackToExtractedCountry(t *testing.T) {
	ex := extract.ExtractorFunc(func(_ context.Context, _ []byte) entity.CardFields {
		return entity.CardFields{Name: "Hans", Company: "Acme", Country: "Germany"}
	})
	store := &memStore{}
	p, _ := newTestPipeline(t, ex, store)

	res := p.Run(context.Background(), []Item{{Filename: "hans.png", Data: []byte("x")}}, nil)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "DE", res.Records[0].Country)
}

func TestPipeline_WorkersKeepInputOrder(t *testing.T) {
	store := &memStore{}
	p, dir := newTestPipeline(t, fieldsByContent(), store, WithWorkers(4), WithItemTimeout(time.Second))

	var items []Item
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("card-%02d.png", i)
		if i%5 == 0 {
			name = fmt.Sprintf("notes-%02d.pdf", i)
		}
		items = append(items, Item{Filename: name, Data: []byte(fmt.Sprintf("Person %02d", i))})
	}

	res := p.Run(context.Background(), items, nil)

	assert.Equal(t, 20, res.Total)
	assert.Equal(t, res.Total, res.Persisted+res.Rejected+res.Skipped)
	assert.Equal(t, 4, res.Skipped)
	require.Len(t, res.Records, 16)
	for i := 1; i < len(res.Records); i++ {
		assert.Less(t, res.Records[i-1].Name, res.Records[i].Name)
	}
	ids := map[int64]bool{}
	for _, r := range res.Records {
		ids[r.ID] = true
	}
	assert.Len(t, ids, 16)
	for i, it := range res.Items {
		assert.Equal(t, items[i].Filename, it.Filename)
	}
	assertScratchEmpty(t, dir)
}

func TestPipeline_SkipDuplicates(t *testing.T) {
	store := &memStore{}
	p, _ := newTestPipeline(t, fieldsByContent(), store, WithSkipDuplicates(true))

	res := p.Run(context.Background(), []Item{
		{Filename: "a.png", Data: []byte("Jane")},
		{Filename: "b.png", Data: []byte("Jane")},
	}, nil)

	assert.Equal(t, 1, res.Persisted)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, ReasonDuplicate, res.Items[1].Reason)
	assert.Empty(t, res.Errors)
}

func TestPipeline_EmptyBatch(t *testing.T) {
	p, _ := newTestPipeline(t, fieldsByContent(), &memStore{}, WithWorkers(3))
	res := p.Run(context.Background(), nil, nil)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.SkippedSummary())
}

func TestBatchResult_SkippedSummary(t *testing.T) {
	b := &BatchResult{}
	for i := 1; i <= 7; i++ {
		b.add(ItemResult{Filename: fmt.Sprintf("f%d.txt", i), Status: constants.ItemSkipped})
	}
	assert.Equal(t, "f1.txt, f2.txt, f3.txt, f4.txt, f5.txt...", b.SkippedSummary())
	assert.Len(t, b.SkippedFiles, 7)

	small := &BatchResult{SkippedFiles: []string{"a.txt", "b.txt"}}
	assert.Equal(t, "a.txt, b.txt", small.SkippedSummary())
}

func TestCollectDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("r"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.webp"), []byte("b"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cache", "c.png"), []byte("c"), 0o644))

	items, stats, err := CollectDir(root, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), stats.Scanned)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Len(t, items, 3)

	names := []string{}
	for _, it := range items {
		names = append(names, it.Filename)
	}
	assert.ElementsMatch(t, []string{"a.jpg", "readme.txt", filepath.Join("sub", "b.webp")}, names)

	_, _, err = CollectDir("  ", false)
	assert.Error(t, err)
}

func TestStartWatcher_InitialScan(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true}, discardLogger())
	require.NoError(t, err)

	select {
	case p := <-paths:
		assert.Equal(t, filepath.Join(root, "a.png"), p)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial scan event")
	}

	_, _, err = StartWatcher(ctx, WatchConfig{}, discardLogger())
	assert.Error(t, err)
}
