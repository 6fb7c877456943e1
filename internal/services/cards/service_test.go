package cards

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/country"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/repository"
	"github.com/joseph-ayodele/cardscan/internal/services/labels"
)

type fixture struct {
	svc    *Service
	labels *labels.Service
	repo   repository.CardRepository
}

func setup(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.OpenSQLite(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, repository.MigrateUp(db))
	t.Cleanup(func() { repository.Close(db, logger) })

	cardRepo := repository.NewCardRepository(db, logger)
	labelSvc := labels.NewService(repository.NewLabelRepository(db, logger), cardRepo, logger)
	resolver, err := country.NewCachedResolver(64)
	require.NoError(t, err)
	return fixture{
		svc:    NewService(cardRepo, labelSvc, resolver, repository.NewIDGenerator(), logger),
		labels: labelSvc,
		repo:   cardRepo,
	}
}

func str(s string) *string { return &s }

func TestCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, CardInput{Name: " Hans ", Company: "Acme GmbH"})
	require.NoError(t, err)
	assert.Equal(t, "Hans", c.Name)
	assert.Equal(t, "DE", c.Country)
	assert.False(t, c.IsSorted)

	c, err = f.svc.Create(ctx, CardInput{Name: "Ana", Company: "Acme", Country: "Brazil"})
	require.NoError(t, err)
	assert.Equal(t, "BR", c.Country)

	c, err = f.svc.Create(ctx, CardInput{Name: "Kim", Country: "kr"})
	require.NoError(t, err)
	assert.Equal(t, "KR", c.Country)
	assert.Equal(t, country.FlagFor("KR"), c.Flag)

	_, err = f.svc.Create(ctx, CardInput{Website: "acme.com"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.svc.Create(ctx, CardInput{Name: "Bad", Email: "not-an-email"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdate_ReresolvesCountryOnCompanyChange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c, err := f.svc.Create(ctx, CardInput{Name: "Jane", Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, constants.UnknownCountry, c.Country)

	ok, err := f.svc.Update(ctx, c.ID, CardUpdate{Company: str("Acme Pvt Ltd"), EventName: str("Expo")})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "IN", got.Country)
	assert.Equal(t, "🇮🇳", got.Flag)
	assert.Equal(t, "Expo", got.Event.Name)

	ok, err = f.svc.Update(ctx, c.ID, CardUpdate{Company: str("Acme GmbH"), Country: str("France")})
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "FR", got.Country, "explicit country wins over company")

	ok, err = f.svc.Update(ctx, 404, CardUpdate{Name: str("x")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_ReleasesLabelCount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c, err := f.svc.Create(ctx, CardInput{Name: "Jane"})
	require.NoError(t, err)
	l, err := f.labels.CreateLabel(ctx, "VIP", "")
	require.NoError(t, err)
	_, err = f.labels.AssignLabel(ctx, c.ID, l.ID, "")
	require.NoError(t, err)

	ok, err := f.svc.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.labels.GetLabel(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CardCount)

	ok, err = f.svc.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecentAndSearch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, in := range []CardInput{
		{Name: "Alice", Company: "Globex"},
		{Name: "Bob", Designation: "Chief Architect"},
		{Name: "Carol", Email: "carol@initech.com"},
		{Name: "Dan"}, {Name: "Eve"}, {Name: "Frank"},
	} {
		_, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
	}

	recent, err := f.svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, RecentLimit)
	assert.Equal(t, "Frank", recent[0].Name)

	found, err := f.svc.Search(ctx, "ARCHITECT")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Bob", found[0].Name)

	found, err = f.svc.Search(ctx, "initech")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Carol", found[0].Name)

	all, err := f.svc.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestIsDuplicateAndImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Insert(ctx, &entity.Card{
		ID: 7, Name: "Jane", Email: "jane@acme.com", Image: []byte("png"), ImageMime: "image/png",
	}))

	dup, err := f.svc.IsDuplicate(ctx, "", " JANE@acme.com ", "")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = f.svc.IsDuplicate(ctx, "Someone", "", "")
	require.NoError(t, err)
	assert.False(t, dup)

	img, mime, err := f.svc.Image(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), img)
	assert.Equal(t, "image/png", mime)
}

func TestBackfillCountries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Insert(ctx, &entity.Card{ID: 1, Name: "A", Company: "Acme Pvt Ltd", Country: "UNKNOWN"}))
	require.NoError(t, f.repo.Insert(ctx, &entity.Card{ID: 2, Name: "B", Company: "Acme", Country: "JP"}))
	require.NoError(t, f.repo.Insert(ctx, &entity.Card{ID: 3, Name: "C", Company: "Acme", Country: "US", Flag: "🇺🇸"}))
	require.NoError(t, f.repo.Insert(ctx, &entity.Card{ID: 4, Name: "D", Company: "Nowhere Traders", Country: "UNKNOWN", Flag: country.FlagFor("UNKNOWN")}))

	n, err := f.svc.BackfillCountries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "a card that stays unresolved is not an update")

	a, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "IN", a.Country)
	b, err := f.svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "JP", b.Country)
	assert.Equal(t, country.FlagFor("JP"), b.Flag)

	n, err = f.svc.BackfillCountries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
