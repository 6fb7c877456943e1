package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cardscan/internal/country"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/export"
	"github.com/joseph-ayodele/cardscan/internal/extract"
	"github.com/joseph-ayodele/cardscan/internal/ingest"
	"github.com/joseph-ayodele/cardscan/internal/repository"
	"github.com/joseph-ayodele/cardscan/internal/services/cards"
	"github.com/joseph-ayodele/cardscan/internal/services/labels"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	db, err := repository.OpenSQLite(ctx, ":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, repository.MigrateUp(db))
	t.Cleanup(func() { repository.Close(db, logger) })

	cardRepo := repository.NewCardRepository(db, logger)
	labelSvc := labels.NewService(repository.NewLabelRepository(db, logger), cardRepo, logger)
	resolver, err := country.NewCachedResolver(64)
	require.NoError(t, err)
	ids := repository.NewIDGenerator()
	scratch, err := ingest.NewScratch(t.TempDir())
	require.NoError(t, err)

	ex := extract.ExtractorFunc(func(_ context.Context, image []byte) entity.CardFields {
		return entity.CardFields{Name: string(image), Company: "Acme Pvt Ltd"}
	})

	return NewServer(Deps{
		Cards:    cards.NewService(cardRepo, labelSvc, resolver, ids, logger),
		Labels:   labelSvc,
		Pipeline: ingest.NewPipeline(ex, cardRepo, resolver, ids, scratch, logger),
		Exports:  export.NewService(cardRepo, export.XLSXSink{}, 20, logger),
		Health:   func(ctx context.Context) error { return repository.HealthCheck(ctx, db, 0, logger) },
	}, 0, logger)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func upload(t *testing.T, s *Server, files map[string]string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthAndProgress(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(t, s, http.MethodGet, "/api/progress", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"progress":100,"status":"complete"}`, w.Body.String())
}

func TestUpload(t *testing.T) {
	s := newTestServer(t)

	w := upload(t, s,
		map[string]string{"card.txt": "nope", "card.jpg": "Jane Doe"},
		map[string]string{"event_name": "Expo 2024"},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res uploadResponse
	decode(t, w, &res)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Persisted)
	assert.Equal(t, []string{"card.txt"}, res.SkippedFiles)
	assert.Equal(t, "card.txt", res.SkippedSummary)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Jane Doe", res.Records[0].Name)
	assert.Equal(t, "IN", res.Records[0].Country)
	assert.Equal(t, "Expo 2024", res.Records[0].Event.Name)

	w = do(t, s, http.MethodGet, "/api/cards", nil)
	var list struct {
		Cards []entity.Card `json:"cards"`
		Count int           `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)

	w = do(t, s, http.MethodGet, "/api/cards/"+itoa(res.Records[0].ID)+"/image", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "Jane Doe", w.Body.String())

	w = upload(t, s, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLabelFlow(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/cards", map[string]string{"name": "Jane", "email": "jane@acme.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var card entity.Card
	decode(t, w, &card)

	w = do(t, s, http.MethodPost, "/api/labels", map[string]string{"name": "VIP", "color": "#ff0000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var lbl entity.Label
	decode(t, w, &lbl)

	w = do(t, s, http.MethodPost, "/api/cards/"+itoa(card.ID)+"/label", map[string]string{"label_id": lbl.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/labels/"+lbl.ID, nil)
	decode(t, w, &lbl)
	assert.Equal(t, 1, lbl.CardCount)

	w = do(t, s, http.MethodPost, "/api/cards/999/label", map[string]string{"label_id": lbl.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/export/labels", map[string]any{"label_ids": []string{lbl.ID}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "filtered_by_labels")

	w = do(t, s, http.MethodDelete, "/api/labels/"+lbl.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":true,"cards_unlabeled":1}`, w.Body.String())

	w = do(t, s, http.MethodDelete, "/api/labels/"+lbl.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/cards/"+itoa(card.ID)+"/label", map[string]string{"label_id": lbl.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/cards/unsorted", nil)
	var unsorted struct {
		Cards []entity.Card `json:"cards"`
	}
	decode(t, w, &unsorted)
	assert.Len(t, unsorted.Cards, 1)
}

func TestErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/cards/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/cards/42", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/labels", map[string]string{"name": ""}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPatch, "/api/cards/42", map[string]string{"name": "x"}).Code)

	w := do(t, s, http.MethodPost, "/api/export/countries", map[string]any{"countries": []string{"IN"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "nothing to export"))
}

func TestCountriesAndAnalytics(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/countries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Countries []country.Info `json:"countries"`
	}
	decode(t, w, &out)
	assert.NotEmpty(t, out.Countries)

	w = do(t, s, http.MethodGet, "/api/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var a map[string]any
	decode(t, w, &a)
	assert.Equal(t, "0%", a["email_coverage"])
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
