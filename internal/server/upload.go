package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/ingest"
)

type itemError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type uploadResponse struct {
	BatchID        string         `json:"batch_id"`
	Total          int            `json:"total"`
	Persisted      int            `json:"persisted"`
	Skipped        int            `json:"skipped"`
	Rejected       int            `json:"rejected"`
	SkippedFiles   []string       `json:"skipped_files"`
	SkippedSummary string         `json:"skipped_summary"`
	Records        []*entity.Card `json:"records"`
	Errors         []itemError    `json:"errors"`
}

// handleUpload runs the multipart "files" field through the ingestion pipeline.
// The event_* form fields apply to every card of the batch.
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		handleError(c, common.Invalidf("invalid multipart form: %v", err))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		handleError(c, common.Invalidf("no files uploaded"))
		return
	}

	items := make([]ingest.Item, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			handleError(c, common.Invalidf("read %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			handleError(c, common.Invalidf("read %s: %v", fh.Filename, err))
			return
		}
		items = append(items, ingest.Item{Filename: fh.Filename, Data: data})
	}

	event := &entity.EventInfo{
		Name:        c.PostForm("event_name"),
		Description: c.PostForm("event_description"),
		Host:        c.PostForm("event_host"),
		Date:        c.PostForm("event_date"),
		Location:    c.PostForm("event_location"),
	}

	res := s.deps.Pipeline.Run(c.Request.Context(), items, event)

	out := uploadResponse{
		BatchID:        res.BatchID,
		Total:          res.Total,
		Persisted:      res.Persisted,
		Skipped:        res.Skipped,
		Rejected:       res.Rejected,
		SkippedFiles:   nonNil(res.SkippedFiles),
		SkippedSummary: res.SkippedSummary(),
		Records:        nonNil(res.Records),
		Errors:         []itemError{},
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, itemError{Filename: e.Filename, Error: e.Err.Error()})
	}
	c.JSON(http.StatusOK, out)
}
