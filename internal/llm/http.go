package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxReplyBytes bounds how much of a model reply is read into memory.
const maxReplyBytes = 4 << 20

// StatusError is a reply with a non-2xx status. Body holds whatever the
// backend sent, usually its own error document.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vision backend replied %d %s", e.Code, http.StatusText(e.Code))
}

// PostJSON sends payload to url and returns the reply body. Non-2xx replies
// come back as *StatusError alongside the body.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	callID := uuid.NewString()
	log := logger.With("call_id", callID)

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding vision request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("building vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	log.Debug("vision.call.start", "url", url, "request_bytes", len(encoded))
	resp, err := client.Do(req)
	if err != nil {
		log.Error("vision.call.transport", "error", err, "elapsed_ms", time.Since(started).Milliseconds())
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warn("vision.call.close", "error", cerr)
		}
	}()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading vision reply: %w", err)
	}
	log.Debug("vision.call.done",
		"status", resp.StatusCode,
		"reply_bytes", len(reply),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reply, &StatusError{Code: resp.StatusCode, Body: reply}
	}
	return reply, nil
}
