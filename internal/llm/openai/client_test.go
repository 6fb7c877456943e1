package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cardscan/internal/llm"
)

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "vision-model", body["model"])
		msgs := body["messages"].([]any)
		content := msgs[0].(map[string]any)["content"].([]any)
		img := content[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
		assert.True(t, strings.HasPrefix(img, "data:image/jpeg;base64,"))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" {\"name\":\"Jane\"} "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "vision-model", Timeout: time.Second}, nil)
	assert.Equal(t, "openai:vision-model", c.Name())

	out, err := c.Generate(context.Background(), llm.VisionRequest{Instruction: llm.Instruction, Image: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Jane"}`, out)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	c := NewClient(Config{}, nil)
	assert.Equal(t, "sk-env", c.cfg.APIKey)
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, "openai:"+DefaultModel, c.Name())
	assert.Equal(t, 30*time.Second, c.http.Timeout)
}

func TestClient_GenerateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "empty") {
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), llm.VisionRequest{Image: []byte{1}})
	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)

	_, err = c.Generate(context.Background(), llm.VisionRequest{})
	assert.Error(t, err)

	c = NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/empty"}, nil)
	_, err = c.Generate(context.Background(), llm.VisionRequest{Image: []byte{1}})
	assert.ErrorContains(t, err, "no choices")
}
