package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", ` {"name":"A"} `, `{"name":"A"}`},
		{"json fence", "```json\n{\"name\":\"A\"}\n```", `{"name":"A"}`},
		{"bare fence", "```\n{\"name\":\"A\"}\n```", `{"name":"A"}`},
		{"prose around fence", "Sure!\n```json\n{\"a\":1}\n```\nDone.", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestNormalizeCardJSON(t *testing.T) {
	raw := []byte(`{"name":"  Jane ","phone":9876543210,"email":null,"company":["Acme Ltd","x"],"extra":"drop"}`)
	out, changed, err := NormalizeCardJSON(raw)
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "Jane", m["name"])
	assert.Equal(t, "9876543210", m["phone"])
	assert.Equal(t, "", m["email"])
	assert.Equal(t, "Acme Ltd", m["company"])
	_, hasExtra := m["extra"]
	assert.False(t, hasExtra)
	assert.Contains(t, changed, "extra(unknown)")
	assert.Contains(t, changed, "phone")

	_, _, err = NormalizeCardJSON([]byte("not json"))
	assert.Error(t, err)
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := CardJSONSchema()
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"name":"A","extra":1}`)))
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"name":5}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`[1,2]`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{`)))
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("bad"))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	raw, err := PostJSON(context.Background(), srv.Client(), srv.URL+"/ok", map[string]any{"a": 1}, map[string]string{"X-Test": "yes"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))

	raw, err = PostJSON(context.Background(), srv.Client(), srv.URL+"/fail", map[string]any{}, map[string]string{"X-Test": "yes"}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "bad", string(raw))
	assert.Contains(t, err.Error(), "502")
}
