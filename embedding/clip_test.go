package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/agentrouter/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCLIPServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/encode/text", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["text"] == "fail" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"malformed input"}`))
			return
		}
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	})
	mux.HandleFunc("/encode/image", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "http://img/cat.png", body["url"])
		_, _ = w.Write([]byte(`{"embedding":[1,0,0]}`))
	})
	mux.HandleFunc("/encode/empty", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCLIPClient(t *testing.T) {
	srv := newCLIPServer(t)
	c, err := NewCLIPClient(CLIPConfig{BaseURL: srv.URL + "/", APIKey: "secret"})
	require.NoError(t, err)

	emb, err := c.EncodeText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, core.Embedding{0.1, 0.2, 0.3}, emb)

	emb, err = c.EncodeImage(context.Background(), "http://img/cat.png")
	require.NoError(t, err)
	assert.Equal(t, core.Embedding{1, 0, 0}, emb)

	_, err = c.EncodeText(context.Background(), "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed input")

	_, err = c.post(context.Background(), "/encode/empty", map[string]string{})
	assert.Error(t, err)
}

func TestCLIPClient_RequiresBaseURL(t *testing.T) {
	_, err := NewCLIPClient(CLIPConfig{})
	assert.Error(t, err)
}

func TestCLIPClient_FailOpenThroughDispatcher(t *testing.T) {
	c, err := NewCLIPClient(CLIPConfig{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	d := NewDispatcher(c, c)
	assert.Nil(t, d.Embed(context.Background(), core.Request{Text: "unreachable"}))
}
