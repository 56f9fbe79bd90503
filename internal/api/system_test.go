package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelfi/navigator/internal/corpus"
	"github.com/nelfi/navigator/internal/log"
)

type mockReindexer struct {
	result *corpus.BuildResult
	err    error
	calls  int
}

func (m *mockReindexer) Reindex(context.Context) (*corpus.BuildResult, error) {
	m.calls++
	return m.result, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func systemServer(reindexer Reindexer, pinger Pinger) http.Handler {
	return NewServer(Deps{
		Store:     newMockStore(),
		Reindexer: reindexer,
		Pinger:    pinger,
		Info: ServiceInfo{
			Name:           "NELFI - NELFUND Navigator",
			Version:        "1.0.0",
			Model:          "gemini-2.5-flash",
			EmbeddingModel: "gemini-embedding-001",
			Provider:       "googleai",
		},
		Logger: log.NewNop(),
	}).Handler()
}

func TestRoot_Descriptor(t *testing.T) {
	h := systemServer(nil, nil)

	w := doJSON(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "NELFI - NELFUND Navigator", resp["service"])
	assert.Equal(t, "running", resp["status"])
	assert.Equal(t, "gemini-2.5-flash", resp["model"])
	assert.Equal(t, "gemini-embedding-001", resp["embedding_model"])

	endpoints, ok := resp["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, endpoints, "chat")
	assert.Contains(t, endpoints, "signup")
}

func TestRoot_UnknownPathIs404(t *testing.T) {
	h := systemServer(nil, nil)

	w := doJSON(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	h := systemServer(nil, nil)

	w := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestReady(t *testing.T) {
	t.Run("database reachable", func(t *testing.T) {
		h := systemServer(nil, &mockPinger{})
		w := doJSON(t, h, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("database down", func(t *testing.T) {
		h := systemServer(nil, &mockPinger{err: errors.New("connection refused")})
		w := doJSON(t, h, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("no pool configured", func(t *testing.T) {
		h := systemServer(nil, nil)
		w := doJSON(t, h, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestReindex(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		reindexer := &mockReindexer{result: &corpus.BuildResult{Documents: 3, Chunks: 12}}
		h := systemServer(reindexer, nil)

		w := doJSON(t, h, http.MethodPost, "/reindex", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp ReindexResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, 3, resp.Documents)
		assert.Equal(t, 12, resp.Chunks)
		assert.Equal(t, 1, reindexer.calls)
	})

	t.Run("failure", func(t *testing.T) {
		h := systemServer(&mockReindexer{err: errors.New("embedder down")}, nil)
		w := doJSON(t, h, http.MethodPost, "/reindex", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		h := systemServer(nil, nil)
		w := doJSON(t, h, http.MethodPost, "/reindex", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
