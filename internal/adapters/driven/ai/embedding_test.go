package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
)

func newEmbeddingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *BGEEmbedding) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultEmbeddingConfig(server.URL)
	svc, err := NewBGEEmbedding(cfg)
	require.NoError(t, err)
	return server, svc
}

func TestBGEEmbedding_Embed(t *testing.T) {
	_, svc := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-m3", req.Model)

		// Answer out of order; the client must reorder by index.
		resp := map[string]any{"data": []map[string]any{
			{"index": 1, "embedding": []float32{0.3, 0.4}},
			{"index": 0, "embedding": []float32{0.1, 0.2}},
		}}
		json.NewEncoder(w).Encode(resp)
	})

	vecs, err := svc.Embed(context.Background(), []string{"第一页", "第二页"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vecs[0])
	assert.Equal(t, []float32{0.3, 0.4}, vecs[1])
}

func TestBGEEmbedding_SplitsLargeBatches(t *testing.T) {
	var calls int
	_, svc := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Input), embeddingBatchSize)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"index": i, "embedding": []float32{0.1}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	})

	texts := make([]string, embeddingBatchSize+1)
	for i := range texts {
		texts[i] = fmt.Sprintf("page %d", i)
	}

	vecs, err := svc.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, len(texts))
	assert.Equal(t, 2, calls)
}

func TestBGEEmbedding_APIError(t *testing.T) {
	_, svc := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded", "type": "server_error"},
		})
	})

	_, err := svc.EmbedQuery(context.Background(), "合同")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestBGEEmbedding_CountMismatch(t *testing.T) {
	_, svc := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	})

	_, err := svc.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestBGEEmbedding_EmptyInput(t *testing.T) {
	_, svc := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	vecs, err := svc.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
