package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"notes-rag-be/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *JinaProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewJinaProvider("secret")
	p.endpoint = srv.URL
	return p
}

func TestEmbedSendsRetrievalTask(t *testing.T) {
	var got embeddingRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"jina-embeddings-v3","data":[{"index":0,"embedding":[0,2]}]}`))
	})

	res, err := p.Embed(context.Background(), "photosynthesis", embedding.TaskRetrievalDocument)

	require.NoError(t, err)
	assert.Equal(t, "retrieval.passage", got.Task)
	assert.Equal(t, []string{"photosynthesis"}, got.Input)
	assert.Equal(t, []float32{0, 1}, res.Values)
	assert.Equal(t, "jina/jina-embeddings-v3", res.ModelVersion)
}

func TestEmbedSurfacesApiDetail(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	})

	_, err := p.Embed(context.Background(), "x", embedding.TaskRetrievalQuery)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}
