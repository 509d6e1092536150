// Package jina embeds through the hosted Jina AI embeddings API.
package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"notes-rag-be/pkg/embedding"
)

const (
	defaultEndpoint = "https://api.jina.ai/v1/embeddings"
	defaultModel    = "jina-embeddings-v3"
)

// v3 adapts its output per task, so documents and queries are sent with
// their retrieval role.
var tasks = map[string]string{
	embedding.TaskRetrievalDocument: "retrieval.passage",
	embedding.TaskRetrievalQuery:    "retrieval.query",
}

type JinaProvider struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

var _ embedding.EmbeddingProvider = &JinaProvider{}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Task       string   `json:"task,omitempty"`
	Normalized bool     `json:"normalized"`
	Input      []string `json:"input"`
}

type embeddingResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

func NewJinaProvider(apiKey string) *JinaProvider {
	return &JinaProvider{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		model:    defaultModel,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *JinaProvider) Embed(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	body, err := json.Marshal(embeddingRequest{
		Model:      p.model,
		Task:       tasks[taskType],
		Normalized: true,
		Input:      []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal jina request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create jina request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jina request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read jina response: %w", err)
	}

	var out embeddingResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(raw, &out)
		if out.Detail != "" {
			return nil, fmt.Errorf("jina api error (status %d): %s", resp.StatusCode, out.Detail)
		}
		return nil, fmt.Errorf("jina api error (status %d): %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode jina response: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding from jina for model %s", p.model)
	}

	return &embedding.EmbeddingResponse{
		Values:       embedding.NormalizeVector(out.Data[0].Embedding),
		ModelVersion: "jina/" + p.model,
	}, nil
}
