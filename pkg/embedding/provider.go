package embedding

import "context"

const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// EmbeddingProvider defines the interface for generating text embeddings.
// Indexing and querying must go through the same provider so the returned
// ModelVersion values are comparable.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

// EmbeddingResponse carries a unit-length vector and the model that produced it.
type EmbeddingResponse struct {
	Values       []float32
	ModelVersion string
}
