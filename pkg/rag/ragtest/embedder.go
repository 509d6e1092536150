// Package ragtest provides deterministic stand-ins for the model-backed
// capabilities so RAG components can be tested without a model server.
package ragtest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"notes-rag-be/pkg/embedding"
)

var ErrEmbedderDown = errors.New("embedder unavailable")

// concepts folds related words onto one token so small vocabularies still
// land near each other.
var concepts = map[string]string{
	"cooking": "cooking", "cook": "cooking", "recipe": "cooking", "pasta": "cooking",
	"sauce": "cooking", "boil": "cooking", "dinner": "cooking", "food": "cooking",
	"physics": "physics", "gravity": "physics", "lecture": "physics", "force": "physics",
	"mass": "physics", "newton": "physics",
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "for": true, "on": true, "of": true, "and": true,
	"what": true, "did": true, "i": true, "write": true, "about": true, "with": true,
	"to": true, "is": true, "in": true, "my": true,
}

// Embedder hashes a bag of words into Dim buckets and normalizes the result.
type Embedder struct {
	Model string
	Dim   int

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	gates map[string]chan struct{}
}

func NewEmbedder(model string, dim int) *Embedder {
	return &Embedder{
		Model: model,
		Dim:   dim,
		calls: make(map[string]int),
		fail:  make(map[string]error),
		gates: make(map[string]chan struct{}),
	}
}

// FailOn makes Embed return err for text. A nil err clears the failure.
func (e *Embedder) FailOn(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.fail, text)
		return
	}
	e.fail[text] = err
}

// Hold blocks Embed calls for text until the returned release func runs.
func (e *Embedder) Hold(text string) (release func()) {
	gate := make(chan struct{})
	e.mu.Lock()
	e.gates[text] = gate
	e.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// SetModel switches the reported model version, simulating an upgrade.
func (e *Embedder) SetModel(model string, dim int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Model = model
	e.Dim = dim
}

// Calls reports how many times text was embedded.
func (e *Embedder) Calls(text string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[text]
}

func (e *Embedder) TotalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, n := range e.calls {
		total += n
	}
	return total
}

func (e *Embedder) Embed(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	e.mu.Lock()
	e.calls[text]++
	gate := e.gates[text]
	failure := e.fail[text]
	model, dim := e.Model, e.Dim
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}

	return &embedding.EmbeddingResponse{
		Values:       embedding.NormalizeVector(Vectorize(text, dim)),
		ModelVersion: model,
	}, nil
}

// Vectorize is the raw bag-of-words projection used by Embedder.
func Vectorize(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for _, token := range tokens(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32()%uint32(dim))]++
	}
	return vec
}

func tokens(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(words))
	for _, w := range words {
		if stopwords[w] {
			continue
		}
		if c, ok := concepts[w]; ok {
			w = c
		}
		out = append(out, w)
	}
	return out
}
