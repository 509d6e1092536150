package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"notes-rag-be/pkg/llm"
	"notes-rag-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVision struct {
	reply  string
	err    error
	images []string
	model  string
}

func (f *fakeVision) Describe(ctx context.Context, prompt string, imagesBase64 []string, opts ...llm.Option) (string, error) {
	f.images = imagesBase64
	o := &llm.Options{}
	for _, opt := range opts {
		opt(o)
	}
	f.model = o.Model
	return f.reply, f.err
}

func TestExtractText(t *testing.T) {
	v := &fakeVision{reply: "Here is the extracted text:\nNewton's second law: F = ma"}
	e := NewVisionExtractor(v, "llava")

	got, err := e.ExtractText(context.Background(), []byte{0x89, 0x50})
	require.NoError(t, err)
	assert.Equal(t, "Newton's second law: F = ma", got.Text)
	assert.Equal(t, DetectedConfidence, got.Confidence)
	assert.Equal(t, []string{base64.StdEncoding.EncodeToString([]byte{0x89, 0x50})}, v.images)
	assert.Equal(t, "llava", v.model)
}

func TestExtractTextFailures(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		v     *fakeVision
	}{
		{"empty image", nil, &fakeVision{reply: "text"}},
		{"model error", []byte{1}, &fakeVision{err: errors.New("connection refused")}},
		{"no text", []byte{1}, &fakeVision{reply: "NO_TEXT"}},
		{"blank", []byte{1}, &fakeVision{reply: "```\n```"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVisionExtractor(tt.v, "").ExtractText(context.Background(), tt.image)
			assert.ErrorIs(t, err, rag.ErrExtractionFailure)
			require.NotNil(t, got)
			assert.Zero(t, got.Confidence)
		})
	}
}
