// Package ocr turns note photos into text.
package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"notes-rag-be/pkg/llm"
	"notes-rag-be/pkg/rag"
)

// DetectedConfidence is reported for text read by a vision model, which
// gives no per-token scores.
const DetectedConfidence = 0.95

// MinConfidence is the lowest confidence accepted without flagging the note
// for a manual edit.
const MinConfidence = 0.5

const noTextMarker = "NO_TEXT"

type Extraction struct {
	Text       string
	Confidence float64
}

type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (*Extraction, error)
}

// Describer is a vision-capable model.
type Describer interface {
	Describe(ctx context.Context, prompt string, imagesBase64 []string, opts ...llm.Option) (string, error)
}

type VisionExtractor struct {
	describer Describer
	model     string
}

// NewVisionExtractor reads text with a vision model. An empty model uses the
// describer's default.
func NewVisionExtractor(describer Describer, model string) *VisionExtractor {
	return &VisionExtractor{describer: describer, model: model}
}

// ExtractText returns rag.ErrExtractionFailure when the model fails or finds
// no text. The partial Extraction is still returned in that case.
func (e *VisionExtractor) ExtractText(ctx context.Context, image []byte) (*Extraction, error) {
	empty := &Extraction{}
	if len(image) == 0 {
		return empty, fmt.Errorf("%w: empty image", rag.ErrExtractionFailure)
	}

	var opts []llm.Option
	opts = append(opts, llm.WithTemperature(0))
	if e.model != "" {
		opts = append(opts, llm.WithModel(e.model))
	}

	raw, err := e.describer.Describe(ctx, extractionPrompt, []string{base64.StdEncoding.EncodeToString(image)}, opts...)
	if err != nil {
		return empty, fmt.Errorf("%w: %v", rag.ErrExtractionFailure, err)
	}

	text := CleanText(raw)
	if text == "" || strings.EqualFold(text, noTextMarker) {
		return empty, fmt.Errorf("%w: no text found in image", rag.ErrExtractionFailure)
	}
	return &Extraction{Text: text, Confidence: DetectedConfidence}, nil
}

var chattyPrefixes = []string{
	"here is the extracted text:",
	"here's the extracted text:",
	"here is the text:",
	"extracted text:",
	"text:",
}

// CleanText strips wrappers vision models like to add around the transcript.
func CleanText(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	for _, p := range chattyPrefixes {
		if strings.HasPrefix(lower, p) {
			text = strings.TrimSpace(text[len(p):])
			break
		}
	}
	return text
}

const extractionPrompt = `The image is a photo of a handwritten or printed note.
Transcribe all of its text into clean, readable sentences.

Rules:
1. Fix obvious OCR-style mistakes and spelling errors
2. Preserve the original meaning; do not add information
3. Keep bullet points and lists as lists
4. If the image contains no readable text, reply with NO_TEXT
5. Return ONLY the transcribed text with no commentary`
