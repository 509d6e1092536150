// Package classify suggests a subject for a note. Suggestions are advisory;
// the advisor never writes notes.
package classify

import (
	"context"
	"strings"

	"notes-rag-be/internal/constant"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/pkg/classifier"

	"github.com/google/uuid"
)

const module = "ClassificationAdvisor"

// MinConfidence is the lowest classifier confidence that yields a subject.
const MinConfidence = 0.5

type Advisor struct {
	classifier classifier.Classifier
	logger     logger.ILogger
}

func NewAdvisor(c classifier.Classifier, log logger.ILogger) *Advisor {
	return &Advisor{classifier: c, logger: log}
}

// Classify returns a suggestion whose label is one of candidates or
// Uncategorized. A classifier error is returned alongside an Uncategorized
// suggestion so callers can log it and carry on.
func (a *Advisor) Classify(ctx context.Context, noteId uuid.UUID, text string, candidates []string) (*entity.SubjectSuggestion, error) {
	suggestion := uncategorized(noteId)
	if strings.TrimSpace(text) == "" || len(candidates) == 0 {
		return suggestion, nil
	}

	res, err := a.classifier.Classify(ctx, text, candidates)
	if err != nil {
		a.logger.Warn(module, "Classifier failed", map[string]interface{}{
			"note_id": noteId.String(),
			"error":   err.Error(),
		})
		return suggestion, err
	}
	if res == nil || res.Confidence < MinConfidence {
		return suggestion, nil
	}

	label := ClosestCandidate(res.Label, candidates)
	if label == "" {
		a.logger.Debug(module, "Label outside candidate set rejected", map[string]interface{}{
			"note_id": noteId.String(),
			"label":   res.Label,
		})
		return suggestion, nil
	}
	if label != res.Label {
		a.logger.Info(module, "Mapped label to candidate", map[string]interface{}{
			"label":     res.Label,
			"candidate": label,
		})
	}

	suggestion.Label = label
	suggestion.Confidence = res.Confidence
	return suggestion, nil
}

// ClosestCandidate maps label onto candidates: case-insensitive equality
// first, then containment either way, then at least half the words shared.
// It returns "" when nothing matches.
func ClosestCandidate(label string, candidates []string) string {
	want := strings.ToLower(strings.TrimSpace(label))
	if want == "" {
		return ""
	}

	for _, c := range candidates {
		if strings.ToLower(strings.TrimSpace(c)) == want {
			return c
		}
	}
	for _, c := range candidates {
		if lc := strings.ToLower(strings.TrimSpace(c)); lc != "" && strings.Contains(want, lc) {
			return c
		}
	}
	for _, c := range candidates {
		if lc := strings.ToLower(strings.TrimSpace(c)); lc != "" && strings.Contains(lc, want) {
			return c
		}
	}

	wantWords := wordSet(want)
	best, bestScore := "", 0.0
	for _, c := range candidates {
		words := wordSet(strings.ToLower(c))
		common := 0
		for w := range wantWords {
			if _, ok := words[w]; ok {
				common++
			}
		}
		if common == 0 {
			continue
		}
		score := float64(common) / float64(max(len(wantWords), len(words)))
		if score >= 0.5 && score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func uncategorized(noteId uuid.UUID) *entity.SubjectSuggestion {
	return &entity.SubjectSuggestion{
		NoteId: noteId,
		Label:  constant.SubjectUncategorized,
	}
}
