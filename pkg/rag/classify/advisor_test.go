package classify

import (
	"context"
	"errors"
	"testing"

	"notes-rag-be/internal/constant"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/pkg/classifier"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClassifier struct {
	result *classifier.Result
	err    error
	calls  int
}

func (c *fixedClassifier) Classify(ctx context.Context, text string, labels []string) (*classifier.Result, error) {
	c.calls++
	return c.result, c.err
}

func TestClassify(t *testing.T) {
	subjects := []string{"Physics", "Cooking", "Machine Learning"}

	tests := []struct {
		name       string
		text       string
		candidates []string
		result     *classifier.Result
		err        error
		wantLabel  string
		wantConf   float64
		wantErr    bool
		wantCalls  int
	}{
		{"confident match", "F = m a", subjects, &classifier.Result{Label: "Physics", Confidence: 0.9}, nil, "Physics", 0.9, false, 1},
		{"low confidence", "F = m a", subjects, &classifier.Result{Label: "Physics", Confidence: 0.49}, nil, constant.SubjectUncategorized, 0, false, 1},
		{"at threshold", "F = m a", subjects, &classifier.Result{Label: "physics", Confidence: 0.5}, nil, "Physics", 0.5, false, 1},
		{"no candidates", "F = m a", nil, nil, nil, constant.SubjectUncategorized, 0, false, 0},
		{"blank text", "   ", subjects, nil, nil, constant.SubjectUncategorized, 0, false, 0},
		{"outside set", "poem", subjects, &classifier.Result{Label: "Poetry", Confidence: 0.95}, nil, constant.SubjectUncategorized, 0, false, 1},
		{"mapped label", "gradient descent", subjects, &classifier.Result{Label: "Machine Learning Basics", Confidence: 0.8}, nil, "Machine Learning", 0.8, false, 1},
		{"classifier error", "F = m a", subjects, nil, errors.New("boom"), constant.SubjectUncategorized, 0, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fixedClassifier{result: tt.result, err: tt.err}
			a := NewAdvisor(c, logger.NewNopLogger())
			noteId := uuid.New()

			got, err := a.Classify(context.Background(), noteId, tt.text, tt.candidates)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, got)
			assert.Equal(t, noteId, got.NoteId)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantCalls, c.calls)
		})
	}
}

func TestClosestCandidate(t *testing.T) {
	candidates := []string{"Organic Chemistry", "World History", "Math"}

	assert.Equal(t, "Math", ClosestCandidate("MATH", candidates))
	assert.Equal(t, "Math", ClosestCandidate("applied math", candidates))
	assert.Equal(t, "World History", ClosestCandidate("history", candidates))
	assert.Equal(t, "Organic Chemistry", ClosestCandidate("chemistry organic reactions", candidates))
	assert.Equal(t, "", ClosestCandidate("geography", candidates))
	assert.Equal(t, "", ClosestCandidate("", candidates))
}
