package entity

import (
	"bytes"
	"slices"
	"time"

	"github.com/google/uuid"
)

// EmbeddingRecord is the single vector representation kept for a live note.
type EmbeddingRecord struct {
	NoteId        uuid.UUID
	OwnerId       uuid.UUID
	Vector        []float32
	ModelVersion  string
	ContentHash   string
	NoteUpdatedAt time.Time
	ComputedAt    time.Time
	Stale         bool
}

// Dimension returns the vector length.
func (r *EmbeddingRecord) Dimension() int {
	return len(r.Vector)
}

// ModelSignature identifies the embedding space a set of vectors lives in.
// Stale is set when every record in that space is stale.
type ModelSignature struct {
	ModelVersion string
	Dimension    int
	Stale        bool
}

// Signatures groups records by (model, dimension) in first-seen order. dim
// reports a record's dimension for stores that do not load vectors.
func Signatures(recs []*EmbeddingRecord, dim func(*EmbeddingRecord) int) []ModelSignature {
	index := make(map[ModelSignature]int)
	out := make([]ModelSignature, 0)
	for _, rec := range recs {
		key := ModelSignature{ModelVersion: rec.ModelVersion, Dimension: dim(rec)}
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, ModelSignature{ModelVersion: key.ModelVersion, Dimension: key.Dimension, Stale: true})
			i = len(out) - 1
		}
		out[i].Stale = out[i].Stale && rec.Stale
	}
	return out
}

// SearchFilter narrows a vector search. The zero value matches every record
// of the owner.
type SearchFilter struct {
	ModelVersion   string
	NoteIds        []uuid.UUID // nil means no restriction; empty matches nothing
	ExcludeNoteIds []uuid.UUID
}

// Matches reports whether rec passes the filter.
func (f SearchFilter) Matches(rec *EmbeddingRecord) bool {
	if f.ModelVersion != "" && rec.ModelVersion != f.ModelVersion {
		return false
	}
	if f.NoteIds != nil && !slices.Contains(f.NoteIds, rec.NoteId) {
		return false
	}
	return !slices.Contains(f.ExcludeNoteIds, rec.NoteId)
}

// ScoredRecord wraps an EmbeddingRecord with its similarity score.
type ScoredRecord struct {
	Record *EmbeddingRecord
	Score  float64 // 0.0 to 1.0 (1.0 = identical)
}

// CompareScored orders by score desc, then note updatedAt desc, then note id
// asc. Every vector store ranks with it so results are deterministic.
func CompareScored(a, b *ScoredRecord) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	}
	if !a.Record.NoteUpdatedAt.Equal(b.Record.NoteUpdatedAt) {
		if a.Record.NoteUpdatedAt.After(b.Record.NoteUpdatedAt) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.Record.NoteId[:], b.Record.NoteId[:])
}

// RetrievalHit is the ranked output of a retrieval query.
type RetrievalHit struct {
	NoteId uuid.UUID `json:"note_id"`
	Score  float64   `json:"score"`
	Rank   int       `json:"rank"`
}
