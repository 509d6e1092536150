// Package retriever ranks an owner's notes against a question.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/pkg/embedding"
	"notes-rag-be/pkg/rag"
	"notes-rag-be/pkg/rag/indexer"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "Retriever"

// Realigner rebuilds an owner's index for a new embedding model.
type Realigner interface {
	Realign(ctx context.Context, ownerId uuid.UUID, modelVersion string) (*indexer.Report, error)
}

type Retriever struct {
	records   contract.NoteEmbeddingRepository
	embedder  embedding.EmbeddingProvider
	realigner Realigner
	queries   *cache.Cache
	realigned *cache.Cache // owner|model -> struct{}, set after a Realign
	logger    logger.ILogger
	tracer    trace.Tracer
}

func New(
	records contract.NoteEmbeddingRepository,
	embedder embedding.EmbeddingProvider,
	realigner Realigner,
	log logger.ILogger,
	cacheTTL time.Duration,
) *Retriever {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Retriever{
		records:   records,
		embedder:  embedder,
		realigner: realigner,
		queries:   cache.New(cacheTTL, 2*cacheTTL),
		realigned: cache.New(cacheTTL, 2*cacheTTL),
		logger:    log,
		tracer:    otel.Tracer("notes-rag-be/retriever"),
	}
}

// Query returns at most k hits for the owner, best first, with score >= minScore.
// Equal scores are ordered by note updatedAt desc then note id asc. An index
// built with another embedding model yields rag.ErrModelVersionMismatch after
// the owner has been realigned.
func (r *Retriever) Query(ctx context.Context, ownerId uuid.UUID, queryText string, k int, minScore float64) ([]entity.RetrievalHit, error) {
	return r.query(ctx, ownerId, queryText, k, minScore, nil)
}

// QueryWithin is Query restricted to noteIds. An empty list yields no hits.
func (r *Retriever) QueryWithin(ctx context.Context, ownerId uuid.UUID, noteIds []uuid.UUID, queryText string, k int, minScore float64) ([]entity.RetrievalHit, error) {
	if noteIds == nil {
		noteIds = []uuid.UUID{}
	}
	return r.query(ctx, ownerId, queryText, k, minScore, noteIds)
}

func (r *Retriever) query(ctx context.Context, ownerId uuid.UUID, queryText string, k int, minScore float64, noteIds []uuid.UUID) ([]entity.RetrievalHit, error) {
	ctx, span := r.tracer.Start(ctx, "Retriever.Query", trace.WithAttributes(
		attribute.String("owner_id", ownerId.String()),
		attribute.Int("k", k),
		attribute.Float64("min_score", minScore),
		attribute.Bool("scoped", noteIds != nil),
	))
	defer span.End()

	if k <= 0 || strings.TrimSpace(queryText) == "" {
		return []entity.RetrievalHit{}, nil
	}

	signatures, err := r.records.ModelSignatures(ctx, ownerId)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read index signatures: %w", err)
	}
	if len(signatures) == 0 {
		return []entity.RetrievalHit{}, nil
	}

	query, fromCache, err := r.embedQuery(ctx, queryText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query embedding failed")
		return nil, err
	}

	if !r.compatible(ownerId, signatures, query) && fromCache {
		r.queries.Delete(queryText)
		if query, _, err = r.embedQuery(ctx, queryText); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	if !r.compatible(ownerId, signatures, query) {
		r.handleMismatch(ctx, ownerId, query, signatures)
		span.SetStatus(codes.Error, "model version mismatch")
		return nil, rag.ErrModelVersionMismatch
	}

	hits, err := r.search(ctx, ownerId, query.Values, k, minScore, entity.SearchFilter{
		ModelVersion: query.ModelVersion,
		NoteIds:      noteIds,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("hits", len(hits)))
	r.logger.Debug(module, "Query ranked", map[string]interface{}{
		"owner_id": ownerId.String(),
		"hits":     len(hits),
	})
	return hits, nil
}

// Similar ranks the owner's other notes against the stored vector of noteId.
// A note without a record has no neighbours yet.
func (r *Retriever) Similar(ctx context.Context, ownerId, noteId uuid.UUID, k int, minScore float64) ([]entity.RetrievalHit, error) {
	ctx, span := r.tracer.Start(ctx, "Retriever.Similar", trace.WithAttributes(
		attribute.String("owner_id", ownerId.String()),
		attribute.String("note_id", noteId.String()),
	))
	defer span.End()

	if k <= 0 {
		return []entity.RetrievalHit{}, nil
	}
	rec, err := r.records.FindByNote(ctx, ownerId, noteId)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load embedding record: %w", err)
	}
	if rec == nil || len(rec.Vector) == 0 {
		return []entity.RetrievalHit{}, nil
	}

	return r.search(ctx, ownerId, rec.Vector, k, minScore, entity.SearchFilter{
		ModelVersion:   rec.ModelVersion,
		ExcludeNoteIds: []uuid.UUID{noteId},
	})
}

func (r *Retriever) search(ctx context.Context, ownerId uuid.UUID, vector []float32, k int, minScore float64, filter entity.SearchFilter) ([]entity.RetrievalHit, error) {
	scored, err := r.records.Search(ctx, ownerId, vector, k, minScore, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits := []entity.RetrievalHit{}
	for _, s := range scored {
		if s.Record.OwnerId != ownerId {
			r.logger.Error(module, "Vector store returned a foreign record", map[string]interface{}{
				"owner_id": ownerId.String(),
				"note_id":  s.Record.NoteId.String(),
			})
			continue
		}
		hits = append(hits, entity.RetrievalHit{
			NoteId: s.Record.NoteId,
			Score:  s.Score,
			Rank:   len(hits) + 1,
		})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

func (r *Retriever) embedQuery(ctx context.Context, text string) (*embedding.EmbeddingResponse, bool, error) {
	if cached, ok := r.queries.Get(text); ok {
		return cached.(*embedding.EmbeddingResponse), true, nil
	}

	res, err := r.embedder.Embed(ctx, text, embedding.TaskRetrievalQuery)
	if err == nil && (res == nil || len(res.Values) == 0) {
		err = fmt.Errorf("empty embedding vector")
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: query: %v", rag.ErrEmbeddingFailure, err)
	}

	res = &embedding.EmbeddingResponse{
		Values:       embedding.NormalizeVector(res.Values),
		ModelVersion: res.ModelVersion,
	}
	r.queries.SetDefault(text, res)
	return res, false, nil
}

func realignKey(ownerId uuid.UUID, model string) string {
	return ownerId.String() + "|" + model
}

// compatible reports whether every indexed signature matches the query. Once
// the owner has been realigned to the query's model, signatures whose records
// are all stale are leftovers of failed re-embeds and no longer block queries;
// the search itself only reads records of the query's model.
func (r *Retriever) compatible(ownerId uuid.UUID, signatures []entity.ModelSignature, query *embedding.EmbeddingResponse) bool {
	_, realigned := r.realigned.Get(realignKey(ownerId, query.ModelVersion))
	for _, sig := range signatures {
		if sig.ModelVersion == query.ModelVersion && sig.Dimension == len(query.Values) {
			continue
		}
		if realigned && sig.Stale {
			continue
		}
		return false
	}
	return true
}

func (r *Retriever) handleMismatch(ctx context.Context, ownerId uuid.UUID, query *embedding.EmbeddingResponse, signatures []entity.ModelSignature) {
	r.queries.Flush()
	r.logger.Warn(module, "Embedding model mismatch, realigning owner", map[string]interface{}{
		"owner_id":      ownerId.String(),
		"query_model":   query.ModelVersion,
		"query_dim":     len(query.Values),
		"indexed_count": len(signatures),
	})

	if r.realigner == nil {
		return
	}
	report, err := r.realigner.Realign(ctx, ownerId, query.ModelVersion)
	if err != nil {
		r.logger.Error(module, "Realign failed", map[string]interface{}{
			"owner_id": ownerId.String(),
			"error":    err.Error(),
		})
		return
	}
	r.realigned.SetDefault(realignKey(ownerId, query.ModelVersion), struct{}{})
	if report != nil && report.Failed > 0 {
		r.logger.Warn(module, "Realign left stale records behind", map[string]interface{}{
			"owner_id": ownerId.String(),
			"failed":   report.Failed,
		})
	}
}
