// Package qdrant stores note embeddings in Qdrant. Each vector dimension gets
// its own collection (<base>_<dim>) so a model switch never collides with
// the existing index.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadOwnerId       = "owner_id"
	payloadNoteId        = "note_id"
	payloadModelVersion  = "model_version"
	payloadDimension     = "dimension"
	payloadContentHash   = "content_hash"
	payloadNoteUpdatedAt = "note_updated_at"
	payloadComputedAt    = "computed_at"
	payloadStale         = "stale"
)

type NoteEmbeddingRepository struct {
	client *qdrant.Client
	base   string

	mu    sync.Mutex
	known map[string]bool // collections confirmed to exist
}

var _ contract.NoteEmbeddingRepository = (*NoteEmbeddingRepository)(nil)

// NewNoteEmbeddingRepository connects over gRPC. An HTTP port 6333 in rawURL
// is translated to the gRPC port 6334.
func NewNoteEmbeddingRepository(rawURL, baseCollection string) (*NoteEmbeddingRepository, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	port := 6334
	if p, err := strconv.Atoi(parsed.Port()); err == nil && p != 6333 {
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   parsed.Hostname(),
		Port:                   port,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &NoteEmbeddingRepository{
		client: client,
		base:   strings.ReplaceAll(baseCollection, ":", "_"),
		known:  make(map[string]bool),
	}, nil
}

func (r *NoteEmbeddingRepository) Close() error {
	return r.client.Close()
}

func (r *NoteEmbeddingRepository) collectionFor(dim int) string {
	return fmt.Sprintf("%s_%d", r.base, dim)
}

func (r *NoteEmbeddingRepository) ensureCollection(ctx context.Context, dim int) (string, error) {
	name := r.collectionFor(dim)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.known[name] {
		return name, nil
	}

	exists, err := r.client.CollectionExists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return "", fmt.Errorf("failed to create collection: %w", err)
		}
	}
	r.known[name] = true
	return name, nil
}

// collections lists every dimension-specific collection of this store.
func (r *NoteEmbeddingRepository) collections(ctx context.Context) ([]string, error) {
	all, err := r.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	out := make([]string, 0, len(all))
	for _, name := range all {
		if strings.HasPrefix(name, r.base+"_") {
			out = append(out, name)
		}
	}
	return out, nil
}

func ownerFilter(ownerId uuid.UUID) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadOwnerId, ownerId.String())},
	}
}

func buildPayload(rec *entity.EmbeddingRecord) map[string]*qdrant.Value {
	return qdrant.NewValueMap(map[string]any{
		payloadOwnerId:       rec.OwnerId.String(),
		payloadNoteId:        rec.NoteId.String(),
		payloadModelVersion:  rec.ModelVersion,
		payloadDimension:     int64(rec.Dimension()),
		payloadContentHash:   rec.ContentHash,
		payloadNoteUpdatedAt: rec.NoteUpdatedAt.UTC().Format(time.RFC3339Nano),
		payloadComputedAt:    rec.ComputedAt.UTC().Format(time.RFC3339Nano),
		payloadStale:         rec.Stale,
	})
}

type storedRecord struct {
	record    *entity.EmbeddingRecord
	dimension int
}

func payloadToRecord(payload map[string]*qdrant.Value) (*storedRecord, error) {
	noteId, err := uuid.Parse(payload[payloadNoteId].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("invalid note id in payload: %w", err)
	}
	ownerId, err := uuid.Parse(payload[payloadOwnerId].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("invalid owner id in payload: %w", err)
	}
	updatedAt, _ := time.Parse(time.RFC3339Nano, payload[payloadNoteUpdatedAt].GetStringValue())
	computedAt, _ := time.Parse(time.RFC3339Nano, payload[payloadComputedAt].GetStringValue())

	return &storedRecord{
		record: &entity.EmbeddingRecord{
			NoteId:        noteId,
			OwnerId:       ownerId,
			ModelVersion:  payload[payloadModelVersion].GetStringValue(),
			ContentHash:   payload[payloadContentHash].GetStringValue(),
			NoteUpdatedAt: updatedAt,
			ComputedAt:    computedAt,
			Stale:         payload[payloadStale].GetBoolValue(),
		},
		dimension: int(payload[payloadDimension].GetIntegerValue()),
	}, nil
}

func (r *NoteEmbeddingRepository) Upsert(ctx context.Context, rec *entity.EmbeddingRecord) error {
	target, err := r.ensureCollection(ctx, rec.Dimension())
	if err != nil {
		return err
	}

	_, err = r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: target,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(rec.NoteId.String()),
				Vectors: qdrant.NewVectors(rec.Vector...),
				Payload: buildPayload(rec),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	// One record per note: drop copies left in collections of other dimensions.
	names, err := r.collections(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == target {
			continue
		}
		if err := r.deletePoint(ctx, name, rec.NoteId); err != nil {
			return err
		}
	}
	return nil
}

func (r *NoteEmbeddingRepository) deletePoint(ctx context.Context, collection string, noteId uuid.UUID) error {
	_, err := r.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewID(noteId.String())),
	})
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}
	return nil
}

// find locates the note's point and the collection holding it.
func (r *NoteEmbeddingRepository) find(ctx context.Context, ownerId, noteId uuid.UUID) (*storedRecord, string, error) {
	names, err := r.collections(ctx)
	if err != nil {
		return nil, "", err
	}
	for _, name := range names {
		points, err := r.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: name,
			Ids:            []*qdrant.PointId{qdrant.NewID(noteId.String())},
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to get point: %w", err)
		}
		if len(points) == 0 {
			continue
		}
		stored, err := payloadToRecord(points[0].Payload)
		if err != nil {
			return nil, "", err
		}
		if stored.record.OwnerId != ownerId {
			return nil, "", nil
		}
		stored.record.Vector = denseVector(points[0].GetVectors())
		return stored, name, nil
	}
	return nil, "", nil
}

func (r *NoteEmbeddingRepository) Delete(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID) error {
	stored, name, err := r.find(ctx, ownerId, noteId)
	if err != nil || stored == nil {
		return err
	}
	return r.deletePoint(ctx, name, noteId)
}

func (r *NoteEmbeddingRepository) MarkStale(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID, noteUpdatedAt time.Time) error {
	return r.setPayload(ctx, ownerId, noteId, true, noteUpdatedAt)
}

func (r *NoteEmbeddingRepository) Touch(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID, noteUpdatedAt time.Time) error {
	return r.setPayload(ctx, ownerId, noteId, false, noteUpdatedAt)
}

// setPayload moves the note time forward and optionally flags the point stale.
func (r *NoteEmbeddingRepository) setPayload(ctx context.Context, ownerId, noteId uuid.UUID, stale bool, noteUpdatedAt time.Time) error {
	stored, name, err := r.find(ctx, ownerId, noteId)
	if err != nil || stored == nil {
		return err
	}

	fields := map[string]any{}
	if stale {
		fields[payloadStale] = true
	}
	if noteUpdatedAt.After(stored.record.NoteUpdatedAt) {
		fields[payloadNoteUpdatedAt] = noteUpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	if len(fields) == 0 {
		return nil
	}

	_, err = r.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Payload:        qdrant.NewValueMap(fields),
		PointsSelector: qdrant.NewPointsSelector(qdrant.NewID(noteId.String())),
	})
	if err != nil {
		return fmt.Errorf("failed to update point payload: %w", err)
	}
	return nil
}

func (r *NoteEmbeddingRepository) FindByNote(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID) (*entity.EmbeddingRecord, error) {
	stored, _, err := r.find(ctx, ownerId, noteId)
	if err != nil || stored == nil {
		return nil, err
	}
	return stored.record, nil
}

func (r *NoteEmbeddingRepository) scrollOwner(ctx context.Context, ownerId uuid.UUID) ([]*storedRecord, error) {
	names, err := r.collections(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*storedRecord, 0)
	for _, name := range names {
		count, err := r.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: name,
			Filter:         ownerFilter(ownerId),
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count points: %w", err)
		}
		if count == 0 {
			continue
		}

		points, err := r.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Filter:         ownerFilter(ownerId),
			Limit:          qdrant.PtrOf(uint32(count)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(false),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}
		for _, p := range points {
			stored, err := payloadToRecord(p.Payload)
			if err != nil {
				continue
			}
			out = append(out, stored)
		}
	}
	return out, nil
}

func (r *NoteEmbeddingRepository) FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.EmbeddingRecord, error) {
	stored, err := r.scrollOwner(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.EmbeddingRecord, len(stored))
	for i, s := range stored {
		out[i] = s.record
	}
	return out, nil
}

func (r *NoteEmbeddingRepository) ModelSignatures(ctx context.Context, ownerId uuid.UUID) ([]entity.ModelSignature, error) {
	stored, err := r.scrollOwner(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	recs := make([]*entity.EmbeddingRecord, len(stored))
	dims := make(map[*entity.EmbeddingRecord]int, len(stored))
	for i, st := range stored {
		recs[i] = st.record
		dims[st.record] = st.dimension
	}
	return entity.Signatures(recs, func(rec *entity.EmbeddingRecord) int { return dims[rec] }), nil
}

func searchFilter(ownerId uuid.UUID, filter entity.SearchFilter) *qdrant.Filter {
	f := ownerFilter(ownerId)
	if filter.ModelVersion != "" {
		f.Must = append(f.Must, qdrant.NewMatch(payloadModelVersion, filter.ModelVersion))
	}
	if filter.NoteIds != nil {
		f.Must = append(f.Must, qdrant.NewMatchKeywords(payloadNoteId, idStrings(filter.NoteIds)...))
	}
	if len(filter.ExcludeNoteIds) > 0 {
		f.MustNot = append(f.MustNot, qdrant.NewMatchKeywords(payloadNoteId, idStrings(filter.ExcludeNoteIds)...))
	}
	return f
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func denseVector(v *qdrant.VectorsOutput) []float32 {
	out := v.GetVector()
	if out == nil {
		return nil
	}
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData()
}

// Search over-fetches so that ties at the cut are broken by the shared
// ranking order instead of Qdrant's internal order.
func (r *NoteEmbeddingRepository) Search(ctx context.Context, ownerId uuid.UUID, vector []float32, limit int, minScore float64, filter entity.SearchFilter) ([]*entity.ScoredRecord, error) {
	if limit <= 0 || len(vector) == 0 || (filter.NoteIds != nil && len(filter.NoteIds) == 0) {
		return []*entity.ScoredRecord{}, nil
	}

	name := r.collectionFor(len(vector))
	exists, err := r.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return []*entity.ScoredRecord{}, nil
	}

	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Filter:         searchFilter(ownerId, filter),
		Limit:          qdrant.PtrOf(uint64(limit*2 + 10)),
		ScoreThreshold: qdrant.PtrOf(float32(2*minScore - 1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	scored := make([]*entity.ScoredRecord, 0, len(points))
	for _, p := range points {
		stored, err := payloadToRecord(p.Payload)
		if err != nil {
			continue
		}
		score := float64((p.Score + 1.0) / 2.0)
		if score < minScore || !filter.Matches(stored.record) {
			continue
		}
		scored = append(scored, &entity.ScoredRecord{Record: stored.record, Score: score})
	}

	slices.SortFunc(scored, entity.CompareScored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
