package implementation

import (
	"context"
	"errors"
	"time"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/mapper"
	"notes-rag-be/internal/model"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/internal/repository/scope"
	"notes-rag-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NoteEmbeddingRepositoryImpl stores embeddings in postgres via pgvector.
type NoteEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.NoteEmbeddingMapper
}

func NewNoteEmbeddingRepository(db *gorm.DB) contract.NoteEmbeddingRepository {
	return &NoteEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewNoteEmbeddingMapper(),
	}
}

func (r *NoteEmbeddingRepositoryImpl) Upsert(ctx context.Context, rec *entity.EmbeddingRecord) error {
	m := r.mapper.ToModel(rec)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "note_id"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

func (r *NoteEmbeddingRepositoryImpl) Delete(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID) error {
	return applySpecifications(r.db.WithContext(ctx),
		specification.EmbeddingOfNote{NoteID: noteId},
		specification.OwnedBy{OwnerID: ownerId},
	).Delete(&model.NoteEmbedding{}).Error
}

func (r *NoteEmbeddingRepositoryImpl) MarkStale(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID, noteUpdatedAt time.Time) error {
	return r.update(ctx, ownerId, noteId, map[string]interface{}{
		"stale":           true,
		"note_updated_at": gorm.Expr("GREATEST(note_updated_at, ?)", noteUpdatedAt),
	})
}

func (r *NoteEmbeddingRepositoryImpl) Touch(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID, noteUpdatedAt time.Time) error {
	return r.update(ctx, ownerId, noteId, map[string]interface{}{
		"note_updated_at": gorm.Expr("GREATEST(note_updated_at, ?)", noteUpdatedAt),
	})
}

func (r *NoteEmbeddingRepositoryImpl) update(ctx context.Context, ownerId, noteId uuid.UUID, values map[string]interface{}) error {
	return applySpecifications(r.db.WithContext(ctx).Model(&model.NoteEmbedding{}),
		specification.EmbeddingOfNote{NoteID: noteId},
		specification.OwnedBy{OwnerID: ownerId},
	).Updates(values).Error
}

func (r *NoteEmbeddingRepositoryImpl) FindByNote(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID) (*entity.EmbeddingRecord, error) {
	var m model.NoteEmbedding
	query := applySpecifications(r.db.WithContext(ctx),
		specification.EmbeddingOfNote{NoteID: noteId},
		specification.OwnedBy{OwnerID: ownerId},
	)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

// FindAllByOwner skips the vector column; reconcile only needs metadata.
func (r *NoteEmbeddingRepositoryImpl) FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.EmbeddingRecord, error) {
	var models []*model.NoteEmbedding
	query := applySpecifications(r.db.WithContext(ctx).Omit("embedding"),
		specification.OwnedBy{OwnerID: ownerId},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *NoteEmbeddingRepositoryImpl) ModelSignatures(ctx context.Context, ownerId uuid.UUID) ([]entity.ModelSignature, error) {
	var rows []struct {
		ModelVersion string
		Dimension    int
		Stale        bool
	}
	err := applySpecifications(r.db.WithContext(ctx).Model(&model.NoteEmbedding{}),
		specification.OwnedBy{OwnerID: ownerId},
	).
		Select("model_version, dimension, bool_and(stale) AS stale").
		Group("model_version, dimension").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	signatures := make([]entity.ModelSignature, len(rows))
	for i, row := range rows {
		signatures[i] = entity.ModelSignature{ModelVersion: row.ModelVersion, Dimension: row.Dimension, Stale: row.Stale}
	}
	return signatures, nil
}

// Search scores with (2 - cosine_distance) / 2, which is (1 + cos) / 2.
// Rows with another dimension are excluded since pgvector cannot compare them.
func (r *NoteEmbeddingRepositoryImpl) Search(ctx context.Context, ownerId uuid.UUID, vector []float32, limit int, minScore float64, filter entity.SearchFilter) ([]*entity.ScoredRecord, error) {
	if limit <= 0 || len(vector) == 0 || (filter.NoteIds != nil && len(filter.NoteIds) == 0) {
		return []*entity.ScoredRecord{}, nil
	}

	specs := []specification.Specification{
		specification.OwnedBy{OwnerID: ownerId},
		specification.Filter("dimension", len(vector)),
		specification.EmbeddingsExcept{NoteIDs: filter.ExcludeNoteIds},
	}
	if filter.ModelVersion != "" {
		specs = append(specs, specification.Filter("model_version", filter.ModelVersion))
	}
	if filter.NoteIds != nil {
		specs = append(specs, specification.EmbeddingsOfNotes{NoteIDs: filter.NoteIds})
	}

	queryVector := pgvector.NewVector(vector)
	var rows []*model.NoteEmbeddingScored

	err := applySpecifications(r.db.WithContext(ctx).Table("note_embeddings"), specs...).
		Select("note_embeddings.*, (2 - (embedding <=> ?)) / 2 AS score", queryVector).
		Where("(2 - (embedding <=> ?)) / 2 >= ?", queryVector, minScore).
		Scopes(scope.OrderByRetrievalRank).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return r.mapper.ToScored(rows), nil
}
