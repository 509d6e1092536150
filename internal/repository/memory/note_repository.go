// Package memory holds process-local repositories, used by tests and by the
// "memory" storage and vector store modes.
package memory

import (
	"context"
	"slices"
	"sync"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

type NoteRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewNoteRepository() *NoteRepository {
	return &NoteRepository{cache: cache.New(cache.NoExpiration, 0)}
}

var _ contract.NoteRepository = (*NoteRepository)(nil)

func (r *NoteRepository) Create(ctx context.Context, note *entity.Note) error {
	if note.Id == uuid.Nil {
		note.Id = uuid.New()
	}
	cp := *note
	r.cache.Set(note.Id.String(), &cp, cache.NoExpiration)
	return nil
}

func (r *NoteRepository) Update(ctx context.Context, note *entity.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.get(note.Id)
	if !ok || current.OwnerId != note.OwnerId {
		return gorm.ErrRecordNotFound
	}
	cp := *note
	cp.CreatedAt = current.CreatedAt
	r.cache.Set(note.Id.String(), &cp, cache.NoExpiration)
	return nil
}

func (r *NoteRepository) Delete(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.get(id); ok && current.OwnerId == ownerId {
		r.cache.Delete(id.String())
	}
	return nil
}

func (r *NoteRepository) FindByID(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*entity.Note, error) {
	current, ok := r.get(id)
	if !ok || current.OwnerId != ownerId {
		return nil, nil
	}
	cp := *current
	return &cp, nil
}

func (r *NoteRepository) FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.Note, error) {
	return r.collect(func(n *entity.Note) bool { return n.OwnerId == ownerId }), nil
}

func (r *NoteRepository) FindAllBySubject(ctx context.Context, ownerId uuid.UUID, subjectId uuid.UUID) ([]*entity.Note, error) {
	return r.collect(func(n *entity.Note) bool {
		return n.OwnerId == ownerId && n.SubjectId != nil && *n.SubjectId == subjectId
	}), nil
}

// collect returns copies of the matching notes, newest first.
func (r *NoteRepository) collect(match func(n *entity.Note) bool) []*entity.Note {
	notes := make([]*entity.Note, 0)
	for _, item := range r.cache.Items() {
		n := item.Object.(*entity.Note)
		if match(n) {
			cp := *n
			notes = append(notes, &cp)
		}
	}
	slices.SortFunc(notes, func(a, b *entity.Note) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return notes
}

func (r *NoteRepository) get(id uuid.UUID) (*entity.Note, bool) {
	if x, found := r.cache.Get(id.String()); found {
		return x.(*entity.Note), true
	}
	return nil, false
}
