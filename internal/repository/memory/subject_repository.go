package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

type SubjectRepository struct {
	mu    sync.Mutex // serializes the name uniqueness check
	cache *cache.Cache
}

func NewSubjectRepository() *SubjectRepository {
	return &SubjectRepository{cache: cache.New(cache.NoExpiration, 0)}
}

var _ contract.SubjectRepository = (*SubjectRepository)(nil)

func (r *SubjectRepository) Create(ctx context.Context, subject *entity.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subject.Id == uuid.Nil {
		subject.Id = uuid.New()
	}
	for _, item := range r.cache.Items() {
		if s := item.Object.(*entity.Subject); s.OwnerId == subject.OwnerId && s.Name == subject.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *subject
	r.cache.Set(subject.Id.String(), &cp, cache.NoExpiration)
	return nil
}

func (r *SubjectRepository) FindByID(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*entity.Subject, error) {
	x, found := r.cache.Get(id.String())
	if !found {
		return nil, nil
	}
	s := x.(*entity.Subject)
	if s.OwnerId != ownerId {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *SubjectRepository) FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.Subject, error) {
	subjects := make([]*entity.Subject, 0)
	for _, item := range r.cache.Items() {
		s := item.Object.(*entity.Subject)
		if s.OwnerId == ownerId {
			cp := *s
			subjects = append(subjects, &cp)
		}
	}
	slices.SortFunc(subjects, func(a, b *entity.Subject) int {
		return strings.Compare(a.Name, b.Name)
	})
	return subjects, nil
}
