package mapper

import (
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/model"
)

type SubjectMapper struct{}

func NewSubjectMapper() *SubjectMapper {
	return &SubjectMapper{}
}

func (m *SubjectMapper) ToEntity(s *model.Subject) *entity.Subject {
	if s == nil {
		return nil
	}
	return &entity.Subject{Id: s.Id, OwnerId: s.OwnerId, Name: s.Name, CreatedAt: s.CreatedAt}
}

func (m *SubjectMapper) ToModel(s *entity.Subject) *model.Subject {
	if s == nil {
		return nil
	}
	return &model.Subject{Id: s.Id, OwnerId: s.OwnerId, Name: s.Name, CreatedAt: s.CreatedAt}
}

func (m *SubjectMapper) ToEntities(subjects []*model.Subject) []*entity.Subject {
	entities := make([]*entity.Subject, len(subjects))
	for i, s := range subjects {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
