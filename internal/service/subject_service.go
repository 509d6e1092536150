package service

import (
	"context"
	"strings"
	"time"

	"notes-rag-be/internal/dto"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/repository/contract"

	"github.com/google/uuid"
)

type ISubjectService interface {
	Create(ctx context.Context, ownerId uuid.UUID, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error)
	List(ctx context.Context, ownerId uuid.UUID) ([]*dto.SubjectResponse, error)
}

type subjectService struct {
	subjects contract.SubjectRepository
}

func NewSubjectService(subjects contract.SubjectRepository) ISubjectService {
	return &subjectService{subjects: subjects}
}

func (s *subjectService) Create(ctx context.Context, ownerId uuid.UUID, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error) {
	subject := &entity.Subject{
		Id:        uuid.New(),
		OwnerId:   ownerId,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, err
	}
	return toSubjectResponse(subject), nil
}

func (s *subjectService) List(ctx context.Context, ownerId uuid.UUID) ([]*dto.SubjectResponse, error) {
	subjects, err := s.subjects.FindAllByOwner(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.SubjectResponse, 0, len(subjects))
	for _, subject := range subjects {
		res = append(res, toSubjectResponse(subject))
	}
	return res, nil
}

func toSubjectResponse(s *entity.Subject) *dto.SubjectResponse {
	return &dto.SubjectResponse{Id: s.Id, Name: s.Name, CreatedAt: s.CreatedAt}
}
