package study

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	studies StudyRepository
}

func NewService(studies StudyRepository) *Service {
	return &Service{studies: studies}
}

func (s *Service) GetStudy(ctx context.Context, id uuid.UUID) (*Study, error) {
	return s.studies.GetByID(ctx, id)
}

// Worklist returns studies matching the filter, most urgent first with
// oldest-received first within the same urgency. The repository owns the
// ordering so pagination slices the globally ordered worklist rather than
// re-sorting a single page.
func (s *Service) Worklist(ctx context.Context, filter ListFilter, limit, offset int) ([]*Study, int, error) {
	return s.studies.List(ctx, filter, limit, offset)
}
