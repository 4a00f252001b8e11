package operator

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	operators OperatorRepository
}

func NewService(operators OperatorRepository) *Service {
	return &Service{operators: operators}
}

func (s *Service) GetOperator(ctx context.Context, id uuid.UUID) (*Operator, error) {
	return s.operators.GetByID(ctx, id)
}

// ListOperators returns operators matching the filter. Group operators only
// see operators created under them, which callers express through
// filter.ParentID; that scoping affects visibility only, never locking.
func (s *Service) ListOperators(ctx context.Context, filter ListFilter, limit, offset int) ([]*Operator, int, error) {
	return s.operators.List(ctx, filter, limit, offset)
}

// ResolveCapabilities returns the stored operator's derived capability set.
func (s *Service) ResolveCapabilities(ctx context.Context, id uuid.UUID) (CapabilitySet, error) {
	o, err := s.operators.GetByID(ctx, id)
	if err != nil {
		return CapabilitySet{}, err
	}
	return o.Capabilities(), nil
}
