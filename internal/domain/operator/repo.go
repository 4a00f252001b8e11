package operator

import (
	"context"

	"github.com/google/uuid"
)

type OperatorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Operator, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Operator, int, error)
}

// ListFilter narrows an operator listing. Role filters on a single role
// tag; ParentID scopes the listing to operators created under a parent.
type ListFilter struct {
	Role     string
	ParentID *uuid.UUID
	Active   *bool
}
