package study

import (
	"context"

	"github.com/google/uuid"
)

type StudyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Study, error)
	// List returns studies matching the filter, most urgent first and
	// oldest-received first within the same urgency. Limit and offset
	// slice that global order, so every page is worklist-ordered.
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Study, int, error)
}

// ListFilter narrows a worklist query.
type ListFilter struct {
	Status     string
	Priority   Priority
	Modality   string
	AssignedTo *uuid.UUID
}
