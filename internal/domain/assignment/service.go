package assignment

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	assignments AssignmentRepository
}

func NewService(assignments AssignmentRepository) *Service {
	return &Service{assignments: assignments}
}

// CurrentAssignees is the single owner of current-assignee derivation:
// the members of the most recent reconciliation round, with unassignment
// markers filtered out. No other component re-derives this.
func (s *Service) CurrentAssignees(ctx context.Context, studyID uuid.UUID) (map[uuid.UUID]bool, error) {
	cohort, err := s.assignments.CurrentCohort(ctx, studyID)
	if err != nil {
		return nil, err
	}
	current := make(map[uuid.UUID]bool, len(cohort))
	for _, a := range cohort {
		if a.Role == RoleUnassigned || a.AssignedTo == nil {
			continue
		}
		current[*a.AssignedTo] = true
	}
	return current, nil
}

// Reconcile computes the delta between the current cohort and the desired
// assignee set and, unless the delta is empty, writes the desired set as
// one new cohort sharing a single timestamp. An empty desired set is an
// explicit unassignment, not a no-op; callers confirm it before submitting.
// Either the whole round commits or none of it does.
func (s *Service) Reconcile(ctx context.Context, studyID uuid.UUID, desired []uuid.UUID, role string, priority, notes string, actor uuid.UUID) (*Result, error) {
	if role != RoleRadiologist && role != RoleVerifier {
		return nil, ErrInvalidRole
	}

	current, err := s.CurrentAssignees(ctx, studyID)
	if err != nil {
		return nil, err
	}

	desiredSet := make(map[uuid.UUID]bool, len(desired))
	for _, id := range desired {
		desiredSet[id] = true
	}

	delta := diff(current, desiredSet)

	if len(delta.Added) == 0 && len(delta.Removed) == 0 {
		// Same set submitted twice: no new round is written and callers
		// short-circuit on the empty delta.
		return &Result{Delta: delta, NoOp: true}, nil
	}

	round := buildRound(studyID, desiredSet, role, priority, notes, actor)
	if err := s.assignments.InsertRound(ctx, round); err != nil {
		return nil, err
	}

	return &Result{Delta: delta, AssignedAt: round[0].AssignedAt}, nil
}

// History returns the append-only assignment history for a study.
func (s *Service) History(ctx context.Context, studyID uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	return s.assignments.ListByStudy(ctx, studyID, limit, offset)
}

func diff(current, desired map[uuid.UUID]bool) Delta {
	var d Delta
	for id := range desired {
		if current[id] {
			d.Unchanged = append(d.Unchanged, id)
		} else {
			d.Added = append(d.Added, id)
		}
	}
	for id := range current {
		if !desired[id] {
			d.Removed = append(d.Removed, id)
		}
	}
	sortIDs(d.Added)
	sortIDs(d.Removed)
	sortIDs(d.Unchanged)
	return d
}

func buildRound(studyID uuid.UUID, desired map[uuid.UUID]bool, role, priority, notes string, actor uuid.UUID) []*Assignment {
	now := time.Now().UTC()

	var prio, note *string
	if priority != "" {
		prio = &priority
	}
	if notes != "" {
		note = &notes
	}

	if len(desired) == 0 {
		return []*Assignment{{
			StudyID:    studyID,
			AssignedBy: actor,
			Role:       RoleUnassigned,
			Notes:      note,
			AssignedAt: now,
		}}
	}

	members := make([]uuid.UUID, 0, len(desired))
	for id := range desired {
		members = append(members, id)
	}
	sortIDs(members)

	round := make([]*Assignment, 0, len(members))
	for _, id := range members {
		assignee := id
		round = append(round, &Assignment{
			StudyID:    studyID,
			AssignedTo: &assignee,
			AssignedBy: actor,
			Role:       role,
			Priority:   prio,
			Notes:      note,
			AssignedAt: now,
		})
	}
	return round
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
