package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock repository --

type mockAssignmentRepo struct {
	rounds [][]*Assignment
}

func (m *mockAssignmentRepo) CurrentCohort(_ context.Context, studyID uuid.UUID) ([]*Assignment, error) {
	if len(m.rounds) == 0 {
		return nil, nil
	}
	var cohort []*Assignment
	for _, a := range m.rounds[len(m.rounds)-1] {
		if a.StudyID == studyID {
			cohort = append(cohort, a)
		}
	}
	return cohort, nil
}

func (m *mockAssignmentRepo) InsertRound(_ context.Context, entries []*Assignment) error {
	m.rounds = append(m.rounds, entries)
	return nil
}

func (m *mockAssignmentRepo) ListByStudy(_ context.Context, studyID uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	var all []*Assignment
	for _, round := range m.rounds {
		for _, a := range round {
			if a.StudyID == studyID {
				all = append(all, a)
			}
		}
	}
	return all, len(all), nil
}

func seedCohort(repo *mockAssignmentRepo, studyID uuid.UUID, members ...uuid.UUID) {
	now := time.Now().UTC()
	var round []*Assignment
	for _, id := range members {
		assignee := id
		round = append(round, &Assignment{
			ID:         uuid.New(),
			StudyID:    studyID,
			AssignedTo: &assignee,
			Role:       RoleRadiologist,
			AssignedAt: now,
		})
	}
	repo.rounds = append(repo.rounds, round)
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// -- Tests --

func TestReconcile_InvalidRole(t *testing.T) {
	svc := NewService(&mockAssignmentRepo{})
	_, err := svc.Reconcile(context.Background(), uuid.New(), nil, "typist", "", "", uuid.New())
	if err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestReconcile_Delta(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewService(repo)
	studyID := uuid.New()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	seedCohort(repo, studyID, b, c)

	result, err := svc.Reconcile(context.Background(), studyID, []uuid.UUID{a, b}, RoleRadiologist, "", "", uuid.New())
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.NoOp {
		t.Fatal("a changed set must not be a no-op")
	}

	if len(result.Delta.Added) != 1 || !contains(result.Delta.Added, a) {
		t.Errorf("expected added = {%s}, got %v", a, result.Delta.Added)
	}
	if len(result.Delta.Removed) != 1 || !contains(result.Delta.Removed, c) {
		t.Errorf("expected removed = {%s}, got %v", c, result.Delta.Removed)
	}
	if len(result.Delta.Unchanged) != 1 || !contains(result.Delta.Unchanged, b) {
		t.Errorf("expected unchanged = {%s}, got %v", b, result.Delta.Unchanged)
	}
}

func TestReconcile_SharedTimestamp(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewService(repo)
	studyID := uuid.New()

	desired := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	result, err := svc.Reconcile(context.Background(), studyID, desired, RoleVerifier, "PRIORITY", "second read", uuid.New())
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	round := repo.rounds[len(repo.rounds)-1]
	if len(round) != 3 {
		t.Fatalf("expected a 3-member cohort, got %d", len(round))
	}
	for _, a := range round {
		if !a.AssignedAt.Equal(result.AssignedAt) {
			t.Error("all cohort members must share one assigned_at")
		}
		if a.Role != RoleVerifier {
			t.Errorf("expected role %s, got %s", RoleVerifier, a.Role)
		}
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewService(repo)
	studyID := uuid.New()
	actor := uuid.New()

	desired := []uuid.UUID{uuid.New(), uuid.New()}
	if _, err := svc.Reconcile(context.Background(), studyID, desired, RoleRadiologist, "", "", actor); err != nil {
		t.Fatal(err)
	}
	roundsAfterFirst := len(repo.rounds)

	result, err := svc.Reconcile(context.Background(), studyID, desired, RoleRadiologist, "", "", actor)
	if err != nil {
		t.Fatal(err)
	}
	if !result.NoOp {
		t.Error("resubmitting the same set must be a no-op")
	}
	if len(result.Delta.Added) != 0 || len(result.Delta.Removed) != 0 {
		t.Errorf("no-op must have empty deltas: %+v", result.Delta)
	}
	if len(repo.rounds) != roundsAfterFirst {
		t.Error("no-op must not write a new cohort")
	}
}

func TestReconcile_EmptySetUnassigns(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewService(repo)
	studyID := uuid.New()

	member := uuid.New()
	seedCohort(repo, studyID, member)

	result, err := svc.Reconcile(context.Background(), studyID, nil, RoleRadiologist, "", "", uuid.New())
	if err != nil {
		t.Fatalf("unassign failed: %v", err)
	}
	if result.NoOp {
		t.Fatal("clearing an assignment is not a no-op")
	}
	if len(result.Delta.Removed) != 1 || !contains(result.Delta.Removed, member) {
		t.Errorf("expected removed = {%s}, got %v", member, result.Delta.Removed)
	}

	// The unassignment round is a single marker row so the latest cohort
	// resolves to an empty set.
	round := repo.rounds[len(repo.rounds)-1]
	if len(round) != 1 || round[0].Role != RoleUnassigned || round[0].AssignedTo != nil {
		t.Errorf("expected one unassignment marker row, got %+v", round)
	}

	current, err := svc.CurrentAssignees(context.Background(), studyID)
	if err != nil {
		t.Fatal(err)
	}
	if len(current) != 0 {
		t.Errorf("current assignees must be empty after unassignment, got %v", current)
	}
}

func TestCurrentAssignees_LatestCohortOnly(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewService(repo)
	studyID := uuid.New()

	old, recent := uuid.New(), uuid.New()
	seedCohort(repo, studyID, old)
	seedCohort(repo, studyID, recent)

	current, err := svc.CurrentAssignees(context.Background(), studyID)
	if err != nil {
		t.Fatal(err)
	}
	if len(current) != 1 || !current[recent] {
		t.Errorf("expected only the latest cohort member, got %v", current)
	}
}
