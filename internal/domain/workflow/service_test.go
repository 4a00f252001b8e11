package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock repository --

type mockWorkflowRepo struct {
	statuses map[uuid.UUID]Status
	history  []*HistoryEntry
}

func newMockWorkflowRepo() *mockWorkflowRepo {
	return &mockWorkflowRepo{statuses: make(map[uuid.UUID]Status)}
}

func (m *mockWorkflowRepo) CurrentStatus(_ context.Context, studyID uuid.UUID) (Status, error) {
	s, ok := m.statuses[studyID]
	if !ok {
		return StatusNewStudyReceived, nil
	}
	return s, nil
}

func (m *mockWorkflowRepo) RecordTransition(_ context.Context, entry *HistoryEntry) error {
	m.statuses[entry.StudyID] = entry.Status
	m.history = append(m.history, entry)
	return nil
}

func (m *mockWorkflowRepo) ListHistory(_ context.Context, studyID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	var items []*HistoryEntry
	for _, e := range m.history {
		if e.StudyID == studyID {
			items = append(items, e)
		}
	}
	return items, len(items), nil
}

func newWorkflowService() (*Service, *mockWorkflowRepo) {
	repo := newMockWorkflowRepo()
	return NewService(repo, nil, zerolog.Nop()), repo
}

// -- Tests --

func TestTransition_PipelineForward(t *testing.T) {
	svc, repo := newWorkflowService()
	studyID := uuid.New()
	actor := uuid.New()

	pipeline := []Status{
		StatusPendingAssignment,
		StatusAssignedToDoctor,
		StatusDoctorOpenedReport,
		StatusReportInProgress,
		StatusReportDrafted,
		StatusReportFinalized,
		StatusVerificationInProgress,
		StatusReportVerified,
		StatusFinalReportDownloaded,
	}
	for _, target := range pipeline {
		if _, err := svc.Transition(context.Background(), studyID, target, "", actor); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}

	if len(repo.history) != len(pipeline) {
		t.Errorf("expected %d history entries, got %d", len(pipeline), len(repo.history))
	}
	if repo.statuses[studyID] != StatusFinalReportDownloaded {
		t.Errorf("final status = %s", repo.statuses[studyID])
	}
}

func TestTransition_SkipRejected(t *testing.T) {
	svc, _ := newWorkflowService()
	studyID := uuid.New()

	_, err := svc.Transition(context.Background(), studyID, StatusReportVerified, "", uuid.New())
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != StatusNewStudyReceived || invalid.To != StatusReportVerified {
		t.Errorf("error must name the rejected (from, to) pair: %v", invalid)
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	svc, _ := newWorkflowService()

	_, err := svc.Transition(context.Background(), uuid.New(), "report_lost", "", uuid.New())
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError for unknown status, got %v", err)
	}
}

func TestTransition_RejectionRequiresReason(t *testing.T) {
	svc, repo := newWorkflowService()
	studyID := uuid.New()
	repo.statuses[studyID] = StatusVerificationInProgress

	if _, err := svc.Transition(context.Background(), studyID, StatusReportRejected, "   ", uuid.New()); err != ErrReasonRequired {
		t.Fatalf("expected ErrReasonRequired for blank reason, got %v", err)
	}

	result, err := svc.Transition(context.Background(), studyID, StatusReportRejected, "missing series", uuid.New())
	if err != nil {
		t.Fatalf("rejection with reason failed: %v", err)
	}
	if result.Status != StatusReportRejected {
		t.Errorf("status = %s", result.Status)
	}

	last := repo.history[len(repo.history)-1]
	if last.Reason == nil || *last.Reason != "missing series" {
		t.Errorf("rejection reason not recorded: %+v", last)
	}
}

func TestTransition_RejectedLoopsToAssigned(t *testing.T) {
	svc, repo := newWorkflowService()
	studyID := uuid.New()
	repo.statuses[studyID] = StatusReportRejected

	// The only edge out of report_rejected re-queues the case.
	if _, err := svc.Transition(context.Background(), studyID, StatusAssignedToDoctor, "", uuid.New()); err != nil {
		t.Fatalf("rejected -> assigned_to_doctor failed: %v", err)
	}

	repo.statuses[studyID] = StatusReportRejected
	for _, target := range []Status{StatusReportVerified, StatusReportFinalized, StatusFinalReportDownloaded} {
		if _, err := svc.Transition(context.Background(), studyID, target, "", uuid.New()); err == nil {
			t.Errorf("rejected -> %s must be invalid", target)
		}
	}
}

func TestTransition_RepeatedDownloadIsNoOp(t *testing.T) {
	svc, repo := newWorkflowService()
	studyID := uuid.New()
	repo.statuses[studyID] = StatusFinalReportDownloaded
	entries := len(repo.history)

	result, err := svc.Transition(context.Background(), studyID, StatusFinalReportDownloaded, "", uuid.New())
	if err != nil {
		t.Fatalf("repeated download must be accepted: %v", err)
	}
	if !result.NoOp {
		t.Error("repeated download must be a no-op")
	}
	if len(repo.history) != entries {
		t.Error("repeated download must not append a history entry")
	}
}

func TestCanTransition_Table(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusNewStudyReceived, StatusPendingAssignment, true},
		{StatusVerificationInProgress, StatusReportRejected, true},
		{StatusVerificationInProgress, StatusReportVerified, true},
		{StatusReportRejected, StatusAssignedToDoctor, true},
		{StatusReportVerified, StatusFinalReportDownloaded, true},
		{StatusFinalReportDownloaded, StatusNewStudyReceived, false},
		{StatusPendingAssignment, StatusReportDrafted, false},
		{StatusAssignedToDoctor, StatusPendingAssignment, false},
	}
	for _, c := range cases {
		if CanTransition(c.from, c.to) != c.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, !c.ok, c.ok)
		}
	}
}
