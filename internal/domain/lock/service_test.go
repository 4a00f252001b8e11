package lock

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/risflow/risflow/internal/platform/websocket"
)

// -- Mocks --

type mockLockRepo struct {
	states map[uuid.UUID]*State
	names  map[uuid.UUID]string
}

func newMockLockRepo() *mockLockRepo {
	return &mockLockRepo{
		states: make(map[uuid.UUID]*State),
		names:  make(map[uuid.UUID]string),
	}
}

func (m *mockLockRepo) state(studyID uuid.UUID) *State {
	s, ok := m.states[studyID]
	if !ok {
		s = &State{StudyID: studyID}
		m.states[studyID] = s
	}
	return s
}

func (m *mockLockRepo) TryAcquire(_ context.Context, studyID, operatorID uuid.UUID) (bool, error) {
	s := m.state(studyID)
	if s.IsLocked {
		return false, nil
	}
	now := time.Now()
	s.IsLocked = true
	s.LockedBy = &operatorID
	s.LockedByName = m.names[operatorID]
	s.LockedAt = &now
	return true, nil
}

func (m *mockLockRepo) Seize(_ context.Context, studyID, operatorID uuid.UUID) (*uuid.UUID, error) {
	s := m.state(studyID)
	var displaced *uuid.UUID
	if s.IsLocked && s.LockedBy != nil && *s.LockedBy != operatorID {
		prev := *s.LockedBy
		displaced = &prev
	}
	now := time.Now()
	s.IsLocked = true
	s.LockedBy = &operatorID
	s.LockedByName = m.names[operatorID]
	s.LockedAt = &now
	return displaced, nil
}

func (m *mockLockRepo) ReleaseIf(_ context.Context, studyID, holderID uuid.UUID) (bool, error) {
	s := m.state(studyID)
	if !s.IsLocked || s.LockedBy == nil || *s.LockedBy != holderID {
		return false, nil
	}
	s.IsLocked = false
	s.LockedBy = nil
	s.LockedByName = ""
	s.LockedAt = nil
	return true, nil
}

func (m *mockLockRepo) ForceRelease(_ context.Context, studyID uuid.UUID) error {
	s := m.state(studyID)
	s.IsLocked = false
	s.LockedBy = nil
	s.LockedByName = ""
	s.LockedAt = nil
	return nil
}

func (m *mockLockRepo) Get(_ context.Context, studyID uuid.UUID) (*State, error) {
	copied := *m.state(studyID)
	return &copied, nil
}

type mockPublisher struct {
	events []websocket.Event
}

func (m *mockPublisher) Publish(_ context.Context, event websocket.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) countByType(eventType string) int {
	n := 0
	for _, e := range m.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func newTestService() (*Service, *mockLockRepo, *mockPublisher) {
	repo := newMockLockRepo()
	pub := &mockPublisher{}
	svc := NewService(repo, pub, zerolog.Nop())
	return svc, repo, pub
}

func radiologist() Actor {
	return Actor{ID: uuid.New(), Name: "Dr. Rao", CanReport: true}
}

// -- Tests --

func TestAcquire_UnlockedAlwaysSucceeds(t *testing.T) {
	svc, _, pub := newTestService()
	studyID := uuid.New()
	actor := Actor{ID: uuid.New(), Name: "Front Desk"}

	state, bypassed, err := svc.Acquire(context.Background(), studyID, actor)
	if err != nil {
		t.Fatalf("acquire on unlocked study failed: %v", err)
	}
	if bypassed {
		t.Error("plain acquire must not report a bypass")
	}
	if !state.IsLocked || state.LockedBy == nil || *state.LockedBy != actor.ID {
		t.Errorf("lock not assigned to actor: %+v", state)
	}
	if pub.countByType(EventLocked) != 1 {
		t.Errorf("expected one %s event, got %d", EventLocked, pub.countByType(EventLocked))
	}
}

func TestAcquire_HeldLock_RadiologistBypasses(t *testing.T) {
	svc, repo, pub := newTestService()
	studyID := uuid.New()

	holder := uuid.New()
	repo.names[holder] = "Dr. Holder"
	if _, err := repo.Seize(context.Background(), studyID, holder); err != nil {
		t.Fatal(err)
	}

	actor := radiologist()
	state, bypassed, err := svc.Acquire(context.Background(), studyID, actor)
	if err != nil {
		t.Fatalf("bypass acquire failed: %v", err)
	}
	if !bypassed {
		t.Error("expected the acquire to report a bypass")
	}
	if state.LockedBy == nil || *state.LockedBy != actor.ID {
		t.Errorf("lock not reassigned to bypassing actor: %+v", state)
	}
	if n := pub.countByType(EventBypassed); n != 1 {
		t.Errorf("expected exactly one %s event, got %d", EventBypassed, n)
	}
}

func TestAcquire_OwnLock_DisplacesNobody(t *testing.T) {
	svc, _, pub := newTestService()
	studyID := uuid.New()
	actor := radiologist()

	if _, _, err := svc.Acquire(context.Background(), studyID, actor); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	state, _, err := svc.Acquire(context.Background(), studyID, actor)
	if err != nil {
		t.Fatalf("re-acquire of own lock failed: %v", err)
	}
	if state.LockedBy == nil || *state.LockedBy != actor.ID {
		t.Errorf("lock not kept by actor: %+v", state)
	}

	// A bypass warning must never name the actor as their own displaced
	// holder.
	for _, e := range pub.events {
		if e.Type != EventBypassed {
			continue
		}
		var data map[string]string
		if err := json.Unmarshal(e.Data, &data); err != nil {
			t.Fatal(err)
		}
		if data["displacedOperatorId"] != "" {
			t.Errorf("re-acquire reported a displaced holder: %q", data["displacedOperatorId"])
		}
	}
}

func TestAcquire_HeldLock_VerifierDoesNotBypass(t *testing.T) {
	svc, repo, _ := newTestService()
	studyID := uuid.New()

	holder := uuid.New()
	repo.names[holder] = "Dr. Holder"
	if _, err := repo.Seize(context.Background(), studyID, holder); err != nil {
		t.Fatal(err)
	}

	// Reporting plus verification capability does not qualify for bypass.
	actor := Actor{ID: uuid.New(), Name: "Dr. Both", CanReport: true, CanVerify: true}
	_, _, err := svc.Acquire(context.Background(), studyID, actor)
	conflict, ok := err.(*ConflictError)
	if !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.HeldBy != holder {
		t.Errorf("conflict must name the holder %s, got %s", holder, conflict.HeldBy)
	}
	if conflict.HeldByName != "Dr. Holder" {
		t.Errorf("conflict must carry the holder's name, got %q", conflict.HeldByName)
	}
}

func TestAcquire_HeldLock_NonRadiologistConflicts(t *testing.T) {
	svc, repo, pub := newTestService()
	studyID := uuid.New()

	holder := uuid.New()
	if _, err := repo.Seize(context.Background(), studyID, holder); err != nil {
		t.Fatal(err)
	}

	actor := Actor{ID: uuid.New(), Name: "Reception"}
	_, _, err := svc.Acquire(context.Background(), studyID, actor)
	if _, ok := err.(*ConflictError); !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if pub.countByType(EventBypassed) != 0 {
		t.Error("a failed acquire must not emit a bypass event")
	}

	// The holder keeps the lock.
	state, _ := repo.Get(context.Background(), studyID)
	if state.LockedBy == nil || *state.LockedBy != holder {
		t.Errorf("failed acquire must not disturb the lock: %+v", state)
	}
}

func TestRelease_HolderOnly(t *testing.T) {
	svc, repo, _ := newTestService()
	studyID := uuid.New()
	holder := Actor{ID: uuid.New(), Name: "Dr. Holder"}

	if _, _, err := svc.Acquire(context.Background(), studyID, holder); err != nil {
		t.Fatal(err)
	}

	stranger := Actor{ID: uuid.New(), Name: "Someone Else"}
	if err := svc.Release(context.Background(), studyID, stranger); err != ErrNotLockHolder {
		t.Fatalf("expected ErrNotLockHolder, got %v", err)
	}

	if err := svc.Release(context.Background(), studyID, holder); err != nil {
		t.Fatalf("holder release failed: %v", err)
	}
	state, _ := repo.Get(context.Background(), studyID)
	if state.IsLocked {
		t.Error("study should be unlocked after holder release")
	}
}

func TestRelease_OverrideCapability(t *testing.T) {
	svc, repo, _ := newTestService()
	studyID := uuid.New()
	holder := Actor{ID: uuid.New(), Name: "Dr. Holder"}

	if _, _, err := svc.Acquire(context.Background(), studyID, holder); err != nil {
		t.Fatal(err)
	}

	admin := Actor{ID: uuid.New(), Name: "Admin", CanOverride: true}
	if err := svc.Release(context.Background(), studyID, admin); err != nil {
		t.Fatalf("override release failed: %v", err)
	}
	state, _ := repo.Get(context.Background(), studyID)
	if state.IsLocked {
		t.Error("study should be unlocked after override release")
	}
}

func TestToggle_RequiresCapability(t *testing.T) {
	svc, _, _ := newTestService()
	studyID := uuid.New()

	actor := Actor{ID: uuid.New(), Name: "Typist"}
	if _, err := svc.Toggle(context.Background(), studyID, actor, true); err != ErrNotLockHolder {
		t.Fatalf("expected ErrNotLockHolder without toggle capability, got %v", err)
	}
}

func TestToggle_LockAndUnlock(t *testing.T) {
	svc, repo, pub := newTestService()
	studyID := uuid.New()
	assignor := Actor{ID: uuid.New(), Name: "Assignor", CanToggle: true}

	state, err := svc.Toggle(context.Background(), studyID, assignor, true)
	if err != nil {
		t.Fatalf("toggle lock failed: %v", err)
	}
	if !state.IsLocked {
		t.Error("study should be locked after toggle on")
	}

	state, err = svc.Toggle(context.Background(), studyID, assignor, false)
	if err != nil {
		t.Fatalf("toggle unlock failed: %v", err)
	}
	if state.IsLocked {
		t.Error("study should be unlocked after toggle off")
	}

	if pub.countByType(EventLocked) != 1 || pub.countByType(EventUnlocked) != 1 {
		t.Errorf("expected one lock and one unlock event, got %d/%d",
			pub.countByType(EventLocked), pub.countByType(EventUnlocked))
	}

	state, _ = repo.Get(context.Background(), studyID)
	if state.IsLocked {
		t.Error("repository state should be unlocked")
	}
}
