package lock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/risflow/risflow/internal/platform/websocket"
)

// EventTopic is the hub topic lock events are broadcast on.
const EventTopic = "locks"

const (
	EventLocked   = "study_locked"
	EventUnlocked = "study_unlocked"
	EventBypassed = "lock_bypassed"
)

type Service struct {
	locks     LockRepository
	publisher websocket.EventPublisher
	logger    zerolog.Logger
}

func NewService(locks LockRepository, publisher websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{locks: locks, publisher: publisher, logger: logger}
}

// Acquire takes the reporting lock for the actor. On a held lock, an actor
// with reporting capability and without verification capability seizes it
// anyway (the radiologist bypass); exactly one warning event names the
// displaced holder. All other actors get a ConflictError naming the holder.
// Failures are never retried here; the caller decides whether to proceed
// read-only.
func (s *Service) Acquire(ctx context.Context, studyID uuid.UUID, actor Actor) (*State, bool, error) {
	acquired, err := s.locks.TryAcquire(ctx, studyID, actor.ID)
	if err != nil {
		return nil, false, err
	}
	if acquired {
		state, err := s.locks.Get(ctx, studyID)
		if err != nil {
			return nil, false, err
		}
		s.publish(ctx, EventLocked, studyID, map[string]string{
			"operatorId":   actor.ID.String(),
			"operatorName": actor.Name,
		})
		return state, false, nil
	}

	if actor.CanReport && !actor.CanVerify {
		return s.bypass(ctx, studyID, actor)
	}

	state, err := s.locks.Get(ctx, studyID)
	if err != nil {
		return nil, false, err
	}
	if !state.IsLocked || state.LockedBy == nil {
		// Holder released between the failed acquire and the read; report
		// the conflict anyway rather than retrying.
		return nil, false, &ConflictError{}
	}
	heldAt := time.Time{}
	if state.LockedAt != nil {
		heldAt = *state.LockedAt
	}
	return nil, false, &ConflictError{HeldBy: *state.LockedBy, HeldByName: state.LockedByName, HeldAt: heldAt}
}

func (s *Service) bypass(ctx context.Context, studyID uuid.UUID, actor Actor) (*State, bool, error) {
	displaced, err := s.locks.Seize(ctx, studyID, actor.ID)
	if err != nil {
		return nil, false, err
	}

	displacedID := ""
	if displaced != nil {
		displacedID = displaced.String()
	}
	s.logger.Warn().
		Str("study_id", studyID.String()).
		Str("operator_id", actor.ID.String()).
		Str("displaced_operator_id", displacedID).
		Msg("reporting lock bypassed")
	s.publish(ctx, EventBypassed, studyID, map[string]string{
		"operatorId":          actor.ID.String(),
		"operatorName":        actor.Name,
		"displacedOperatorId": displacedID,
	})

	state, err := s.locks.Get(ctx, studyID)
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

// Release unlocks the study. Only the holder may release; an actor with
// override capability may release any lock.
func (s *Service) Release(ctx context.Context, studyID uuid.UUID, actor Actor) error {
	released, err := s.locks.ReleaseIf(ctx, studyID, actor.ID)
	if err != nil {
		return err
	}
	if !released {
		if !actor.CanOverride {
			return ErrNotLockHolder
		}
		if err := s.locks.ForceRelease(ctx, studyID); err != nil {
			return err
		}
	}
	s.publish(ctx, EventUnlocked, studyID, map[string]string{
		"operatorId": actor.ID.String(),
	})
	return nil
}

// Toggle is the administrative explicit lock switch, independent of the
// bypass path. Capability gating (CanToggleLock) happens at the handler;
// the service still refuses actors without it.
func (s *Service) Toggle(ctx context.Context, studyID uuid.UUID, actor Actor, desiredLocked bool) (*State, error) {
	if !actor.CanToggle {
		return nil, ErrNotLockHolder
	}

	if desiredLocked {
		if _, err := s.locks.Seize(ctx, studyID, actor.ID); err != nil {
			return nil, err
		}
		s.publish(ctx, EventLocked, studyID, map[string]string{
			"operatorId":   actor.ID.String(),
			"operatorName": actor.Name,
		})
	} else {
		if err := s.locks.ForceRelease(ctx, studyID); err != nil {
			return nil, err
		}
		s.publish(ctx, EventUnlocked, studyID, map[string]string{
			"operatorId": actor.ID.String(),
		})
	}

	return s.locks.Get(ctx, studyID)
}

// Get returns the current lock state.
func (s *Service) Get(ctx context.Context, studyID uuid.UUID) (*State, error) {
	return s.locks.Get(ctx, studyID)
}

func (s *Service) publish(ctx context.Context, eventType string, studyID uuid.UUID, data map[string]string) {
	if s.publisher == nil {
		return
	}
	payload, _ := json.Marshal(data)
	_ = s.publisher.Publish(ctx, websocket.Event{
		Type:      eventType,
		Topic:     EventTopic,
		StudyID:   studyID.String(),
		Timestamp: time.Now(),
		Data:      payload,
	})
}
