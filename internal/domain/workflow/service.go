package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/risflow/risflow/internal/platform/websocket"
)

// EventTopic is the hub topic status events are broadcast on.
const EventTopic = "workflow"

const EventStatusChanged = "status_changed"

// Result reports one transition. NoOp is set for a repeated
// final_report_downloaded request, which appends nothing.
type Result struct {
	Status Status `json:"status"`
	NoOp   bool   `json:"no_op"`
}

type Service struct {
	repo      WorkflowRepository
	publisher websocket.EventPublisher
	logger    zerolog.Logger
}

func NewService(repo WorkflowRepository, publisher websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// Transition moves the case to target along a pipeline edge. A rejection
// requires a non-empty reason. The history row and the status update
// commit together or not at all. Re-downloading a final report is
// accepted without appending a new state.
func (s *Service) Transition(ctx context.Context, studyID uuid.UUID, target Status, reason string, actor uuid.UUID) (*Result, error) {
	if !ValidStatus(target) {
		return nil, &InvalidTransitionError{To: target}
	}

	current, err := s.repo.CurrentStatus(ctx, studyID)
	if err != nil {
		return nil, err
	}

	if target == StatusFinalReportDownloaded && current == StatusFinalReportDownloaded {
		return &Result{Status: current, NoOp: true}, nil
	}

	if !CanTransition(current, target) {
		return nil, &InvalidTransitionError{From: current, To: target}
	}

	reason = strings.TrimSpace(reason)
	if target == StatusReportRejected && reason == "" {
		return nil, ErrReasonRequired
	}

	entry := &HistoryEntry{
		StudyID:   studyID,
		Status:    target,
		ChangedBy: actor,
		ChangedAt: time.Now().UTC(),
	}
	if reason != "" {
		entry.Reason = &reason
	}
	if err := s.repo.RecordTransition(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("study_id", studyID.String()).
		Str("from", string(current)).
		Str("to", string(target)).
		Msg("workflow status changed")
	s.publish(ctx, studyID, current, target)

	return &Result{Status: target}, nil
}

// History returns the case's ordered status timeline.
func (s *Service) History(ctx context.Context, studyID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	return s.repo.ListHistory(ctx, studyID, limit, offset)
}

func (s *Service) publish(ctx context.Context, studyID uuid.UUID, from, to Status) {
	if s.publisher == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"from": string(from),
		"to":   string(to),
	})
	_ = s.publisher.Publish(ctx, websocket.Event{
		Type:      EventStatusChanged,
		Topic:     EventTopic,
		StudyID:   studyID.String(),
		Timestamp: time.Now(),
		Data:      payload,
	})
}
