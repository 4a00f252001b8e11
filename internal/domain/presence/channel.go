package presence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/risflow/risflow/internal/platform/auth"
	"github.com/risflow/risflow/internal/platform/websocket"
)

// Topic is the hub topic viewer events are broadcast on.
const Topic = "presence"

// Client -> server message types.
const (
	MsgSubscribe      = "subscribe_to_viewer_updates"
	MsgRequestViewers = "request_active_viewers"
	MsgStudyOpened    = "study_opened"
	MsgStudyClosed    = "study_closed"
)

// Server -> client event types.
const (
	EventViewerOpened = "study_viewer_opened"
	EventViewerClosed = "study_viewer_closed"
	EventViewersList  = "active_viewers_list"
)

// Channel wires the Tracker onto the websocket hub: it owns the inbound
// message protocol, the per-connection open-study bookkeeping, and the
// implicit leave on connection loss.
type Channel struct {
	tracker   *Tracker
	handler   *websocket.Handler
	publisher websocket.EventPublisher
	logger    zerolog.Logger

	mu   sync.Mutex
	open map[*websocket.Client]map[string]bool // client -> study ids it opened
}

// NewChannel builds the presence channel on the given hub. publisher is
// where viewer events fan out; pass the hub itself for a single instance
// or the relay when running more than one.
func NewChannel(tracker *Tracker, hub *websocket.Hub, publisher websocket.EventPublisher, logger zerolog.Logger) *Channel {
	ch := &Channel{
		tracker:   tracker,
		handler:   websocket.NewHandler(hub),
		publisher: publisher,
		logger:    logger,
		open:      make(map[*websocket.Client]map[string]bool),
	}
	ch.handler.OnMessage = ch.handleMessage
	ch.handler.OnDisconnect = ch.handleDisconnect
	ch.handler.Identify = func(c echo.Context) (string, string) {
		ctx := c.Request().Context()
		return auth.OperatorIDFromContext(ctx), auth.OperatorNameFromContext(ctx)
	}
	return ch
}

// HandleConnect is the echo route handler for the presence websocket.
func (ch *Channel) HandleConnect(c echo.Context) error {
	return ch.handler.HandleConnect(c)
}

type inboundMessage struct {
	Type    string `json:"type"`
	StudyID string `json:"studyId,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

func (ch *Channel) handleMessage(client *websocket.Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		ch.logger.Debug().Err(err).Str("client_id", client.ID).Msg("presence: bad inbound message")
		return
	}

	switch msg.Type {
	case MsgSubscribe:
		ch.handler.Hub().Subscribe(client, []string{Topic})
	case MsgRequestViewers:
		ch.sendSnapshot(client)
	case MsgStudyOpened:
		ch.studyOpened(client, msg.StudyID, msg.Mode)
	case MsgStudyClosed:
		ch.studyClosed(client, msg.StudyID)
	default:
		ch.logger.Debug().Str("type", msg.Type).Msg("presence: unknown message type")
	}
}

func (ch *Channel) studyOpened(client *websocket.Client, studyID, mode string) {
	if studyID == "" || client.OperatorID == "" {
		return
	}

	ch.mu.Lock()
	if ch.open[client] == nil {
		ch.open[client] = make(map[string]bool)
	}
	ch.open[client][studyID] = true
	ch.mu.Unlock()

	if !ch.tracker.Join(studyID, client.OperatorID, client.OperatorName, mode) {
		return
	}

	ch.publish(EventViewerOpened, studyID, map[string]string{
		"studyId":      studyID,
		"operatorId":   client.OperatorID,
		"operatorName": client.OperatorName,
		"mode":         mode,
	})
}

func (ch *Channel) studyClosed(client *websocket.Client, studyID string) {
	if studyID == "" || client.OperatorID == "" {
		return
	}

	ch.mu.Lock()
	if opened := ch.open[client]; opened != nil {
		delete(opened, studyID)
	}
	ch.mu.Unlock()

	if !ch.tracker.Leave(studyID, client.OperatorID) {
		return
	}

	ch.publish(EventViewerClosed, studyID, map[string]string{
		"studyId":    studyID,
		"operatorId": client.OperatorID,
	})
}

// handleDisconnect is the implicit leave: every study this connection
// opened is closed as if the client had sent study_closed for each.
func (ch *Channel) handleDisconnect(client *websocket.Client) {
	ch.mu.Lock()
	opened := ch.open[client]
	delete(ch.open, client)
	ch.mu.Unlock()

	for studyID := range opened {
		if !ch.tracker.Leave(studyID, client.OperatorID) {
			continue
		}
		ch.publish(EventViewerClosed, studyID, map[string]string{
			"studyId":    studyID,
			"operatorId": client.OperatorID,
		})
	}
}

func (ch *Channel) sendSnapshot(client *websocket.Client) {
	payload, err := json.Marshal(ch.tracker.Snapshot())
	if err != nil {
		return
	}
	ch.handler.Hub().SendTo(client, websocket.Event{
		Type:      EventViewersList,
		Topic:     Topic,
		Timestamp: time.Now(),
		Data:      payload,
	})
}

func (ch *Channel) publish(eventType, studyID string, data map[string]string) {
	if ch.publisher == nil {
		return
	}
	payload, _ := json.Marshal(data)
	_ = ch.publisher.Publish(context.Background(), websocket.Event{
		Type:      eventType,
		Topic:     Topic,
		StudyID:   studyID,
		Timestamp: time.Now(),
		Data:      payload,
	})
}
