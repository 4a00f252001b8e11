// Package presence tracks which operators currently have a study open.
// Sessions are ephemeral and held in memory only; a restart loses them
// and clients resynchronize through the snapshot message.
package presence

import (
	"sync"
	"time"
)

// Session records one operator viewing one study.
type Session struct {
	StudyID      string    `json:"studyId"`
	OperatorID   string    `json:"operatorId"`
	OperatorName string    `json:"operatorName"`
	Mode         string    `json:"mode"`
	OpenedAt     time.Time `json:"openedAt"`
}

// Tracker is the in-memory presence registry keyed by study id.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]map[string]Session // study id -> operator id -> session
}

func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]map[string]Session)}
}

// Join records the operator as viewing the study. A duplicate join is
// ignored, not stacked; the return value reports whether a session was
// actually added.
func (t *Tracker) Join(studyID, operatorID, operatorName, mode string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	viewers := t.sessions[studyID]
	if viewers == nil {
		viewers = make(map[string]Session)
		t.sessions[studyID] = viewers
	}
	if _, ok := viewers[operatorID]; ok {
		return false
	}
	viewers[operatorID] = Session{
		StudyID:      studyID,
		OperatorID:   operatorID,
		OperatorName: operatorName,
		Mode:         mode,
		OpenedAt:     time.Now().UTC(),
	}
	return true
}

// Leave removes the operator's session for the study. The study key is
// dropped entirely when its last viewer leaves. The return value reports
// whether a session was actually removed.
func (t *Tracker) Leave(studyID, operatorID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	viewers, ok := t.sessions[studyID]
	if !ok {
		return false
	}
	if _, ok := viewers[operatorID]; !ok {
		return false
	}
	delete(viewers, operatorID)
	if len(viewers) == 0 {
		delete(t.sessions, studyID)
	}
	return true
}

// Snapshot returns a copy of the full current map, used to resynchronize
// a newly-connecting observer. Join and leave events are not buffered for
// late subscribers, so every reconnect must start from a snapshot.
func (t *Tracker) Snapshot() map[string][]Session {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]Session, len(t.sessions))
	for studyID, viewers := range t.sessions {
		list := make([]Session, 0, len(viewers))
		for _, s := range viewers {
			list = append(list, s)
		}
		out[studyID] = list
	}
	return out
}

// Viewers returns the sessions for one study.
func (t *Tracker) Viewers(studyID string) []Session {
	t.mu.RLock()
	defer t.mu.RUnlock()

	viewers, ok := t.sessions[studyID]
	if !ok {
		return nil
	}
	list := make([]Session, 0, len(viewers))
	for _, s := range viewers {
		list = append(list, s)
	}
	return list
}
