package study

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockStudyRepo struct {
	studies []*Study
}

func (m *mockStudyRepo) GetByID(_ context.Context, id uuid.UUID) (*Study, error) {
	for _, s := range m.studies {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, context.Canceled
}

func (m *mockStudyRepo) List(_ context.Context, _ ListFilter, limit, offset int) ([]*Study, int, error) {
	// Honors the repository contract: most urgent first, oldest-received
	// within the same urgency, limit/offset slicing the global order.
	out := make([]*Study, len(m.studies))
	copy(out, m.studies)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	SortByPriority(out)

	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func TestWorklist_PriorityOrder(t *testing.T) {
	base := time.Now()
	mk := func(p Priority, receivedOffset time.Duration) *Study {
		return &Study{ID: uuid.New(), Priority: p, ReceivedAt: base.Add(receivedOffset)}
	}

	normalOld := mk(PriorityNormal, 0)
	normalNew := mk(PriorityNormal, time.Hour)
	repo := &mockStudyRepo{studies: []*Study{
		mk(PriorityStat, 2*time.Hour),
		normalOld,
		normalNew,
		mk(PriorityEmergency, 3*time.Hour),
	}}
	svc := NewService(repo)

	items, total, err := svc.Worklist(context.Background(), ListFilter{}, 20, 0)
	if err != nil {
		t.Fatalf("worklist failed: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d", total)
	}

	if items[0].Priority != PriorityEmergency {
		t.Errorf("first item should be EMERGENCY, got %s", items[0].Priority)
	}
	if items[len(items)-1].Priority != PriorityStat {
		t.Errorf("last item should be STAT, got %s", items[len(items)-1].Priority)
	}

	// Same-urgency studies keep received order.
	if items[1].ID != normalOld.ID || items[2].ID != normalNew.ID {
		t.Error("equal-priority studies must stay oldest-received first")
	}
}

func TestWorklist_UrgentStudyLeadsFirstPage(t *testing.T) {
	base := time.Now()
	mk := func(p Priority, receivedOffset time.Duration) *Study {
		return &Study{ID: uuid.New(), Priority: p, ReceivedAt: base.Add(receivedOffset)}
	}

	// The EMERGENCY study arrives after two NORMAL ones. With a page size
	// of two it must still open page one, not fall onto page two.
	emergency := mk(PriorityEmergency, 2*time.Hour)
	repo := &mockStudyRepo{studies: []*Study{
		mk(PriorityNormal, 0),
		mk(PriorityNormal, time.Hour),
		emergency,
	}}
	svc := NewService(repo)

	page1, total, err := svc.Worklist(context.Background(), ListFilter{}, 2, 0)
	if err != nil {
		t.Fatalf("worklist failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d", total)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 has %d items", len(page1))
	}
	if page1[0].ID != emergency.ID {
		t.Errorf("page 1 should start with the EMERGENCY study, got %s", page1[0].Priority)
	}

	page2, _, err := svc.Worklist(context.Background(), ListFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("worklist failed: %v", err)
	}
	if len(page2) != 1 || page2[0].Priority != PriorityNormal {
		t.Error("page 2 should hold the remaining NORMAL study")
	}
}
