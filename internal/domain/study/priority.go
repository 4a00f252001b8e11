package study

import "sort"

// Priority is the clinical urgency tag attached to a study.
type Priority string

const (
	PriorityEmergency Priority = "EMERGENCY"
	PriorityPriority  Priority = "PRIORITY"
	PriorityMLC       Priority = "MLC"
	PriorityStat      Priority = "STAT"
	PriorityNormal    Priority = "NORMAL"
)

// priorityWeights orders worklists by ascending weight. STAT sorting after
// NORMAL is the ordering the product ships with; do not reorder without a
// product decision.
var priorityWeights = map[Priority]int{
	PriorityEmergency: 0,
	PriorityPriority:  1,
	PriorityMLC:       2,
	PriorityNormal:    3,
	PriorityStat:      4,
}

// Weight returns the ordering weight for a priority tag. Unrecognized or
// empty tags weigh the same as NORMAL.
func Weight(p Priority) int {
	if w, ok := priorityWeights[p]; ok {
		return w
	}
	return priorityWeights[PriorityNormal]
}

// ValidPriority reports whether p is one of the defined urgency tags.
func ValidPriority(p Priority) bool {
	_, ok := priorityWeights[p]
	return ok
}

// SortByPriority orders studies most-urgent-first by priority weight. The
// sort is stable, so studies sharing a weight keep their prior relative
// order (typically oldest-received first from the repository).
func SortByPriority(studies []*Study) {
	sort.SliceStable(studies, func(i, j int) bool {
		return Weight(studies[i].Priority) < Weight(studies[j].Priority)
	})
}
