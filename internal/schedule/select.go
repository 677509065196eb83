package schedule

import (
	"time"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// SelectAssignment returns the assignment that governs now, or false when no
// window contains it. The highest priority wins; among equal priorities the
// most recently created one does, then the greater id.
func SelectAssignment(assignments []model.ScheduleAssignment, now time.Time) (model.ScheduleAssignment, bool) {
	var (
		best  model.ScheduleAssignment
		found bool
	)
	for _, a := range assignments {
		if !a.Active(now) {
			continue
		}
		if !found || outranks(a, best) {
			best = a
			found = true
		}
	}
	return best, found
}

func outranks(a, b model.ScheduleAssignment) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
