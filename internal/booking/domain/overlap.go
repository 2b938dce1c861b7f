package domain

import (
	"cmp"
	"slices"
)

// Overlaps reports whether two sessions share any minute on the same day.
// Intervals are half-open: a session ending at 11:00 does not overlap one
// starting at 11:00.
func Overlaps(a, b *Session) bool {
	return a.date == b.date && a.start < b.end && a.end > b.start
}

// DetectConflicts returns the active sessions in pool that overlap the
// candidate on the same resource, ordered by start time. The candidate's
// own persisted record is never reported. The result is empty, not nil,
// when nothing conflicts.
func DetectConflicts(candidate *Session, pool []*Session) []*Session {
	conflicts := make([]*Session, 0)
	for _, existing := range pool {
		if existing == nil || existing.resourceID != candidate.resourceID {
			continue
		}
		if !existing.IsActive() {
			continue
		}
		if !candidate.IsTransient() && existing.ID() == candidate.ID() {
			continue
		}
		if Overlaps(candidate, existing) {
			conflicts = append(conflicts, existing)
		}
	}
	SortByStart(conflicts)
	return conflicts
}

// SortByStart orders sessions by day, start and end.
func SortByStart(sessions []*Session) {
	slices.SortStableFunc(sessions, func(a, b *Session) int {
		if a.date != b.date {
			if a.date.Before(b.date) {
				return -1
			}
			return 1
		}
		return cmp.Or(cmp.Compare(a.start, b.start), cmp.Compare(a.end, b.end))
	})
}
