package domain

// AlternativeSlot is a start time known to be free of the conflicts it was
// computed against.
type AlternativeSlot struct {
	Date      Date  `json:"date"`
	Start     Clock `json:"start"`
	End       Clock `json:"end"`
	IsSameDay bool  `json:"is_same_day"`
}

// Key identifies the slot by day and start, which is all a caller needs
// to pick it again.
func (s AlternativeSlot) Key() string {
	return s.Date.String() + "@" + s.Start.String()
}

// PoolFetcher loads a resource's sessions for one day. Slot search uses
// it to verify probed days instead of offering them blindly.
type PoolFetcher func(day Date) ([]*Session, error)

// SlotSearchOptions configures FindAlternativeSlots.
type SlotSearchOptions struct {
	// CandidateTimes is the menu of start times probed on the candidate's day.
	CandidateTimes []Clock
	// LookaheadDays is how many following days are probed at the original start.
	LookaheadDays int
	// MaxResults caps the result; zero or less means no cap.
	MaxResults int
	// DayPool, when set, re-runs conflict detection for every probed slot.
	DayPool PoolFetcher
}

// DefaultSlotSearchOptions probes every hour from 08:00 to 20:00, then a
// week ahead, returning at most five slots.
func DefaultSlotSearchOptions() SlotSearchOptions {
	times := make([]Clock, 0, 13)
	for h := 8; h <= 20; h++ {
		times = append(times, NewClock(h, 0))
	}
	return SlotSearchOptions{
		CandidateTimes: times,
		LookaheadDays:  7,
		MaxResults:     5,
	}
}

// FindAlternativeSlots proposes start times for the candidate that avoid
// the given conflicts: first the candidate-time menu on the same day, in
// menu order, then the original start on each following day. Without a
// DayPool only the known conflicts are checked, so future-day slots are
// advisory and must be re-checked at commit.
func FindAlternativeSlots(candidate *Session, conflicts []*Session, opts SlotSearchOptions) []AlternativeSlot {
	slots := make([]AlternativeSlot, 0)
	full := func() bool { return opts.MaxResults > 0 && len(slots) >= opts.MaxResults }
	duration := candidate.DurationMinutes()

	sameDayPool := conflicts
	if opts.DayPool != nil {
		if pool, err := opts.DayPool(candidate.date); err == nil {
			sameDayPool = append(append(make([]*Session, 0, len(conflicts)+len(pool)), conflicts...), pool...)
		}
	}

	seen := make(map[Clock]bool, len(opts.CandidateTimes))
	for _, start := range opts.CandidateTimes {
		if full() {
			break
		}
		if seen[start] || start < 0 || start.Add(duration) > MinutesPerDay {
			continue
		}
		seen[start] = true

		probe := candidate.at(candidate.date, start)
		if len(DetectConflicts(probe, sameDayPool)) > 0 {
			continue
		}
		slots = append(slots, AlternativeSlot{Date: candidate.date, Start: start, End: probe.end, IsSameDay: true})
	}

	for offset := 1; offset <= opts.LookaheadDays && !full(); offset++ {
		day := candidate.date.AddDays(offset)
		probe := candidate.at(day, candidate.start)
		if opts.DayPool != nil {
			pool, err := opts.DayPool(day)
			if err != nil || len(DetectConflicts(probe, pool)) > 0 {
				continue
			}
		}
		slots = append(slots, AlternativeSlot{Date: day, Start: probe.start, End: probe.end, IsSameDay: false})
	}

	if opts.MaxResults > 0 && len(slots) > opts.MaxResults {
		slots = slots[:opts.MaxResults]
	}
	return slots
}
