package schedule

import "time"

var motivationalMessages = []string{
	"Great start! Every expert was once a beginner.",
	"Keep up the momentum! Consistency is key to mastery.",
	"You're making real progress! Knowledge compounds daily.",
	"Halfway there! Your dedication is paying off.",
	"Final stretch! You're so close to completing this journey!",
}

var defaultTips = []string{
	"Take breaks between videos to process the information",
	"Take notes on key concepts as you watch",
	"Try to apply what you learn immediately",
	"Review previous videos if concepts build on each other",
	"Set a consistent time each day for your learning routine",
}

// DefaultTips returns a copy of the tips attached to fallback schedules.
func DefaultTips() []string {
	return append([]string(nil), defaultTips...)
}

// Fallback builds a schedule without any I/O. Day d (0-based) falls on
// start plus d calendar days and takes the next perDay positions in
// ascending order; only the last day may be short.
func Fallback(total, perDay int, start time.Time) *Schedule {
	perDay = max(1, perDay)
	daysNeeded := DaysNeeded(total, perDay)
	start = Midnight(start)

	s := &Schedule{
		Days:   make([]Day, 0, daysNeeded),
		Tips:   DefaultTips(),
		Source: SourceFallback,
	}

	next := 1
	for d := 0; d < daysNeeded; d++ {
		positions := make([]int, 0, perDay)
		for i := 0; i < perDay && next <= total; i++ {
			positions = append(positions, next)
			next++
		}
		s.Days = append(s.Days, Day{
			Date:                start.AddDate(0, 0, d),
			VideoPositions:      positions,
			MotivationalMessage: messageFor(d, daysNeeded),
		})
	}
	return s
}

// messageFor picks floor(d/daysNeeded * len(pool)), clamped to the last
// message.
func messageFor(d, daysNeeded int) string {
	if daysNeeded <= 0 {
		return motivationalMessages[0]
	}
	i := d * len(motivationalMessages) / daysNeeded
	return motivationalMessages[min(i, len(motivationalMessages)-1)]
}
