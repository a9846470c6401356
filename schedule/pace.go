package schedule

import "time"

// ResolvePace returns the number of videos to watch per day.
//
// With a target completion date the pace is derived from the calendar days
// left until that date, never less than 1 day, and is at least 1 video a
// day. Otherwise prefs.VideosPerDay is used, defaulting to 1.
func ResolvePace(total int, prefs Preferences, today time.Time) int {
	if prefs.TargetCompletionDate != nil {
		days := max(1, DaysBetween(today, *prefs.TargetCompletionDate))
		return max(1, ceilDiv(total, days))
	}
	if prefs.VideosPerDay < 1 {
		return 1
	}
	return prefs.VideosPerDay
}

// DaysNeeded returns how many days total videos take at perDay a day.
func DaysNeeded(total, perDay int) int {
	if total <= 0 {
		return 0
	}
	return ceilDiv(total, max(1, perDay))
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
