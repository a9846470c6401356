package routine

import (
	"math"
	"time"

	"ytplan/internal/storage"
)

// Stats summarizes progress over one or more routines.
type Stats struct {
	TotalTasks     int `json:"totalTasks" yaml:"total_tasks"`
	CompletedTasks int `json:"completedTasks" yaml:"completed_tasks"`
	// MinutesWatched sums the durations of completed videos.
	MinutesWatched int `json:"minutesWatched" yaml:"minutes_watched"`
	// CurrentStreak counts consecutive days, ending today, with at least
	// one completion.
	CurrentStreak  int `json:"currentStreak" yaml:"current_streak"`
	TodayTotal     int `json:"todayTotal" yaml:"today_total"`
	TodayCompleted int `json:"todayCompleted" yaml:"today_completed"`
}

// Percent returns the completed share of all tasks, 0 to 100.
func (s Stats) Percent() float64 {
	if s.TotalTasks == 0 {
		return 0
	}
	return float64(s.CompletedTasks) * 100 / float64(s.TotalTasks)
}

// ComputeStats summarizes plans as of now. Completion days use now's
// location.
func ComputeStats(plans []*storage.RoutinePlan, now time.Time) Stats {
	var (
		s             Stats
		seconds       int
		completedDays = make(map[string]bool)
		today         = now.Format(storage.DateLayout)
	)

	for _, plan := range plans {
		videos := plan.VideoByID()
		for _, t := range plan.Tasks {
			s.TotalTasks++
			if t.ScheduledDate == today {
				s.TodayTotal++
			}
			if !t.IsCompleted {
				continue
			}
			s.CompletedTasks++
			if t.ScheduledDate == today {
				s.TodayCompleted++
			}
			if v, ok := videos[t.VideoID]; ok {
				seconds += v.DurationSeconds
			}
			if t.CompletedAt != nil {
				completedDays[t.CompletedAt.In(now.Location()).Format(storage.DateLayout)] = true
			}
		}
	}

	s.MinutesWatched = int(math.Round(float64(seconds) / 60))
	for day := now; completedDays[day.Format(storage.DateLayout)]; day = day.AddDate(0, 0, -1) {
		s.CurrentStreak++
	}
	return s
}
