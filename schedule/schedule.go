// Package schedule turns a playlist snapshot and pacing preferences into a
// day-by-day viewing plan.
//
// A Synthesizer asks a Generator (normally Gemini) for a plan and falls back
// to the deterministic Fallback plan whenever the generator is unconfigured,
// fails, times out or returns something that does not validate. Callers
// always get a complete Schedule back.
package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of schedule dates.
const DateLayout = "2006-01-02"

// Source records which path produced a schedule.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Preferences controls pacing. When TargetCompletionDate is set it wins over
// VideosPerDay.
type Preferences struct {
	// VideosPerDay below 1 means 1.
	VideosPerDay         int        `json:"videosPerDay,omitempty" yaml:"videos_per_day,omitempty"`
	TargetCompletionDate *time.Time `json:"targetCompletionDate,omitempty" yaml:"target_completion_date,omitempty"`
}

// Day is one calendar day of a schedule.
type Day struct {
	Date time.Time
	// VideoPositions reference VideoRecord.Position in the snapshot.
	VideoPositions      []int
	MotivationalMessage string
}

type dayJSON struct {
	Date                string `json:"date" yaml:"date"`
	VideoIndices        []int  `json:"videoIndices" yaml:"video_indices"`
	MotivationalMessage string `json:"motivationalMessage" yaml:"motivational_message"`
}

func (d Day) wire() dayJSON {
	positions := d.VideoPositions
	if positions == nil {
		positions = []int{}
	}
	return dayJSON{
		Date:                d.Date.Format(DateLayout),
		VideoIndices:        positions,
		MotivationalMessage: d.MotivationalMessage,
	}
}

// MarshalJSON writes the date as YYYY-MM-DD.
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.wire())
}

// UnmarshalJSON reads the YYYY-MM-DD form written by MarshalJSON.
func (d *Day) UnmarshalJSON(data []byte) error {
	var w dayJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	date, err := ParseDate(w.Date)
	if err != nil {
		return err
	}
	*d = Day{Date: date, VideoPositions: w.VideoIndices, MotivationalMessage: w.MotivationalMessage}
	return nil
}

// MarshalYAML mirrors the JSON form.
func (d Day) MarshalYAML() (any, error) {
	return d.wire(), nil
}

// Schedule is the synthesizer's output.
type Schedule struct {
	Days   []Day    `json:"schedule" yaml:"schedule"`
	Tips   []string `json:"tips" yaml:"tips"`
	Source Source   `json:"source,omitempty" yaml:"source,omitempty"`
}

// Len returns the number of scheduled videos.
func (s *Schedule) Len() int {
	n := 0
	for _, d := range s.Days {
		n += len(d.VideoPositions)
	}
	return n
}

// Validate checks that the schedule covers positions 1..total exactly once
// and that no day is empty.
func (s *Schedule) Validate(total int) error {
	seen := make(map[int]bool, total)
	for i, d := range s.Days {
		if len(d.VideoPositions) == 0 {
			return fmt.Errorf("schedule: day %d (%s) is empty", i+1, d.Date.Format(DateLayout))
		}
		for _, p := range d.VideoPositions {
			if p < 1 || p > total {
				return fmt.Errorf("schedule: position %d out of range 1..%d", p, total)
			}
			if seen[p] {
				return fmt.Errorf("schedule: position %d scheduled twice", p)
			}
			seen[p] = true
		}
	}
	if len(seen) != total {
		return fmt.Errorf("schedule: %d of %d positions scheduled", len(seen), total)
	}
	return nil
}

// DayOf returns the day a position is scheduled on.
func (s *Schedule) DayOf(position int) (Day, bool) {
	for _, d := range s.Days {
		for _, p := range d.VideoPositions {
			if p == position {
				return d, true
			}
		}
	}
	return Day{}, false
}

// ParseDate parses a YYYY-MM-DD date in the local time zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: invalid date %q: %w", s, err)
	}
	return t, nil
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from one date to another, ignoring the
// time of day. It is negative when to is before from.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
