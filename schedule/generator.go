package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrGeneratorUnconfigured is returned by a generator that has no
// credentials.
var ErrGeneratorUnconfigured = errors.New("schedule: generator not configured")

// Generator produces a schedule from a playlist manifest. Any error it
// returns makes the Synthesizer use the fallback plan.
type Generator interface {
	GenerateSchedule(ctx context.Context, req Request) (*Response, error)
}

// ManifestEntry describes one video to a generator.
type ManifestEntry struct {
	Position        int
	Title           string
	DurationSeconds int
}

// Request is the input to a generator.
type Request struct {
	TotalVideos  int
	VideosPerDay int
	DaysNeeded   int
	StartDate    time.Time
	// TargetDate is nil unless the caller asked for a completion date.
	TargetDate *time.Time
	Manifest   []ManifestEntry
}

// ResponseDay is a day as returned by a generator, before validation.
type ResponseDay struct {
	Date                string `json:"date"`
	VideoIndices        []int  `json:"videoIndices"`
	MotivationalMessage string `json:"motivationalMessage"`
}

// Response is the raw generator output.
type Response struct {
	Schedule []ResponseDay `json:"schedule"`
	Tips     []string      `json:"tips"`
}

// ValidationError reports a generator response that does not have the
// required shape.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schedule: invalid generator response: %s: %s", e.Field, e.Reason)
}

// Validate checks the response shape: at least one day, YYYY-MM-DD dates in
// strictly ascending order, a message for every day and at least one tip.
// Video indices are not checked here; see normalize.
func (r *Response) Validate() error {
	if r == nil || len(r.Schedule) == 0 {
		return &ValidationError{Field: "schedule", Reason: "no days"}
	}
	var prev time.Time
	for i, d := range r.Schedule {
		field := fmt.Sprintf("schedule[%d]", i)
		date, err := time.Parse(DateLayout, d.Date)
		if err != nil {
			return &ValidationError{Field: field + ".date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", d.Date)}
		}
		if i > 0 && !date.After(prev) {
			return &ValidationError{Field: field + ".date", Reason: fmt.Sprintf("%s does not follow %s", d.Date, prev.Format(DateLayout))}
		}
		prev = date
		if d.MotivationalMessage == "" {
			return &ValidationError{Field: field + ".motivationalMessage", Reason: "empty"}
		}
	}
	if len(r.Tips) == 0 {
		return &ValidationError{Field: "tips", Reason: "no tips"}
	}
	return nil
}

// normalizeReport counts what normalize changed.
type normalizeReport struct {
	OutOfRange int
	Duplicates int
	EmptyDays  int
	Appended   []int
}

func (r normalizeReport) changed() bool {
	return r.OutOfRange > 0 || r.Duplicates > 0 || r.EmptyDays > 0 || len(r.Appended) > 0
}

// normalize converts a validated response into a Schedule covering 1..total.
// Out-of-range and repeated indices are dropped, days left empty are
// removed, and positions that were never scheduled are appended in
// ascending order to the final day.
func normalize(resp *Response, total int) (*Schedule, normalizeReport, error) {
	var report normalizeReport
	seen := make([]bool, total+1)
	s := &Schedule{
		Days:   make([]Day, 0, len(resp.Schedule)),
		Tips:   append([]string(nil), resp.Tips...),
		Source: SourceAI,
	}

	for _, rd := range resp.Schedule {
		date, err := ParseDate(rd.Date)
		if err != nil {
			return nil, report, &ValidationError{Field: "schedule.date", Reason: err.Error()}
		}
		var positions []int
		for _, p := range rd.VideoIndices {
			switch {
			case p < 1 || p > total:
				report.OutOfRange++
			case seen[p]:
				report.Duplicates++
			default:
				seen[p] = true
				positions = append(positions, p)
			}
		}
		if len(positions) == 0 {
			report.EmptyDays++
			continue
		}
		s.Days = append(s.Days, Day{Date: date, VideoPositions: positions, MotivationalMessage: rd.MotivationalMessage})
	}

	for p := 1; p <= total; p++ {
		if !seen[p] {
			report.Appended = append(report.Appended, p)
		}
	}
	if len(report.Appended) > 0 {
		if len(s.Days) == 0 {
			return nil, report, &ValidationError{Field: "schedule", Reason: "no valid video indices"}
		}
		last := &s.Days[len(s.Days)-1]
		last.VideoPositions = append(last.VideoPositions, report.Appended...)
	}
	return s, report, nil
}
