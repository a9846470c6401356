package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"

	"ytplan/youtube"
)

// Synthesizer produces schedules, preferring its Generator and falling back
// to Fallback. It is safe for concurrent use when its Generator is.
type Synthesizer struct {
	generator Generator
	logger    hclog.Logger
	now       func() time.Time
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithGenerator sets the generator. Without one every schedule is a fallback
// schedule.
func WithGenerator(g Generator) Option {
	return func(s *Synthesizer) {
		s.generator = g
	}
}

// WithLogger sets the logger fallbacks are reported to.
func WithLogger(l hclog.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, which decides "today".
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		logger: hclog.NewNullLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns a schedule for snap starting today. It never fails:
// generator errors, timeouts and invalid output are logged and replaced by
// the fallback schedule. The returned schedule always covers positions
// 1..len(snap.Videos) exactly once.
func (s *Synthesizer) Synthesize(ctx context.Context, snap *youtube.PlaylistSnapshot, prefs Preferences) *Schedule {
	today := Midnight(s.now())
	total := 0
	if snap != nil {
		total = snap.Len()
	}
	perDay := ResolvePace(total, prefs, today)

	log := s.logger
	if snap != nil {
		log = log.With("playlist", snap.PlaylistID)
	}

	if total == 0 || s.generator == nil {
		return Fallback(total, perDay, today)
	}

	req := Request{
		TotalVideos:  total,
		VideosPerDay: perDay,
		DaysNeeded:   DaysNeeded(total, perDay),
		StartDate:    today,
		TargetDate:   prefs.TargetCompletionDate,
		Manifest:     manifest(snap),
	}

	sched, err := s.generate(ctx, req)
	if err != nil {
		level := hclog.Warn
		if errors.Is(err, ErrGeneratorUnconfigured) {
			level = hclog.Debug
		}
		log.Log(level, "using fallback schedule", "videos", total, "per_day", perDay, "error", err)
		return Fallback(total, perDay, today)
	}
	return sched
}

func (s *Synthesizer) generate(ctx context.Context, req Request) (*Schedule, error) {
	resp, err := s.generator.GenerateSchedule(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}

	sched, report, err := normalize(resp, req.TotalVideos)
	if err != nil {
		return nil, err
	}
	if report.changed() {
		s.logger.Warn("generator schedule normalized",
			"out_of_range", report.OutOfRange,
			"duplicates", report.Duplicates,
			"empty_days", report.EmptyDays,
			"appended", len(report.Appended))
	}
	return sched, nil
}

func manifest(snap *youtube.PlaylistSnapshot) []ManifestEntry {
	entries := make([]ManifestEntry, len(snap.Videos))
	for i, v := range snap.Videos {
		entries[i] = ManifestEntry{Position: v.Position, Title: v.Title, DurationSeconds: v.DurationSeconds}
	}
	return entries
}
