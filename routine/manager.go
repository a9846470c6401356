// Package routine creates and tracks viewing routines: it crawls a
// playlist, asks the synthesizer for a schedule, and stores the result as
// one task per scheduled video.
package routine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"ytplan/internal/storage"
	"ytplan/schedule"
	"ytplan/youtube"
)

var (
	// ErrEmptyPlaylist is returned when a crawl finds no playable videos.
	ErrEmptyPlaylist = errors.New("routine: playlist has no playable videos")
	// ErrAmbiguousID is returned when an ID prefix matches several routines.
	ErrAmbiguousID = errors.New("routine: ambiguous id prefix")
	// ErrNoSuchVideo is returned when a routine has no task at a position.
	ErrNoSuchVideo = errors.New("routine: no task for that position")
)

// Manager ties a playlist source, the synthesizer and a store together.
type Manager struct {
	source youtube.Source
	synth  *schedule.Synthesizer
	store  storage.Store
	logger hclog.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l hclog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now. It should match the synthesizer's clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager. A nil synthesizer gets one without a
// generator.
func NewManager(source youtube.Source, synth *schedule.Synthesizer, store storage.Store, opts ...Option) *Manager {
	if synth == nil {
		synth = schedule.NewSynthesizer()
	}
	m := &Manager{
		source: source,
		synth:  synth,
		store:  store,
		logger: hclog.NewNullLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Created is the result of Create.
type Created struct {
	Plan     *storage.RoutinePlan
	Schedule *schedule.Schedule
	// Dropped counts scheduled positions the snapshot did not have.
	Dropped int
}

// Create crawls the playlist behind ref (an ID or URL), schedules it and
// stores the routine.
func (m *Manager) Create(ctx context.Context, ref string, prefs schedule.Preferences) (*Created, error) {
	playlistID, err := youtube.ResolvePlaylistID(ref)
	if err != nil {
		return nil, err
	}
	log := m.logger.With("playlist", playlistID)

	snap, err := m.source.Crawl(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if snap.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPlaylist, playlistID)
	}

	today := schedule.Midnight(m.now())
	sched := m.synth.Synthesize(ctx, snap, prefs)
	pace := schedule.ResolvePace(snap.Len(), prefs, today)

	plan, dropped := storage.Materialize(snap, sched, storage.RoutineOptions{
		VideosPerDay:         pace,
		TargetCompletionDate: prefs.TargetCompletionDate,
		StartDate:            today,
	})
	if dropped > 0 {
		log.Warn("scheduled positions beyond playlist dropped", "dropped", dropped)
	}
	if err := m.store.CreateRoutine(ctx, plan); err != nil {
		return nil, fmt.Errorf("store routine: %w", err)
	}

	log.Info("routine created", "routine", plan.Routine.ID, "videos", snap.Len(), "days", len(sched.Days), "source", string(sched.Source))
	return &Created{Plan: plan, Schedule: sched, Dropped: dropped}, nil
}

// List returns all routines, newest first.
func (m *Manager) List(ctx context.Context) ([]*storage.Routine, error) {
	return m.store.ListRoutines(ctx)
}

// Get loads a routine by ID or unique ID prefix.
func (m *Manager) Get(ctx context.Context, ref string) (*storage.RoutinePlan, error) {
	id, err := m.resolveID(ctx, ref)
	if err != nil {
		return nil, err
	}
	return m.store.GetRoutine(ctx, id)
}

// Delete removes a routine by ID or unique ID prefix.
func (m *Manager) Delete(ctx context.Context, ref string) error {
	id, err := m.resolveID(ctx, ref)
	if err != nil {
		return err
	}
	if err := m.store.DeleteRoutine(ctx, id); err != nil {
		return err
	}
	m.logger.Info("routine deleted", "routine", id)
	return nil
}

// Complete marks a task done, or not done.
func (m *Manager) Complete(ctx context.Context, taskID string, done bool) (*storage.Task, error) {
	return m.store.SetTaskCompleted(ctx, taskID, done, m.now())
}

// CompletePosition marks the task for the video at position in a routine.
func (m *Manager) CompletePosition(ctx context.Context, routineRef string, position int, done bool) (*storage.Task, error) {
	plan, err := m.Get(ctx, routineRef)
	if err != nil {
		return nil, err
	}
	for _, t := range plan.Tasks {
		if t.Position == position {
			return m.Complete(ctx, t.ID, done)
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrNoSuchVideo, position)
}

// Item is a task joined with what a viewer needs to act on it.
type Item struct {
	Task          *storage.Task  `json:"task" yaml:"task"`
	Video         *storage.Video `json:"video" yaml:"video"`
	PlaylistTitle string         `json:"playlistTitle" yaml:"playlist_title"`
}

// Today lists the tasks scheduled for today across active routines.
func (m *Manager) Today(ctx context.Context) ([]Item, error) {
	return m.Agenda(ctx, m.now())
}

// Agenda lists the tasks scheduled on day across active routines.
func (m *Manager) Agenda(ctx context.Context, day time.Time) ([]Item, error) {
	tasks, err := m.store.ListTasksForDate(ctx, day.Format(storage.DateLayout))
	if err != nil {
		return nil, err
	}

	plans := make(map[string]*storage.RoutinePlan)
	items := make([]Item, 0, len(tasks))
	for _, t := range tasks {
		plan, ok := plans[t.RoutineID]
		if !ok {
			plan, err = m.store.GetRoutine(ctx, t.RoutineID)
			if err != nil {
				return nil, err
			}
			plans[t.RoutineID] = plan
		}
		video := plan.VideoByID()[t.VideoID]
		items = append(items, Item{Task: t, Video: video, PlaylistTitle: plan.Playlist.Title})
	}
	return items, nil
}

// Stats computes progress for one routine, or for every active routine
// when ref is empty.
func (m *Manager) Stats(ctx context.Context, ref string) (Stats, error) {
	if ref != "" {
		plan, err := m.Get(ctx, ref)
		if err != nil {
			return Stats{}, err
		}
		return ComputeStats([]*storage.RoutinePlan{plan}, m.now()), nil
	}

	routines, err := m.store.ListRoutines(ctx)
	if err != nil {
		return Stats{}, err
	}
	var plans []*storage.RoutinePlan
	for _, r := range routines {
		if !r.IsActive {
			continue
		}
		plan, err := m.store.GetRoutine(ctx, r.ID)
		if err != nil {
			return Stats{}, err
		}
		plans = append(plans, plan)
	}
	return ComputeStats(plans, m.now()), nil
}

// resolveID accepts a full routine ID or a unique prefix of one.
func (m *Manager) resolveID(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", &storage.StorageError{Op: "read", Entity: "routine", Err: storage.ErrInvalidInput}
	}
	routines, err := m.store.ListRoutines(ctx)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, r := range routines {
		if r.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", &storage.StorageError{Op: "read", Entity: "routine", ID: ref, Err: storage.ErrNotFound}
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousID, ref, strings.Join(matches, ", "))
	}
}
