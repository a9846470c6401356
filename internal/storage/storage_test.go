package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ytplan/schedule"
	"ytplan/youtube"
)

type storeFactory func(t *testing.T, path string) Store

var stores = map[string]struct {
	file string
	open storeFactory
}{
	"json": {"routines.json", func(t *testing.T, path string) Store {
		s, err := NewJSONStore(path)
		if err != nil {
			t.Fatalf("NewJSONStore() error = %v", err)
		}
		return s
	}},
	"sqlite": {"routines.db", func(t *testing.T, path string) Store {
		s, err := NewSQLiteStore(path)
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		return s
	}},
}

// forEachStore runs fn against a fresh store of every kind.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store, reopen func() Store)) {
	for name, f := range stores {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), f.file)
			s := f.open(t, path)
			current := s
			t.Cleanup(func() { current.Close() })
			reopen := func() Store {
				current.Close()
				current = f.open(t, path)
				return current
			}
			fn(t, s, reopen)
		})
	}
}

func testSnapshot(n int) *youtube.PlaylistSnapshot {
	videos := make([]youtube.VideoRecord, n)
	for i := range videos {
		videos[i] = youtube.VideoRecord{
			VideoID:         fmt.Sprintf("vid%d", i+1),
			Title:           fmt.Sprintf("Video %d", i+1),
			DurationSeconds: 120,
			ThumbnailURL:    fmt.Sprintf("https://i.ytimg.com/vi/vid%d/mqdefault.jpg", i+1),
			Position:        i + 1,
		}
	}
	return youtube.NewSnapshot("PLstore", "Store course", videos)
}

var startDay = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.Local)

func testPlan(t *testing.T) *RoutinePlan {
	t.Helper()
	sched := schedule.Fallback(5, 2, startDay)
	plan, dropped := Materialize(testSnapshot(5), sched, RoutineOptions{VideosPerDay: 2, StartDate: startDay})
	if dropped != 0 {
		t.Fatalf("dropped = %d", dropped)
	}
	return plan
}

func TestMaterialize(t *testing.T) {
	snap := testSnapshot(3)
	target := startDay.AddDate(0, 0, 10)
	sched := &schedule.Schedule{
		Days: []schedule.Day{
			{Date: startDay, VideoPositions: []int{1, 2}},
			{Date: startDay.AddDate(0, 0, 1), VideoPositions: []int{3, 4, 7}},
		},
		Tips:   []string{"tip"},
		Source: schedule.SourceAI,
	}

	plan, dropped := Materialize(snap, sched, RoutineOptions{VideosPerDay: 2, TargetCompletionDate: &target, StartDate: startDay})

	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(plan.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(plan.Tasks))
	}
	videos := plan.VideoByID()
	for _, task := range plan.Tasks {
		v, ok := videos[task.VideoID]
		if !ok {
			t.Fatalf("task %s references unknown video", task.ID)
		}
		if v.Position != task.Position {
			t.Errorf("task position %d references video at %d", task.Position, v.Position)
		}
		if task.RoutineID != plan.Routine.ID {
			t.Errorf("task routine = %s", task.RoutineID)
		}
	}
	if plan.Tasks[2].ScheduledDate != "2024-03-05" {
		t.Errorf("ScheduledDate = %s", plan.Tasks[2].ScheduledDate)
	}

	r := plan.Routine
	if r.StartDate != "2024-03-04" || r.TargetCompletionDate != "2024-03-14" || !r.IsActive || r.ScheduleSource != "ai" {
		t.Errorf("routine = %+v", r)
	}
	if plan.Playlist.TotalVideos != 3 || plan.Playlist.TotalDurationSeconds != 360 || plan.Playlist.ThumbnailURL == "" {
		t.Errorf("playlist = %+v", plan.Playlist)
	}
	if plan.Playlist.URL != "https://www.youtube.com/playlist?list=PLstore" {
		t.Errorf("URL = %s", plan.Playlist.URL)
	}
}

func TestCreateAndGetRoutine(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, reopen func() Store) {
		ctx := context.Background()
		plan := testPlan(t)
		if err := s.CreateRoutine(ctx, plan); err != nil {
			t.Fatalf("CreateRoutine() error = %v", err)
		}

		s = reopen()
		got, err := s.GetRoutine(ctx, plan.Routine.ID)
		if err != nil {
			t.Fatalf("GetRoutine() error = %v", err)
		}
		if got.Playlist.Title != "Store course" || got.Playlist.YouTubeID != "PLstore" {
			t.Errorf("playlist = %+v", got.Playlist)
		}
		if len(got.Videos) != 5 || got.Videos[4].Position != 5 {
			t.Errorf("videos = %d", len(got.Videos))
		}
		if len(got.Tasks) != 5 {
			t.Fatalf("tasks = %d", len(got.Tasks))
		}
		if got.Tasks[0].ScheduledDate != "2024-03-04" || got.Tasks[4].ScheduledDate != "2024-03-06" {
			t.Errorf("task dates = %s..%s", got.Tasks[0].ScheduledDate, got.Tasks[4].ScheduledDate)
		}
		if len(got.Routine.Tips) != 5 || got.Routine.VideosPerDay != 2 {
			t.Errorf("routine = %+v", got.Routine)
		}

		if err := s.CreateRoutine(ctx, plan); err == nil {
			t.Error("creating the same routine twice should fail")
		}
	})
}

func TestGetRoutineNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ func() Store) {
		_, err := s.GetRoutine(context.Background(), "missing")
		var storErr *StorageError
		if !errors.As(err, &storErr) || !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found StorageError, got %v", err)
		}
		if storErr != nil && storErr.Entity != "routine" {
			t.Errorf("Entity = %q", storErr.Entity)
		}
	})
}

func TestSetTaskCompleted(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, reopen func() Store) {
		ctx := context.Background()
		plan := testPlan(t)
		if err := s.CreateRoutine(ctx, plan); err != nil {
			t.Fatal(err)
		}
		taskID := plan.Tasks[0].ID
		at := time.Date(2024, time.March, 4, 20, 0, 0, 0, time.UTC)

		task, err := s.SetTaskCompleted(ctx, taskID, true, at)
		if err != nil {
			t.Fatalf("SetTaskCompleted() error = %v", err)
		}
		if !task.IsCompleted || task.CompletedAt == nil || !task.CompletedAt.Equal(at) {
			t.Errorf("task = %+v", task)
		}

		s = reopen()
		got, err := s.GetRoutine(ctx, plan.Routine.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Tasks[0].IsCompleted {
			t.Error("completion not persisted")
		}

		task, err = s.SetTaskCompleted(ctx, taskID, false, at)
		if err != nil {
			t.Fatal(err)
		}
		if task.IsCompleted || task.CompletedAt != nil {
			t.Errorf("task not cleared: %+v", task)
		}

		if _, err := s.SetTaskCompleted(ctx, "missing", true, at); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestListTasksForDate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ func() Store) {
		ctx := context.Background()
		first, second := testPlan(t), testPlan(t)
		for _, p := range []*RoutinePlan{first, second} {
			if err := s.CreateRoutine(ctx, p); err != nil {
				t.Fatal(err)
			}
		}

		tasks, err := s.ListTasksForDate(ctx, "2024-03-05")
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 4 {
			t.Fatalf("got %d tasks, want 4", len(tasks))
		}
		for _, task := range tasks {
			if task.ScheduledDate != "2024-03-05" {
				t.Errorf("task on %s", task.ScheduledDate)
			}
		}

		none, err := s.ListTasksForDate(ctx, "2025-01-01")
		if err != nil || len(none) != 0 {
			t.Errorf("ListTasksForDate(empty day) = %v, %v", none, err)
		}

		if _, err := s.ListTasksForDate(ctx, "tomorrow"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestDeleteRoutine(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ func() Store) {
		ctx := context.Background()
		keep, drop := testPlan(t), testPlan(t)
		for _, p := range []*RoutinePlan{keep, drop} {
			if err := s.CreateRoutine(ctx, p); err != nil {
				t.Fatal(err)
			}
		}

		if err := s.DeleteRoutine(ctx, drop.Routine.ID); err != nil {
			t.Fatalf("DeleteRoutine() error = %v", err)
		}
		if _, err := s.GetRoutine(ctx, drop.Routine.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("deleted routine still readable: %v", err)
		}
		if _, err := s.SetTaskCompleted(ctx, drop.Tasks[0].ID, true, time.Now()); !errors.Is(err, ErrNotFound) {
			t.Errorf("tasks not cascaded: %v", err)
		}

		tasks, err := s.ListTasksForDate(ctx, "2024-03-04")
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 2 || tasks[0].RoutineID != keep.Routine.ID {
			t.Errorf("remaining tasks = %+v", tasks)
		}

		routines, err := s.ListRoutines(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(routines) != 1 || routines[0].ID != keep.Routine.ID {
			t.Errorf("routines = %+v", routines)
		}

		if err := s.DeleteRoutine(ctx, drop.Routine.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete = %v", err)
		}
	})
}

func TestListRoutinesNewestFirst(t *testing.T) {
	tests := []struct {
		name         string
		older, newer time.Time
	}{
		{"months apart", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"whole second then fraction", time.Date(2024, 1, 1, 12, 0, 1, 0, time.UTC), time.Date(2024, 1, 1, 12, 0, 1, 500_000_000, time.UTC)},
		{"trailing zeros", time.Date(2024, 1, 1, 12, 0, 1, 100_000_000, time.UTC), time.Date(2024, 1, 1, 12, 0, 1, 120_000_000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forEachStore(t, func(t *testing.T, s Store, _ func() Store) {
				ctx := context.Background()
				older, newer := testPlan(t), testPlan(t)
				older.Routine.CreatedAt = tt.older
				newer.Routine.CreatedAt = tt.newer
				for _, p := range []*RoutinePlan{older, newer} {
					if err := s.CreateRoutine(ctx, p); err != nil {
						t.Fatal(err)
					}
				}
				routines, err := s.ListRoutines(ctx)
				if err != nil {
					t.Fatal(err)
				}
				if len(routines) != 2 {
					t.Fatalf("got %d routines", len(routines))
				}
				if routines[0].ID != newer.Routine.ID {
					t.Errorf("order = %v, %v", routines[0].ID, routines[1].ID)
				}
				if !routines[0].CreatedAt.Equal(tt.newer) {
					t.Errorf("CreatedAt = %v, want %v", routines[0].CreatedAt, tt.newer)
				}
			})
		})
	}
}

func TestFormatTimeFixedWidth(t *testing.T) {
	a := formatTime(time.Date(2024, 1, 1, 12, 0, 1, 0, time.UTC))
	b := formatTime(time.Date(2024, 1, 1, 12, 0, 1, 500_000_000, time.FixedZone("X", 3600)))
	if len(a) != len(b) {
		t.Errorf("widths differ: %q, %q", a, b)
	}
	if a != "2024-01-01T12:00:01.000000000Z" {
		t.Errorf("formatTime = %q", a)
	}
	if got := parseTime(a); !got.Equal(time.Date(2024, 1, 1, 12, 0, 1, 0, time.UTC)) {
		t.Errorf("parseTime(%q) = %v", a, got)
	}
}

func TestCreateRoutineRejectsDanglingTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ func() Store) {
		plan := testPlan(t)
		plan.Tasks[0].VideoID = "nope"
		err := s.CreateRoutine(context.Background(), plan)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestJSONStoreLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.json")
	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	l := newFileLock(path)
	if err := l.lock(50 * time.Millisecond); !errors.Is(err, ErrLockTimeout) {
		l.unlock()
		t.Errorf("expected ErrLockTimeout, got %v", err)
	}
}

func TestJSONStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewJSONStore(path); !errors.Is(err, ErrStorageCorrupt) {
		t.Errorf("expected ErrStorageCorrupt, got %v", err)
	}
}

func TestJSONStoreKeepsStateWhenWriteFails(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(filepath.Join(dir, "routines.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	kept := testPlan(t)
	if err := s.CreateRoutine(ctx, kept); err != nil {
		t.Fatal(err)
	}

	// A regular file where the store directory should be makes every write fail.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s.path = filepath.Join(blocker, "routines.json")

	at := time.Date(2024, time.March, 4, 20, 0, 0, 0, time.UTC)
	taskID := kept.Tasks[0].ID
	if _, err := s.SetTaskCompleted(ctx, taskID, true, at); err == nil {
		t.Fatal("SetTaskCompleted() succeeded on an unwritable store")
	}
	got, err := s.GetRoutine(ctx, kept.Routine.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range got.Tasks {
		if task.IsCompleted || task.CompletedAt != nil {
			t.Errorf("task %s completed after failed write", task.ID)
		}
	}

	if err := s.DeleteRoutine(ctx, kept.Routine.ID); err == nil {
		t.Fatal("DeleteRoutine() succeeded on an unwritable store")
	}
	if _, err := s.GetRoutine(ctx, kept.Routine.ID); err != nil {
		t.Errorf("routine lost after failed delete: %v", err)
	}
	if tasks, _ := s.ListTasksForDate(ctx, "2024-03-04"); len(tasks) != 2 {
		t.Errorf("got %d tasks on 2024-03-04, want 2", len(tasks))
	}

	added := testPlan(t)
	if err := s.CreateRoutine(ctx, added); err == nil {
		t.Fatal("CreateRoutine() succeeded on an unwritable store")
	}
	if _, err := s.GetRoutine(ctx, added.Routine.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("routine visible after failed create: %v", err)
	}
	routines, err := s.ListRoutines(ctx)
	if err != nil || len(routines) != 1 {
		t.Errorf("ListRoutines() = %d routines, %v", len(routines), err)
	}
}
