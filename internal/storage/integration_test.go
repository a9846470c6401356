//go:build integration

package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"ytplan/schedule"
)

// TestConcurrentCompletion toggles every task of a routine from parallel
// goroutines and checks that all writes survive a reopen.
func TestConcurrentCompletion(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, reopen func() Store) {
		ctx := context.Background()
		plan, _ := Materialize(testSnapshot(40), schedule.Fallback(40, 4, startDay), RoutineOptions{VideosPerDay: 4, StartDate: startDay})
		if err := s.CreateRoutine(ctx, plan); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		errs := make(chan error, len(plan.Tasks))
		for _, task := range plan.Tasks {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := s.SetTaskCompleted(ctx, id, true, time.Now()); err != nil {
					errs <- err
				}
			}(task.ID)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("SetTaskCompleted() error = %v", err)
		}

		s = reopen()
		got, err := s.GetRoutine(ctx, plan.Routine.ID)
		if err != nil {
			t.Fatal(err)
		}
		for _, task := range got.Tasks {
			if !task.IsCompleted {
				t.Errorf("task %d not completed", task.Position)
			}
		}
	})
}

// TestLargePlaylist stores a routine at the crawler's practical ceiling.
func TestLargePlaylist(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, reopen func() Store) {
		ctx := context.Background()
		const n = 5000
		plan, _ := Materialize(testSnapshot(n), schedule.Fallback(n, 7, startDay), RoutineOptions{VideosPerDay: 7, StartDate: startDay})

		start := time.Now()
		if err := s.CreateRoutine(ctx, plan); err != nil {
			t.Fatal(err)
		}
		t.Logf("created %d tasks in %v", n, time.Since(start))

		s = reopen()
		got, err := s.GetRoutine(ctx, plan.Routine.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Tasks) != n || len(got.Videos) != n {
			t.Errorf("got %d tasks, %d videos", len(got.Tasks), len(got.Videos))
		}
	})
}
