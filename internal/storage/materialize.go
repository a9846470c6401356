package storage

import (
	"time"

	"github.com/google/uuid"

	"ytplan/schedule"
	"ytplan/youtube"
)

// RoutineOptions carries the pacing a routine was created with.
type RoutineOptions struct {
	VideosPerDay         int
	TargetCompletionDate *time.Time
	StartDate            time.Time
}

// Materialize expands a schedule into storage records with fresh IDs. Each
// (day, position) pair becomes one task; positions the snapshot does not
// have are dropped and counted in the second return value.
func Materialize(snap *youtube.PlaylistSnapshot, sched *schedule.Schedule, opts RoutineOptions) (*RoutinePlan, int) {
	now := time.Now()

	playlist := &Playlist{
		ID:                   uuid.NewString(),
		YouTubeID:            snap.PlaylistID,
		Title:                snap.Title,
		URL:                  "https://www.youtube.com/playlist?list=" + snap.PlaylistID,
		TotalVideos:          len(snap.Videos),
		TotalDurationSeconds: snap.TotalDurationSeconds,
		CreatedAt:            now,
	}
	if len(snap.Videos) > 0 {
		playlist.ThumbnailURL = snap.Videos[0].ThumbnailURL
	}

	videos := make([]*Video, len(snap.Videos))
	byPosition := make(map[int]*Video, len(snap.Videos))
	for i, rec := range snap.Videos {
		v := &Video{
			ID:              uuid.NewString(),
			PlaylistID:      playlist.ID,
			YouTubeID:       rec.VideoID,
			Title:           rec.Title,
			DurationSeconds: rec.DurationSeconds,
			ThumbnailURL:    rec.ThumbnailURL,
			Position:        rec.Position,
		}
		videos[i] = v
		byPosition[rec.Position] = v
	}

	routine := &Routine{
		ID:             uuid.NewString(),
		PlaylistID:     playlist.ID,
		VideosPerDay:   opts.VideosPerDay,
		StartDate:      opts.StartDate.Format(DateLayout),
		IsActive:       true,
		Tips:           append([]string(nil), sched.Tips...),
		ScheduleSource: string(sched.Source),
		CreatedAt:      now,
	}
	if opts.TargetCompletionDate != nil {
		routine.TargetCompletionDate = opts.TargetCompletionDate.Format(DateLayout)
	}

	var tasks []*Task
	dropped := 0
	for _, day := range sched.Days {
		date := day.Date.Format(DateLayout)
		for _, pos := range day.VideoPositions {
			v, ok := byPosition[pos]
			if !ok {
				dropped++
				continue
			}
			tasks = append(tasks, &Task{
				ID:            uuid.NewString(),
				RoutineID:     routine.ID,
				VideoID:       v.ID,
				Position:      pos,
				ScheduledDate: date,
			})
		}
	}

	return &RoutinePlan{Routine: routine, Playlist: playlist, Videos: videos, Tasks: tasks}, dropped
}
