package storage

import "time"

// DateLayout is the format of every date-only field.
const DateLayout = "2006-01-02"

// Playlist is the crawled playlist a routine was built from.
type Playlist struct {
	ID string `json:"id" yaml:"id"`
	// YouTubeID is the playlist ID (e.g., "PLxxxxxxxx").
	YouTubeID            string    `json:"youtube_id" yaml:"youtube_id"`
	Title                string    `json:"title" yaml:"title"`
	URL                  string    `json:"url" yaml:"url"`
	TotalVideos          int       `json:"total_videos" yaml:"total_videos"`
	TotalDurationSeconds int       `json:"total_duration_seconds" yaml:"total_duration_seconds"`
	ThumbnailURL         string    `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	CreatedAt            time.Time `json:"created_at" yaml:"created_at"`
}

// Video is one playlist entry.
type Video struct {
	ID         string `json:"id" yaml:"id"`
	PlaylistID string `json:"playlist_id" yaml:"playlist_id"`
	// YouTubeID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	YouTubeID       string `json:"youtube_id" yaml:"youtube_id"`
	Title           string `json:"title" yaml:"title"`
	DurationSeconds int    `json:"duration_seconds" yaml:"duration_seconds"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	Position        int    `json:"position" yaml:"position"`
}

// Routine is a viewing plan for one playlist.
type Routine struct {
	ID           string `json:"id" yaml:"id"`
	PlaylistID   string `json:"playlist_id" yaml:"playlist_id"`
	VideosPerDay int    `json:"videos_per_day" yaml:"videos_per_day"`
	// TargetCompletionDate is empty when the pace was given directly.
	TargetCompletionDate string    `json:"target_completion_date,omitempty" yaml:"target_completion_date,omitempty"`
	StartDate            string    `json:"start_date" yaml:"start_date"`
	IsActive             bool      `json:"is_active" yaml:"is_active"`
	Tips                 []string  `json:"tips,omitempty" yaml:"tips,omitempty"`
	ScheduleSource       string    `json:"schedule_source,omitempty" yaml:"schedule_source,omitempty"`
	CreatedAt            time.Time `json:"created_at" yaml:"created_at"`
}

// Task is one video scheduled on one day.
type Task struct {
	ID        string `json:"id" yaml:"id"`
	RoutineID string `json:"routine_id" yaml:"routine_id"`
	// VideoID references Video.ID.
	VideoID       string     `json:"video_id" yaml:"video_id"`
	Position      int        `json:"position" yaml:"position"`
	ScheduledDate string     `json:"scheduled_date" yaml:"scheduled_date"`
	IsCompleted   bool       `json:"is_completed" yaml:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// RoutinePlan is a routine together with everything it references.
type RoutinePlan struct {
	Routine  *Routine  `json:"routine" yaml:"routine"`
	Playlist *Playlist `json:"playlist" yaml:"playlist"`
	Videos   []*Video  `json:"videos" yaml:"videos"`
	Tasks    []*Task   `json:"tasks" yaml:"tasks"`
}

// VideoByID indexes the plan's videos by Video.ID.
func (p *RoutinePlan) VideoByID() map[string]*Video {
	m := make(map[string]*Video, len(p.Videos))
	for _, v := range p.Videos {
		m[v.ID] = v
	}
	return m
}
