// Package youtube holds the playlist data model shared by every playlist
// source, plus the parsers that normalize what those sources return.
package youtube

import (
	"context"
	"fmt"
	"strings"
)

// UntitledPlaylist is used when a source exposes no playlist title.
const UntitledPlaylist = "Untitled Playlist"

// UntitledVideo is used when a playable item carries no title text.
const UntitledVideo = "Untitled"

// VideoRecord is one playable playlist item in canonical form.
type VideoRecord struct {
	// VideoID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	VideoID string `json:"videoId" yaml:"video_id"`
	Title   string `json:"title" yaml:"title"`
	// DurationSeconds is 0 when the source gave no parseable duration.
	DurationSeconds int    `json:"durationSeconds" yaml:"duration_seconds"`
	ThumbnailURL    string `json:"thumbnailUrl" yaml:"thumbnail_url"`
	// Position is 1-based and counts playable items only.
	Position int `json:"position" yaml:"position"`
}

// VideoURL returns the watch URL of the video.
func (v VideoRecord) VideoURL() string {
	return "https://www.youtube.com/watch?v=" + v.VideoID
}

// PlaylistSnapshot is the result of one complete crawl.
type PlaylistSnapshot struct {
	PlaylistID           string        `json:"playlistId" yaml:"playlist_id"`
	Title                string        `json:"title" yaml:"title"`
	Videos               []VideoRecord `json:"videos" yaml:"videos"`
	TotalDurationSeconds int           `json:"totalDurationSeconds" yaml:"total_duration_seconds"`
}

// NewSnapshot builds a snapshot and computes its total duration. Positions
// are taken as given; sources assign them while accumulating.
func NewSnapshot(playlistID, title string, videos []VideoRecord) *PlaylistSnapshot {
	if videos == nil {
		videos = []VideoRecord{}
	}
	total := 0
	for _, v := range videos {
		total += v.DurationSeconds
	}
	if strings.TrimSpace(title) == "" {
		title = UntitledPlaylist
	}
	return &PlaylistSnapshot{
		PlaylistID:           playlistID,
		Title:                title,
		Videos:               videos,
		TotalDurationSeconds: total,
	}
}

// Validate checks that positions run 1..N without gaps and that the total
// matches the sum of durations.
func (s *PlaylistSnapshot) Validate() error {
	total := 0
	for i, v := range s.Videos {
		if v.Position != i+1 {
			return fmt.Errorf("youtube: video %q at index %d has position %d", v.VideoID, i, v.Position)
		}
		if v.DurationSeconds < 0 {
			return fmt.Errorf("youtube: video %q has negative duration", v.VideoID)
		}
		total += v.DurationSeconds
	}
	if total != s.TotalDurationSeconds {
		return fmt.Errorf("youtube: total duration %d does not match sum %d", s.TotalDurationSeconds, total)
	}
	return nil
}

// Len returns the number of videos in the snapshot.
func (s *PlaylistSnapshot) Len() int {
	return len(s.Videos)
}

// Source enumerates a playlist. Implementations are the Innertube crawler
// and the Data API client.
type Source interface {
	Crawl(ctx context.Context, playlistID string) (*PlaylistSnapshot, error)
}

// ThumbnailURL normalizes a thumbnail reference for videoID. Protocol
// relative URLs get an https scheme; an empty reference falls back to the
// medium-quality default image.
func ThumbnailURL(videoID, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "https://i.ytimg.com/vi/" + videoID + "/mqdefault.jpg"
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}
