// Package ytplan turns a public YouTube playlist into a day-by-day viewing
// plan.
//
// Overview
//
// ytplan provides high-level convenience functions for the common path:
//
//   - CrawlPlaylist: Enumerate every playable video of a playlist
//   - CrawlPlaylists: Crawl several playlists concurrently
//   - BuildSchedule: Turn a crawled playlist into a schedule
//
// Quick Start
//
// Crawl a playlist:
//
//	ctx := context.Background()
//	snap, err := ytplan.CrawlPlaylist(ctx, "https://www.youtube.com/playlist?list=PLxxxxxxxx")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%s: %d videos, %d seconds\n", snap.Title, len(snap.Videos), snap.TotalDurationSeconds)
//
// Build a schedule at three videos a day:
//
//	sched := ytplan.BuildSchedule(ctx, snap, schedule.Preferences{VideosPerDay: 3})
//	for _, day := range sched.Days {
//		fmt.Println(day.Date.Format("2006-01-02"), day.VideoPositions, day.MotivationalMessage)
//	}
//
// BuildSchedule never fails. Without a generator (see WithGenerator) or when
// the generator errors, times out or returns invalid output, the schedule is
// computed deterministically and its Source is schedule.SourceFallback.
//
// Crawling
//
// The default source reads the playlist web page and follows Innertube
// continuation tokens. Only a failure on the first page is an error
// (*CrawlError); later failures end pagination and the videos collected so
// far are returned. The YouTube Data API can be used instead:
//
//	src, err := dataapi.New(ctx, os.Getenv("YOUTUBE_API_KEY"))
//	snap, err := ytplan.CrawlPlaylist(ctx, id, ytplan.WithSource(src))
//
// Configuration
//
// The ytplan command loads settings from multiple sources:
//
//  1. Environment variables (highest priority)
//  2. Config file (ytplan.json or ytplan.yaml in the working directory or ~/.config/ytplan/)
//  3. Default values (lowest priority)
//
// Environment variables:
//
//   - YTPLAN_SOURCE: Playlist source, innertube or dataapi
//   - YTPLAN_MAX_PAGES: Continuation request budget per crawl
//   - YTPLAN_CONCURRENCY: Parallel crawls
//   - YTPLAN_HTTP_TIMEOUT, YTPLAN_MAX_RETRIES, YTPLAN_INITIAL_BACKOFF, YTPLAN_MAX_BACKOFF
//   - YTPLAN_RPS: Requests per second to youtube.com
//   - YTPLAN_AI_MODEL, YTPLAN_AI_TIMEOUT: Gemini model and per-call timeout
//   - GEMINI_API_KEY (or GOOGLE_GENERATIVE_AI_API_KEY): Enables AI schedules
//   - YOUTUBE_API_KEY: Required by the dataapi source
//   - YTPLAN_STORE, YTPLAN_STORE_PATH: Routine store driver (json or sqlite) and location
//   - YTPLAN_LOG_LEVEL, YTPLAN_LOG_JSON: Logging
//
// Error Handling
//
// Checking for sentinel errors:
//
//	if errors.Is(err, ytplan.ErrInvalidPlaylistID) {
//		fmt.Println("not a playlist")
//	}
//
// Extracting wrapped error details:
//
//	var crawlErr *ytplan.CrawlError
//	if errors.As(err, &crawlErr) {
//		fmt.Printf("%s failed at %s: %v\n", crawlErr.PlaylistID, crawlErr.Stage, crawlErr.Err)
//	}
//
// Advanced Usage
//
// For more control, use the sub-packages directly:
//
//   - youtube: Data model, duration parsing, playlist ID resolution
//   - youtube/innertube: Page parser and continuation crawler
//   - youtube/dataapi: Data API source
//   - schedule: Pace resolution, fallback schedule, synthesizer, Gemini generator
//   - routine: Routine creation, completion tracking and statistics
package ytplan
