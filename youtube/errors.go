package youtube

import (
	"errors"
	"fmt"
)

// Sentinel errors for playlist crawling.
var (
	ErrInvalidPlaylistID   = errors.New("youtube: invalid playlist ID")
	ErrInitialDataNotFound = errors.New("youtube: initial data not found in page")
	ErrVideoListNotFound   = errors.New("youtube: playlist video list not found")
	ErrPlaylistNotFound    = errors.New("youtube: playlist not found")
	ErrAPIKeyRequired      = errors.New("youtube: api key required")
)

// Crawl stages reported by CrawlError.
const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// CrawlError is returned when a crawl cannot produce any snapshot. Failures
// after the first page end pagination instead and are never returned.
//
//	var crawlErr *youtube.CrawlError
//	if errors.As(err, &crawlErr) && crawlErr.Stage == youtube.StageFetch {
//		// playlist page unreachable
//	}
type CrawlError struct {
	// Source is the source that failed ("innertube", "dataapi").
	Source     string
	Stage      string
	PlaylistID string
	Err        error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("youtube: %s %s playlist %s: %v", e.Source, e.Stage, e.PlaylistID, e.Err)
}

func (e *CrawlError) Unwrap() error { return e.Err }
