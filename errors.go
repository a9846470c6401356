package ytplan

import (
	"ytplan/http"
	"ytplan/internal/retry"
	"ytplan/internal/storage"
	"ytplan/schedule"
	"ytplan/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, ytplan.ErrPlaylistNotFound) {
//		fmt.Println("Playlist not found")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var httpErr *ytplan.HTTPError
//	if errors.As(err, &httpErr) {
//		fmt.Printf("HTTP %d\n", httpErr.StatusCode)
//	}

// Type aliases for convenient error handling.
type (
	// CrawlError reports a crawl that produced no snapshot.
	CrawlError = youtube.CrawlError
	// HTTPError reports a non-success HTTP response.
	HTTPError = http.HTTPError
	// RateLimitError reports a 429 response.
	RateLimitError = http.RateLimitError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// ValidationError reports generator output of the wrong shape.
	ValidationError = schedule.ValidationError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	ErrInvalidPlaylistID   = youtube.ErrInvalidPlaylistID
	ErrInitialDataNotFound = youtube.ErrInitialDataNotFound
	ErrVideoListNotFound   = youtube.ErrVideoListNotFound
	ErrPlaylistNotFound    = youtube.ErrPlaylistNotFound
	ErrAPIKeyRequired      = youtube.ErrAPIKeyRequired

	// ErrGeneratorUnconfigured indicates no AI credentials were supplied.
	ErrGeneratorUnconfigured = schedule.ErrGeneratorUnconfigured

	// Storage errors
	ErrNotFound       = storage.ErrNotFound
	ErrAlreadyExists  = storage.ErrAlreadyExists
	ErrInvalidInput   = storage.ErrInvalidInput
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	ErrLockTimeout    = storage.ErrLockTimeout
)

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
