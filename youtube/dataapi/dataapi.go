// Package dataapi enumerates playlists through the official YouTube Data API
// v3. It needs an API key and spends quota, but is not affected by changes
// to the web page layout.
package dataapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"ytplan/internal/retry"
	"ytplan/youtube"
)

const (
	// pageSize is the largest page the API serves.
	pageSize = 50

	// DefaultMaxPages matches the Innertube crawler's budget.
	DefaultMaxPages = 100
)

// Quota costs per call, in units of the daily 10,000 unit budget.
const (
	quotaList = 1
)

var unavailableTitles = map[string]bool{
	"Private video": true,
	"Deleted video": true,
}

// Crawler implements youtube.Source on top of the Data API.
type Crawler struct {
	service     *ytapi.Service
	maxPages    int
	retryConfig retry.Config
	logger      hclog.Logger
	clientOpts  []option.ClientOption
}

// Option configures the crawler.
type Option func(*Crawler)

// WithMaxPages bounds the number of playlistItems pages read.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithRetryConfig sets the retry policy applied to every API call.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Crawler) {
		c.retryConfig = cfg
	}
}

// WithLogger sets the crawler's logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClientOptions passes extra options to the API client, e.g. an endpoint.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Crawler) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// New creates a Data API crawler authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts ...Option) (*Crawler, error) {
	if apiKey == "" {
		return nil, youtube.ErrAPIKeyRequired
	}

	c := &Crawler{
		maxPages:    DefaultMaxPages,
		retryConfig: retry.CrawlConfig(),
		logger:      hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, c.clientOpts...)
	service, err := ytapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	c.service = service
	return c, nil
}

// Crawl implements youtube.Source.
//
// Failures before the first page of items is read are returned as
// *youtube.CrawlError. A failure on a later page ends pagination and the
// items read so far are kept.
func (c *Crawler) Crawl(ctx context.Context, playlistID string) (*youtube.PlaylistSnapshot, error) {
	log := c.logger.With("playlist", playlistID)
	crawlErr := func(err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &youtube.CrawlError{Source: "dataapi", Stage: youtube.StageFetch, PlaylistID: playlistID, Err: err}
	}

	title, err := c.playlistTitle(ctx, playlistID)
	if err != nil {
		return nil, crawlErr(err)
	}

	var (
		videos    []youtube.VideoRecord
		pageToken string
		quota     = quotaList
	)

	for page := 0; page < c.maxPages; page++ {
		var resp *ytapi.PlaylistItemListResponse
		err := retry.Do(ctx, c.retryConfig, apiErrorClassifier, func(ctx context.Context) error {
			call := c.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(pageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			if page == 0 {
				return nil, crawlErr(err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("playlist items page failed, keeping partial playlist", "page", page+1, "error", err)
			break
		}
		quota += quotaList

		for _, item := range resp.Items {
			if rec, ok := toRecord(item); ok {
				rec.Position = len(videos) + 1
				videos = append(videos, rec)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	spent, err := c.fillDurations(ctx, videos)
	quota += spent
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("video durations unavailable", "error", err)
	}

	log.Debug("crawl finished", "videos", len(videos), "quota_units", quota)
	return youtube.NewSnapshot(playlistID, title, videos), nil
}

func (c *Crawler) playlistTitle(ctx context.Context, playlistID string) (string, error) {
	var title string
	err := retry.Do(ctx, c.retryConfig, apiErrorClassifier, func(ctx context.Context) error {
		resp, err := c.service.Playlists.List([]string{"snippet"}).Id(playlistID).Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return retry.Permanent(youtube.ErrPlaylistNotFound)
		}
		if s := resp.Items[0].Snippet; s != nil {
			title = s.Title
		}
		return nil
	})
	return title, err
}

// fillDurations looks up durations in batches of pageSize and returns the
// quota spent. Videos whose batch fails keep a duration of 0.
func (c *Crawler) fillDurations(ctx context.Context, videos []youtube.VideoRecord) (int, error) {
	index := make(map[string][]int, len(videos))
	ids := make([]string, 0, len(videos))
	for i, v := range videos {
		if _, seen := index[v.VideoID]; !seen {
			ids = append(ids, v.VideoID)
		}
		index[v.VideoID] = append(index[v.VideoID], i)
	}

	spent := 0
	var errs []error
	for start := 0; start < len(ids); start += pageSize {
		end := min(start+pageSize, len(ids))
		batch := ids[start:end]

		var resp *ytapi.VideoListResponse
		err := retry.Do(ctx, c.retryConfig, apiErrorClassifier, func(ctx context.Context) error {
			var err error
			resp, err = c.service.Videos.List([]string{"contentDetails"}).Id(batch...).Context(ctx).Do()
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return spent, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		spent += quotaList

		for _, item := range resp.Items {
			if item.ContentDetails == nil {
				continue
			}
			secs := youtube.ParseISODuration(item.ContentDetails.Duration)
			for _, i := range index[item.Id] {
				videos[i].DurationSeconds = secs
			}
		}
	}
	return spent, errors.Join(errs...)
}

// toRecord converts a playlist item, reporting false for items that cannot
// be watched.
func toRecord(item *ytapi.PlaylistItem) (youtube.VideoRecord, bool) {
	if item == nil || item.Snippet == nil {
		return youtube.VideoRecord{}, false
	}
	videoID := ""
	if item.ContentDetails != nil {
		videoID = item.ContentDetails.VideoId
	}
	if videoID == "" && item.Snippet.ResourceId != nil {
		videoID = item.Snippet.ResourceId.VideoId
	}
	if videoID == "" || unavailableTitles[item.Snippet.Title] {
		return youtube.VideoRecord{}, false
	}

	title := item.Snippet.Title
	if title == "" {
		title = youtube.UntitledVideo
	}
	return youtube.VideoRecord{
		VideoID:      videoID,
		Title:        title,
		ThumbnailURL: youtube.ThumbnailURL(videoID, largestThumbnail(item.Snippet.Thumbnails)),
	}, true
}

func largestThumbnail(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*ytapi.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// apiErrorClassifier retries server errors and rate limits. Other client
// errors, including quotaExceeded, will not succeed on retry.
func apiErrorClassifier(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 500 || apiErr.Code == http.StatusTooManyRequests {
			return true
		}
		for _, e := range apiErr.Errors {
			if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
				return true
			}
		}
		return false
	}
	return true
}
