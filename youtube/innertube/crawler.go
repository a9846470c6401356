package innertube

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"ytplan/youtube"
)

// DefaultMaxPages bounds the number of continuation requests per crawl.
const DefaultMaxPages = 100

// StopReason records why pagination ended.
type StopReason string

const (
	// StopComplete means the last page carried no continuation token.
	StopComplete StopReason = "complete"
	// StopPageLimit means the crawl hit its continuation request budget.
	StopPageLimit StopReason = "page_limit"
	// StopFetchFailed means a continuation request failed after retries.
	StopFetchFailed StopReason = "fetch_failed"
	// StopMalformed means a continuation response could not be decoded.
	StopMalformed StopReason = "malformed_response"
	// StopNoItems means a continuation response held no items.
	StopNoItems StopReason = "no_items"
	// StopNoVideos means a continuation response held no video entries.
	StopNoVideos StopReason = "no_videos"
)

// Stats describes a finished crawl.
type Stats struct {
	// Pages counts the playlist page plus every continuation response used.
	Pages      int
	Videos     int
	Skipped    int
	StopReason StopReason
}

// Crawler enumerates a playlist by fetching its page and then following
// continuation tokens. A Crawler may run several crawls concurrently; each
// crawl keeps its state on its own stack.
type Crawler struct {
	client   *Client
	maxPages int
	logger   hclog.Logger
}

// CrawlerOption configures the crawler.
type CrawlerOption func(*Crawler)

// WithMaxPages overrides DefaultMaxPages. Values below 1 are ignored.
func WithMaxPages(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithLogger sets the logger pagination stops are reported to.
func WithLogger(l hclog.Logger) CrawlerOption {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCrawler creates a crawler on top of client. A nil client gets the defaults.
func NewCrawler(client *Client, opts ...CrawlerOption) *Crawler {
	if client == nil {
		client = NewClient(nil)
	}
	c := &Crawler{
		client:   client,
		maxPages: DefaultMaxPages,
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl implements youtube.Source.
func (c *Crawler) Crawl(ctx context.Context, playlistID string) (*youtube.PlaylistSnapshot, error) {
	snap, _, err := c.CrawlWithStats(ctx, playlistID)
	return snap, err
}

// CrawlWithStats crawls playlistID and reports how pagination ended.
//
// Only failures on the playlist page are returned, as *youtube.CrawlError.
// Once the first page is parsed, every continuation failure ends pagination
// and the videos collected so far are returned. Cancelling ctx is the
// exception: it aborts the crawl with ctx.Err().
func (c *Crawler) CrawlWithStats(ctx context.Context, playlistID string) (*youtube.PlaylistSnapshot, Stats, error) {
	var stats Stats
	log := c.logger.With("playlist", playlistID)

	crawlErr := func(stage string, err error) error {
		return &youtube.CrawlError{Source: "innertube", Stage: stage, PlaylistID: playlistID, Err: err}
	}

	body, err := c.client.FetchPlaylistPage(ctx, playlistID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, stats, ctx.Err()
		}
		return nil, stats, crawlErr(youtube.StageFetch, err)
	}

	first, err := ParsePage(body)
	if err != nil {
		return nil, stats, crawlErr(youtube.StageParse, err)
	}
	if !first.HasVideoList {
		return nil, stats, crawlErr(youtube.StageParse, youtube.ErrVideoListNotFound)
	}
	stats.Pages = 1

	var videos []youtube.VideoRecord
	accumulate := func(p *Page) {
		for _, v := range p.Videos {
			v.Position = len(videos) + 1
			videos = append(videos, v)
		}
		stats.Skipped += p.Skipped
	}
	accumulate(first)

	token := first.ContinuationToken
	requests := 0
	stats.StopReason = StopComplete

	for token != "" {
		if requests >= c.maxPages {
			stats.StopReason = StopPageLimit
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		requests++

		raw, err := c.client.Browse(ctx, first.APIKey, first.VisitorData, token, playlistID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, stats, ctxErr
			}
			stats.StopReason = StopFetchFailed
			log.Warn("continuation request failed, keeping partial playlist", "request", requests, "videos", len(videos), "error", err)
			break
		}

		page, err := ParseContinuation(raw)
		if err != nil {
			stats.StopReason = StopMalformed
			log.Warn("continuation response malformed, keeping partial playlist", "request", requests, "error", err)
			break
		}
		if page.RawItems == 0 {
			stats.StopReason = StopNoItems
			log.Debug("continuation returned no items", "request", requests)
			break
		}

		accumulate(page)
		stats.Pages++

		if page.VideoEntries == 0 {
			stats.StopReason = StopNoVideos
			log.Debug("continuation returned no videos", "request", requests)
			break
		}
		token = page.ContinuationToken
	}

	stats.Videos = len(videos)
	log.Debug("crawl finished", "pages", stats.Pages, "videos", stats.Videos, "skipped", stats.Skipped, "stop", string(stats.StopReason))

	return youtube.NewSnapshot(playlistID, first.Title, videos), stats, nil
}

