package ytplan

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"ytplan/schedule"
	"ytplan/youtube"
	"ytplan/youtube/innertube"
)

// DefaultConcurrency bounds CrawlPlaylists when WithConcurrency is not given.
const DefaultConcurrency = 4

type options struct {
	source      youtube.Source
	generator   schedule.Generator
	logger      hclog.Logger
	concurrency int
}

// Option configures the package-level helpers.
type Option func(*options)

// WithSource crawls through src instead of the Innertube crawler.
func WithSource(src youtube.Source) Option {
	return func(o *options) { o.source = src }
}

// WithGenerator lets BuildSchedule ask g for a schedule before falling back.
func WithGenerator(g schedule.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithLogger sets the logger passed to the crawler and synthesizer.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConcurrency bounds the number of playlists CrawlPlaylists fetches at once.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:      hclog.NewNullLogger(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = hclog.NewNullLogger()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	if o.source == nil {
		o.source = innertube.NewCrawler(nil, innertube.WithLogger(o.logger.Named("innertube")))
	}
	return o
}

// CrawlPlaylist resolves ref (a playlist ID or any URL carrying a list
// parameter) and returns every playable video of the playlist.
func CrawlPlaylist(ctx context.Context, ref string, opts ...Option) (*youtube.PlaylistSnapshot, error) {
	o := newOptions(opts)
	return crawl(ctx, o, ref)
}

func crawl(ctx context.Context, o *options, ref string) (*youtube.PlaylistSnapshot, error) {
	id, err := youtube.ResolvePlaylistID(ref)
	if err != nil {
		return nil, err
	}
	return o.source.Crawl(ctx, id)
}

// CrawlPlaylists crawls refs concurrently and returns the snapshots in input
// order. The first failure cancels the remaining crawls.
func CrawlPlaylists(ctx context.Context, refs []string, opts ...Option) ([]*youtube.PlaylistSnapshot, error) {
	o := newOptions(opts)
	snaps := make([]*youtube.PlaylistSnapshot, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			snap, err := crawl(ctx, o, ref)
			if err != nil {
				return fmt.Errorf("crawl %s: %w", ref, err)
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// BuildSchedule turns snap into a day-by-day schedule. It never fails: when
// no generator is configured or the generator misbehaves, the deterministic
// schedule is returned.
func BuildSchedule(ctx context.Context, snap *youtube.PlaylistSnapshot, prefs schedule.Preferences, opts ...Option) *schedule.Schedule {
	o := newOptions(opts)
	synth := schedule.NewSynthesizer(
		schedule.WithGenerator(o.generator),
		schedule.WithLogger(o.logger.Named("schedule")),
	)
	return synth.Synthesize(ctx, snap, prefs)
}
