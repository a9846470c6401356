package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	ythttp "ytplan/http"
	"ytplan/internal/config"
	"ytplan/internal/logging"
	"ytplan/internal/storage"
	"ytplan/routine"
	"ytplan/schedule"
	"ytplan/youtube"
	"ytplan/youtube/dataapi"
	"ytplan/youtube/innertube"
)

// app is everything a command needs, built from the config and flags.
type app struct {
	cfg    *config.Config
	logger hclog.Logger
	source youtube.Source
	gen    *schedule.GeminiGenerator
	synth  *schedule.Synthesizer
	now    func() time.Time

	store   storage.Store
	manager *routine.Manager
}

func loadApp(ctx context.Context, opts *rootOptions) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logJSON {
		cfg.LogJSON = true
	}

	a := &app{
		cfg:    cfg,
		logger: logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON}),
		now:    time.Now,
	}
	if opts.now != nil {
		a.now = opts.now
	}

	a.source = opts.source
	if a.source == nil {
		if a.source, err = newSource(ctx, cfg, a.logger); err != nil {
			return nil, err
		}
	}

	a.gen, err = schedule.NewGeminiGenerator(ctx, cfg.GeminiAPIKey,
		schedule.WithModel(cfg.AIModel),
		schedule.WithTimeout(cfg.AITimeout),
	)
	if err != nil {
		return nil, err
	}
	if !a.gen.Configured() {
		a.logger.Debug("no Gemini API key, schedules use the built-in planner")
	}
	a.synth = schedule.NewSynthesizer(
		schedule.WithGenerator(a.gen),
		schedule.WithLogger(a.logger.Named("schedule")),
		schedule.WithClock(a.now),
	)
	return a, nil
}

func newSource(ctx context.Context, cfg *config.Config, logger hclog.Logger) (youtube.Source, error) {
	switch cfg.Source {
	case config.SourceDataAPI:
		src, err := dataapi.New(ctx, cfg.YouTubeAPIKey,
			dataapi.WithMaxPages(cfg.MaxPages),
			dataapi.WithRetryConfig(cfg.RetryConfig()),
			dataapi.WithLogger(logger.Named("dataapi")),
		)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		sessions, err := ythttp.NewSessionManager(ythttp.DefaultSessionConfig())
		if err != nil {
			return nil, fmt.Errorf("create http session: %w", err)
		}
		client := innertube.NewClient(sessions.Client(cfg.HTTPConfig()))
		return innertube.NewCrawler(client,
			innertube.WithMaxPages(cfg.MaxPages),
			innertube.WithLogger(logger.Named("innertube")),
		), nil
	}
}

// openManager opens the routine store. Commands that only crawl or plan
// never touch it.
func (a *app) openManager() (*routine.Manager, error) {
	if a.manager != nil {
		return a.manager, nil
	}

	path := a.cfg.StoreFile()
	var err error
	switch a.cfg.Store {
	case config.StoreSQLite:
		a.store, err = storage.NewSQLiteStore(path)
	default:
		a.store, err = storage.NewJSONStore(path)
	}
	if err != nil {
		return nil, err
	}
	a.logger.Debug("routine store opened", "driver", a.cfg.Store, "path", path)

	a.manager = routine.NewManager(a.source, a.synth, a.store,
		routine.WithLogger(a.logger.Named("routine")),
		routine.WithClock(a.now),
	)
	return a.manager, nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// withApp loads the app, runs fn and closes the app.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app) error) (err error) {
	a, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

// preferences turns the --per-day and --by flags into schedule preferences.
func preferences(perDay int, by string) (schedule.Preferences, error) {
	prefs := schedule.Preferences{VideosPerDay: perDay}
	if by == "" {
		return prefs, nil
	}
	target, err := schedule.ParseDate(by)
	if err != nil {
		return prefs, fmt.Errorf("invalid --by date %q: want YYYY-MM-DD", by)
	}
	prefs.TargetCompletionDate = &target
	return prefs, nil
}
