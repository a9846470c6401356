package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ytplan/youtube"
)

// rootOptions holds the persistent flags. source and now are only set by
// tests.
type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
	format     string

	source youtube.Source
	now    func() time.Time
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "ytplan",
		Short: "Plan a YouTube playlist as a daily viewing routine",
		Long: `ytplan crawls a public YouTube playlist, splits it into a day-by-day
viewing schedule and keeps track of what you have watched.

Schedules come from Gemini when GEMINI_API_KEY is set and from a
deterministic planner otherwise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.format {
			case formatText, formatJSON, formatYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", opts.format)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: ytplan.{json,yaml} in . or ~/.config/ytplan)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	flags.StringVarP(&opts.format, "format", "o", formatText, "output format: text, json or yaml")

	root.AddCommand(newCrawlCmd(opts))
	root.AddCommand(newPlanCmd(opts))
	root.AddCommand(newRoutineCmd(opts))
	return root
}
