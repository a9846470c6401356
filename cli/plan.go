package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ytplan"
	"ytplan/schedule"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var (
		perDay int
		by     string
	)
	cmd := &cobra.Command{
		Use:   "plan <playlist>",
		Short: "Preview a viewing schedule without saving it",
		Example: `  ytplan plan PLxxxxxxxxxxxx --per-day 3
  ytplan plan PLxxxxxxxxxxxx --by 2025-12-31 -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := preferences(perDay, by)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				snap, err := ytplan.CrawlPlaylist(cmd.Context(), args[0],
					ytplan.WithSource(a.source),
					ytplan.WithLogger(a.logger),
				)
				if err != nil {
					return err
				}
				sched := a.synth.Synthesize(cmd.Context(), snap, prefs)

				return render(cmd.OutOrStdout(), opts.format, sched, func(w io.Writer) error {
					fmt.Fprintf(w, "%s: %d videos over %d days (%s schedule)\n\n",
						snap.Title, snap.Len(), len(sched.Days), sched.Source)
					return printSchedule(w, sched)
				})
			})
		},
	}
	cmd.Flags().IntVar(&perDay, "per-day", 0, "videos to watch per day (default 1)")
	cmd.Flags().StringVar(&by, "by", "", "target completion date, YYYY-MM-DD")
	cmd.MarkFlagsMutuallyExclusive("per-day", "by")
	return cmd
}

func printSchedule(w io.Writer, sched *schedule.Schedule) error {
	err := table(w, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "DAY\tDATE\tVIDEOS\tMESSAGE")
		for i, d := range sched.Days {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, d.Date.Format(schedule.DateLayout), joinInts(d.VideoPositions), d.MotivationalMessage)
		}
	})
	if err != nil {
		return err
	}
	if len(sched.Tips) > 0 {
		fmt.Fprintln(w, "\nTips:")
		for _, tip := range sched.Tips {
			fmt.Fprintf(w, "  - %s\n", tip)
		}
	}
	return nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
