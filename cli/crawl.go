package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ytplan"
	"ytplan/youtube"
)

func newCrawlCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl <playlist>...",
		Short: "List the playable videos of one or more playlists",
		Example: `  ytplan crawl PLxxxxxxxxxxxx
  ytplan crawl -o json "https://www.youtube.com/playlist?list=PLxxxxxxxxxxxx"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				snaps, err := ytplan.CrawlPlaylists(cmd.Context(), args,
					ytplan.WithSource(a.source),
					ytplan.WithConcurrency(a.cfg.Concurrency),
					ytplan.WithLogger(a.logger),
				)
				if err != nil {
					return err
				}

				var v any = snaps
				if len(snaps) == 1 {
					v = snaps[0]
				}
				return render(cmd.OutOrStdout(), opts.format, v, func(w io.Writer) error {
					for i, snap := range snaps {
						if i > 0 {
							fmt.Fprintln(w)
						}
						if err := printSnapshot(w, snap); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
}

func printSnapshot(w io.Writer, snap *youtube.PlaylistSnapshot) error {
	fmt.Fprintf(w, "%s (%s)\n%d videos, %s total\n\n",
		snap.Title, snap.PlaylistID, snap.Len(), formatDuration(snap.TotalDurationSeconds))
	return table(w, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "#\tDURATION\tTITLE\tURL")
		for _, v := range snap.Videos {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.Position, formatDuration(v.DurationSeconds), truncate(v.Title, 60), v.VideoURL())
		}
	})
}
