package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ytplan/internal/storage"
	"ytplan/routine"
	"ytplan/schedule"
)

func newRoutineCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "routine",
		Aliases: []string{"r"},
		Short:   "Create and track saved viewing routines",
	}
	cmd.AddCommand(
		newRoutineCreateCmd(opts),
		newRoutineListCmd(opts),
		newRoutineShowCmd(opts),
		newRoutineTodayCmd(opts),
		newRoutineCompleteCmd(opts),
		newRoutineDeleteCmd(opts),
		newRoutineStatsCmd(opts),
	)
	return cmd
}

// withManager is withApp for commands that need the routine store.
func withManager(cmd *cobra.Command, opts *rootOptions, fn func(a *app, m *routine.Manager) error) error {
	return withApp(cmd.Context(), opts, func(a *app) error {
		m, err := a.openManager()
		if err != nil {
			return err
		}
		return fn(a, m)
	})
}

func newRoutineCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		perDay int
		by     string
	)
	cmd := &cobra.Command{
		Use:   "create <playlist>",
		Short: "Crawl a playlist, schedule it and save the routine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := preferences(perDay, by)
			if err != nil {
				return err
			}
			return withManager(cmd, opts, func(_ *app, m *routine.Manager) error {
				created, err := m.Create(cmd.Context(), args[0], prefs)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.format, created.Plan, func(w io.Writer) error {
					r, p := created.Plan.Routine, created.Plan.Playlist
					fmt.Fprintf(w, "Created routine %s for %q\n", r.ID, p.Title)
					fmt.Fprintf(w, "%d videos, %d per day, %s to %s (%s schedule)\n\n",
						p.TotalVideos, r.VideosPerDay, r.StartDate, lastDate(created.Schedule), r.ScheduleSource)
					return printSchedule(w, created.Schedule)
				})
			})
		},
	}
	cmd.Flags().IntVar(&perDay, "per-day", 0, "videos to watch per day (default 1)")
	cmd.Flags().StringVar(&by, "by", "", "target completion date, YYYY-MM-DD")
	cmd.MarkFlagsMutuallyExclusive("per-day", "by")
	return cmd
}

func lastDate(sched *schedule.Schedule) string {
	if len(sched.Days) == 0 {
		return "-"
	}
	return sched.Days[len(sched.Days)-1].Date.Format(schedule.DateLayout)
}

func newRoutineListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved routines",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, opts, func(_ *app, m *routine.Manager) error {
				routines, err := m.List(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.format, routines, func(w io.Writer) error {
					if len(routines) == 0 {
						fmt.Fprintln(w, "No routines yet. Create one with: ytplan routine create <playlist>")
						return nil
					}
					return table(w, func(tw *tabwriter.Writer) {
						fmt.Fprintln(tw, "ID\tPLAYLIST\tPER DAY\tSTART\tTARGET\tSOURCE")
						for _, r := range routines {
							target := r.TargetCompletionDate
							if target == "" {
								target = "-"
							}
							fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", shortID(r.ID), r.PlaylistID, r.VideosPerDay, r.StartDate, target, r.ScheduleSource)
						}
					})
				})
			})
		},
	}
}

func newRoutineShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <routine>",
		Short: "Show a routine and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(_ *app, m *routine.Manager) error {
				plan, err := m.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.format, plan, func(w io.Writer) error {
					return printPlan(w, plan)
				})
			})
		},
	}
}

func printPlan(w io.Writer, plan *storage.RoutinePlan) error {
	fmt.Fprintf(w, "%s\n%s\n\n", plan.Playlist.Title, plan.Playlist.URL)
	videos := plan.VideoByID()
	err := table(w, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "DATE\t#\tDONE\tDURATION\tTITLE")
		for _, t := range plan.Tasks {
			title, dur := "?", 0
			if v := videos[t.VideoID]; v != nil {
				title, dur = v.Title, v.DurationSeconds
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", t.ScheduledDate, t.Position, checkbox(t.IsCompleted), formatDuration(dur), truncate(title, 60))
		}
	})
	if err != nil {
		return err
	}
	if len(plan.Routine.Tips) > 0 {
		fmt.Fprintln(w, "\nTips:")
		for _, tip := range plan.Routine.Tips {
			fmt.Fprintf(w, "  - %s\n", tip)
		}
	}
	return nil
}

func newRoutineTodayCmd(opts *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "List the videos scheduled for today across active routines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, opts, func(a *app, m *routine.Manager) error {
				day := a.now()
				if date != "" {
					d, err := schedule.ParseDate(date)
					if err != nil {
						return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
					}
					day = d
				}
				items, err := m.Agenda(cmd.Context(), day)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.format, items, func(w io.Writer) error {
					if len(items) == 0 {
						fmt.Fprintf(w, "Nothing scheduled for %s.\n", day.Format(schedule.DateLayout))
						return nil
					}
					return table(w, func(tw *tabwriter.Writer) {
						fmt.Fprintln(tw, "ROUTINE\t#\tDONE\tDURATION\tTITLE\tURL")
						for _, it := range items {
							title, dur, url := "?", 0, ""
							if it.Video != nil {
								title, dur = it.Video.Title, it.Video.DurationSeconds
								url = "https://www.youtube.com/watch?v=" + it.Video.YouTubeID
							}
							fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", shortID(it.Task.RoutineID), it.Task.Position,
								checkbox(it.Task.IsCompleted), formatDuration(dur), truncate(title, 50), url)
						}
					})
				})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "show another day, YYYY-MM-DD")
	return cmd
}

func newRoutineCompleteCmd(opts *rootOptions) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "complete <routine> <position>",
		Short: "Mark a video of a routine as watched",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil || position < 1 {
				return fmt.Errorf("invalid position %q", args[1])
			}
			return withManager(cmd, opts, func(_ *app, m *routine.Manager) error {
				task, err := m.CompletePosition(cmd.Context(), args[0], position, !undo)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.format, task, func(w io.Writer) error {
					state := "watched"
					if !task.IsCompleted {
						state = "not watched"
					}
					fmt.Fprintf(w, "Video %d marked %s.\n", task.Position, state)
					return nil
				})
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the video as not watched")
	return cmd
}

func newRoutineDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <routine>",
		Aliases: []string{"rm"},
		Short:   "Delete a routine and its tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(_ *app, m *routine.Manager) error {
				if err := m.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				if opts.format == formatText {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted routine %s.\n", args[0])
				}
				return nil
			})
		},
	}
}

func newRoutineStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [routine]",
		Short: "Show progress for one routine or all active routines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return withManager(cmd, opts, func(_ *app, m *routine.Manager) error {
				stats, err := m.Stats(cmd.Context(), ref)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.format, stats, func(w io.Writer) error {
					fmt.Fprintf(w, "Completed:  %d/%d (%.0f%%)\n", stats.CompletedTasks, stats.TotalTasks, stats.Percent())
					fmt.Fprintf(w, "Today:      %d/%d\n", stats.TodayCompleted, stats.TodayTotal)
					fmt.Fprintf(w, "Watched:    %d minutes\n", stats.MinutesWatched)
					fmt.Fprintf(w, "Streak:     %d days\n", stats.CurrentStreak)
					return nil
				})
			})
		},
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
