package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/amaumene/gowatch/internal/api"
	"github.com/amaumene/gowatch/internal/controllers"
	"github.com/amaumene/gowatch/internal/models"
	"github.com/amaumene/gowatch/internal/scheduler"
	"github.com/amaumene/gowatch/internal/utils"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gowatch",
		Short:         "Personal movie and TV watchlist",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newListCmd(),
		newStatsCmd(),
		newShowCmd(),
		newAddCmd(),
		newRateCmd(),
		newRmCmd(),
		newImportCmd(),
		newExportCmd(),
		newSyncCmd(),
		newRemoteConfigCmd(),
	)
	return root
}

// withApp builds the app for one command and closes it afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	a, err := newApp(context.Background(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info("Starting gowatch")

	// Scheduler
	sched := scheduler.NewScheduler(a.transfer, a.sync, a.metrics, scheduler.Options{
		BackupSchedule:  a.cfg.BackupSchedule,
		RefreshSchedule: a.cfg.RefreshSchedule,
		BackupDir:       a.cfg.BackupDir,
		BackupKeep:      a.cfg.BackupKeep,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// HTTP server
	server := api.NewServer(a.cfg.ServerPort, api.Deps{
		Store:    a.store,
		Form:     a.form,
		Sync:     a.sync,
		Transfer: a.transfer,
		Metrics:  a.metrics,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("gowatch is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("gowatch stopped")
	return nil
}

func newListCmd() *cobra.Command {
	var query, sortField, dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, optionally filtered and sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sortField != "" && !utils.IsSortField(sortField) {
				return fmt.Errorf("unknown sort field %q (one of %s)", sortField, strings.Join(utils.SortFields, ", "))
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				view := utils.BuildView(a.store.Snapshot(), utils.ViewQuery{
					Query: query,
					Sort:  utils.SortState{Field: sortField, Direction: models.SortDirection(dir)},
				})
				return printRecords(cmd.OutOrStdout(), view)
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive search")
	cmd.Flags().StringVarP(&sortField, "sort", "s", "", "sort field")
	cmd.Flags().StringVar(&dir, "dir", string(models.SortAsc), "sort direction (asc|desc)")
	return cmd
}

func printRecords(out io.Writer, records []models.Record) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTITLE\tYEAR\tADDED\tWATCHED\tX\tY")
	for i := range records {
		r := &records[i]
		watched := "-"
		if r.Watched() {
			watched = r.DateWatched.Stored()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Kind, r.Title, r.Year, r.DateAdded.Stored(), watched,
			ratingText(r.XRating), ratingText(r.YRating))
	}
	return w.Flush()
}

func ratingText(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show watch statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				s := controllers.ComputeStatistics(a.store.Snapshot())
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Movies\t%d (%d watched)\n", s.TotalMovies, s.WatchedMovies)
				fmt.Fprintf(w, "Shows\t%d (%d watched)\n", s.TotalShows, s.WatchedShows)
				fmt.Fprintf(w, "Watch time\t%s h\n", s.WatchHours)
				fmt.Fprintf(w, "Avg X rating\t%s\n", s.AvgXRating)
				fmt.Fprintf(w, "Avg Y rating\t%s\n", s.AvgYRating)
				return w.Flush()
			})
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <show-id>",
		Short: "Print the seasons and episodes of a show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				tree, err := controllers.ResolveHierarchy(a.store.Snapshot(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n", tree.Show.Title, tree.Show.Year)
				for _, node := range tree.Seasons {
					fmt.Fprintf(out, "  %s\n", node.Season.Title)
					for _, ep := range node.Episodes {
						fmt.Fprintf(out, "    E%d %s\n", ep.EpisodeNumber(), ep.Title)
					}
				}
				if len(tree.Orphans) > 0 {
					fmt.Fprintln(out, "  Unassigned episodes")
					for _, ep := range tree.Orphans {
						fmt.Fprintf(out, "    S%dE%d %s\n", ep.SeasonNumber(), ep.EpisodeNumber(), ep.Title)
					}
				}
				return nil
			})
		},
	}
}

func newAddCmd() *cobra.Command {
	var sub controllers.Submission
	var year, season, episode, duration, totalSeasons, totalEpisodes string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a movie, show, season or episode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sub.Year = models.FlexString(year)
			sub.SeasonNumber = models.FlexString(season)
			sub.EpisodeNumber = models.FlexString(episode)
			sub.Duration = models.FlexString(duration)
			sub.TotalSeasons = models.FlexString(totalSeasons)
			sub.TotalEpisodes = models.FlexString(totalEpisodes)

			return withApp(cmd, func(ctx context.Context, a *app) error {
				rec, err := a.form.Save(ctx, sub, "")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&sub.Kind, "kind", "k", "", "Movie, Show, Season or Episode")
	f.StringVarP(&sub.Title, "title", "t", "", "title (optional for seasons)")
	f.StringVar(&year, "year", "", "year or year range")
	f.StringVar(&sub.Director, "director", "", "director")
	f.StringVar(&sub.Genre, "genre", "", "genre")
	f.StringVar(&sub.ShowRef, "parent", "", "parent show id (seasons) or show/season id (episodes)")
	f.StringVar(&season, "season", "", "season number")
	f.StringVar(&episode, "episode", "", "episode number")
	f.StringVar(&duration, "duration", "", "duration in hours")
	f.StringVar(&totalSeasons, "total-seasons", "", "number of seasons (shows)")
	f.StringVar(&totalEpisodes, "total-episodes", "", "number of episodes (shows, seasons)")
	f.StringVar(&sub.DateAdded, "added", "", "date added, YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newRateCmd() *cobra.Command {
	var watched string
	var x, y int

	cmd := &cobra.Command{
		Use:   "rate <id>",
		Short: "Set the watch date and ratings of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub := controllers.RateSubmission{ID: args[0], DateWatched: watched}
			if cmd.Flags().Changed("x") {
				sub.XRating = models.IntPtr(x)
			}
			if cmd.Flags().Changed("y") {
				sub.YRating = models.IntPtr(y)
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				_, err := a.form.Rate(ctx, sub)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&watched, "watched", "", "watch date, YYYY-MM-DD (empty = not watched)")
	cmd.Flags().IntVarP(&x, "x", "x", 0, "X rating, 0-5 (omit = unrated)")
	cmd.Flags().IntVarP(&y, "y", "y", 0, "Y rating, 0-5 (omit = unrated)")
	return cmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a record and everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				removed, err := a.form.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				for _, id := range removed {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all records with an exported JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.transfer.Import(ctx, data)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, w := range result.Warnings {
					fmt.Fprintf(out, "warning: %s\n", w)
				}
				fmt.Fprintf(out, "imported %d records, skipped %d\n", result.Imported, result.Skipped)
				return nil
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all records as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if outPath == "" || outPath == "-" {
					return a.transfer.Export(cmd.OutOrStdout())
				}
				return a.transfer.ExportFile(outPath)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull from or push to the remote sheet",
	}

	run := func(pull bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var status *controllers.SyncStatus
				var err error
				if pull {
					status, err = a.sync.Pull(ctx)
				} else {
					status, err = a.sync.Push(ctx)
				}
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "pull", Short: "Replace local records with the remote ones", Args: cobra.NoArgs, RunE: run(true)},
		&cobra.Command{Use: "push", Short: "Send all local records to the remote", Args: cobra.NoArgs, RunE: run(false)},
	)
	return cmd
}

func newRemoteConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remote-config <file>",
		Short: "Load a remote config file and pull from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				status, err := a.sync.ImportRemoteConfig(ctx, data)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
}

func printStatus(out io.Writer, status *controllers.SyncStatus) {
	for _, w := range status.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	fmt.Fprintf(out, "%s (%d records)\n", status.Message, status.Records)
}
