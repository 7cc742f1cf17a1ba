package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recall/internal/bootstrap"
	statsoutadapter "recall/internal/modules/stats/adapter/out"
	statsdto "recall/internal/modules/stats/dto"
	"recall/internal/platform/config"
	"recall/internal/platform/logging"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dataDir string
	userID  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "recall",
		Short:         "Quiz session analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data", ".", "data directory")
	root.PersistentFlags().StringVar(&opts.userID, "user", "", "user id (overrides RECALL_USER)")

	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newSessionCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newRemoteCmd(opts))
	root.AddCommand(newMCPCmd(opts))
	return root
}

func loadApp(opts *rootOptions) (*bootstrap.App, error) {
	cfg, err := config.Load(opts.dataDir)
	if err != nil {
		return nil, err
	}
	if opts.userID != "" {
		cfg.UserID = opts.userID
	}
	return bootstrap.New(cfg, logging.New("recall", cfg.LogLevel, os.Stderr))
}

func withApp(opts *rootOptions, fn func(app *bootstrap.App) error) error {
	app, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(app)
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	var period string
	var notify bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the live stats dashboard",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				app.Config.Notify = app.Config.Notify || notify
				return bootstrap.RunTUI(app, period)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "last7", "period: today|week|month|all|last7")
	cmd.Flags().BoolVar(&notify, "notify", false, "desktop notification when the data source changes")
	return cmd
}

func newSessionCmd(opts *rootOptions) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Quiz session records"}

	var category, at string
	var total, correct, skipped int
	var seconds float64
	record := &cobra.Command{
		Use:   "record --category <name> --total <n> --correct <n>",
		Short: "Record a completed quiz session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				when, err := parseWhen(at, app.Config.Location)
				if err != nil {
					return err
				}
				out, err := app.SessionCLI.Record(context.Background(), category, total, correct, skipped, seconds, when)
				if err != nil {
					return err
				}
				state := "remote"
				if !out.RemoteAccepted {
					state = "local only"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "recorded %s %s %d/%d (%s)\n", out.Record.ID, out.Record.Category, out.Record.CorrectAnswers, out.Record.TotalQuestions, state)
				return nil
			})
		},
	}
	record.Flags().StringVar(&category, "category", "", "quiz category")
	record.Flags().IntVar(&total, "total", 0, "questions asked")
	record.Flags().IntVar(&correct, "correct", 0, "correct answers")
	record.Flags().IntVar(&skipped, "skipped", 0, "skipped questions")
	record.Flags().Float64Var(&seconds, "seconds", 0, "total session time in seconds")
	record.Flags().StringVar(&at, "at", "", "completion time, RFC3339 (defaults to now)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List session records and where they came from",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.List(context.Background())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "source: %s (connected=%t)\n", out.Label, out.Connected)
				if len(out.Records) == 0 {
					_, _ = fmt.Fprintln(w, "no sessions")
					return nil
				}
				for _, r := range out.Records {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\tskipped=%d\t%.0fs\n",
						r.Timestamp.In(app.Config.Location).Format("2006-01-02 15:04"), r.ID, r.Category, r.CorrectAnswers, r.TotalQuestions, r.Skipped, r.TotalTime)
				}
				return nil
			})
		},
	}

	session.AddCommand(record, list)
	return session
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	stats := &cobra.Command{Use: "stats", Short: "Aggregated statistics"}

	var period, start, end string
	var asJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Compute stats once for a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				out, err := computeStats(app, period, start, end)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				printStats(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	show.Flags().StringVar(&period, "period", "last7", "period: today|week|month|all|custom|last7")
	show.Flags().StringVar(&start, "start", "", "custom range start, YYYY-MM-DD")
	show.Flags().StringVar(&end, "end", "", "custom range end, YYYY-MM-DD")
	show.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	var watchPeriod string
	var watchNotify bool
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print stats every time they change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				app.Config.Notify = app.Config.Notify || watchNotify
				w := cmd.OutOrStdout()
				coord, err := app.NewCoordinator(watchPeriod, statsoutadapter.FuncSink(func(_ context.Context, out statsdto.StatsOutput) error {
					printStats(w, out)
					_, _ = fmt.Fprintln(w)
					return nil
				}))
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return app.StatsCLI.Watch(ctx, coord)
			})
		},
	}
	watch.Flags().StringVar(&watchPeriod, "period", "last7", "period: today|week|month|all|last7")
	watch.Flags().BoolVar(&watchNotify, "notify", false, "desktop notification when the data source changes")

	var exportPeriod, exportStart, exportEnd string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the stats markdown report for a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				out, err := computeStats(app, exportPeriod, exportStart, exportEnd)
				if err != nil {
					return err
				}
				if err := app.Reports.OnStatsUpdated(context.Background(), out); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", app.Reports.Path(out.Period))
				return nil
			})
		},
	}
	export.Flags().StringVar(&exportPeriod, "period", "last7", "period: today|week|month|all|custom|last7")
	export.Flags().StringVar(&exportStart, "start", "", "custom range start, YYYY-MM-DD")
	export.Flags().StringVar(&exportEnd, "end", "", "custom range end, YYYY-MM-DD")

	var lastPeriod string
	last := &cobra.Command{
		Use:   "last",
		Short: "Show the most recently published snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				out, err := app.Snapshots.Latest(context.Background(), app.Config.UserID, lastPeriod)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	last.Flags().StringVar(&lastPeriod, "period", "last7", "period")

	stats.AddCommand(show, watch, export, last)
	return stats
}

func newRemoteCmd(opts *rootOptions) *cobra.Command {
	remote := &cobra.Command{Use: "remote", Short: "Remote store maintenance"}
	remote.AddCommand(&cobra.Command{
		Use:   "seed <file.json>",
		Short: "Import a JSON array of raw session records into the remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			return withApp(opts, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Seed(context.Background(), payload)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d records, dropped %d\n", out.Imported, out.Dropped)
				return nil
			})
		},
	})
	return remote
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve stats and session tools over MCP stdio",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				return app.NewMCPServer(version).ServeStdio()
			})
		},
	}
}

func computeStats(app *bootstrap.App, period, start, end string) (statsdto.StatsOutput, error) {
	startAt, err := parseDay(start, app.Config.Location)
	if err != nil {
		return statsdto.StatsOutput{}, err
	}
	endAt, err := parseDay(end, app.Config.Location)
	if err != nil {
		return statsdto.StatsOutput{}, err
	}
	return app.StatsCLI.Show(context.Background(), period, startAt, endAt)
}

func parseDay(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func parseWhen(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.RFC3339, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: expected RFC3339", value)
	}
	return t, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStats(w io.Writer, out statsdto.StatsOutput) {
	_, _ = fmt.Fprintf(w, "%s · %s (connected=%t) · %d sessions\n", out.Period, out.DataSource, out.Connected, out.RecordCount)
	if out.NoData {
		_, _ = fmt.Fprintln(w, "No Data")
		return
	}
	o := out.Overall
	_, _ = fmt.Fprintf(w, "accuracy=%d%% avg=%ds reviewed=%d skipped=%d\n", o.Accuracy, o.AvgTimePerCard, o.CardsReviewed, o.CardsSkipped)
	keys := make([]string, 0, len(out.PerCategory))
	for k := range out.PerCategory {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m := out.PerCategory[k]
		if m.CardsReviewed == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "  %-15s %3d%%  %v\n", k, m.Accuracy, out.Series[k])
	}
}
