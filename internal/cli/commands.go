package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/devpulse/internal/domain/model"
	"github.com/okian/devpulse/internal/notify"
)

func newLeaderboardCommand(opts *options) *cobra.Command {
	var (
		days  int
		limit int
		fresh bool
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the contribution leaderboard for a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := start(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.close()

			if days == 0 {
				days = rt.cfg.DefaultWindowDays
			}
			var (
				entries  []model.ScoreEntry
				degraded bool
			)
			if fresh {
				entries, err = rt.svc.Score(cmd.Context(), days)
			} else {
				agg, _, aggErr := rt.svc.CachedAggregate(cmd.Context(), days)
				err = aggErr
				if agg != nil {
					entries, degraded = agg.Leaderboard, agg.Degraded
				}
			}
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			w := cmd.OutOrStdout()
			if opts.output == OutputJSON {
				return writeJSON(w, entries)
			}
			if err := writeLeaderboard(w, entries, !opts.noColor); err != nil {
				return err
			}
			if degraded {
				_, err = fmt.Fprintln(w, "warning: some sources were unavailable; totals may be incomplete")
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 0, "Window in days (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of entries to print (0 = all)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Recompute scores, bypassing the aggregate cache")
	return cmd
}

func newSupportCommand(opts *options) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "support",
		Short: "Print who is available for support",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := start(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.close()

			day := rt.svc.Today()
			if date != "" {
				parsed, ok := model.ParseDate(date)
				if !ok {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				day = parsed
			}
			roster, err := rt.svc.SupportRoster(cmd.Context(), day)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.output == OutputJSON {
				return writeJSON(w, roster)
			}
			return writeRoster(w, roster, !opts.noColor)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default today in the configured timezone)")
	return cmd
}

func newNotifyCommand(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:       "notify <leaderboard|support>",
		Short:     "Post a notification to the chat webhook",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: notify.Jobs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := start(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.close()

			w := cmd.OutOrStdout()
			if dryRun {
				text, err := rt.notifier.Render(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, text)
				return err
			}

			started := time.Now()
			d, err := rt.notifier.Notify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.output == OutputJSON {
				return writeJSON(w, d)
			}
			_, err = fmt.Fprintf(w, "%s: %s (%s) in %s\n", d.Job, d.Status, d.Key, time.Since(started).Round(time.Millisecond))
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the message instead of posting it")
	return cmd
}
