package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/example/musclecards/internal/codec"
	"github.com/example/musclecards/internal/persistence"
	"github.com/example/musclecards/internal/session"
	"github.com/example/musclecards/internal/transport"
	"github.com/example/musclecards/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const timeLayout = "2006-01-02 15:04"

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func newReviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review <card> <again|hard|good|easy>",
		Short: "Record one answer for a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := models.ParseRating(args[1])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			next, err := a.session.Answer(cmd.Context(), args[0], rating)
			if errors.Is(err, session.ErrUnknownCard) {
				return fmt.Errorf("%w: %s", err, args[0])
			}
			if err != nil {
				return err
			}
			if perr := a.session.LastPersistError(); perr != nil {
				return fmt.Errorf("answer recorded but not saved: %w", perr)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, interval %.0f days, ease %.2f, due %s\n",
				next.CardID, next.Status, next.IntervalDays, next.EaseFactor, next.DueAt.Local().Format(timeLayout))
			return nil
		},
	}
}

func newDueCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List cards due for review in review order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			queue := a.session.DueQueue(limit)
			if len(queue) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing is due.")
				return nil
			}

			w := newTabWriter(cmd.OutOrStdout())
			fmt.Fprintln(w, "CARD\tSTATUS\tEASE\tSTREAK\tDUE")
			for _, st := range queue {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\n",
					st.CardID, st.Status, st.EaseFactor, st.Streak, st.DueAt.Local().Format(timeLayout))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of cards to list (0 lists all)")
	return cmd
}

func (a *app) metadata(cmd *cobra.Command) (transport.Metadata, error) {
	p, err := a.gateway.LoadProfile(cmd.Context())
	if err != nil {
		return transport.Metadata{}, err
	}
	return transport.Metadata{
		CardID:      a.session.Active(),
		DisplayName: p.DisplayName,
		Theme:       p.Theme,
	}, nil
}

func (a *app) reportSkipped(cmd *cobra.Command, skipped []codec.Skip) {
	for _, s := range skipped {
		a.logger.Warn("state left out", zap.String("entry", s.String()))
	}
	if len(skipped) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d entries were skipped\n", len(skipped))
	}
}

func newSaveCodeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "savecode",
		Short: "Print a save code holding all progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			meta, err := a.metadata(cmd)
			if err != nil {
				return err
			}
			code, skipped := transport.BuildSaveCode(a.session.Snapshot(), a.catalog, meta)
			a.reportSkipped(cmd, skipped)
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
}

func newLinkCmd(opts *rootOptions) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print a share link holding all progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if base == "" {
				base = a.cfg.Share.BaseURL
			}
			meta, err := a.metadata(cmd)
			if err != nil {
				return err
			}
			link, skipped, err := transport.BuildShareLink(a.session.Snapshot(), a.catalog, meta, base)
			if err != nil {
				return err
			}
			a.reportSkipped(cmd, skipped)
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "Base URL of the link (default share.base_url)")
	return cmd
}

func newResumeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <link|?query|save code>",
		Short: "Replace progress with the one carried by a link or save code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := transport.Resumer{Catalog: a.catalog}.Resume(args[0])
			if err != nil {
				return err
			}

			err = a.updateProfile(ctx, func(p *persistence.Profile) {
				if res.CardID != "" {
					p.ActiveCard = res.CardID
				}
				if res.DisplayName != "" {
					p.DisplayName = res.DisplayName
				}
				if res.Theme != "" {
					p.Theme = res.Theme
				}
			})
			if err != nil {
				return fmt.Errorf("save settings, nothing restored: %w", err)
			}

			restored := 0
			if res.States != nil {
				restored = len(res.States) - a.session.Import(ctx, res.States)
				if perr := a.session.LastPersistError(); perr != nil {
					return fmt.Errorf("progress restored but not saved: %w", perr)
				}
			}
			if res.CardID != "" {
				if err := a.session.SetActive(res.CardID); err != nil {
					return err
				}
			}

			a.reportSkipped(cmd, res.Skipped)
			if res.States == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Settings restored, progress unchanged.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d cards (%s format).\n", restored, res.Format)
			return nil
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget all progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Reset(ctx); err != nil {
				return err
			}
			if err := a.updateProfile(ctx, func(p *persistence.Profile) { p.ActiveCard = "" }); err != nil {
				return err
			}
			if history {
				if err := a.reviews.Clear(ctx); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Also delete the review history")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show progress statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			stats := a.session.Stats(now)
			counts, err := a.reviews.CountByRating(ctx)
			if err != nil {
				return err
			}
			today, err := a.reviews.CountSince(ctx, now.Add(-24*time.Hour))
			if err != nil {
				return err
			}

			w := newTabWriter(cmd.OutOrStdout())
			fmt.Fprintf(w, "Cards:\t%d\n", stats.Total)
			for _, st := range []models.Status{models.StatusNew, models.StatusLearning, models.StatusReview, models.StatusMastered} {
				fmt.Fprintf(w, "  %s:\t%d\n", st, stats.ByStatus[st])
			}
			fmt.Fprintf(w, "Due now:\t%d\n", stats.Due)
			fmt.Fprintf(w, "Average ease:\t%.2f\n", stats.AverageEase)
			fmt.Fprintf(w, "Average streak:\t%.1f\n", stats.AverageStreak)
			if !stats.NextDueAt.IsZero() {
				fmt.Fprintf(w, "Next review:\t%s\n", stats.NextDueAt.Local().Format(timeLayout))
			}
			if stats.DaysToDeadline >= 0 {
				fmt.Fprintf(w, "Days to exam:\t%d\n", stats.DaysToDeadline)
			}
			fmt.Fprintf(w, "Reviews (24h):\t%d\n", today)
			for _, r := range models.Ratings {
				fmt.Fprintf(w, "  %s:\t%d\n", r, counts[r])
			}
			if saved := a.gateway.LastSavedAt(); !saved.IsZero() {
				fmt.Fprintf(w, "Last saved:\t%s\n", saved.Local().Format(timeLayout))
			}
			return w.Flush()
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.reviews.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reviews yet.")
				return nil
			}

			w := newTabWriter(cmd.OutOrStdout())
			fmt.Fprintln(w, "WHEN\tCARD\tRATING\tINTERVAL\tEASE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%.2f\n",
					e.ReviewedAt.Local().Format(timeLayout), e.CardID, e.Rating, e.IntervalDays, e.EaseFactor)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of reviews to list")
	return cmd
}
