package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"pricewatch/internal/coin"
	"pricewatch/internal/quote"
	"pricewatch/internal/registry"
	"pricewatch/internal/tracker"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRootCmd builds the command tree. The returned func releases whatever
// the executed command opened.
func newRootCmd() (*cobra.Command, func()) {
	var (
		configPath string
		a          *app
	)

	root := &cobra.Command{
		Use:           "pricewatch",
		Short:         "Keep a watch-list of crypto prices in sync with a quote provider",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd.Context(), configPath)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./config/config.yaml)")

	current := func() *app { return a }
	root.AddCommand(
		newRunCmd(current),
		newListCmd(current),
		newAddCmd(current),
		newRemoveCmd(current),
		newMoveCmd(current, "up", "Move a coin one place up", (*tracker.Tracker).MoveUp),
		newMoveCmd(current, "down", "Move a coin one place down", (*tracker.Tracker).MoveDown),
		newRefreshCmd(current),
	)

	cleanup := func() {
		if a != nil {
			a.Close()
		}
	}
	return root, cleanup
}

func newRunCmd(current func() *app) *cobra.Command {
	var quiet, color bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Refresh prices on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			schedule, err := a.cfg.Refresh.Schedule()
			if err != nil {
				return err
			}

			events, cancel := a.tracker.Subscribe(0)
			defer cancel()
			go func() {
				for ev := range events {
					if quiet || ev.Kind != tracker.EventPricesUpdated {
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", ev.At.Format(time.TimeOnly))
					printTiles(cmd.OutOrStdout(), ev.Coins, ev.At, color)
				}
			}()

			s := tracker.NewScheduler(a.tracker, schedule, a.log,
				tracker.WithAfterCycle(func(tracker.CycleReport, error) { a.writeMetrics() }))
			return s.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print prices after each cycle")
	cmd.Flags().BoolVar(&color, "color", false, "tint each glyph with the coin's accent colour")
	return cmd
}

func newListCmd(current func() *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the watch-list with last known prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if refresh {
				if err := a.tracker.Refresh(cmd.Context()); err != nil && !errors.Is(err, quote.ErrTotalFailure) {
					return err
				}
				a.writeMetrics()
			}
			printTable(cmd.OutOrStdout(), a.tracker.Coins(), time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "fetch prices before listing")
	return cmd
}

func newAddCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <symbol or name>",
		Short: "Add a coin to the watch-list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if err := a.tracker.AddCoin(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			a.writeMetrics()
			printTable(cmd.OutOrStdout(), a.tracker.Coins(), time.Now())
			return nil
		},
	}
}

func newRemoveCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a coin from the watch-list",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			id := resolveID(a.tracker.Coins(), args[0])
			if !a.tracker.RemoveCoin(cmd.Context(), id) {
				return fmt.Errorf("%s is not in the list", args[0])
			}
			printTable(cmd.OutOrStdout(), a.tracker.Coins(), time.Now())
			return nil
		},
	}
}

func newMoveCmd(current func() *app, use, short string, move func(*tracker.Tracker, context.Context, string) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			id := resolveID(a.tracker.Coins(), args[0])
			if !move(a.tracker, cmd.Context(), id) {
				a.log.Debug("reorder had no effect", zap.String("id", id), zap.String("direction", use))
			}
			printTable(cmd.OutOrStdout(), a.tracker.Coins(), time.Now())
			return nil
		},
	}
}

func newRefreshCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch prices once now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			err := a.tracker.Refresh(cmd.Context())
			a.writeMetrics()
			printTable(cmd.OutOrStdout(), a.tracker.Coins(), time.Now())
			if errors.Is(err, quote.ErrTotalFailure) {
				return errors.New("provider unreachable, showing last known prices")
			}
			return err
		},
	}
}

// resolveID matches arg against the list ids and symbols, ignoring case.
func resolveID(coins []coin.WatchedCoin, arg string) string {
	arg = strings.TrimSpace(arg)
	for _, c := range coins {
		if strings.EqualFold(c.ID, arg) || strings.EqualFold(c.Symbol, arg) {
			return c.ID
		}
	}
	return arg
}

func printTable(w io.Writer, coins []coin.WatchedCoin, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tSYMBOL\tNAME\tPRICE\tUPDATED\tSTATUS")
	for i, c := range coins {
		updated := "never"
		if c.LastUpdatedAt != nil {
			updated = humanize.RelTime(*c.LastUpdatedAt, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, c.ID, c.Symbol, c.Name, coin.FormatPrice(c.LastPrice), updated, c.Status)
	}
	tw.Flush()
}

// printTiles renders the compact one-line-per-coin view used while running.
func printTiles(w io.Writer, coins []coin.WatchedCoin, now time.Time, color bool) {
	for _, c := range coins {
		marker := ""
		if c.Status != coin.StatusOK {
			marker = " !" + string(c.Status)
		}
		fmt.Fprintf(w, "  %-4s %-6s %14s  %s%s\n",
			tint(registry.Glyph(c.Symbol), registry.Accent(c.Symbol), color), c.Symbol, coin.FormatPrice(c.LastPrice),
			coin.LastUpdatedText(c.LastUpdatedAt, now), marker)
	}
}

// tint wraps s in a 24-bit ANSI foreground colour taken from a "#RRGGBB" accent.
func tint(s, accent string, enabled bool) string {
	if !enabled {
		return s
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(accent, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return s
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", r, g, b, s)
}
