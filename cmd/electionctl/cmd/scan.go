// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/scan"
	"github.com/danielhkuo/campus-vote/store"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func (a *app) scanCmd() *cobra.Command {
	var maxProbes int

	c := &cobra.Command{
		Use:   "scan",
		Short: "Probe the ledger for elections",
		Long: `scan probes ledger election IDs one at a time and lists the ones that exist,
with the off-ledger election each is mapped to. Use it to find the right
ledger ID for a mapping that no longer resolves, then fix it with remap.`,
	}
	c.PersistentFlags().IntVar(&maxProbes, "max-probes", scan.DefaultMaxProbes, "refuse scans with more probes than this")

	ids := &cobra.Command{
		Use:   "ids FROM TO",
		Short: "Probe every ledger ID in [FROM, TO]",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid FROM %q", args[0])
			}
			to, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid TO %q", args[1])
			}
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			s := a.scanner(cmd, env, maxProbes)
			res, err := s.ScanIDs(cmd.Context(), from, to)
			return a.printScan(cmd, env, res, err)
		},
	}

	var interval time.Duration
	timestamps := &cobra.Command{
		Use:   "timestamps FROM TO",
		Short: "Probe timestamp-keyed IDs from FROM to TO every --interval",
		Long: `timestamps probes the unix timestamps FROM, FROM+interval, ... up to TO.
FROM and TO are RFC 3339 times or dates (2006-01-02, UTC).

Only elections whose start time falls exactly on a sample are found;
elections keyed between two samples are missed. Narrow the interval to
cover them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTime(args[0])
			if err != nil {
				return err
			}
			to, err := parseTime(args[1])
			if err != nil {
				return err
			}
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			s := a.scanner(cmd, env, maxProbes)
			res, err := s.ScanTimestamps(cmd.Context(), from, to, interval)
			return a.printScan(cmd, env, res, err)
		},
	}
	timestamps.Flags().DurationVar(&interval, "interval", 24*time.Hour, "sampling interval (at least 1s)")

	c.AddCommand(ids, timestamps)
	return c
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
}

func (a *app) scanner(cmd *cobra.Command, env *Env, maxProbes int) *scan.Scanner {
	s := scan.NewScanner(env.Ledger)
	s.MaxProbes = maxProbes

	errOut := cmd.ErrOrStderr()
	if f, ok := errOut.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		s.Progress = func(done, total int) {
			if done%100 == 0 || done == total {
				fmt.Fprintf(errOut, "\rprobed %s/%s", humanize.Comma(int64(done)), humanize.Comma(int64(total)))
			}
			if done == total {
				fmt.Fprintln(errOut)
			}
		}
	}
	return s
}

func (a *app) printScan(cmd *cobra.Command, env *Env, res scan.Result, scanErr error) error {
	if scanErr != nil && res.Probes == 0 {
		return scanErr
	}
	out := cmd.OutOrStdout()

	t := newTable(out, "Ledger ID", "Type", "Status", "Start", "Votes", "Election")
	for _, hit := range res.Hits {
		mapped := dimColor.Sprint("unmapped")
		m, err := env.Store.FindByLedgerID(cmd.Context(), models.KindElection, hit.Probe)
		switch {
		case err == nil:
			mapped = strconv.FormatInt(m.ExternalID, 10)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		e := hit.Election
		t.Append([]string{
			u64(hit.Probe), e.Type.String(), statusText(e.Status), when(e.StartTime), u64(e.TotalVotes), mapped,
		})
	}
	if len(res.Hits) > 0 {
		t.Render()
	}

	summary(out, res)
	if scanErr != nil {
		warnColor.Fprintf(out, "scan stopped early: %v\n", scanErr)
		return scanErr
	}
	return nil
}

func summary(w io.Writer, res scan.Result) {
	fmt.Fprintf(w, "%s found in %s probes\n",
		humanize.Comma(int64(len(res.Hits)))+" "+plural(len(res.Hits), "election", "elections"),
		humanize.Comma(int64(res.Probes)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
