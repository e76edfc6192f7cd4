// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"fmt"

	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID",
		Short: "Compare an election with its ledger entry",
		Long: `status shows an election from the store next to the ledger election it is
mapped to, with the ledger's current tallies. Mapping problems are listed
at the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseExternalID(args[0])
			if err != nil {
				return err
			}
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			e, err := env.Store.GetElection(ctx, id)
			if err != nil {
				return fmt.Errorf("election %d: %w", id, err)
			}
			fmt.Fprintf(out, "%s (#%d, %s)\n", e.Name, e.ID, e.Type)
			fmt.Fprintf(out, "  start:    %s\n", when(e.StartTime))
			fmt.Fprintf(out, "  end:      %s\n", when(e.EndTime))

			report, err := env.Resolver.Check(ctx, env.Verifier.ElectionState, id)
			if err != nil {
				return err
			}
			if !report.Deployed {
				fmt.Fprintf(out, "  ledger:   %s\n", dimColor.Sprint("not deployed"))
				return nil
			}
			m, err := env.Store.GetMapping(ctx, models.KindElection, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  ledger:   #%d (%s, deployed %s)\n", report.LedgerID, m.Variant, humanize.Time(m.DeployedAt))

			if report.OnLedger {
				le := report.Election
				finalized := ""
				if le.ResultsFinalized {
					finalized = ", results final"
				}
				fmt.Fprintf(out, "  status:   %s%s\n", statusText(le.Status), finalized)
				fmt.Fprintf(out, "  votes:    %s\n", humanize.Comma(int64(env.Verifier.TotalVotes(ctx, report.LedgerID))))

				targets, label := env.Verifier.CandidateIDs(ctx, report.LedgerID), "Candidate"
				if le.Type == ledger.PresidentVP {
					targets, label = env.Verifier.TicketIDs(ctx, report.LedgerID), "Ticket"
				}
				votes := make(map[uint64]uint64)
				for _, tally := range env.Verifier.Results(ctx, report.LedgerID) {
					votes[tally.TargetID] = tally.Votes
				}
				if len(targets) > 0 {
					fmt.Fprintln(out)
					t := newTable(out, label, "Votes")
					for _, target := range targets {
						t.Append([]string{u64(target), humanize.Comma(int64(votes[target]))})
					}
					t.Render()
				}
			}

			if !report.Consistent() {
				fmt.Fprintln(out)
				warnColor.Fprintln(out, "problems:")
				for _, p := range report.Problems {
					fmt.Fprintf(out, "  - %s\n", p)
				}
			}
			return nil
		},
	}
}
