// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/spf13/cobra"
)

func (a *app) remapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remap ID LEDGER_ID",
		Short: "Point a deployed election at a different ledger election",
		Long: `remap repairs a mapping that no longer resolves, typically one written under
the old timestamp-based IDs. Find the right LEDGER_ID with scan first; it
must exist on the ledger as an election of the same type that no other
election is mapped to. The old mapping is overwritten, not deleted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseExternalID(args[0])
			if err != nil {
				return err
			}
			ledgerID, err := parseLedgerID(args[1])
			if err != nil {
				return err
			}
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			old, err := env.Store.GetMapping(ctx, models.KindElection, id)
			if err != nil {
				return fmt.Errorf("election %d: %w", id, err)
			}
			d := txsubmit.NewDeployer(env.Store, env.Ledger, nil, env.Verifier, env.Resolver)
			m, err := d.Remap(ctx, id, ledgerID)
			if err != nil {
				return err
			}
			e, err := env.Verifier.ElectionState(ctx, m.LedgerID)
			if err != nil {
				return txsubmit.Classify(err)
			}
			slog.Info("election remapped", "election_id", id, "from", old.LedgerID, "to", m.LedgerID)

			out := cmd.OutOrStdout()
			okColor.Fprintf(out, "election %d remapped\n", id)
			fmt.Fprintf(out, "  ledger: %s -> %d\n", dimColor.Sprint(old.LedgerID), m.LedgerID)
			fmt.Fprintf(out, "  on ledger: %s %s election, %s votes\n", statusText(e.Status), e.Type, u64(e.TotalVotes))
			return nil
		},
	}
}
