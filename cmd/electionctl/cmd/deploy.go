// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"fmt"
	"io"

	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/spf13/cobra"
)

func (a *app) deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy ID",
		Short: "Create an election and its candidates on the ledger",
		Long: `deploy registers the election's candidates (and tickets, for president/VP
elections) that are not on the ledger yet, creates the election and adds
them to it. Signed with DEPLOYER_KEY, which must be the ledger's owner.

Candidates and tickets created before a failure keep their mapping, so
rerunning deploy after fixing the cause picks up where it stopped.`,
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
			sub, err := env.submitter()
			if err != nil {
				return err
			}

			d := txsubmit.NewDeployer(env.Store, env.Ledger, sub, env.Verifier, env.Resolver)
			resp, err := d.DeployElection(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			okColor.Fprintf(out, "election %d deployed as ledger election %d\n", resp.ElectionID, resp.LedgerID)
			fmt.Fprintf(out, "  tx: %s\n", resp.TxHash)
			printMapped(out, "Candidate", resp.Candidates)
			printMapped(out, "Ticket", resp.Tickets)
			return nil
		},
	}
}

func printMapped(w io.Writer, label string, ids []models.MappedID) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintln(w)
	t := newTable(w, label, "Ledger ID", "")
	for _, m := range ids {
		note := dimColor.Sprint("existing")
		if m.Created {
			note = "created"
		}
		t.Append([]string{fmt.Sprint(m.ExternalID), u64(m.LedgerID), note})
	}
	t.Render()
}
