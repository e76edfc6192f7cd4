// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"fmt"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/spf13/cobra"
)

func (a *app) setStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status ID STATUS",
		Short: "Move an election to pending, active, completed or cancelled",
		Long: `set-status updates a deployed election's status on the ledger. The ledger
accepts pending to active, active to completed, and cancelling anything
that has not completed.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"pending", "active", "completed", "cancelled"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseExternalID(args[0])
			if err != nil {
				return err
			}
			status, err := ledger.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return a.runAdmin(cmd, func(adm *txsubmit.Admin) (string, *chain.Receipt, error) {
				r, err := adm.SetStatus(cmd.Context(), id, status)
				return fmt.Sprintf("election %d is now %s", id, statusText(status)), r, err
			})
		},
	}
}

func (a *app) finalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize ID",
		Short: "Lock a completed election's results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseExternalID(args[0])
			if err != nil {
				return err
			}
			return a.runAdmin(cmd, func(adm *txsubmit.Admin) (string, *chain.Receipt, error) {
				r, err := adm.Finalize(cmd.Context(), id)
				return fmt.Sprintf("election %d results finalized", id), r, err
			})
		},
	}
}

func (a *app) runAdmin(cmd *cobra.Command, run func(*txsubmit.Admin) (string, *chain.Receipt, error)) error {
	env, err := a.open(cmd)
	if err != nil {
		return err
	}
	sub, err := env.submitter()
	if err != nil {
		return err
	}
	what, receipt, err := run(txsubmit.NewAdmin(sub, env.Resolver))
	if err != nil {
		return err
	}
	printReceipt(cmd.OutOrStdout(), what, receipt)
	return nil
}
