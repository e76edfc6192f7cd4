// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/spf13/cobra"
)

func (a *app) voteCmd() *cobra.Command {
	var key string

	c := &cobra.Command{
		Use:   "vote ELECTION TARGET",
		Short: "Cast a vote from a voter key",
		Long: `vote casts one vote in ELECTION for TARGET, a candidate ID for senator
elections or a ticket ID for president/VP elections. Both are store IDs.
The vote is signed with --key, or VOTER_KEY when the flag is not given.

Meant for rehearsals and testing against a dev chain; students vote from
their own wallet.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			electionID, err := parseExternalID(args[0])
			if err != nil {
				return err
			}
			targetID, err := parseExternalID(args[1])
			if err != nil {
				return fmt.Errorf("invalid target ID %q", args[1])
			}
			if key == "" {
				key = os.Getenv("VOTER_KEY")
			}
			if key == "" {
				return errors.New("no voter key: pass --key or set VOTER_KEY")
			}

			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			session, err := connectKey(cmd.Context(), key, env.ChainID)
			if err != nil {
				return err
			}
			voter, err := session.Account()
			if err != nil {
				return err
			}
			sub := txsubmit.NewSubmitter(env.Ledger, session, env.Gas)
			receipt, err := txsubmit.NewVoter(sub, env.Verifier, env.Resolver).Cast(cmd.Context(), electionID, targetID)
			if err != nil {
				return err
			}
			printReceipt(cmd.OutOrStdout(), fmt.Sprintf("vote cast by %s", voter.Hex()), receipt)
			return nil
		},
	}
	c.Flags().StringVar(&key, "key", "", "hex private key of the voter")
	return c
}
