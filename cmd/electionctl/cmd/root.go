// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"strconv"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/db"
	"github.com/danielhkuo/campus-vote/reconcile"
	"github.com/danielhkuo/campus-vote/store"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/danielhkuo/campus-vote/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Env is what commands run against: the off-ledger store, the shared ledger
// and, when a key is configured, the operator's signing session.
type Env struct {
	Store    *store.Store
	Ledger   chain.Ledger
	Resolver *reconcile.Resolver
	Verifier *txsubmit.Verifier
	// Signer is nil without DEPLOYER_KEY; deploy, set-status and finalize
	// need it.
	Signer  *wallet.Session
	Gas     txsubmit.GasTable
	ChainID *big.Int

	close func()
}

var errNoSigner = errors.New("no signing key: set DEPLOYER_KEY")

func (e *Env) submitter() (*txsubmit.Submitter, error) {
	if e.Signer == nil {
		return nil, errNoSigner
	}
	return txsubmit.NewSubmitter(e.Ledger, e.Signer, e.Gas), nil
}

type app struct {
	env     *Env
	envFile string
	verbose bool
	noColor bool
}

// Execute runs electionctl against the configured ledger and store.
func Execute() {
	root := NewRootCmd(nil)
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. A nil env is opened from
// configuration when a command first needs it.
func NewRootCmd(env *Env) *cobra.Command {
	a := &app{env: env}

	root := &cobra.Command{
		Use:           "electionctl",
		Short:         "Operate campus-vote elections on the ledger",
		Long:          "electionctl deploys, inspects and repairs campus-vote elections.\nIt reads the server's configuration from .env and the environment.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.noColor {
				color.NoColor = true
			}
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.env != nil && a.env.close != nil {
				a.env.close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log ledger calls")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		a.scanCmd(),
		a.statusCmd(),
		a.deployCmd(),
		a.voteCmd(),
		a.setStatusCmd(),
		a.finalizeCmd(),
		a.remapCmd(),
	)

	return root
}

// open returns the command environment, connecting on first use.
func (a *app) open(cmd *cobra.Command) (*Env, error) {
	if a.env != nil {
		return a.env, nil
	}
	env, err := openEnv(cmd.Context(), a.envFile)
	if err != nil {
		return nil, err
	}
	a.env = env
	return env, nil
}

// printError reports ledger failures by kind and their fixed message.
func printError(w io.Writer, err error) {
	var txErr *txsubmit.Error
	if errors.As(err, &txErr) {
		color.New(color.FgRed, color.Bold).Fprintf(w, "%s: ", txErr.Kind)
		fmt.Fprintln(w, txErr.Message)
		if txErr.Reason != "" {
			fmt.Fprintf(w, "  reason: %s\n", txErr.Reason)
		}
		return
	}
	color.New(color.FgRed, color.Bold).Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}

// openEnv connects to the store and ledger named by the server's
// configuration.
func openEnv(ctx context.Context, envFile string) (*Env, error) {
	if err := cliparse.LoadEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := cliparse.ParseFlags(nil)
	if err != nil {
		return nil, err
	}
	if cfg.LedgerVariant != chain.VariantEVM {
		return nil, fmt.Errorf("electionctl needs LEDGER_VARIANT=%s; a %s ledger exists only inside the server process",
			chain.VariantEVM, cfg.LedgerVariant)
	}

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		conn.Close()
		return nil, err
	}
	st := store.New(conn)

	l, err := chain.Open(ctx, cfg.LedgerConfig(common.Address{}))
	if err != nil {
		conn.Close()
		return nil, err
	}
	resolver, err := reconcile.NewResolver(st, 0)
	if err != nil {
		conn.Close()
		return nil, err
	}

	env := &Env{
		Store:    st,
		Ledger:   l,
		Resolver: resolver,
		Verifier: txsubmit.NewVerifier(l, txsubmit.DefaultRetrier()),
		Gas:      txsubmit.DefaultGasTable(),
		ChainID:  cfg.ChainID,
		close:    func() { conn.Close() },
	}
	if cfg.GasTablePath != "" {
		if env.Gas, err = txsubmit.LoadGasTable(cfg.GasTablePath); err != nil {
			conn.Close()
			return nil, err
		}
	}
	if cfg.DeployerKey != "" {
		if env.Signer, err = connectKey(ctx, cfg.DeployerKey, cfg.ChainID); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return env, nil
}

func connectKey(ctx context.Context, hexKey string, chainID *big.Int) (*wallet.Session, error) {
	key, err := wallet.NewKeyWallet(hexKey, chainID)
	if err != nil {
		return nil, err
	}
	s := wallet.NewSession(chainID)
	if err := s.Connect(ctx, key); err != nil {
		return nil, err
	}
	return s, nil
}

func parseExternalID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid election ID %q", s)
	}
	return id, nil
}

func parseLedgerID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid ledger ID %q", s)
	}
	return id, nil
}
