package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mattn/go-isatty"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/db"
	"github.com/danielhkuo/campus-vote/handlers"
	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/reconcile"
	"github.com/danielhkuo/campus-vote/router"
	"github.com/danielhkuo/campus-vote/scan"
	"github.com/danielhkuo/campus-vote/store"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/danielhkuo/campus-vote/wallet"
)

func main() {
	var err error

	// Parse configuration
	if err := cliparse.LoadEnv(".env"); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	// Connect to the external store
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)
	st := store.New(dbConn)

	ctx := context.Background()
	ledgerServices, err := openLedger(ctx, cfg, st)
	if err != nil {
		slog.Error("ledger setup failed", "error", err)
		os.Exit(1)
	}

	// Create router
	mux := router.NewRouter(st, cfg, ledgerServices)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}

// setupLogging installs a text handler on terminals and JSON otherwise
func setupLogging(level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// openLedger connects the ledger and builds the services the blockchain
// endpoints use. Without DEPLOYER_KEY an evm ledger is read-only from the
// server's side; a simulated one gets a throwaway owner key, since nothing
// outside the process can sign for it.
func openLedger(ctx context.Context, cfg cliparse.Config, st *store.Store) (handlers.Ledger, error) {
	var key *wallet.KeyWallet
	var err error
	switch {
	case cfg.DeployerKey != "":
		key, err = wallet.NewKeyWallet(cfg.DeployerKey, cfg.ChainID)
	case cfg.LedgerVariant != chain.VariantEVM:
		key, err = wallet.NewRandomKeyWallet(cfg.ChainID)
		if err == nil {
			slog.Warn("no DEPLOYER_KEY; simulated ledger owned by an ephemeral key", "owner", key.Account().Hex())
		}
	}
	if err != nil {
		return handlers.Ledger{}, err
	}

	var owner common.Address
	var session *wallet.Session
	if key != nil {
		owner = key.Account()
		session = wallet.NewSession(cfg.ChainID)
		if err := session.Connect(ctx, key); err != nil {
			return handlers.Ledger{}, err
		}
	}

	l, err := chain.Open(ctx, cfg.LedgerConfig(owner))
	if err != nil {
		return handlers.Ledger{}, err
	}

	gas := txsubmit.DefaultGasTable()
	if cfg.GasTablePath != "" {
		if gas, err = txsubmit.LoadGasTable(cfg.GasTablePath); err != nil {
			return handlers.Ledger{}, err
		}
	}

	resolver, err := reconcile.NewResolver(st, 0)
	if err != nil {
		return handlers.Ledger{}, err
	}
	verifier := txsubmit.NewVerifier(l, txsubmit.DefaultRetrier())

	var submitter *txsubmit.Submitter
	var admin *txsubmit.Admin
	if session != nil {
		submitter = txsubmit.NewSubmitter(l, session, gas)
		admin = txsubmit.NewAdmin(submitter, resolver)
	}

	slog.Info("Ledger ready",
		"variant", l.Variant(),
		"chain_id", cfg.ChainID.String(),
		"server_signing", session != nil,
	)
	return handlers.Ledger{
		Resolver: resolver,
		Verifier: verifier,
		Deployer: txsubmit.NewDeployer(st, l, submitter, verifier, resolver),
		Admin:    admin,
		Scanner:  scan.NewScanner(l),
	}, nil
}
