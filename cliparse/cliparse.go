package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"math/big"
	"os"
	"strconv"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// ID scheme names accepted by LEDGER_ID_SCHEME
const (
	SchemeSequential = "sequential"
	SchemeTimestamp  = "timestamp"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	AdminAPIKey  string
	TokenSalt    string

	LedgerVariant   string
	IDScheme        string
	RPCURL          string
	ContractAddress string
	ChainID         *big.Int
	// DeployerKey is a hex private key. Without it the server cannot sign
	// deployments itself and only accepts confirmations.
	DeployerKey  string
	GasTablePath string
	LogLevel     slog.Level
}

// LoadEnv reads KEY=value files into the environment. Variables already set
// win, and missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var chainID, logLevel string

	fs := flag.NewFlagSet("campus-vote", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminAPIKey, "admin-key", "", "Admin API key (prefer env)")
	fs.StringVar(&cfg.TokenSalt, "token-salt", "", "Voting token salt (prefer env)")
	fs.StringVar(&cfg.DeployerKey, "deployer-key", "", "Deployer private key (prefer env)")

	// Ledger
	fs.StringVar(&cfg.LedgerVariant, "ledger", "", "Ledger variant (simulated, simulated-timestamp or evm)")
	fs.StringVar(&cfg.IDScheme, "id-scheme", "", "Simulated ledger ID scheme (sequential or timestamp)")
	fs.StringVar(&cfg.RPCURL, "rpc", "", "Ethereum JSON-RPC URL")
	fs.StringVar(&cfg.ContractAddress, "contract", "", "ElectionLedger contract address")
	fs.StringVar(&chainID, "chain-id", "", "Chain ID")
	fs.StringVar(&cfg.GasTablePath, "gas-table", "", "Gas table YAML file")
	fs.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	envDefault(&cfg.DatabaseURL, "DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	envDefault(&cfg.DatabaseType, "DATABASE_TYPE", "sqlite")

	// Secrets - MUST be provided
	envDefault(&cfg.AdminAPIKey, "ADMIN_API_KEY", "")
	if cfg.AdminAPIKey == "" {
		return Config{}, errors.New("ADMIN_API_KEY required")
	}
	envDefault(&cfg.TokenSalt, "TOKEN_SALT", "")
	if cfg.TokenSalt == "" {
		return Config{}, errors.New("TOKEN_SALT required")
	}
	envDefault(&cfg.DeployerKey, "DEPLOYER_KEY", "")

	envDefault(&cfg.LedgerVariant, "LEDGER_VARIANT", chain.VariantSimulated)
	envDefault(&cfg.IDScheme, "LEDGER_ID_SCHEME", SchemeSequential)
	envDefault(&cfg.RPCURL, "RPC_URL", "")
	envDefault(&cfg.ContractAddress, "CONTRACT_ADDRESS", "")
	envDefault(&cfg.GasTablePath, "GAS_TABLE", "")
	envDefault(&chainID, "CHAIN_ID", strconv.Itoa(chain.DefaultChainID))
	envDefault(&logLevel, "LOG_LEVEL", "info")

	id, ok := new(big.Int).SetString(chainID, 10)
	if !ok || id.Sign() <= 0 {
		return Config{}, fmt.Errorf("invalid chain ID %q", chainID)
	}
	cfg.ChainID = id

	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return Config{}, fmt.Errorf("invalid log level %q", logLevel)
	}

	if err := cfg.validateLedger(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envDefault(dst *string, key, def string) {
	if *dst != "" {
		return
	}
	if *dst = os.Getenv(key); *dst == "" {
		*dst = def
	}
}

func (c Config) validateLedger() error {
	switch c.IDScheme {
	case SchemeSequential, SchemeTimestamp:
	default:
		return fmt.Errorf("LEDGER_ID_SCHEME must be %s or %s", SchemeSequential, SchemeTimestamp)
	}

	switch c.LedgerVariant {
	case chain.VariantSimulated, chain.VariantSimulatedTimestamp:
	case chain.VariantEVM:
		if c.IDScheme == SchemeTimestamp {
			return errors.New("LEDGER_ID_SCHEME=timestamp is only available on the simulated ledger")
		}
		if c.RPCURL == "" {
			return errors.New("RPC_URL required for the evm ledger")
		}
		if !common.IsHexAddress(c.ContractAddress) {
			return fmt.Errorf("invalid CONTRACT_ADDRESS %q", c.ContractAddress)
		}
	default:
		return fmt.Errorf("unknown LEDGER_VARIANT %q", c.LedgerVariant)
	}
	return nil
}

// LedgerConfig is the chain.Config this configuration selects. owner only
// matters for the simulated ledger.
func (c Config) LedgerConfig(owner common.Address) chain.Config {
	scheme := ledger.SequentialIDs
	if c.IDScheme == SchemeTimestamp {
		scheme = ledger.TimestampIDs
	}
	return chain.Config{
		Variant:         c.LedgerVariant,
		IDScheme:        scheme,
		ChainID:         c.ChainID,
		Owner:           owner,
		RPCURL:          c.RPCURL,
		ContractAddress: c.ContractAddress,
	}
}
