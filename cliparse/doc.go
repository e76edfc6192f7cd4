// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadEnv pulls a .env file into the environment, then ParseFlags returns a
Config struct with all settings:

	_ = cliparse.LoadEnv(".env")
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags and Environment Variables

Every flag falls back to an environment variable. CLI flags take precedence
over environment variables, and real environment variables take precedence
over .env.

	-p             PORT              Server port (default 3318)
	-d             DATABASE_URL      Database URL (required)
	-t             DATABASE_TYPE     sqlite (default) or postgres
	-admin-key     ADMIN_API_KEY     Key for admin endpoints (required)
	-token-salt    TOKEN_SALT        Voting token hash salt (required)
	-deployer-key  DEPLOYER_KEY      Hex private key for server-side deployment
	-ledger        LEDGER_VARIANT    simulated (default), simulated-timestamp or evm
	-id-scheme     LEDGER_ID_SCHEME  sequential (default) or timestamp
	-rpc           RPC_URL           JSON-RPC endpoint (evm)
	-contract      CONTRACT_ADDRESS  ElectionLedger address (evm)
	-chain-id      CHAIN_ID          Chain ID (default 31337)
	-gas-table     GAS_TABLE         Gas table YAML
	-log-level     LOG_LEVEL         debug, info (default), warn or error

# Validation

ParseFlags returns an error if required values are missing, a value does not
parse, or the ledger settings do not fit together (evm needs RPC_URL and a
valid CONTRACT_ADDRESS; the timestamp scheme exists only on the simulated
ledger).
*/
package cliparse
