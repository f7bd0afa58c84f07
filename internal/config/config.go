// Package config handles configuration loading, validation, and management
// for proptrust.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"proptrust/internal/risk"
	"proptrust/internal/tamper"
)

// Config holds the complete verification-core configuration.
type Config struct {
	// Ledger selects and configures the ledger backend.
	Ledger LedgerConfig `toml:"ledger" json:"ledger" yaml:"ledger"`

	// Scoring tunes the risk engine's loan-amount validation.
	Scoring ScoringConfig `toml:"scoring" json:"scoring" yaml:"scoring"`

	// Tamper configures tamper detection.
	Tamper TamperConfig `toml:"tamper" json:"tamper" yaml:"tamper"`

	// Storage configures persistence for the simulated ledger.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// Ledger backend names. Selection is always explicit: the simulated backend
// is never silently substituted when the remote one is unreachable.
const (
	BackendSimulated = "simulated"
	BackendRemote    = "remote"
)

// LedgerConfig selects the ledger backend and its connection parameters.
type LedgerConfig struct {
	// Backend is "simulated" or "remote".
	Backend string `toml:"backend" json:"backend" yaml:"backend"`

	// Endpoints are JSON-RPC URLs for the remote backend.
	Endpoints []string `toml:"endpoints" json:"endpoints" yaml:"endpoints"`

	// ContractAddress is the deployed verification contract address.
	ContractAddress string `toml:"contract_address" json:"contract_address" yaml:"contract_address"`

	// FromAccount is the account submitting remote transactions.
	FromAccount string `toml:"from_account" json:"from_account" yaml:"from_account"`

	// RequestTimeoutMs bounds a single RPC round trip in milliseconds.
	RequestTimeoutMs int `toml:"request_timeout_ms" json:"request_timeout_ms" yaml:"request_timeout_ms"`

	// ReceiptTimeoutSec bounds how long a store waits for ordering.
	ReceiptTimeoutSec int `toml:"receipt_timeout_sec" json:"receipt_timeout_sec" yaml:"receipt_timeout_sec"`
}

// ScoringConfig tunes loan-amount validation in the risk engine.
type ScoringConfig struct {
	// MinLoanAmount is the minimum currency value for a candidate loan
	// amount to count as a real loan.
	MinLoanAmount float64 `toml:"min_loan_amount" json:"min_loan_amount" yaml:"min_loan_amount"`

	// AmountSimilarityTolerance is the relative difference under which
	// two amounts are duplicate readings of the same loan.
	AmountSimilarityTolerance float64 `toml:"amount_similarity_tolerance" json:"amount_similarity_tolerance" yaml:"amount_similarity_tolerance"`
}

// TamperConfig configures tamper detection.
type TamperConfig struct {
	// ScoreDriftTolerance is the score delta above which a hash-verified
	// record is reported as drifted.
	ScoreDriftTolerance int `toml:"score_drift_tolerance" json:"score_drift_tolerance" yaml:"score_drift_tolerance"`
}

// StorageConfig configures simulated-ledger persistence.
type StorageConfig struct {
	// Path is the SQLite database path. Empty selects the in-memory
	// simulated ledger.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr" or "file".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path when Output is "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// DefaultConfig returns the default configuration: simulated in-memory
// ledger, default scoring thresholds, stderr text logging.
func DefaultConfig() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Backend:           BackendSimulated,
			RequestTimeoutMs:  30_000,
			ReceiptTimeoutSec: 120,
		},
		Scoring: ScoringConfig{
			MinLoanAmount:             risk.DefaultMinLoanAmount,
			AmountSimilarityTolerance: risk.DefaultSimilarityTolerance,
		},
		Tamper: TamperConfig{
			ScoreDriftTolerance: tamper.DefaultScoreDriftTolerance,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	switch c.Ledger.Backend {
	case BackendSimulated:
	case BackendRemote:
		if len(c.Ledger.Endpoints) == 0 {
			errs = append(errs, errors.New("ledger: remote backend requires at least one endpoint"))
		}
		if c.Ledger.ContractAddress == "" {
			errs = append(errs, errors.New("ledger: remote backend requires a contract address"))
		}
	default:
		errs = append(errs, fmt.Errorf("ledger: unknown backend %q", c.Ledger.Backend))
	}

	if c.Ledger.RequestTimeoutMs < 0 {
		errs = append(errs, errors.New("ledger: request timeout must not be negative"))
	}
	if c.Ledger.ReceiptTimeoutSec < 0 {
		errs = append(errs, errors.New("ledger: receipt timeout must not be negative"))
	}
	if c.Scoring.MinLoanAmount < 0 {
		errs = append(errs, errors.New("scoring: minimum loan amount must not be negative"))
	}
	if c.Scoring.AmountSimilarityTolerance < 0 || c.Scoring.AmountSimilarityTolerance >= 1 {
		errs = append(errs, errors.New("scoring: similarity tolerance must be in [0,1)"))
	}
	if c.Tamper.ScoreDriftTolerance < 0 {
		errs = append(errs, errors.New("tamper: score drift tolerance must not be negative"))
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown format %q", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		errs = append(errs, errors.New("logging: file output requires file_path"))
	}

	return errors.Join(errs...)
}

// ApplyEnvOverrides overlays PROPTRUST_* environment variables onto the
// configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PROPTRUST_LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("PROPTRUST_LEDGER_ENDPOINT"); v != "" {
		c.Ledger.Endpoints = []string{v}
	}
	if v := os.Getenv("PROPTRUST_CONTRACT_ADDRESS"); v != "" {
		c.Ledger.ContractAddress = v
	}
	if v := os.Getenv("PROPTRUST_FROM_ACCOUNT"); v != "" {
		c.Ledger.FromAccount = v
	}
	if v := os.Getenv("PROPTRUST_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("PROPTRUST_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PROPTRUST_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PROPTRUST_SCORE_DRIFT_TOLERANCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Tamper.ScoreDriftTolerance = n
		}
	}
}
