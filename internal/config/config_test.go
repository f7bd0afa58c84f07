package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Ledger.Backend != BackendSimulated {
		t.Errorf("default backend = %q, want %q", cfg.Ledger.Backend, BackendSimulated)
	}
}

func TestValidateRemoteRequiresEndpointAndContract(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ledger.Backend = BackendRemote
	if err := cfg.Validate(); err == nil {
		t.Fatal("remote backend without endpoints should fail validation")
	}

	cfg.Ledger.Endpoints = []string{"http://localhost:8545"}
	cfg.Ledger.ContractAddress = "0x1111111111111111111111111111111111111111"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("configured remote backend should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "blockchain" }},
		{"negative request timeout", func(c *Config) { c.Ledger.RequestTimeoutMs = -1 }},
		{"negative receipt timeout", func(c *Config) { c.Ledger.ReceiptTimeoutSec = -1 }},
		{"negative min loan amount", func(c *Config) { c.Scoring.MinLoanAmount = -1 }},
		{"similarity tolerance out of range", func(c *Config) { c.Scoring.AmountSimilarityTolerance = 1.5 }},
		{"negative drift tolerance", func(c *Config) { c.Tamper.ScoreDriftTolerance = -1 }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"file output without path", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestLoadTOMLConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[ledger]
backend = "remote"
endpoints = ["http://localhost:8545"]
contract_address = "0x1111111111111111111111111111111111111111"
from_account = "0x2222222222222222222222222222222222222222"
receipt_timeout_sec = 60

[scoring]
min_loan_amount = 5000.0

[tamper]
score_drift_tolerance = 10

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Ledger.Backend != BackendRemote {
		t.Errorf("backend = %q, want remote", cfg.Ledger.Backend)
	}
	if cfg.Ledger.ReceiptTimeoutSec != 60 {
		t.Errorf("receipt timeout = %d, want 60", cfg.Ledger.ReceiptTimeoutSec)
	}
	if cfg.Scoring.MinLoanAmount != 5000 {
		t.Errorf("min loan amount = %v, want 5000", cfg.Scoring.MinLoanAmount)
	}
	if cfg.Tamper.ScoreDriftTolerance != 10 {
		t.Errorf("drift tolerance = %d, want 10", cfg.Tamper.ScoreDriftTolerance)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v, want debug/json", cfg.Logging)
	}
	// Unset sections keep their defaults.
	if cfg.Ledger.RequestTimeoutMs != 30_000 {
		t.Errorf("request timeout = %d, want default 30000", cfg.Ledger.RequestTimeoutMs)
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
ledger:
  backend: simulated
storage:
  path: /tmp/proptrust-ledger.db
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Path != "/tmp/proptrust-ledger.db" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`[ledger]`+"\n"+`backend = "nonsense"`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("invalid backend should fail load")
	}

	if _, err := NewLoader(filepath.Join(t.TempDir(), "missing.toml")).Load(); err == nil {
		t.Error("missing file should fail load")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if cfg.Ledger.Backend != BackendSimulated {
		t.Error("empty path should yield defaults")
	}

	cfg, err = LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("absent file: %v", err)
	}
	if cfg.Ledger.Backend != BackendSimulated {
		t.Error("absent file should yield defaults")
	}
}

func TestLoadOrDefaultReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[tamper]\nscore_drift_tolerance = 9\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadOrDefault(path)
	if err != nil {
		t.Fatalf("load existing file: %v", err)
	}
	if cfg.Tamper.ScoreDriftTolerance != 9 {
		t.Errorf("drift tolerance = %d, want 9", cfg.Tamper.ScoreDriftTolerance)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[ledger]\nbackend = \"nonsense\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadOrDefault(bad); err == nil {
		t.Error("invalid existing file should fail")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PROPTRUST_LEDGER_BACKEND", "remote")
	t.Setenv("PROPTRUST_LEDGER_ENDPOINT", "http://node:8545")
	t.Setenv("PROPTRUST_CONTRACT_ADDRESS", "0x3333333333333333333333333333333333333333")
	t.Setenv("PROPTRUST_SCORE_DRIFT_TOLERANCE", "8")
	t.Setenv("PROPTRUST_LOG_LEVEL", "error")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Ledger.Backend != BackendRemote {
		t.Errorf("backend = %q, want remote", cfg.Ledger.Backend)
	}
	if len(cfg.Ledger.Endpoints) != 1 || cfg.Ledger.Endpoints[0] != "http://node:8545" {
		t.Errorf("endpoints = %v", cfg.Ledger.Endpoints)
	}
	if cfg.Tamper.ScoreDriftTolerance != 8 {
		t.Errorf("drift tolerance = %d, want 8", cfg.Tamper.ScoreDriftTolerance)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("log level = %q, want error", cfg.Logging.Level)
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[tamper]\nscore_drift_tolerance = 5\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader := NewLoader(path)
	if _, err := loader.Load(); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	if err := loader.Watch(); err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer loader.Close()

	changed := make(chan *Config, 1)
	loader.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	if err := os.WriteFile(path, []byte("[tamper]\nscore_drift_tolerance = 12\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Tamper.ScoreDriftTolerance != 12 {
			t.Errorf("reloaded drift tolerance = %d, want 12", cfg.Tamper.ScoreDriftTolerance)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
