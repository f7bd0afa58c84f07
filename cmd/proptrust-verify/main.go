// Command proptrust-verify drives the verification-integrity pipeline from
// the command line: score extracted facts, fingerprint verification records,
// record fingerprints on the configured ledger, and check records for
// tampering.
//
// Usage:
//
//	proptrust-verify score -entities entities.json -classification class.json
//	proptrust-verify fingerprint -record record.json [-with-timestamp]
//	proptrust-verify store -record record.json [-allow-overwrite]
//	proptrust-verify check -record record.json
//
// Global flags (per subcommand):
//
//	-config path    configuration file (TOML or YAML)
//	-format fmt     output format: text, json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"proptrust/internal/config"
	"proptrust/internal/fingerprint"
	"proptrust/internal/ledger"
	"proptrust/internal/logging"
	"proptrust/internal/record"
	"proptrust/internal/risk"
	"proptrust/internal/schema"
	"proptrust/internal/tamper"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "score":
		err = runScore(os.Args[2:])
	case "fingerprint":
		err = runFingerprint(os.Args[2:])
	case "store":
		err = runStore(os.Args[2:])
	case "check":
		err = runCheck(os.Args[2:])
	case "version":
		fmt.Println("proptrust-verify", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `proptrust-verify - property verification integrity tool

Commands:
  score        score extracted facts into a risk assessment
  fingerprint  compute the canonical fingerprint of a record
  store        record a verification fingerprint on the ledger
  check        check a record against its ledger entry
  version      print version`)
}

func runScore(args []string) error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	entitiesPath := fs.String("entities", "", "extracted entities JSON file")
	classPath := fs.String("classification", "", "classification JSON file")
	configPath := fs.String("config", "", "configuration file")
	format := fs.String("format", "text", "output format: text, json")
	fs.Parse(args)

	cfg, err := setup(*configPath)
	if err != nil {
		return err
	}

	var entities *risk.Entities
	if *entitiesPath != "" {
		data, err := os.ReadFile(*entitiesPath)
		if err != nil {
			return fmt.Errorf("read entities: %w", err)
		}
		if err := schema.ValidateEntities(data); err != nil {
			return err
		}
		entities = &risk.Entities{}
		if err := json.Unmarshal(data, entities); err != nil {
			return fmt.Errorf("parse entities: %w", err)
		}
	}

	var classification *risk.Classification
	if *classPath != "" {
		data, err := os.ReadFile(*classPath)
		if err != nil {
			return fmt.Errorf("read classification: %w", err)
		}
		if err := schema.ValidateClassification(data); err != nil {
			return err
		}
		classification = &risk.Classification{}
		if err := json.Unmarshal(data, classification); err != nil {
			return fmt.Errorf("parse classification: %w", err)
		}
	}

	engine := risk.NewEngine(risk.EngineConfig{
		MinLoanAmount:       cfg.Scoring.MinLoanAmount,
		SimilarityTolerance: cfg.Scoring.AmountSimilarityTolerance,
	})
	assessment := engine.Score(entities, classification)

	if *format == "json" {
		return printJSON(assessment)
	}
	fmt.Println(assessment.Explanation)
	fmt.Println()
	fmt.Println("Summary:", assessment.Summary)
	if len(assessment.Recommendations) > 0 {
		fmt.Println()
		fmt.Println("Recommendations:")
		for _, rec := range assessment.Recommendations {
			fmt.Println("  -", rec)
		}
	}
	return nil
}

func runFingerprint(args []string) error {
	fs := flag.NewFlagSet("fingerprint", flag.ExitOnError)
	recordPath := fs.String("record", "", "verification record JSON file")
	withTimestamp := fs.Bool("with-timestamp", false, "include the volatile timestamp in the hash")
	fs.Parse(args)

	rec, err := loadRecord(*recordPath)
	if err != nil {
		return err
	}

	fmt.Println(fingerprint.New(*rec, *withTimestamp).Hex())
	return nil
}

func runStore(args []string) error {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	recordPath := fs.String("record", "", "verification record JSON file")
	configPath := fs.String("config", "", "configuration file")
	format := fs.String("format", "text", "output format: text, json")
	submitter := fs.String("submitter", "", "submitter identity recorded with the entry")
	allowOverwrite := fs.Bool("allow-overwrite", false, "supersede an existing entry for this property")
	fs.Parse(args)

	cfg, err := setup(*configPath)
	if err != nil {
		return err
	}

	rec, err := loadRecord(*recordPath)
	if err != nil {
		return err
	}

	client, closeClient, err := newLedgerClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	ctx, cancel := storeContext(cfg)
	defer cancel()

	// Fingerprints are stored without the volatile timestamp so later
	// re-verification checks compare like with like.
	entry, err := client.Store(ctx, ledger.StoreRequest{
		PropertyID:     rec.PropertyID,
		Fingerprint:    fingerprint.New(*rec, false),
		RiskScore:      rec.RiskScore,
		Submitter:      *submitter,
		AllowOverwrite: *allowOverwrite,
	})
	if err != nil {
		return err
	}

	if *format == "json" {
		return printJSON(entry)
	}
	fmt.Println("Stored verification for", entry.PropertyID)
	fmt.Println("  Fingerprint:", entry.Fingerprint.Hex())
	fmt.Println("  Submission: ", entry.SubmissionID)
	fmt.Println("  Sequence:   ", entry.SequenceNumber)
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	recordPath := fs.String("record", "", "verification record JSON file")
	configPath := fs.String("config", "", "configuration file")
	format := fs.String("format", "text", "output format: text, json")
	fs.Parse(args)

	cfg, err := setup(*configPath)
	if err != nil {
		return err
	}

	rec, err := loadRecord(*recordPath)
	if err != nil {
		return err
	}

	client, closeClient, err := newLedgerClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	ctx, cancel := storeContext(cfg)
	defer cancel()

	detector := tamper.NewDetectorWithTolerance(client, cfg.Tamper.ScoreDriftTolerance)
	rep := detector.Check(ctx, *rec)

	outFormat := tamper.FormatText
	if *format == "json" {
		outFormat = tamper.FormatJSON
	}
	if err := tamper.WriteReport(rep, outFormat, os.Stdout); err != nil {
		return err
	}

	switch rep.Classification {
	case tamper.StatusTampered, tamper.StatusError:
		os.Exit(1)
	}
	return nil
}

// setup loads configuration and installs the configured logger.
func setup(configPath string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		cfg.ApplyEnvOverrides()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logFormat, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(&logging.Config{
		Level:     level,
		Format:    logFormat,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "proptrust-verify",
	})
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logger)
	return cfg, nil
}

// newLedgerClient builds the backend the configuration names. Selection is
// explicit: a misconfigured remote backend is an error, never a silent
// fallback to the simulated one.
func newLedgerClient(cfg *config.Config) (ledger.Client, func(), error) {
	switch cfg.Ledger.Backend {
	case config.BackendRemote:
		client, err := ledger.NewRemote(ledger.RemoteConfig{
			Endpoints:       cfg.Ledger.Endpoints,
			ContractAddress: cfg.Ledger.ContractAddress,
			FromAccount:     cfg.Ledger.FromAccount,
			RequestTimeout:  time.Duration(cfg.Ledger.RequestTimeoutMs) * time.Millisecond,
			ReceiptTimeout:  time.Duration(cfg.Ledger.ReceiptTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil

	case config.BackendSimulated:
		if cfg.Storage.Path != "" {
			sim, err := ledger.OpenSimulated(cfg.Storage.Path)
			if err != nil {
				return nil, nil, err
			}
			return sim, func() { sim.Close() }, nil
		}
		sim := ledger.NewSimulated()
		return sim, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func storeContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := time.Duration(cfg.Ledger.ReceiptTimeoutSec) * time.Second
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	// Headroom beyond the receipt timeout so the backend reports the
	// timeout itself rather than a bare context deadline.
	return context.WithTimeout(context.Background(), timeout+10*time.Second)
}

func loadRecord(path string) (*record.VerificationRecord, error) {
	if path == "" {
		return nil, fmt.Errorf("a -record file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	rec := &record.VerificationRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if rec.PropertyID == "" {
		return nil, fmt.Errorf("record is missing property_id")
	}
	return rec, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
