// Package tamper re-derives a fingerprint from current verification input,
// compares it with the recorded ledger entry and classifies the outcome.
// The detector reconciles two independently derived signals: a cryptographic
// hash (authoritative for tampering) and a semantic risk score (compared
// under a fixed drift tolerance, since scoring models evolve legitimately).
package tamper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proptrust/internal/fingerprint"
	"proptrust/internal/ledger"
	"proptrust/internal/logging"
	"proptrust/internal/record"
)

// Classification is the terminal state of one tamper check.
type Classification string

// Check outcomes.
const (
	StatusVerified          Classification = "VERIFIED"
	StatusVerifiedWithDrift Classification = "VERIFIED_WITH_DRIFT"
	StatusTampered          Classification = "TAMPERED"
	StatusNotFound          Classification = "NOT_FOUND"
	StatusError             Classification = "ERROR"
)

// DefaultScoreDriftTolerance is the score delta above which a hash-verified
// record is reported as drifted rather than verified.
const DefaultScoreDriftTolerance = 5

// Report is the outcome of one tamper check. Reports are produced per check
// and not persisted by this package.
type Report struct {
	PropertyID       string         `json:"property_id"`
	Classification   Classification `json:"classification"`
	FingerprintMatch bool           `json:"fingerprint_match"`
	ScoreDelta       int            `json:"score_delta"`
	Warnings         []string       `json:"warnings"`

	CurrentFingerprint string `json:"current_fingerprint,omitempty"`
	LedgerFingerprint  string `json:"ledger_fingerprint,omitempty"`
	CurrentScore       int    `json:"current_score"`
	LedgerScore        int    `json:"ledger_score"`

	CheckedAt  time.Time   `json:"checked_at"`
	Comparison *Comparison `json:"comparison,omitempty"`
}

// Comparison carries the field-level context for a completed check: the key
// canonical fields of the current record and the ledger entry metadata.
type Comparison struct {
	OwnerName         string    `json:"owner_name"`
	SurveyNumber      string    `json:"survey_number"`
	LoanDetected      bool      `json:"loan_detected"`
	LegalCaseDetected bool      `json:"legal_case_detected"`
	LedgerTimestamp   time.Time `json:"ledger_timestamp"`
	LedgerSubmitter   string    `json:"ledger_submitter,omitempty"`
	LedgerSubmission  string    `json:"ledger_submission,omitempty"`
}

// Detector classifies tamper checks against a ledger backend. It never
// mutates ledger state.
type Detector struct {
	client    ledger.Client
	tolerance int
}

// NewDetector creates a detector with the default score drift tolerance.
func NewDetector(client ledger.Client) *Detector {
	return NewDetectorWithTolerance(client, DefaultScoreDriftTolerance)
}

// NewDetectorWithTolerance creates a detector with an explicit tolerance.
func NewDetectorWithTolerance(client ledger.Client, tolerance int) *Detector {
	if tolerance < 0 {
		tolerance = DefaultScoreDriftTolerance
	}
	return &Detector{client: client, tolerance: tolerance}
}

// Check runs one tamper check for the record's property. The record's
// fingerprint is recomputed without its volatile timestamp so it is
// comparable with the one recorded at first verification.
func (d *Detector) Check(ctx context.Context, rec record.VerificationRecord) *Report {
	rep := &Report{
		PropertyID:   rec.PropertyID,
		CurrentScore: rec.RiskScore,
		CheckedAt:    time.Now().UTC(),
	}

	exists, err := d.client.Exists(ctx, rec.PropertyID)
	if err != nil {
		return d.fail(rep, fmt.Errorf("check ledger presence: %w", err))
	}
	if !exists {
		rep.Classification = StatusNotFound
		rep.Warnings = append(rep.Warnings,
			"Property not found on ledger. This is the first verification.")
		return rep
	}

	entry, err := d.client.Get(ctx, rec.PropertyID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			rep.Classification = StatusNotFound
			rep.Warnings = append(rep.Warnings,
				"Property not found on ledger. This is the first verification.")
			return rep
		}
		return d.fail(rep, fmt.Errorf("fetch ledger entry: %w", err))
	}

	current := fingerprint.New(rec, false)
	rep.CurrentFingerprint = current.Hex()
	rep.LedgerFingerprint = entry.Fingerprint.Hex()
	rep.LedgerScore = entry.RiskScore

	rep.FingerprintMatch = current == entry.Fingerprint
	rep.ScoreDelta = absDelta(rec.RiskScore, entry.RiskScore)
	scoreDrifted := rep.ScoreDelta > d.tolerance

	switch {
	case rep.FingerprintMatch && !scoreDrifted:
		rep.Classification = StatusVerified
	case rep.FingerprintMatch && scoreDrifted:
		rep.Classification = StatusVerifiedWithDrift
		rep.Warnings = append(rep.Warnings,
			"Fingerprint matched but risk score changed. This may indicate a scoring model update.")
	default:
		rep.Classification = StatusTampered
		rep.Warnings = append(rep.Warnings,
			"Fingerprint mismatch detected. Document may have been tampered with.")
	}

	canon := record.Canonicalize(rec)
	rep.Comparison = &Comparison{
		OwnerName:         canon.OwnerName,
		SurveyNumber:      canon.SurveyNumber,
		LoanDetected:      canon.LoanDetected,
		LegalCaseDetected: canon.LegalCaseDetected,
		LedgerTimestamp:   entry.Timestamp,
		LedgerSubmitter:   entry.Submitter,
		LedgerSubmission:  entry.SubmissionID,
	}

	logging.Info("tamper check completed",
		"property_id", rec.PropertyID,
		"classification", string(rep.Classification),
		"fingerprint_match", rep.FingerprintMatch,
		"score_delta", rep.ScoreDelta)

	return rep
}

func (d *Detector) fail(rep *Report, err error) *Report {
	rep.Classification = StatusError
	rep.Warnings = append(rep.Warnings, fmt.Sprintf("Error during tamper check: %v", err))
	logging.Error("tamper check failed", "property_id", rep.PropertyID, "error", err)
	return rep
}

func absDelta(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
