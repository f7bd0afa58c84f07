// Package record defines the verification record consumed by the integrity
// pipeline and its canonical form used for fingerprinting.
package record

import "time"

// RiskLevel is the categorical risk classification of a property document.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Risk level thresholds. LevelForScore is the single source of truth for
// deriving a level from a score; no other component duplicates this mapping.
const (
	LowRiskCeiling    = 30
	MediumRiskCeiling = 60
)

// LevelForScore maps a risk score to its level: 0-30 Low, 31-60 Medium,
// 61-100 High.
func LevelForScore(score int) RiskLevel {
	switch {
	case score <= LowRiskCeiling:
		return RiskLow
	case score <= MediumRiskCeiling:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// MutationStatus reports whether a mutation (ownership transfer entry in the
// revenue record) was detected for the property.
type MutationStatus string

// Mutation statuses.
const (
	MutationDetected MutationStatus = "DETECTED"
	MutationUnknown  MutationStatus = "UNKNOWN"
)

// DefaultDocumentType is assumed when a record does not name its document
// type. RTC (Record of Rights, Tenancy and Crops) is the primary document
// this system verifies.
const DefaultDocumentType = "RTC"

// VerificationRecord is the outcome of verifying one property document.
// RiskScore and RiskLevel must agree per LevelForScore. VerifiedAt is
// volatile: it is part of the audit identity of a verification but excluded
// from re-verification fingerprints.
type VerificationRecord struct {
	PropertyID        string         `json:"property_id"`
	DocumentType      string         `json:"document_type"`
	OwnerName         string         `json:"owner_name"`
	SurveyNumber      string         `json:"survey_number"`
	RiskScore         int            `json:"risk_score"`
	RiskLevel         RiskLevel      `json:"risk_level"`
	LoanDetected      bool           `json:"loan_detected"`
	LegalCaseDetected bool           `json:"legal_case_detected"`
	MutationStatus    MutationStatus `json:"mutation_status"`
	RiskFactors       []string       `json:"risk_factors"`
	VerifiedAt        time.Time      `json:"verified_at"`
}
