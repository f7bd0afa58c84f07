package record

import (
	"sort"
	"strings"
	"time"
)

// UnknownSentinel replaces absent name-like and identifier fields in the
// canonical form. The canonical field set never contains nulls or missing
// keys, so two records that both lack a field canonicalize identically.
const UnknownSentinel = "UNKNOWN"

// canonicalVersion is the version of the closed canonical field set. Bump it
// whenever a field is added to or removed from CanonicalForm; records hashed
// under different versions must not be compared.
const canonicalVersion = 1

// CanonicalForm is the normalized, order-independent projection of a
// VerificationRecord. Its field set is closed: fields a caller's record may
// gain in the future are excluded here by construction, so fingerprints stay
// stable across unrelated schema growth.
type CanonicalForm struct {
	PropertyID        string
	DocumentType      string
	OwnerName         string
	SurveyNumber      string
	RiskScore         int
	RiskLevel         string
	LoanDetected      bool
	LegalCaseDetected bool
	MutationStatus    string
	RiskFactors       []string
	VerifiedAt        string
}

// Canonicalize normalizes a record into its canonical form. It is total: any
// well-typed record canonicalizes without error. The timestamp is retained
// here and dropped only at the fingerprint stage, so both hashing modes share
// one normalization path.
func Canonicalize(rec VerificationRecord) CanonicalForm {
	return CanonicalForm{
		PropertyID:        orUnknown(rec.PropertyID),
		DocumentType:      orDefault(rec.DocumentType, DefaultDocumentType),
		OwnerName:         NormalizeName(rec.OwnerName),
		SurveyNumber:      NormalizeSurveyNumber(rec.SurveyNumber),
		RiskScore:         rec.RiskScore,
		RiskLevel:         orUnknown(string(rec.RiskLevel)),
		LoanDetected:      rec.LoanDetected,
		LegalCaseDetected: rec.LegalCaseDetected,
		MutationStatus:    orUnknown(string(rec.MutationStatus)),
		RiskFactors:       sortedFactors(rec.RiskFactors),
		VerifiedAt:        canonicalTime(rec.VerifiedAt),
	}
}

// Fields returns the canonical fields as a key-indexed map for deterministic
// serialization. Map serialization sorts keys, which makes the byte sequence
// independent of field insertion order. When includeTimestamp is false the
// volatile verified_at field is omitted, yielding the stable re-verification
// form.
func (c CanonicalForm) Fields(includeTimestamp bool) map[string]any {
	fields := map[string]any{
		"version":             canonicalVersion,
		"property_id":         c.PropertyID,
		"document_type":       c.DocumentType,
		"owner_name":          c.OwnerName,
		"survey_number":       c.SurveyNumber,
		"risk_score":          c.RiskScore,
		"risk_level":          c.RiskLevel,
		"loan_detected":       c.LoanDetected,
		"legal_case_detected": c.LegalCaseDetected,
		"mutation_status":     c.MutationStatus,
		"risk_factors":        c.RiskFactors,
	}
	if includeTimestamp {
		fields["verified_at"] = c.VerifiedAt
	}
	return fields
}

// NormalizeName uppercases a person name and collapses internal whitespace.
// Empty input maps to the UNKNOWN sentinel.
func NormalizeName(name string) string {
	parts := strings.Fields(strings.ToUpper(name))
	if len(parts) == 0 {
		return UnknownSentinel
	}
	return strings.Join(parts, " ")
}

// NormalizeSurveyNumber uppercases a survey number and strips all whitespace.
// Empty input maps to the UNKNOWN sentinel.
func NormalizeSurveyNumber(survey string) string {
	parts := strings.Fields(strings.ToUpper(survey))
	if len(parts) == 0 {
		return UnknownSentinel
	}
	return strings.Join(parts, "")
}

// sortedFactors returns a lexicographically sorted copy of the risk factors.
// Factor order carries no meaning and must not affect the fingerprint.
func sortedFactors(factors []string) []string {
	sorted := make([]string, len(factors))
	copy(sorted, factors)
	sort.Strings(sorted)
	return sorted
}

// canonicalTime renders the verification timestamp as RFC 3339 UTC, or the
// UNKNOWN sentinel for the zero time.
func canonicalTime(t time.Time) string {
	if t.IsZero() {
		return UnknownSentinel
	}
	return t.UTC().Format(time.RFC3339)
}

func orUnknown(s string) string {
	return orDefault(s, UnknownSentinel)
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
