package record

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"rajesh kumar", "RAJESH KUMAR"},
		{"  Rajesh   Kumar  ", "RAJESH KUMAR"},
		{"RAJESH\tKUMAR", "RAJESH KUMAR"},
		{"", "UNKNOWN"},
		{"   ", "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeSurveyNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"178/1", "178/1"},
		{" 178 / 1a ", "178/1A"},
		{"", "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := NormalizeSurveyNumber(tc.in); got != tc.want {
			t.Errorf("NormalizeSurveyNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalizeDefaults(t *testing.T) {
	canon := Canonicalize(VerificationRecord{PropertyID: "PRT-001"})

	if canon.DocumentType != DefaultDocumentType {
		t.Errorf("document type = %q, want %q", canon.DocumentType, DefaultDocumentType)
	}
	if canon.OwnerName != UnknownSentinel {
		t.Errorf("owner name = %q, want sentinel", canon.OwnerName)
	}
	if canon.SurveyNumber != UnknownSentinel {
		t.Errorf("survey number = %q, want sentinel", canon.SurveyNumber)
	}
	if canon.RiskLevel != UnknownSentinel {
		t.Errorf("risk level = %q, want sentinel", canon.RiskLevel)
	}
	if canon.MutationStatus != UnknownSentinel {
		t.Errorf("mutation status = %q, want sentinel", canon.MutationStatus)
	}
	if canon.VerifiedAt != UnknownSentinel {
		t.Errorf("verified at = %q, want sentinel for zero time", canon.VerifiedAt)
	}
	if canon.RiskFactors == nil {
		t.Error("risk factors should canonicalize to an empty slice, not nil")
	}
}

func TestCanonicalizeSortsRiskFactors(t *testing.T) {
	rec := VerificationRecord{
		PropertyID:  "PRT-001",
		RiskFactors: []string{"OUTDATED_RECORD", "LOAN_PRESENT", "LEGAL_CASE"},
	}
	canon := Canonicalize(rec)
	want := []string{"LEGAL_CASE", "LOAN_PRESENT", "OUTDATED_RECORD"}
	if !reflect.DeepEqual(canon.RiskFactors, want) {
		t.Errorf("risk factors = %v, want %v", canon.RiskFactors, want)
	}

	// The input slice must not be mutated.
	if rec.RiskFactors[0] != "OUTDATED_RECORD" {
		t.Error("canonicalize mutated the caller's risk factors")
	}
}

func TestFieldsTimestampExclusion(t *testing.T) {
	canon := Canonicalize(VerificationRecord{
		PropertyID: "PRT-001",
		VerifiedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	})

	with := canon.Fields(true)
	if _, ok := with["verified_at"]; !ok {
		t.Error("verified_at missing from timestamped fields")
	}
	without := canon.Fields(false)
	if _, ok := without["verified_at"]; ok {
		t.Error("verified_at present in timestamp-excluded fields")
	}
}

func TestLevelForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLow},
		{30, RiskLow},
		{31, RiskMedium},
		{60, RiskMedium},
		{61, RiskHigh},
		{100, RiskHigh},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
