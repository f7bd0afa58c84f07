package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proptrust/internal/record"
)

func TestScoreNeutralWithNoFacts(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	assessment := engine.Score(nil, nil)

	assert.Equal(t, NeutralScore, assessment.Score)
	assert.Equal(t, record.RiskMedium, assessment.Level)
	assert.Contains(t, assessment.Flags, FlagIncomplete)
}

func TestScoreLoanDetected(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	assessment := engine.Score(&Entities{
		LoanPresent:   true,
		Banks:         []string{"State Bank of India"},
		LoanAmounts:   []string{"500000"},
		SurveyNumbers: []string{"178/1"},
		Dates:         []string{"2024-01-15"},
	}, nil)

	assert.Equal(t, WeightLoanPresent, assessment.Score)
	assert.Equal(t, record.RiskLow, assessment.Level)
	assert.Contains(t, assessment.Flags, FlagLoanPresent)
	assert.NotContains(t, assessment.Flags, FlagMultipleLoans)
}

func TestScoreLoanAmountBelowThreshold(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	assessment := engine.Score(&Entities{
		LoanPresent:   true,
		LoanAmounts:   []string{"500"},
		SurveyNumbers: []string{"178/1"},
		Dates:         []string{"2024-01-15"},
	}, nil)

	assert.NotContains(t, assessment.Flags, FlagLoanPresent)
}

func TestScoreDuplicateAmountsSuppressed(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	// Within 10% of each other: duplicate OCR readings of one loan.
	assessment := engine.Score(&Entities{
		LoanPresent:   true,
		LoanAmounts:   []string{"500000", "510000"},
		SurveyNumbers: []string{"178/1"},
		Dates:         []string{"2024-01-15"},
	}, nil)
	assert.NotContains(t, assessment.Flags, FlagMultipleLoans)
	assert.Equal(t, WeightLoanPresent, assessment.Score)

	// Clearly distinct amounts: two loans.
	assessment = engine.Score(&Entities{
		LoanPresent:   true,
		LoanAmounts:   []string{"500000", "900000"},
		SurveyNumbers: []string{"178/1"},
		Dates:         []string{"2024-01-15"},
	}, nil)
	assert.Contains(t, assessment.Flags, FlagMultipleLoans)
	assert.Equal(t, WeightLoanPresent+PenaltyMultipleLoans, assessment.Score)
}

func TestScoreLegalCase(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	assessment := engine.Score(&Entities{
		CaseNumbers:   []string{"OS 45/2023"},
		SurveyNumbers: []string{"178/1"},
		Dates:         []string{"2024-01-15"},
	}, nil)

	assert.Equal(t, WeightLegalCase, assessment.Score)
	assert.Contains(t, assessment.Flags, FlagLegalCase)
}

func TestScoreCourtCaseLabelNotDoubleCounted(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	withLabel := engine.Score(&Entities{
		CaseNumbers:   []string{"OS 45/2023"},
		SurveyNumbers: []string{"178/1"},
		Dates:         []string{"2024-01-15"},
	}, &Classification{Label: LabelCourtCase, Confidence: 0.9})

	withoutLabel := engine.Score(&Entities{
		CaseNumbers:   []string{"OS 45/2023"},
		SurveyNumbers: []string{"178/1"},
		Dates:         []string{"2024-01-15"},
	}, nil)

	assert.Equal(t, withoutLabel.Score, withLabel.Score)
}

func TestScoreClassificationLabels(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	base := &Entities{SurveyNumbers: []string{"178/1"}, Dates: []string{"2024-01-15"}}

	cases := []struct {
		label string
		want  int
		flag  string
	}{
		{LabelForgery, PenaltyForgery - CleanDocumentReduction, FlagForgery},
		{LabelPendingMutation, WeightMutationPending - CleanDocumentReduction, FlagMutationPending},
		{LabelMultipleIssues, PenaltyMultipleIssues - CleanDocumentReduction, FlagMultipleIssues},
	}
	for _, tc := range cases {
		assessment := engine.Score(base, &Classification{Label: tc.label})
		assert.Equal(t, tc.want, assessment.Score, "label %s", tc.label)
		assert.Contains(t, assessment.Flags, tc.flag, "label %s", tc.label)
	}
}

func TestScoreMissingDataPenalties(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	assessment := engine.Score(&Entities{}, nil)

	assert.Equal(t, WeightMissingSurvey+WeightMissingDates, assessment.Score)
	assert.Contains(t, assessment.Flags, FlagNoSurveyNumber)
	assert.Contains(t, assessment.Flags, FlagNoDates)
}

func TestScoreCleanDocumentClampsAtZero(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	assessment := engine.Score(&Entities{
		SurveyNumbers: []string{"178/1"},
		Dates:         []string{"2024-01-15"},
	}, nil)

	assert.Equal(t, 0, assessment.Score)
	assert.Equal(t, record.RiskLow, assessment.Level)
}

func TestScoreBounds(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	inputs := []struct {
		entities       *Entities
		classification *Classification
	}{
		{nil, nil},
		{&Entities{}, nil},
		{&Entities{SurveyNumbers: []string{"1"}, Dates: []string{"x"}}, nil},
		{&Entities{
			LoanPresent: true,
			Banks:       []string{"SBI", "HDFC"},
			LoanAmounts: []string{"500000", "900000", "2000000"},
			CaseNumbers: []string{"OS 45/2023"},
		}, &Classification{Label: LabelForgery}},
	}
	for i, in := range inputs {
		assessment := engine.Score(in.entities, in.classification)
		require.GreaterOrEqual(t, assessment.Score, 0, "case %d", i)
		require.LessOrEqual(t, assessment.Score, 100, "case %d", i)
		require.Equal(t, record.LevelForScore(assessment.Score), assessment.Level, "case %d", i)
	}
}

func TestScoreBreakdownSumsToScore(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	assessment := engine.Score(&Entities{
		LoanPresent: true,
		LoanAmounts: []string{"500000"},
		CaseNumbers: []string{"OS 45/2023"},
	}, nil)

	require.NotNil(t, assessment.Breakdown)
	assert.Equal(t, WeightLoanPresent, assessment.Breakdown["loan_risk"])
	assert.Equal(t, WeightLegalCase, assessment.Breakdown["legal_risk"])

	sum := 0
	for _, v := range assessment.Breakdown {
		sum += v
	}
	assert.Equal(t, assessment.Score, sum)
}

func TestScoreDeterministic(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	entities := &Entities{
		LoanPresent: true,
		LoanAmounts: []string{"500000"},
		CaseNumbers: []string{"OS 45/2023"},
	}
	classification := &Classification{Label: LabelCourtCase, Confidence: 0.8}

	first := engine.Score(entities, classification)
	for i := 0; i < 5; i++ {
		again := engine.Score(entities, classification)
		require.Equal(t, first.Score, again.Score)
		require.Equal(t, first.Factors, again.Factors)
		require.Equal(t, first.Flags, again.Flags)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"500000", 500000, true},
		{"5,00,000", 500000, true},
		{"₹ 500000", 500000, true},
		{"garbage", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, "parseAmount(%q)", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, "parseAmount(%q)", tc.in)
		}
	}
}

func TestAssessmentHasExplanationAndRecommendations(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	assessment := engine.Score(&Entities{
		LoanPresent: true,
		LoanAmounts: []string{"500000"},
	}, nil)

	assert.NotEmpty(t, assessment.Explanation)
	assert.NotEmpty(t, assessment.Summary)
	assert.NotEmpty(t, assessment.Recommendations)
}
