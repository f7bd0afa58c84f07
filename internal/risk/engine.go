// Package risk implements deterministic rule-based risk scoring for property
// verification. Scoring is weighted rule evaluation over extracted facts, not
// ML: every point added or removed is itemized so the result can be
// reconstructed for audit.
package risk

import (
	"fmt"
	"strconv"
	"strings"

	"proptrust/internal/record"
)

// Point weights per detected condition.
const (
	WeightLoanPresent     = 30
	WeightLegalCase       = 10
	WeightMutationPending = 25
	WeightMissingSurvey   = 10
	WeightMissingDates    = 5
)

// Penalty weights for aggravating conditions.
const (
	PenaltyMultipleLoans  = 10
	PenaltyForgery        = 20
	PenaltyMultipleIssues = 15
)

// CleanDocumentReduction is subtracted when the document shows clean-title
// evidence: survey number present, no loan, no legal case.
const CleanDocumentReduction = 5

// NeutralScore is returned when no facts are supplied at all. The engine
// never fails on missing data; it degrades to this conservative default.
const NeutralScore = 50

// Default loan-amount validation parameters.
const (
	DefaultMinLoanAmount       = 1000
	DefaultSimilarityTolerance = 0.10
)

// EngineConfig tunes loan-amount validation. Zero values select defaults.
type EngineConfig struct {
	// MinLoanAmount is the minimum currency value for a candidate loan
	// amount to count as a real loan rather than OCR noise.
	MinLoanAmount float64

	// SimilarityTolerance is the relative difference under which two
	// amounts are treated as duplicate readings of the same loan.
	SimilarityTolerance float64
}

// Engine evaluates weighted risk rules. Stateless after construction; safe
// for concurrent use.
type Engine struct {
	minLoanAmount float64
	similarityTol float64
}

// NewEngine creates a scoring engine.
func NewEngine(cfg EngineConfig) *Engine {
	minAmount := cfg.MinLoanAmount
	if minAmount <= 0 {
		minAmount = DefaultMinLoanAmount
	}
	tol := cfg.SimilarityTolerance
	if tol <= 0 {
		tol = DefaultSimilarityTolerance
	}
	return &Engine{minLoanAmount: minAmount, similarityTol: tol}
}

// Assessment is the scoring result exposed to downstream consumers.
type Assessment struct {
	Score           int              `json:"risk_score"`
	Level           record.RiskLevel `json:"risk_level"`
	Factors         []string         `json:"factors"`
	Flags           []string         `json:"flags"`
	Explanation     string           `json:"explanation"`
	Recommendations []string         `json:"recommendations"`
	Breakdown       map[string]int   `json:"breakdown"`
	Summary         string           `json:"summary"`
}

// Score evaluates the risk rules over extracted entities and the document
// classification. Either argument may be nil; with both nil the engine
// returns the neutral default rather than failing.
func (e *Engine) Score(entities *Entities, classification *Classification) Assessment {
	if entities == nil && classification == nil {
		return e.buildAssessment(NeutralScore,
			[]string{"Insufficient data for risk assessment"},
			[]string{FlagIncomplete})
	}

	if entities == nil {
		entities = &Entities{}
	}

	score := 0
	var factors, flags []string

	// Loan evidence. Amounts below the minimum threshold are OCR noise and
	// discarded; near-identical amounts are duplicate readings of one loan.
	validAmounts := e.validLoanAmounts(entities.LoanAmounts)
	hasValidLoan := len(validAmounts) > 0 && (entities.LoanPresent || len(entities.Banks) > 0)

	if hasValidLoan {
		score += WeightLoanPresent
		desc := "Active loan detected"
		if len(validAmounts) > 0 {
			desc += fmt.Sprintf(" (amount %s)", validAmounts[0])
		}
		if len(entities.Banks) > 0 {
			desc += " from " + entities.Banks[0]
		}
		factors = append(factors, fmt.Sprintf("%s (%d points)", desc, WeightLoanPresent))
		flags = append(flags, FlagLoanPresent)

		if e.countDistinctAmounts(validAmounts) > 1 {
			score += PenaltyMultipleLoans
			factors = append(factors, fmt.Sprintf("Multiple distinct loans detected (%d points)", PenaltyMultipleLoans))
			flags = append(flags, FlagMultipleLoans)
		}
	}

	// Legal case evidence.
	if len(entities.CaseNumbers) > 0 {
		score += WeightLegalCase
		factors = append(factors, fmt.Sprintf("Legal case found: %s (%d points)",
			strings.Join(entities.CaseNumbers, ", "), WeightLegalCase))
		flags = append(flags, FlagLegalCase)
	}

	// Classification-indicated conditions.
	label := ""
	if classification != nil {
		label = classification.Label
	}
	switch label {
	case LabelCourtCase:
		if !hasFlag(flags, FlagLegalCase) {
			score += WeightLegalCase
			factors = append(factors, fmt.Sprintf("Court case classification (%d points)", WeightLegalCase))
			flags = append(flags, FlagLegalCase)
		}
	case LabelForgery:
		score += PenaltyForgery
		factors = append(factors, fmt.Sprintf("Forgery indicators (%d points)", PenaltyForgery))
		flags = append(flags, FlagForgery)
	case LabelPendingMutation:
		score += WeightMutationPending
		factors = append(factors, fmt.Sprintf("Mutation pending (%d points)", WeightMutationPending))
		flags = append(flags, FlagMutationPending)
	case LabelMultipleIssues:
		score += PenaltyMultipleIssues
		factors = append(factors, fmt.Sprintf("Multiple issues detected (%d points)", PenaltyMultipleIssues))
		flags = append(flags, FlagMultipleIssues)
	}

	// Data completeness.
	if len(entities.SurveyNumbers) == 0 {
		score += WeightMissingSurvey
		factors = append(factors, fmt.Sprintf("No survey numbers found (%d points)", WeightMissingSurvey))
		flags = append(flags, FlagNoSurveyNumber)
	}
	if len(entities.Dates) == 0 {
		score += WeightMissingDates
		factors = append(factors, fmt.Sprintf("No dates found (%d points)", WeightMissingDates))
		flags = append(flags, FlagNoDates)
	}

	// Clean-document evidence, bounded reduction.
	if len(entities.SurveyNumbers) > 0 && !entities.LoanPresent && len(entities.CaseNumbers) == 0 {
		score -= CleanDocumentReduction
		if score < 0 {
			score = 0
		}
		factors = append(factors, fmt.Sprintf("Clean document indicators (-%d points)", CleanDocumentReduction))
	}

	if score > 100 {
		score = 100
	}

	score, factors, flags = Reconcile(score, factors, flags, label, entities.LoanPresent, entities.CaseNumbers)

	return e.buildAssessment(score, factors, flags)
}

// validLoanAmounts filters candidate amounts to those at or above the
// minimum currency threshold.
func (e *Engine) validLoanAmounts(amounts []string) []string {
	var valid []string
	for _, raw := range amounts {
		if v, ok := parseAmount(raw); ok && v >= e.minLoanAmount {
			valid = append(valid, raw)
		}
	}
	return valid
}

// countDistinctAmounts counts amounts that differ by more than the relative
// similarity tolerance, suppressing duplicate OCR readings of one loan.
func (e *Engine) countDistinctAmounts(amounts []string) int {
	var distinct []float64
	for _, raw := range amounts {
		v, ok := parseAmount(raw)
		if !ok {
			continue
		}
		duplicate := false
		for _, existing := range distinct {
			base := existing
			if base < 1 {
				base = 1
			}
			diff := v - existing
			if diff < 0 {
				diff = -diff
			}
			if diff/base < e.similarityTol {
				duplicate = true
				break
			}
		}
		if !duplicate {
			distinct = append(distinct, v)
		}
	}
	return len(distinct)
}

// amountStrip holds characters removed from candidate amounts before
// parsing: grouping separators, currency marks and OCR artifacts.
var amountStrip = strings.NewReplacer(",", "", ".", "", "-", "", "/", "", "₹", "", " ", "")

// parseAmount extracts a numeric value from a raw OCR amount string.
func parseAmount(raw string) (float64, bool) {
	cleaned := amountStrip.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (e *Engine) buildAssessment(score int, factors, flags []string) Assessment {
	level := record.LevelForScore(score)
	return Assessment{
		Score:           score,
		Level:           level,
		Factors:         factors,
		Flags:           flags,
		Explanation:     explanation(score, level, factors),
		Recommendations: recommendations(level, flags),
		Breakdown:       breakdown(score, flags),
		Summary:         summary(level),
	}
}

// breakdown itemizes the score by category. The residual bucket absorbs
// penalties and reductions not attributable to a single category.
func breakdown(score int, flags []string) map[string]int {
	loan, legal, mutation, dataQuality := 0, 0, 0, 0
	if hasFlag(flags, FlagLoanPresent) {
		loan = WeightLoanPresent
	}
	if hasFlag(flags, FlagLegalCase) {
		legal = WeightLegalCase
	}
	if hasFlag(flags, FlagMutationPending) {
		mutation = WeightMutationPending
	}
	if hasFlag(flags, FlagNoSurveyNumber) {
		dataQuality = WeightMissingSurvey
	}
	return map[string]int{
		"loan_risk":         loan,
		"legal_risk":        legal,
		"mutation_risk":     mutation,
		"data_quality_risk": dataQuality,
		"other_risks":       score - loan - legal - mutation - dataQuality,
	}
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
