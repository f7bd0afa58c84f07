package risk

import (
	"fmt"
	"strings"

	"proptrust/internal/record"
)

// explanation renders a single-line human-readable account of the score.
func explanation(score int, level record.RiskLevel, factors []string) string {
	if len(factors) == 0 {
		return fmt.Sprintf("Risk Score: %d/100 (%s Risk) - No significant risk factors identified.", score, level)
	}
	return fmt.Sprintf("Risk Score: %d/100 (%s Risk) - %s", score, level, strings.Join(factors, " | "))
}

// recommendations derives actionable next steps from the level and flags.
func recommendations(level record.RiskLevel, flags []string) []string {
	var recs []string

	switch level {
	case record.RiskHigh:
		recs = append(recs,
			"DO NOT PROCEED without thorough legal verification",
			"Engage experienced property lawyer immediately")
	case record.RiskMedium:
		recs = append(recs,
			"PROCEED WITH CAUTION",
			"Obtain legal opinion before finalizing transaction")
	default:
		recs = append(recs, "LOW RISK - may proceed with standard due diligence")
	}

	if hasFlag(flags, FlagLoanPresent) {
		recs = append(recs,
			"Obtain No Objection Certificate (NOC) from all lenders",
			"Verify loan status and outstanding amount")
	}
	if hasFlag(flags, FlagLegalCase) {
		recs = append(recs,
			"Obtain certified copy of court case details",
			"Verify current status of litigation",
			"Consult advocate regarding case implications")
	}
	if hasFlag(flags, FlagMutationPending) {
		recs = append(recs,
			"Complete mutation process in revenue records",
			"Obtain updated khata in seller's name")
	}
	if hasFlag(flags, FlagNoSurveyNumber) {
		recs = append(recs,
			"Verify survey number from revenue records",
			"Obtain complete document set")
	}
	if hasFlag(flags, FlagForgery) {
		recs = append(recs,
			"IMMEDIATE HALT - potential document forgery",
			"Report to authorities if fraud suspected",
			"Conduct forensic document verification")
	}

	if level == record.RiskMedium || level == record.RiskHigh {
		recs = append(recs,
			"Verify seller's identity and ownership chain",
			"Conduct site inspection",
			"Obtain updated Encumbrance Certificate")
	}

	return recs
}

// summary gives the one-line verdict for the level.
func summary(level record.RiskLevel) string {
	switch level {
	case record.RiskLow:
		return "Document appears suitable for transaction with standard verification"
	case record.RiskMedium:
		return "Document requires additional legal review before proceeding"
	default:
		return "Document has significant concerns requiring detailed investigation"
	}
}
