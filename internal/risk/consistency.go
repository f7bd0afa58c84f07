package risk

import (
	"fmt"

	"proptrust/internal/logging"
	"proptrust/internal/record"
)

// Consistency thresholds.
const (
	// nonTrivialScore is the score at or above which an uninformative
	// classification label is considered inconsistent with the evidence.
	nonTrivialScore = 40

	// loanScoreFloor is the minimum score once the classifier has
	// explicitly asserted a loan.
	loanScoreFloor = 40
)

// Reconcile validates the numeric score against the categorical
// classification label and resolves mismatches. Rules apply in order, each
// independently triggerable, and every resolution appends an explanatory
// factor and the CONSISTENCY_CORRECTED flag; nothing is mutated silently.
//
// The numeric signal is primary except where the label reflects an explicit
// upstream finding (Loan Detected), in which case the score is floored.
func Reconcile(score int, factors, flags []string, label string, loanPresent bool, caseNumbers []string) (int, []string, []string) {
	inconsistent := false
	reason := ""

	// Rule 1: a non-trivial score with an uninformative label is flagged,
	// never lowered.
	if score >= nonTrivialScore && (label == LabelUnknown || label == LabelIncomplete) {
		inconsistent = true
		reason = fmt.Sprintf("risk score %d inconsistent with %q classification", score, label)
		switch {
		case loanPresent:
			factors = append(factors, "Consistency correction: classification does not reflect detected loan risk")
		case len(caseNumbers) > 0:
			factors = append(factors, "Consistency correction: classification does not reflect detected legal case risk")
		default:
			factors = append(factors, "Consistency correction: risk factors present but classification was uninformative")
		}
	}

	// Rule 2: an explicit Loan Detected label floors the score. The
	// categorical signal is primary here because it reflects a direct
	// upstream finding.
	if label == LabelLoanDetected && score < WeightLoanPresent {
		inconsistent = true
		score = loanScoreFloor
		factors = append(factors, fmt.Sprintf("Consistency correction: risk score raised to %d to match Loan Detected classification", loanScoreFloor))
		reason = fmt.Sprintf("loan detected but risk score too low, adjusted to %d/100", loanScoreFloor)
	}

	// Rule 3: Clear Title with elevated score is flagged; the numeric
	// evidence takes precedence and is not lowered.
	if label == LabelClearTitle && score > record.LowRiskCeiling {
		inconsistent = true
		factors = append(factors, "Consistency validation: elevated risk despite Clear Title classification, numeric evidence takes precedence")
		reason = fmt.Sprintf("Clear Title classification but risk score %d/100 indicates actual risks", score)
	}

	if inconsistent {
		flags = append(flags, FlagConsistencyCorrected)
		logging.Warn("consistency correction applied", "reason", reason, "score", score, "label", label)
	}

	return score, factors, flags
}
