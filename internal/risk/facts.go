package risk

// Entities is the extracted-fact structure supplied by the upstream OCR/NER
// collaborators. It is consumed read-only; this package never re-derives it.
type Entities struct {
	LoanPresent    bool     `json:"loan_present"`
	Banks          []string `json:"banks"`
	LoanIndicators []string `json:"loan_indicators"`
	LoanAmounts    []string `json:"loan_amounts"`
	CaseNumbers    []string `json:"case_numbers"`
	SurveyNumbers  []string `json:"survey_numbers"`
	Dates          []string `json:"dates"`
	Persons        []string `json:"persons"`
}

// Classification is the document classifier's output contract.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classification labels produced by the upstream document classifier.
const (
	LabelLoanDetected    = "Loan Detected"
	LabelClearTitle      = "Clear Title"
	LabelCourtCase       = "Court Case Mentioned"
	LabelForgery         = "Forgery Suspected"
	LabelPendingMutation = "Pending Mutation"
	LabelMultipleIssues  = "Multiple Issues"
	LabelUnknown         = "Unknown"
	LabelIncomplete      = "Incomplete Document"
)

// Flags appended to an assessment as conditions are detected.
const (
	FlagLoanPresent          = "LOAN_PRESENT"
	FlagMultipleLoans        = "MULTIPLE_LOANS"
	FlagLegalCase            = "LEGAL_CASE"
	FlagForgery              = "FORGERY"
	FlagMutationPending      = "MUTATION_PENDING"
	FlagMultipleIssues       = "MULTIPLE_ISSUES"
	FlagNoSurveyNumber       = "NO_SURVEY_NO"
	FlagNoDates              = "NO_DATES"
	FlagIncomplete           = "INCOMPLETE"
	FlagConsistencyCorrected = "CONSISTENCY_CORRECTED"
)
