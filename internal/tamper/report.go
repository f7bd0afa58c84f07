package tamper

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ReportFormat specifies the output format for tamper reports.
type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatText ReportFormat = "text"
)

// WriteReport renders a report to w in the requested format.
func WriteReport(rep *Report, format ReportFormat, w io.Writer) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rep)
	case FormatText:
		return writeText(rep, w)
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}

func writeText(rep *Report, w io.Writer) error {
	line := "======================================================================"

	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "TAMPER DETECTION REPORT")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Property ID: %s\n", rep.PropertyID)
	fmt.Fprintf(w, "Check Time:  %s\n", rep.CheckedAt.Format(time.RFC3339))
	fmt.Fprintln(w)

	switch rep.Classification {
	case StatusVerified:
		fmt.Fprintln(w, "STATUS: VERIFIED - document is authentic")
	case StatusVerifiedWithDrift:
		fmt.Fprintln(w, "STATUS: VERIFIED WITH DRIFT - fingerprint intact, score changed")
	case StatusTampered:
		fmt.Fprintln(w, "STATUS: TAMPERED - document has been modified")
	case StatusNotFound:
		fmt.Fprintln(w, "STATUS: NOT FOUND - first verification")
	default:
		fmt.Fprintf(w, "STATUS: %s\n", rep.Classification)
	}
	fmt.Fprintln(w)

	if rep.LedgerFingerprint != "" {
		fmt.Fprintln(w, "FINGERPRINT COMPARISON:")
		fmt.Fprintf(w, "  Current: %s\n", truncate(rep.CurrentFingerprint))
		fmt.Fprintf(w, "  Ledger:  %s\n", truncate(rep.LedgerFingerprint))
		fmt.Fprintf(w, "  Matched: %v\n", rep.FingerprintMatch)
		fmt.Fprintln(w)

		fmt.Fprintln(w, "RISK SCORE COMPARISON:")
		fmt.Fprintf(w, "  Current: %d\n", rep.CurrentScore)
		fmt.Fprintf(w, "  Ledger:  %d\n", rep.LedgerScore)
		fmt.Fprintf(w, "  Delta:   %d\n", rep.ScoreDelta)
		fmt.Fprintln(w)
	}

	if rep.Comparison != nil {
		fmt.Fprintln(w, "KEY FIELDS:")
		fmt.Fprintf(w, "  Owner:         %s\n", rep.Comparison.OwnerName)
		fmt.Fprintf(w, "  Survey Number: %s\n", rep.Comparison.SurveyNumber)
		fmt.Fprintf(w, "  Loan:          %v\n", rep.Comparison.LoanDetected)
		fmt.Fprintf(w, "  Legal Case:    %v\n", rep.Comparison.LegalCaseDetected)
		fmt.Fprintf(w, "  Recorded At:   %s\n", rep.Comparison.LedgerTimestamp.Format(time.RFC3339))
		if rep.Comparison.LedgerSubmitter != "" {
			fmt.Fprintf(w, "  Submitter:     %s\n", rep.Comparison.LedgerSubmitter)
		}
		fmt.Fprintln(w)
	}

	if len(rep.Warnings) > 0 {
		fmt.Fprintln(w, "WARNINGS:")
		for _, warning := range rep.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, line)
	return nil
}

func truncate(hash string) string {
	if len(hash) <= 32 {
		return hash
	}
	return hash[:32] + "..."
}
