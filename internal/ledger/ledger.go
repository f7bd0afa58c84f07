// Package ledger stores verification fingerprints in an ordered append-only
// ledger. Two interchangeable backends implement the same contract: Remote
// submits to an external Ethereum-compatible verification contract over
// JSON-RPC, Simulated keeps entries in process with deterministic counters.
// Backend selection is explicit caller configuration; nothing in this package
// probes availability or falls back silently.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proptrust/internal/fingerprint"
)

// Error taxonomy. NotFound is a normal first-check outcome, not a failure.
var (
	ErrNotFound      = errors.New("ledger: entry not found")
	ErrAlreadyStored = errors.New("ledger: entry already stored")
	ErrUnavailable   = errors.New("ledger: backend unavailable")
	ErrInvalidInput  = errors.New("ledger: invalid input")
)

// Entry is one recorded verification. Entries are created once via Store and
// immutable thereafter; the backend owns them exclusively.
type Entry struct {
	PropertyID  string                  `json:"property_id"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	RiskScore   int                     `json:"risk_score"`

	// SubmissionID is the backend-specific transaction identifier.
	SubmissionID string `json:"submission_id"`

	// SequenceNumber increases strictly per backend instance. For the
	// remote backend it is the block number at which the submission was
	// durably ordered; reads through Get report it only when the backend
	// exposes it.
	SequenceNumber uint64 `json:"sequence_number"`

	Timestamp time.Time `json:"timestamp"`
	Submitter string    `json:"submitter,omitempty"`
}

// StoreRequest carries one verification to be recorded.
type StoreRequest struct {
	PropertyID  string
	Fingerprint fingerprint.Fingerprint
	RiskScore   int
	Submitter   string

	// AllowOverwrite permits superseding an existing entry for the same
	// property. Without it a second store is rejected with
	// ErrAlreadyStored, keeping re-verification auditable.
	AllowOverwrite bool
}

// Client is the backend-agnostic ledger contract. Store blocks until the
// submission is durably ordered; callers needing cancellation wrap the
// context. Backend timeouts surface as ErrUnavailable, never as a hang.
type Client interface {
	Store(ctx context.Context, req StoreRequest) (*Entry, error)
	Get(ctx context.Context, propertyID string) (*Entry, error)
	Exists(ctx context.Context, propertyID string) (bool, error)
}

// validateRequest rejects malformed store requests locally, before any
// backend traffic. Digest length is enforced by the fingerprint type itself.
func validateRequest(req StoreRequest) error {
	if req.PropertyID == "" {
		return fmt.Errorf("%w: property id is empty", ErrInvalidInput)
	}
	if req.RiskScore < 0 || req.RiskScore > 100 {
		return fmt.Errorf("%w: risk score %d outside [0,100]", ErrInvalidInput, req.RiskScore)
	}
	return nil
}
