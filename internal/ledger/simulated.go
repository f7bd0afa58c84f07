package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"proptrust/internal/fingerprint"
)

// Simulated-network identity, kept stable so receipts look the same across
// runs of the demo network.
const (
	simulatedChainID = 5777
	simulatedNetwork = "PropTrust Demo Network"

	// firstSequence is the block number preceding the first store.
	firstSequence = 1_000_000
)

const simulatedSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    property_id     TEXT NOT NULL,
    fingerprint     BLOB NOT NULL,
    risk_score      INTEGER NOT NULL,
    submission_id   TEXT NOT NULL,
    sequence_number INTEGER NOT NULL UNIQUE,
    timestamp_ns    INTEGER NOT NULL,
    submitter       TEXT,
    superseded      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ledger_property ON ledger_entries(property_id, sequence_number);
`

// Simulated is the in-process ledger backend. A single mutex serializes the
// sequence counter so concurrent stores receive strictly increasing,
// collision-free sequence numbers; two concurrent stores for the same
// property resolve deterministically (first writer wins). Optionally backed
// by SQLite so entries survive restarts.
type Simulated struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	history  map[string][]*Entry
	sequence uint64
	db       *sql.DB
}

// NewSimulated creates an in-memory simulated ledger.
func NewSimulated() *Simulated {
	return &Simulated{
		entries:  make(map[string]*Entry),
		history:  make(map[string][]*Entry),
		sequence: firstSequence,
	}
}

// OpenSimulated creates a simulated ledger persisted to a SQLite database at
// the given path, loading any previously stored entries.
func OpenSimulated(path string) (*Simulated, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	if _, err := db.Exec(simulatedSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	s := NewSimulated()
	s.db = db
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the backing database, if any.
func (s *Simulated) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Store records a verification. It is synchronous and always succeeds for a
// new property; a repeat store is rejected with ErrAlreadyStored unless the
// request allows overwrite, in which case a fresh entry supersedes the
// previous one (which remains readable through History).
func (s *Simulated) Store(_ context.Context, req StoreRequest) (*Entry, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[req.PropertyID]; exists && !req.AllowOverwrite {
		return nil, fmt.Errorf("%w: property %s", ErrAlreadyStored, req.PropertyID)
	}

	s.sequence++
	entry := &Entry{
		PropertyID:     req.PropertyID,
		Fingerprint:    req.Fingerprint,
		RiskScore:      req.RiskScore,
		SubmissionID:   submissionID(req.PropertyID, req.Fingerprint, s.sequence),
		SequenceNumber: s.sequence,
		Timestamp:      time.Now().UTC(),
		Submitter:      req.Submitter,
	}

	if s.db != nil {
		if err := s.persist(entry); err != nil {
			s.sequence--
			return nil, err
		}
	}

	s.entries[req.PropertyID] = entry
	s.history[req.PropertyID] = append(s.history[req.PropertyID], entry)

	out := *entry
	return &out, nil
}

// Get returns the live entry for a property, or ErrNotFound.
func (s *Simulated) Get(_ context.Context, propertyID string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[propertyID]
	if !ok {
		return nil, fmt.Errorf("%w: property %s", ErrNotFound, propertyID)
	}
	out := *entry
	return &out, nil
}

// Exists reports whether a property has a recorded verification.
func (s *Simulated) Exists(_ context.Context, propertyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[propertyID]
	return ok, nil
}

// History returns all entries ever stored for a property in sequence order,
// including entries superseded by an allowed overwrite.
func (s *Simulated) History(propertyID string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.history[propertyID]
	out := make([]Entry, len(stored))
	for i, e := range stored {
		out[i] = *e
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out
}

// ChainID returns the simulated network's chain identifier.
func (s *Simulated) ChainID() int { return simulatedChainID }

// Network returns the simulated network name.
func (s *Simulated) Network() string { return simulatedNetwork }

// submissionID derives a deterministic pseudo transaction hash from the
// stored content and its sequence number.
func submissionID(propertyID string, fp fingerprint.Fingerprint, sequence uint64) string {
	h := sha256.New()
	h.Write([]byte(propertyID))
	h.Write(fp.Bytes())
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	h.Write(seq[:])
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// persist writes an entry to the backing database, marking any previous live
// entry for the property as superseded.
func (s *Simulated) persist(entry *Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE ledger_entries SET superseded = 1 WHERE property_id = ? AND superseded = 0`,
		entry.PropertyID,
	); err != nil {
		return fmt.Errorf("supersede previous entry: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO ledger_entries (property_id, fingerprint, risk_score, submission_id, sequence_number, timestamp_ns, submitter)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.PropertyID, entry.Fingerprint.Bytes(), entry.RiskScore,
		entry.SubmissionID, entry.SequenceNumber, entry.Timestamp.UnixNano(), entry.Submitter,
	); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// load restores entries and the sequence counter from the backing database.
func (s *Simulated) load() error {
	rows, err := s.db.Query(`
		SELECT property_id, fingerprint, risk_score, submission_id, sequence_number, timestamp_ns, submitter, superseded
		FROM ledger_entries
		ORDER BY sequence_number ASC`)
	if err != nil {
		return fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e           Entry
			digest      []byte
			timestampNs int64
			submitter   sql.NullString
			superseded  int
		)
		if err := rows.Scan(&e.PropertyID, &digest, &e.RiskScore, &e.SubmissionID,
			&e.SequenceNumber, &timestampNs, &submitter, &superseded); err != nil {
			return fmt.Errorf("scan ledger entry: %w", err)
		}

		fp, err := fingerprint.FromBytes(digest)
		if err != nil {
			return fmt.Errorf("stored entry for %s: %w", e.PropertyID, err)
		}
		e.Fingerprint = fp
		e.Timestamp = time.Unix(0, timestampNs).UTC()
		e.Submitter = submitter.String

		entry := e
		s.history[e.PropertyID] = append(s.history[e.PropertyID], &entry)
		if superseded == 0 {
			s.entries[e.PropertyID] = &entry
		}
		if e.SequenceNumber > s.sequence {
			s.sequence = e.SequenceNumber
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate ledger entries: %w", err)
	}
	return nil
}
