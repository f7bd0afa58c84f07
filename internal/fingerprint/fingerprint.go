// Package fingerprint derives deterministic content hashes from verification
// records. A fingerprint is the SHA-256 digest of the record's canonical form
// serialized as key-sorted JSON, so records differing only in field order or
// in excluded volatile fields hash identically.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"proptrust/internal/record"
)

// Size is the digest length in bytes; HexLength is its hex rendering.
const (
	Size      = sha256.Size
	HexLength = Size * 2
)

// Fingerprint is a fixed-length digest over a record's canonical form.
// Fingerprints are computed on demand, never mutated, and compared by value
// equality only.
type Fingerprint [Size]byte

// New computes the fingerprint of a record. With includeTimestamp true the
// volatile verified_at field participates (audit provenance mode); with false
// it is excluded, producing the stable re-verification fingerprint. Pure
// function of its arguments: no network or disk I/O.
func New(rec record.VerificationRecord, includeTimestamp bool) Fingerprint {
	fields := record.Canonicalize(rec).Fields(includeTimestamp)
	// Map marshaling sorts keys; the value types here (string, int, bool,
	// []string) all serialize deterministically.
	payload, err := json.Marshal(fields)
	if err != nil {
		// Canonical field values are plain scalars and string slices.
		panic(fmt.Sprintf("fingerprint: marshal canonical form: %v", err))
	}
	return sha256.Sum256(payload)
}

// Hex returns the lowercase hex rendering of the digest.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	return f.Hex()
}

// Bytes returns the raw 32-byte digest for binary-oriented ledgers.
func (f Fingerprint) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, f[:])
	return b
}

// MarshalText renders the fingerprint as lowercase hex.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

// UnmarshalText parses a hex fingerprint, accepting a 0x prefix.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Parse decodes a hex fingerprint string. A leading "0x" prefix is stripped
// for interoperability with hash-as-bytes32 style ledgers.
func Parse(s string) (Fingerprint, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != HexLength {
		return Fingerprint{}, fmt.Errorf("fingerprint: expected %d hex characters, got %d", HexLength, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint: decode hex: %w", err)
	}
	var f Fingerprint
	copy(f[:], raw)
	return f, nil
}

// FromBytes builds a fingerprint from a raw digest, rejecting any input that
// is not exactly 32 bytes.
func FromBytes(b []byte) (Fingerprint, error) {
	if len(b) != Size {
		return Fingerprint{}, fmt.Errorf("fingerprint: expected %d bytes, got %d", Size, len(b))
	}
	var f Fingerprint
	copy(f[:], b)
	return f, nil
}

// Verify recomputes the record's fingerprint and compares it against an
// expected hex digest.
func Verify(rec record.VerificationRecord, expected string, includeTimestamp bool) (bool, error) {
	want, err := Parse(expected)
	if err != nil {
		return false, err
	}
	return New(rec, includeTimestamp) == want, nil
}
