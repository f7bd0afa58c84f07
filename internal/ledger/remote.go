package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/sha3"

	"proptrust/internal/fingerprint"
)

// Contract method signatures of the property-verification contract. The
// selectors are the first four bytes of the keccak-256 of each signature.
const (
	sigStoreVerification = "storeVerification(string,bytes32,uint256)"
	sigGetVerification   = "getVerification(string)"
	sigIsVerified        = "isVerified(string)"
	sigHistory           = "getVerificationHistory(string)"
)

// Remote defaults.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultReceiptTimeout = 2 * time.Minute
	defaultPollInterval   = 2 * time.Second
	defaultGasLimit       = 200_000
)

// RemoteConfig configures the remote ledger backend.
type RemoteConfig struct {
	// Endpoints are JSON-RPC URLs of Ethereum-compatible nodes, tried in
	// order on connectivity failure.
	Endpoints []string

	// ContractAddress is the deployed verification contract.
	ContractAddress string

	// FromAccount is the unlocked account submitting transactions.
	FromAccount string

	// RequestTimeout bounds a single RPC round trip.
	RequestTimeout time.Duration

	// ReceiptTimeout bounds how long Store waits for the submission to be
	// durably ordered before reporting the backend unavailable.
	ReceiptTimeout time.Duration

	// PollInterval is the receipt polling cadence.
	PollInterval time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Remote reaches an external ordered append-only ledger over JSON-RPC. All
// operations are blocking calls; Store returns only once the submission's
// sequence number is final. Connectivity failure surfaces as ErrUnavailable,
// never a silent fallback.
type Remote struct {
	endpoints      []string
	contract       string
	from           string
	client         *http.Client
	receiptTimeout time.Duration
	pollInterval   time.Duration
	requestID      atomic.Int64
}

// NewRemote creates a remote ledger client.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoints configured", ErrInvalidInput)
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("%w: no contract address configured", ErrInvalidInput)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.RequestTimeout
		if timeout == 0 {
			timeout = DefaultRequestTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	receiptTimeout := cfg.ReceiptTimeout
	if receiptTimeout == 0 {
		receiptTimeout = DefaultReceiptTimeout
	}
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = defaultPollInterval
	}

	return &Remote{
		endpoints:      cfg.Endpoints,
		contract:       cfg.ContractAddress,
		from:           cfg.FromAccount,
		client:         client,
		receiptTimeout: receiptTimeout,
		pollInterval:   pollInterval,
	}, nil
}

// Store submits the verification to the contract and blocks until the
// transaction is mined, so the returned sequence number is final.
func (r *Remote) Store(ctx context.Context, req StoreRequest) (*Entry, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if !req.AllowOverwrite {
		exists, err := r.Exists(ctx, req.PropertyID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: property %s", ErrAlreadyStored, req.PropertyID)
		}
	}

	data := encodeStoreVerification(req.PropertyID, req.Fingerprint, uint64(req.RiskScore))
	txParams := map[string]string{
		"from": r.from,
		"to":   r.contract,
		"gas":  fmt.Sprintf("0x%x", defaultGasLimit),
		"data": "0x" + hex.EncodeToString(data),
	}

	result, err := r.call(ctx, "eth_sendTransaction", txParams)
	if err != nil {
		return nil, err
	}
	var txHash string
	if err := json.Unmarshal(result, &txHash); err != nil {
		return nil, fmt.Errorf("decode transaction hash: %w", err)
	}

	blockNumber, err := r.awaitReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}

	return &Entry{
		PropertyID:     req.PropertyID,
		Fingerprint:    req.Fingerprint,
		RiskScore:      req.RiskScore,
		SubmissionID:   txHash,
		SequenceNumber: blockNumber,
		Timestamp:      time.Now().UTC(),
		Submitter:      r.from,
	}, nil
}

// Get retrieves the recorded verification for a property.
func (r *Remote) Get(ctx context.Context, propertyID string) (*Entry, error) {
	data := encodeStringCall(sigGetVerification, propertyID)
	raw, err := r.ethCall(ctx, data)
	if err != nil {
		return nil, err
	}
	return decodeVerification(propertyID, raw)
}

// Exists reports whether the contract holds a verification for the property.
func (r *Remote) Exists(ctx context.Context, propertyID string) (bool, error) {
	data := encodeStringCall(sigIsVerified, propertyID)
	raw, err := r.ethCall(ctx, data)
	if err != nil {
		return false, err
	}
	w, err := word(raw, 0)
	if err != nil {
		return false, err
	}
	return w[31] != 0, nil
}

// History returns every fingerprint ever recorded for the property, oldest
// first.
func (r *Remote) History(ctx context.Context, propertyID string) ([]fingerprint.Fingerprint, error) {
	data := encodeStringCall(sigHistory, propertyID)
	raw, err := r.ethCall(ctx, data)
	if err != nil {
		return nil, err
	}
	return decodeHashArray(raw)
}

// awaitReceipt polls for the transaction receipt until the submission is
// ordered, the context is cancelled, or the receipt timeout elapses.
func (r *Remote) awaitReceipt(ctx context.Context, txHash string) (uint64, error) {
	deadline := time.NewTimer(r.receiptTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(r.pollInterval)
	defer tick.Stop()

	for {
		result, err := r.call(ctx, "eth_getTransactionReceipt", txHash)
		if err != nil {
			return 0, err
		}

		var receipt struct {
			Status      string `json:"status"`
			BlockNumber string `json:"blockNumber"`
		}
		if !bytes.Equal(result, []byte("null")) {
			if err := json.Unmarshal(result, &receipt); err != nil {
				return 0, fmt.Errorf("decode receipt: %w", err)
			}
			if receipt.Status == "0x0" {
				return 0, fmt.Errorf("ledger: transaction %s reverted", txHash)
			}
			return parseHexUint(receipt.BlockNumber)
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-deadline.C:
			return 0, fmt.Errorf("%w: receipt for %s not available within %s", ErrUnavailable, txHash, r.receiptTimeout)
		case <-tick.C:
		}
	}
}

// ethCall performs a read-only contract call and returns the decoded result
// bytes.
func (r *Remote) ethCall(ctx context.Context, data []byte) ([]byte, error) {
	params := map[string]string{
		"to":   r.contract,
		"data": "0x" + hex.EncodeToString(data),
	}
	result, err := r.call(ctx, "eth_call", params, "latest")
	if err != nil {
		return nil, err
	}

	var hexResult string
	if err := json.Unmarshal(result, &hexResult); err != nil {
		return nil, fmt.Errorf("decode call result: %w", err)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(hexResult, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode call result hex: %w", err)
	}
	return raw, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC request, trying each endpoint in order on
// connectivity failure.
func (r *Remote) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      int(r.requestID.Add(1)),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rpc request: %w", err)
	}

	var lastErr error
	for _, endpoint := range r.endpoints {
		result, err := r.post(ctx, endpoint, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		// Only connectivity failures justify trying the next endpoint.
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *Remote) post(ctx context.Context, endpoint string, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: endpoint returned %s", ErrUnavailable, resp.Status)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("ledger: rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

// ABI helpers. Only the fixed method set above is supported, so the encoding
// is written out directly rather than through a generic ABI package.

// selector returns the 4-byte keccak-256 selector of a method signature.
func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

const wordSize = 32

// encodeStringCall encodes a call taking a single string argument.
func encodeStringCall(signature, s string) []byte {
	data := selector(signature)
	data = append(data, encodeUint(wordSize)...) // offset to the string
	data = append(data, encodeString(s)...)
	return data
}

// encodeStoreVerification encodes storeVerification(string,bytes32,uint256).
func encodeStoreVerification(propertyID string, fp fingerprint.Fingerprint, score uint64) []byte {
	data := selector(sigStoreVerification)
	data = append(data, encodeUint(3*wordSize)...) // offset to the string tail
	data = append(data, fp.Bytes()...)
	data = append(data, encodeUint(score)...)
	data = append(data, encodeString(propertyID)...)
	return data
}

// encodeUint encodes an unsigned integer as a left-padded 32-byte word.
func encodeUint(v uint64) []byte {
	w := make([]byte, wordSize)
	for i := 0; i < 8; i++ {
		w[wordSize-1-i] = byte(v >> (8 * i))
	}
	return w
}

// encodeString encodes a dynamic string: length word then right-padded data.
func encodeString(s string) []byte {
	data := encodeUint(uint64(len(s)))
	padded := (len(s) + wordSize - 1) / wordSize * wordSize
	content := make([]byte, padded)
	copy(content, s)
	return append(data, content...)
}

// word returns the i-th 32-byte word of ABI-encoded data.
func word(data []byte, i int) ([]byte, error) {
	start := i * wordSize
	if start+wordSize > len(data) {
		return nil, fmt.Errorf("ledger: malformed contract response: want word %d of %d bytes", i, len(data))
	}
	return data[start : start+wordSize], nil
}

// wordUint decodes the i-th word as an unsigned integer.
func wordUint(data []byte, i int) (uint64, error) {
	w, err := word(data, i)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range w[wordSize-8:] {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// decodeVerification decodes the getVerification return tuple:
// (string propertyID, bytes32 hash, uint256 score, uint256 timestamp,
// address verifier, bool exists).
func decodeVerification(propertyID string, data []byte) (*Entry, error) {
	existsWord, err := word(data, 5)
	if err != nil {
		return nil, err
	}
	if existsWord[31] == 0 {
		return nil, fmt.Errorf("%w: property %s", ErrNotFound, propertyID)
	}

	hashWord, err := word(data, 1)
	if err != nil {
		return nil, err
	}
	fp, err := fingerprint.FromBytes(hashWord)
	if err != nil {
		return nil, fmt.Errorf("stored hash for %s: %w", propertyID, err)
	}

	score, err := wordUint(data, 2)
	if err != nil {
		return nil, err
	}
	timestamp, err := wordUint(data, 3)
	if err != nil {
		return nil, err
	}
	verifierWord, err := word(data, 4)
	if err != nil {
		return nil, err
	}

	return &Entry{
		PropertyID:  propertyID,
		Fingerprint: fp,
		RiskScore:   int(score),
		Timestamp:   time.Unix(int64(timestamp), 0).UTC(),
		Submitter:   "0x" + hex.EncodeToString(verifierWord[12:]),
	}, nil
}

// decodeHashArray decodes a bytes32[] return value. The offset and count
// words come from the node response, so both are range-checked against the
// payload before any slicing or allocation.
func decodeHashArray(data []byte) ([]fingerprint.Fingerprint, error) {
	offset, err := wordUint(data, 0)
	if err != nil {
		return nil, err
	}
	if offset%wordSize != 0 || offset >= uint64(len(data)) {
		return nil, fmt.Errorf("ledger: malformed contract response: array offset %d out of range for %d bytes", offset, len(data))
	}
	base := int(offset / wordSize)
	count, err := wordUint(data, base)
	if err != nil {
		return nil, err
	}
	remaining := uint64(len(data)/wordSize - base - 1)
	if count > remaining {
		return nil, fmt.Errorf("ledger: malformed contract response: array length %d exceeds %d remaining words", count, remaining)
	}

	hashes := make([]fingerprint.Fingerprint, 0, count)
	for i := 0; i < int(count); i++ {
		w, err := word(data, base+1+i)
		if err != nil {
			return nil, err
		}
		fp, err := fingerprint.FromBytes(w)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, fp)
	}
	return hashes, nil
}

// parseHexUint parses a 0x-prefixed hex quantity.
func parseHexUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex quantity %q: %w", s, err)
	}
	return v, nil
}
