package itx

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// Relay error messages form a closed contract with the network; the mapping
// below must track them byte for byte.
const (
	msgInsufficientFunds = "Insufficient funds."
	msgAlreadySent       = "Transaction already sent"
)

var (
	// ErrInsufficientFunds means the relayer deposit cannot cover the call.
	// Never retried; the operator has to top the relayer up.
	ErrInsufficientFunds = errors.New("itx: insufficient relayer funds")

	// ErrAlreadySent means the relay network already holds an identical
	// submission. Informational rather than fatal: the caller should resolve
	// the prior submission's status instead of resubmitting.
	ErrAlreadySent = errors.New("itx: transaction already sent")

	// ErrNotChecksumAddress rejects a balance query before any network I/O.
	ErrNotChecksumAddress = errors.New("itx: not a valid checksummed address")
)

// RelayError carries a relay protocol error the closed mapping does not
// recognize. The upstream message is surfaced verbatim.
type RelayError struct {
	Code    int
	Message string
}

func (e *RelayError) Error() string { return e.Message }

// TransportError wraps a network or decoding failure underneath the JSON-RPC
// layer. Unlike protocol errors it is safe for the caller to retry, after
// reconciling submission state via TransactionStatus.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("itx: %s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// mapRPCError translates a failed call into the typed vocabulary: JSON-RPC
// protocol errors by message, everything else into a TransportError.
func mapRPCError(op string, err error) error {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return &TransportError{Op: op, Err: err}
	}
	switch rpcErr.Error() {
	case msgInsufficientFunds:
		return ErrInsufficientFunds
	case msgAlreadySent:
		return ErrAlreadySent
	default:
		return &RelayError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
}
