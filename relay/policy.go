package relay

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vaporyorg/safe-relay-service/relay/itx"
)

// PolicyGate decides whether the relayer key may pay for a call. Two checks,
// both mandatory: the target must be on the allow-list configured for the
// active network, and the call data must start with the single configured
// method selector. Networks without an allow-list deny everything.
type PolicyGate struct {
	allowed  map[uint64]map[common.Address]struct{}
	methodID [4]byte
}

// Approval is the gate-pass token the submission path requires. It can only
// be produced by PolicyGate.Approve, which makes signing an unchecked
// envelope a compile-time impossibility rather than a runtime bug.
type Approval struct {
	tx *itx.RelayTx
}

// PolicyError reports a rejected call. It is fatal for the call and is never
// retried; the envelope it refers to was neither signed nor submitted.
type PolicyError struct {
	To     common.Address
	Method []byte
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("relay: policy rejected call to=%s method=%s: %s",
		e.To.Hex(), hexutil.Encode(e.Method), e.Reason)
}

// NewPolicyGate builds a gate from a per-network allow-list and a 4-byte
// method selector.
func NewPolicyGate(allowed map[uint64][]common.Address, methodID []byte) (*PolicyGate, error) {
	if len(methodID) != 4 {
		return nil, fmt.Errorf("relay: method selector must be 4 bytes, got %d", len(methodID))
	}
	gate := &PolicyGate{allowed: make(map[uint64]map[common.Address]struct{}, len(allowed))}
	copy(gate.methodID[:], methodID)
	for chainID, addresses := range allowed {
		set := make(map[common.Address]struct{}, len(addresses))
		for _, addr := range addresses {
			set[addr] = struct{}{}
		}
		gate.allowed[chainID] = set
	}
	return gate, nil
}

// Check reports whether the envelope passes both policy checks on the given
// network.
func (g *PolicyGate) Check(chainID uint64, tx *itx.RelayTx) bool {
	_, err := g.Approve(chainID, tx)
	return err == nil
}

// Approve validates the envelope and returns the token the submission path
// consumes. A nil token is returned together with a *PolicyError when either
// check fails.
func (g *PolicyGate) Approve(chainID uint64, tx *itx.RelayTx) (*Approval, error) {
	if _, ok := g.allowed[chainID][tx.To()]; !ok {
		return nil, &PolicyError{To: tx.To(), Method: tx.MethodID(), Reason: "target not allow-listed"}
	}
	method := tx.MethodID()
	if len(method) != 4 || [4]byte(method) != g.methodID {
		return nil, &PolicyError{To: tx.To(), Method: method, Reason: "method selector not permitted"}
	}
	return &Approval{tx: tx}, nil
}
