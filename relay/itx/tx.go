// Package itx implements the wire layer for the meta-transaction relay
// network: the canonical relay transaction envelope, the relayer account that
// signs it, and the JSON-RPC client used to fund-check, submit and track
// relayed calls.
package itx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// relayTxArgs is the ABI tuple the relay network hashes on its side to verify
// the relayer signature: (address, bytes, uint256, uint256). Order and widths
// are a wire contract and must never change.
var relayTxArgs = abi.Arguments{
	{Type: mustNewType("address")},
	{Type: mustNewType("bytes")},
	{Type: mustNewType("uint256")},
	{Type: mustNewType("uint256")},
}

func mustNewType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

// RelayTx is the canonical form of a call routed through the relay network.
// It is immutable once constructed: the data slice is copied both on the way
// in and on the way out, so a caller can never invalidate a signature by
// mutating a shared buffer after the fact.
type RelayTx struct {
	to      common.Address
	data    []byte
	gas     uint64
	chainID uint64
}

// NewRelayTx builds a relay transaction envelope for the given call.
func NewRelayTx(to common.Address, data []byte, gas uint64, chainID uint64) *RelayTx {
	return &RelayTx{
		to:      to,
		data:    common.CopyBytes(data),
		gas:     gas,
		chainID: chainID,
	}
}

// To returns the call target the relay network will see.
func (tx *RelayTx) To() common.Address { return tx.to }

// Data returns a copy of the call data.
func (tx *RelayTx) Data() []byte { return common.CopyBytes(tx.data) }

// Gas returns the gas limit carried by the envelope.
func (tx *RelayTx) Gas() uint64 { return tx.gas }

// ChainID returns the chain the envelope is bound to.
func (tx *RelayTx) ChainID() uint64 { return tx.chainID }

// MethodID returns the 4-byte function selector of the call data, or nil when
// the data is shorter than a selector.
func (tx *RelayTx) MethodID() []byte {
	if len(tx.data) < 4 {
		return nil
	}
	return common.CopyBytes(tx.data[:4])
}

// Hash computes the message hash the relay network verifies the relayer
// signature against: keccak256 of the ABI encoding of
// (to, data, gas, chainID). The function is pure and deterministic.
func (tx *RelayTx) Hash() (common.Hash, error) {
	encoded, err := relayTxArgs.Pack(
		tx.to,
		tx.data,
		new(big.Int).SetUint64(tx.gas),
		new(big.Int).SetUint64(tx.chainID),
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}
