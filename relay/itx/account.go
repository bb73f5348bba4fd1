package itx

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account wraps the relayer's secp256k1 key. The key never leaves the struct
// and is deliberately kept out of the String/log surface.
type Account struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewAccount derives an account from a hex-encoded private key.
func NewAccount(hexKey string) (*Account, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("itx: invalid relayer key: %w", err)
	}
	return &Account{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// NewAccountFromKey wraps an already-parsed private key.
func NewAccountFromKey(key *ecdsa.PrivateKey) *Account {
	return &Account{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the relayer address derived from the key.
func (a *Account) Address() common.Address { return a.address }

// String identifies the account by address only.
func (a *Account) String() string { return a.address.Hex() }

// SignRelayTx produces the 65-byte recoverable signature the relay network
// expects: the envelope hash is signed as an Ethereum personal message (the
// hash bytes are prefixed and hashed again), and the recovery byte is
// normalized to 27/28. A fresh signature is produced per envelope.
func (a *Account) SignRelayTx(tx *RelayTx) ([]byte, error) {
	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("itx: hash relay tx: %w", err)
	}
	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), a.key)
	if err != nil {
		return nil, fmt.Errorf("itx: sign relay tx: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
