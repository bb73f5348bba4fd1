package itx

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// TransactionStatus describes a relayed transaction the network has already
// broadcast on chain. While the submission is queued the status query returns
// no record at all; the transition is one-way, a broadcast record never
// disappears again.
type TransactionStatus struct {
	BroadcastTime time.Time
	EthTxHash     common.Hash
	GasPrice      *big.Int
}

// rawTxStatus mirrors the upstream record. The hash field has appeared under
// two spellings across deployments, so both are decoded and reconciled.
type rawTxStatus struct {
	BroadcastTime string `json:"broadcastTime"`
	EthTxHash     string `json:"ethTxHash"`
	ChainTxHash   string `json:"chainTxHash"`
	GasPrice      string `json:"gasPrice"`
}

// relaySendParams is the first positional parameter of relay_sendTransaction.
// Data is hex without the 0x prefix and gas is a decimal string, as the relay
// network expects.
type relaySendParams struct {
	To   string `json:"to"`
	Data string `json:"data"`
	Gas  string `json:"gas"`
}

// Client talks JSON-RPC to a single relay network endpoint. It is safe for
// concurrent use.
type Client struct {
	c *rpc.Client
}

// Dial connects a relay client to the given endpoint URL.
func Dial(rawurl string) (*Client, error) {
	c, err := rpc.Dial(rawurl)
	if err != nil {
		return nil, fmt.Errorf("itx: dial %s: %w", rawurl, err)
	}
	return NewClient(c), nil
}

// NewClient wraps an existing RPC connection.
func NewClient(c *rpc.Client) *Client {
	return &Client{c: c}
}

// Close tears down the underlying RPC connection.
func (c *Client) Close() {
	c.c.Close()
}

// Balance returns the relayer's deposit with the relay network, denominated
// in ether. The address must be in checksum form; anything else fails before
// a request is made.
func (c *Client) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) || common.HexToAddress(address).Hex() != address {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotChecksumAddress, address)
	}
	var raw string
	if err := c.c.CallContext(ctx, &raw, "relay_getBalance", address); err != nil {
		return decimal.Zero, mapRPCError("get balance", err)
	}
	wei, err := uint256.FromDecimal(raw)
	if err != nil {
		return decimal.Zero, &TransportError{Op: "decode balance", Err: err}
	}
	return decimal.NewFromBigInt(wei.ToBig(), -18), nil
}

// SendTransaction signs the envelope with the relayer account and submits it.
// The returned identifier is internal to the relay network, not the eventual
// chain transaction hash; resolve that via TransactionStatus.
func (c *Client) SendTransaction(ctx context.Context, tx *RelayTx, account *Account) (string, error) {
	sig, err := account.SignRelayTx(tx)
	if err != nil {
		return "", err
	}
	params := relaySendParams{
		To:   tx.To().Hex(),
		Data: hex.EncodeToString(tx.Data()),
		Gas:  strconv.FormatUint(tx.Gas(), 10),
	}
	var id string
	if err := c.c.CallContext(ctx, &id, "relay_sendTransaction", params, hexutil.Encode(sig)); err != nil {
		return "", mapRPCError("send transaction", err)
	}
	return id, nil
}

// TransactionStatus looks up a previous submission by its relay identifier.
// It returns nil without error while the network has accepted the submission
// but not yet broadcast it.
func (c *Client) TransactionStatus(ctx context.Context, relayTxHash string) (*TransactionStatus, error) {
	var raw []rawTxStatus
	if err := c.c.CallContext(ctx, &raw, "relay_getTransactionStatus", relayTxHash); err != nil {
		return nil, mapRPCError("get transaction status", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw[0].normalize()
}

func (s *rawTxStatus) normalize() (*TransactionStatus, error) {
	status := new(TransactionStatus)
	if s.BroadcastTime != "" {
		t, err := time.Parse(time.RFC3339, s.BroadcastTime)
		if err != nil {
			return nil, &TransportError{Op: "decode broadcast time", Err: err}
		}
		status.BroadcastTime = t
	}
	hash := s.EthTxHash
	if hash == "" {
		hash = s.ChainTxHash
	}
	if hash != "" {
		status.EthTxHash = common.HexToHash(hash)
	}
	if s.GasPrice != "" {
		price, ok := new(big.Int).SetString(s.GasPrice, 10)
		if !ok {
			return nil, &TransportError{Op: "decode gas price", Err: fmt.Errorf("malformed value %q", s.GasPrice)}
		}
		status.GasPrice = price
	}
	return status, nil
}
