// Package relay implements the meta-transaction relay gateway: it turns a
// (target, calldata) pair into a signed relay envelope, enforces the policy
// that keeps the relayer key from paying for arbitrary calls, submits the
// envelope to the relay network and resolves the resulting chain transaction
// hash.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/shopspring/decimal"

	"github.com/vaporyorg/safe-relay-service/relay/itx"
)

// TxSent is what the caller gets back for a submitted call. EthTxHash is nil
// while the relay network has accepted the submission but not yet broadcast
// it; callers poll itx.Client.TransactionStatus with RelayTxHash to follow
// up.
type TxSent struct {
	RelayTxHash string
	EthTxHash   *common.Hash
}

// executeTrusted(address,bytes) on the refunder proxy. The proxy performs its
// own target validation on chain, which is why indirect mode needs no
// per-target allow-list off chain.
var (
	executeTrustedID   = crypto.Keccak256([]byte("executeTrusted(address,bytes)"))[:4]
	executeTrustedArgs = abi.Arguments{
		{Type: mustNewType("address")},
		{Type: mustNewType("bytes")},
	}
)

func mustNewType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

// callMode is the single point where the two deployment variants differ: how
// a requested (target, data) pair becomes the relay-facing call.
type callMode interface {
	// prepare maps the requested call onto the call the relay network sees.
	prepare(to common.Address, data []byte) (common.Address, []byte, error)
}

// directMode submits the requested call as-is; policy gates the call itself.
type directMode struct{}

func (directMode) prepare(to common.Address, data []byte) (common.Address, []byte, error) {
	return to, data, nil
}

// refunderMode wraps the requested call through the refunder proxy, so the
// relay-facing target is always the proxy address.
type refunderMode struct {
	refunder common.Address
}

func (m refunderMode) prepare(to common.Address, data []byte) (common.Address, []byte, error) {
	packed, err := executeTrustedArgs.Pack(to, data)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("relay: encode executeTrusted call: %w", err)
	}
	return m.refunder, append(common.CopyBytes(executeTrustedID), packed...), nil
}

// Service is the relay gateway. Construct one per process from configuration
// and share it; every collaborator it holds is safe for concurrent use and
// nothing mutates after construction except the lazily resolved network id.
type Service struct {
	relay     *itx.Client
	node      NodeClient
	sender    *itx.Account
	estimator *GasEstimator
	gate      *PolicyGate
	gasMargin uint64
	mode      callMode

	chainMu       sync.Mutex
	chainID       uint64
	chainResolved bool
}

// NewDirectService builds a gateway that relays calls straight to their
// targets, gated by the configured allow-list and method selector.
func NewDirectService(relayClient *itx.Client, node NodeClient, sender *itx.Account, cfg Config) (*Service, error) {
	cfg = cfg.withDefaults()
	gate, err := NewPolicyGate(cfg.AllowedAddresses, cfg.ExecuteMethodID)
	if err != nil {
		return nil, err
	}
	return newService(relayClient, node, sender, cfg, gate, directMode{}), nil
}

// NewIndirectService builds a gateway that wraps every call through the
// configured refunder proxy. The off-chain gate only pins the proxy address
// and the executeTrusted selector; target validation is the proxy's job.
func NewIndirectService(relayClient *itx.Client, node NodeClient, sender *itx.Account, cfg Config) (*Service, error) {
	cfg = cfg.withDefaults()
	if cfg.Refunder == (common.Address{}) {
		return nil, errors.New("relay: indirect mode requires a refunder address")
	}
	if len(cfg.RefunderNetworks) == 0 {
		return nil, errors.New("relay: indirect mode requires at least one refunder network")
	}
	allowed := make(map[uint64][]common.Address, len(cfg.RefunderNetworks))
	for _, chainID := range cfg.RefunderNetworks {
		allowed[chainID] = []common.Address{cfg.Refunder}
	}
	gate, err := NewPolicyGate(allowed, executeTrustedID)
	if err != nil {
		return nil, err
	}
	return newService(relayClient, node, sender, cfg, gate, refunderMode{refunder: cfg.Refunder}), nil
}

func newService(relayClient *itx.Client, node NodeClient, sender *itx.Account, cfg Config, gate *PolicyGate, mode callMode) *Service {
	return &Service{
		relay:     relayClient,
		node:      node,
		sender:    sender,
		estimator: NewGasEstimator(node, sender.Address()),
		gate:      gate,
		gasMargin: cfg.GasMargin,
		mode:      mode,
	}
}

// Sender returns the relayer address this gateway signs with.
func (s *Service) Sender() common.Address { return s.sender.Address() }

// RelayerBalance returns the relayer's deposit with the relay network in
// ether, for operator funding checks.
func (s *Service) RelayerBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.relay.Balance(ctx, s.sender.Address().Hex())
}

// SendTransaction relays a call to the given target. The pipeline is strictly
// ordered: estimate, build the envelope, gate, sign, submit, then a single
// status probe. A policy rejection happens before anything is signed or sent.
func (s *Service) SendTransaction(ctx context.Context, to common.Address, data []byte) (*TxSent, error) {
	return s.sendTransaction(ctx, to, data, "")
}

// SendTransactionWithPrior behaves like SendTransaction but, when the relay
// network reports the transaction as already sent, resolves the outcome
// against the given prior submission id instead of surfacing the collision.
func (s *Service) SendTransactionWithPrior(ctx context.Context, to common.Address, data []byte, priorRelayTxHash string) (*TxSent, error) {
	return s.sendTransaction(ctx, to, data, priorRelayTxHash)
}

func (s *Service) sendTransaction(ctx context.Context, to common.Address, data []byte, prior string) (*TxSent, error) {
	relayTo, relayData, err := s.mode.prepare(to, data)
	if err != nil {
		return nil, err
	}
	gas, err := s.estimator.Estimate(ctx, relayTo, relayData)
	if err != nil {
		estimationFailedMeter.Inc(1)
		return nil, err
	}
	chainID, err := s.networkID(ctx)
	if err != nil {
		return nil, err
	}

	tx := itx.NewRelayTx(relayTo, relayData, gas*s.gasMargin, chainID)
	approval, err := s.gate.Approve(chainID, tx)
	if err != nil {
		policyRejectedMeter.Inc(1)
		log.Warn("Relay call rejected by policy", "to", tx.To(), "method", hexutil.Encode(tx.MethodID()), "chain", chainID)
		return nil, err
	}

	relayTxHash, err := s.relay.SendTransaction(ctx, approval.tx, s.sender)
	if err != nil {
		if errors.Is(err, itx.ErrAlreadySent) && prior != "" {
			log.Info("Relay transaction already sent, resolving prior submission", "relayTxHash", prior)
			return s.resolve(ctx, prior), nil
		}
		return nil, err
	}
	txSentMeter.Inc(1)
	log.Info("Relay transaction submitted", "relayTxHash", relayTxHash, "to", tx.To(), "gas", tx.Gas(), "chain", chainID)
	return s.resolve(ctx, relayTxHash), nil
}

// resolve performs the single non-blocking status probe after submission.
// The submission itself already succeeded, so probe failures degrade to an
// unresolved chain hash instead of failing the call.
func (s *Service) resolve(ctx context.Context, relayTxHash string) *TxSent {
	sent := &TxSent{RelayTxHash: relayTxHash}
	status, err := s.relay.TransactionStatus(ctx, relayTxHash)
	if err != nil {
		statusUnresolvedMeter.Inc(1)
		log.Warn("Relay transaction status unavailable", "relayTxHash", relayTxHash, "err", err)
		return sent
	}
	if status == nil {
		return sent
	}
	hash := status.EthTxHash
	sent.EthTxHash = &hash
	return sent
}

// networkID resolves the chain id on first use and serves the cached value
// from then on. Only a successful lookup is cached, so a transient node
// failure does not poison the gateway.
func (s *Service) networkID(ctx context.Context) (uint64, error) {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()
	if s.chainResolved {
		return s.chainID, nil
	}
	id, err := s.node.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("relay: resolve network id: %w", err)
	}
	s.chainID = id.Uint64()
	s.chainResolved = true
	return s.chainID, nil
}
