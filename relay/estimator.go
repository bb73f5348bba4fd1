package relay

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NodeClient is the slice of a chain node client the gateway needs: gas
// estimation and network identification. *ethclient.Client satisfies it.
type NodeClient interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// EstimationError means the node could not simulate the call, most commonly
// because it reverts. A reverting call keeps reverting, so this is fatal for
// the call and never retried.
type EstimationError struct {
	To   common.Address
	Data []byte
	Err  error
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("relay: cannot estimate gas for call to=%s data=%s: %v",
		e.To.Hex(), hexutil.Encode(e.Data), e.Err)
}

func (e *EstimationError) Unwrap() error { return e.Err }

// GasEstimator asks a chain node how much gas a call needs when sent from the
// relayer address with zero value.
type GasEstimator struct {
	node NodeClient
	from common.Address
}

// NewGasEstimator builds an estimator simulating calls from the given sender.
func NewGasEstimator(node NodeClient, from common.Address) *GasEstimator {
	return &GasEstimator{node: node, from: from}
}

// Estimate returns the node's raw gas estimate for the call. Any safety
// margin is the caller's to apply.
func (e *GasEstimator) Estimate(ctx context.Context, to common.Address, data []byte) (uint64, error) {
	gas, err := e.node.EstimateGas(ctx, ethereum.CallMsg{
		From:  e.from,
		To:    &to,
		Data:  data,
		Value: big.NewInt(0),
	})
	if err != nil {
		return 0, &EstimationError{To: to, Data: common.CopyBytes(data), Err: err}
	}
	return gas, nil
}
