package relay

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultGasMargin is the factor applied to a node gas estimate before the
// envelope is built. The estimate is taken against current state while
// execution happens later; the margin absorbs the drift. Tunable, not
// derived.
const DefaultGasMargin = 2

// DefaultExecuteMethodID is the selector of execute(address,bytes), the only
// method direct mode ever pays for.
var DefaultExecuteMethodID = hexutil.MustDecode("0x1cff79cd")

// DefaultAllowedAddresses is the direct-mode allow-list shipped with the
// service, keyed by chain id.
var DefaultAllowedAddresses = map[uint64][]common.Address{
	4: {common.HexToAddress("0x2d8cE02dd1644A9238e08430CaeA15a609503140")}, // rinkeby
}

// Config carries the gateway's static policy. Zero values fall back to the
// defaults above, so an empty Config yields the stock direct-mode deployment.
type Config struct {
	// GasMargin multiplies the node gas estimate; 0 means DefaultGasMargin.
	GasMargin uint64

	// ExecuteMethodID is the direct-mode selector; nil means
	// DefaultExecuteMethodID.
	ExecuteMethodID []byte

	// AllowedAddresses is the direct-mode per-network allow-list; nil means
	// DefaultAllowedAddresses.
	AllowedAddresses map[uint64][]common.Address

	// Refunder is the proxy contract indirect mode wraps every call through.
	// Required for NewIndirectService, ignored by NewDirectService.
	Refunder common.Address

	// RefunderNetworks lists the chain ids the refunder is deployed on.
	// Indirect mode denies any network not listed here.
	RefunderNetworks []uint64
}

func (c Config) withDefaults() Config {
	if c.GasMargin == 0 {
		c.GasMargin = DefaultGasMargin
	}
	if c.ExecuteMethodID == nil {
		c.ExecuteMethodID = DefaultExecuteMethodID
	}
	if c.AllowedAddresses == nil {
		c.AllowedAddresses = DefaultAllowedAddresses
	}
	return c
}
