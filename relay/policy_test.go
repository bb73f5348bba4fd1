package relay

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/vaporyorg/safe-relay-service/relay/itx"
)

var (
	allowedTarget = common.HexToAddress("0x2d8cE02dd1644A9238e08430CaeA15a609503140")
	executeData   = common.Hex2Bytes("1cff79cd000000000000000000000000000000000000000000000000000000000000002a")
)

func newTestGate(t *testing.T) *PolicyGate {
	t.Helper()
	gate, err := NewPolicyGate(map[uint64][]common.Address{
		4: {allowedTarget},
	}, DefaultExecuteMethodID)
	require.NoError(t, err)
	return gate
}

func TestPolicyGateApproves(t *testing.T) {
	gate := newTestGate(t)
	tx := itx.NewRelayTx(allowedTarget, executeData, 200000, 4)

	approval, err := gate.Approve(4, tx)
	require.NoError(t, err)
	require.NotNil(t, approval)
	require.True(t, gate.Check(4, tx))
}

func TestPolicyGateRejectsUnlistedTarget(t *testing.T) {
	gate := newTestGate(t)
	tx := itx.NewRelayTx(common.HexToAddress("0xdead"), executeData, 200000, 4)

	approval, err := gate.Approve(4, tx)
	require.Nil(t, approval)
	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	require.Equal(t, tx.To(), policyErr.To)
	require.False(t, gate.Check(4, tx))
}

func TestPolicyGateRejectsWrongSelector(t *testing.T) {
	gate := newTestGate(t)
	for name, data := range map[string][]byte{
		"different selector": common.Hex2Bytes("a9059cbb000000000000000000000000000000000000000000000000000000000000002a"),
		"short data":         {0x1c, 0xff},
		"empty data":         nil,
	} {
		tx := itx.NewRelayTx(allowedTarget, data, 200000, 4)
		_, err := gate.Approve(4, tx)
		var policyErr *PolicyError
		require.ErrorAs(t, err, &policyErr, name)
	}
}

func TestPolicyGateDeniesUnknownNetwork(t *testing.T) {
	gate := newTestGate(t)
	tx := itx.NewRelayTx(allowedTarget, executeData, 200000, 4)

	// Same target and data, but a chain the gate has no allow-list for.
	require.False(t, gate.Check(1, tx))
	_, err := gate.Approve(1, tx)
	require.Error(t, err)
}

func TestNewPolicyGateRejectsBadSelector(t *testing.T) {
	_, err := NewPolicyGate(nil, []byte{0x1c, 0xff, 0x79})
	require.Error(t, err)
}
