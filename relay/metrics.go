package relay

import "github.com/ethereum/go-ethereum/metrics"

var (
	txSentMeter           = metrics.NewRegisteredCounter("relay/tx/sent", nil)
	policyRejectedMeter   = metrics.NewRegisteredCounter("relay/policy/rejected", nil)
	estimationFailedMeter = metrics.NewRegisteredCounter("relay/estimate/failed", nil)
	statusUnresolvedMeter = metrics.NewRegisteredCounter("relay/status/unresolved", nil)
)
