// relaytx submits a single call through the meta-transaction relay network
// and prints the relay submission id plus, once broadcast, the chain
// transaction hash.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/vaporyorg/safe-relay-service/relay"
	"github.com/vaporyorg/safe-relay-service/relay/itx"
)

var (
	relayURLFlag = &cli.StringFlag{
		Name:     "relay-url",
		Usage:    "relay network JSON-RPC endpoint",
		EnvVars:  []string{"RELAY_URL"},
		Required: true,
	}
	nodeURLFlag = &cli.StringFlag{
		Name:     "node-url",
		Usage:    "chain node JSON-RPC endpoint for gas estimation",
		EnvVars:  []string{"NODE_URL"},
		Required: true,
	}
	senderKeyFlag = &cli.StringFlag{
		Name:     "sender-key",
		Usage:    "hex private key of the relayer account",
		EnvVars:  []string{"RELAY_SENDER_PRIVATE_KEY"},
		Required: true,
	}
	refunderFlag = &cli.StringFlag{
		Name:  "refunder",
		Usage: "refunder proxy address; when set, calls are wrapped through it (indirect mode)",
	}
	refunderNetworksFlag = &cli.Uint64SliceFlag{
		Name:  "refunder-network",
		Usage: "chain id the refunder is deployed on (repeatable)",
	}
	toFlag = &cli.StringFlag{
		Name:     "to",
		Usage:    "call target address",
		Required: true,
	}
	dataFlag = &cli.StringFlag{
		Name:     "data",
		Usage:    "hex call data (0x-prefixed)",
		Required: true,
	}
	priorFlag = &cli.StringFlag{
		Name:  "prior",
		Usage: "known prior relay submission id, used when the relay reports the tx as already sent",
	}
)

func main() {
	log.SetDefault(log.NewLogger(log.NewTerminalHandler(os.Stderr, true)))

	app := &cli.App{
		Name:  "relaytx",
		Usage: "send calls through the meta-transaction relay network",
		Flags: []cli.Flag{relayURLFlag, nodeURLFlag, senderKeyFlag, refunderFlag, refunderNetworksFlag},
		Commands: []*cli.Command{
			{
				Name:   "send",
				Usage:  "relay a single call",
				Flags:  []cli.Flag{toFlag, dataFlag, priorFlag},
				Action: runSend,
			},
			{
				Name:   "balance",
				Usage:  "print the relayer's deposit with the relay network",
				Action: runBalance,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newService(ctx *cli.Context) (*relay.Service, func(), error) {
	sender, err := itx.NewAccount(ctx.String(senderKeyFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	relayClient, err := itx.Dial(ctx.String(relayURLFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	node, err := ethclient.Dial(ctx.String(nodeURLFlag.Name))
	if err != nil {
		relayClient.Close()
		return nil, nil, fmt.Errorf("dial node: %w", err)
	}
	closer := func() {
		relayClient.Close()
		node.Close()
	}

	cfg := relay.Config{}
	var svc *relay.Service
	if refunder := ctx.String(refunderFlag.Name); refunder != "" {
		cfg.Refunder = common.HexToAddress(refunder)
		cfg.RefunderNetworks = ctx.Uint64Slice(refunderNetworksFlag.Name)
		svc, err = relay.NewIndirectService(relayClient, node, sender, cfg)
	} else {
		svc, err = relay.NewDirectService(relayClient, node, sender, cfg)
	}
	if err != nil {
		closer()
		return nil, nil, err
	}
	return svc, closer, nil
}

func runSend(ctx *cli.Context) error {
	svc, closer, err := newService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	to := ctx.String(toFlag.Name)
	if !common.IsHexAddress(to) {
		return fmt.Errorf("invalid target address %q", to)
	}
	data, err := hexutil.Decode(ctx.String(dataFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid call data: %w", err)
	}

	sent, err := svc.SendTransactionWithPrior(ctx.Context, common.HexToAddress(to), data, ctx.String(priorFlag.Name))
	if err != nil {
		return err
	}
	fmt.Printf("relay tx hash: %s\n", sent.RelayTxHash)
	if sent.EthTxHash != nil {
		fmt.Printf("eth tx hash:   %s\n", sent.EthTxHash.Hex())
	} else {
		fmt.Println("eth tx hash:   not yet broadcast")
	}
	return nil
}

func runBalance(ctx *cli.Context) error {
	svc, closer, err := newService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	balance, err := svc.RelayerBalance(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("relayer %s balance: %s ETH\n", svc.Sender().Hex(), balance.String())
	return nil
}
