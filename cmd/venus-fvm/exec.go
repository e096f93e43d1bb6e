package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/network"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/filecoin-project/venus-fvm/pkg/config"
	"github.com/filecoin-project/venus-fvm/pkg/constants"
	"github.com/filecoin-project/venus-fvm/pkg/state/tree"
	"github.com/filecoin-project/venus-fvm/pkg/util/blockstoreutil"
	"github.com/filecoin-project/venus-fvm/pkg/vm/account"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/executor"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/machine"
	"github.com/filecoin-project/venus-fvm/pkg/vm/register"
	"github.com/filecoin-project/venus-fvm/pkg/vm/sandbox"
)

var execCmd = &cli.Command{
	Name:      "exec",
	Usage:     "deploy a wasm actor on an empty machine and send it one message",
	ArgsUsage: "<module.wasm>",
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:  "method",
			Usage: "method number to invoke",
			Value: 2,
		},
		&cli.StringFlag{
			Name:  "params",
			Usage: "hex encoded dag-cbor parameters",
		},
		&cli.StringFlag{
			Name:  "value",
			Usage: "attoFIL transferred with the message",
			Value: "0",
		},
		&cli.StringFlag{
			Name:  "balance",
			Usage: "attoFIL the sending account starts with",
			Value: "1000000000000000000",
		},
		&cli.Int64Flag{
			Name:  "gas-limit",
			Usage: "gas limit of the message; the configured default when unset",
		},
		&cli.BoolFlag{
			Name:  "trace",
			Usage: "print every gas charge",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return errors.New("expected the path of a wasm module")
		}
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		if cctx.Bool("trace") {
			cfg.Execution.Tracing = true
		}
		if err := cfg.ApplyLogLevel(); err != nil {
			return err
		}

		code, err := os.ReadFile(cctx.Args().First())
		if err != nil {
			return errors.Wrap(err, "reading module")
		}
		params, err := hex.DecodeString(cctx.String("params"))
		if err != nil {
			return errors.Wrap(err, "decoding params")
		}
		value, err := big.FromString(cctx.String("value"))
		if err != nil {
			return errors.Wrap(err, "parsing value")
		}
		balance, err := big.FromString(cctx.String("balance"))
		if err != nil {
			return errors.Wrap(err, "parsing balance")
		}
		gasLimit := cfg.Execution.DefaultGasLimit
		if cctx.IsSet("gas-limit") {
			gasLimit = cctx.Int64("gas-limit")
		}

		ret, err := execute(cctx.Context, cfg, code, &execRequest{
			method:   abi.MethodNum(cctx.Uint64("method")),
			params:   params,
			value:    value,
			balance:  balance,
			gasLimit: gasLimit,
		})
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(ret, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cctx.App.Writer, string(out))
		return err
	},
}

type execRequest struct {
	method   abi.MethodNum
	params   []byte
	value    abi.TokenAmount
	balance  abi.TokenAmount
	gasLimit int64
}

type execResult struct {
	ExitCode exitcode.ExitCode `json:"exitCode"`
	Return   string            `json:"return"`
	GasUsed  int64             `json:"gasUsed"`
	Root     string            `json:"root"`
	Error    string            `json:"error,omitempty"`
	Trace    []*gas.GasTrace   `json:"trace,omitempty"`
}

// execute builds an in-memory machine, installs a funded account and the
// wasm actor, and applies a single message from one to the other.
func execute(ctx context.Context, cfg *config.Config, wasm []byte, req *execRequest) (*execResult, error) {
	natives, err := register.GetDefaultNativeEngine()
	if err != nil {
		return nil, err
	}
	engine, err := sandbox.NewWasmEngine(ctx, cfg.Sandbox.WasmConfig())
	if err != nil {
		return nil, err
	}
	defer engine.Close(ctx) //nolint:errcheck

	bs := blockstoreutil.NewMemory()
	m, err := machine.New(ctx, machine.Options{
		Context: machine.Context{
			NetworkVersion: network.Version(cfg.Execution.NetworkVersion),
			Pricelist:      cfg.Execution.Pricelist(),
			Tracing:        cfg.Execution.Tracing,
			MaxCallDepth:   cfg.Execution.MaxCallDepth,
		},
		Blockstore: bs,
		Natives:    natives,
		Wasm:       engine,
	})
	if err != nil {
		return nil, err
	}

	codeID, err := cid.V1Builder{Codec: cid.Raw, MhType: constants.DefaultHashFunction}.Sum(wasm)
	if err != nil {
		return nil, err
	}
	blk, err := blocks.NewBlockWithCid(wasm, codeID)
	if err != nil {
		return nil, err
	}
	if err := bs.Put(ctx, blk); err != nil {
		return nil, err
	}

	from, err := address.NewSecp256k1Address([]byte("venus-fvm exec sender"))
	if err != nil {
		return nil, err
	}
	head, err := m.Store().Put(ctx, &account.State{Address: from})
	if err != nil {
		return nil, err
	}
	sender := account.ZeroState()
	sender.Head = head
	sender.Balance = req.balance
	if _, err := m.CreateActor(ctx, from, sender); err != nil {
		return nil, errors.Wrap(err, "creating sender")
	}

	to, err := address.NewActorAddress(wasm)
	if err != nil {
		return nil, err
	}
	if _, err := m.CreateActor(ctx, to, tree.NewActor(codeID, block.EmptyArrayCid)); err != nil {
		return nil, errors.Wrap(err, "creating actor")
	}

	e := executor.New(m)
	ret, err := e.ApplyMessage(ctx, executor.NewMessage(from, to, 0, req.value, req.method, req.params, req.gasLimit))
	if err != nil {
		return nil, err
	}
	root, err := e.Flush(ctx)
	if err != nil {
		return nil, err
	}

	res := &execResult{
		ExitCode: ret.Receipt.ExitCode,
		Return:   hex.EncodeToString(ret.Receipt.Return),
		GasUsed:  ret.Receipt.GasUsed,
		Root:     root.String(),
		Trace:    ret.GasTrace,
	}
	if ret.ActorErr != nil {
		res.Error = ret.ActorErr.Error()
	}
	return res, nil
}
