package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/cli/render"
	"github.com/pithecene-io/crucible/log"
	"github.com/pithecene-io/crucible/pool"
	"github.com/pithecene-io/crucible/runtime"
	"github.com/pithecene-io/crucible/types"
)

// callableTypes are the requests call can build from flags alone.
// sumArrayShared is sent through a shared buffer holding --data.
var callableTypes = []types.MessageType{
	types.MessageTypePing,
	types.MessageTypeWarmup,
	types.MessageTypeFibonacci,
	types.MessageTypeFibonacciIter,
	types.MessageTypeFibonacciBatch,
	types.MessageTypeFibonacciBatchRef,
	types.MessageTypeFibonacciIterBatch,
	types.MessageTypeSumArray,
	types.MessageTypeSumArrayShared,
	types.MessageTypeMatrixMultiplyBench,
	types.MessageTypeMatrixMultiplyRefBench,
	types.MessageTypeQuicksortBench,
	types.MessageTypeQuicksortRefBench,
}

// CallCommand returns the call command, which sends one request to a
// fresh pool and prints the response.
func CallCommand() *cli.Command {
	flags := []cli.Flag{ConfigFlag, FormatFlag, NoColorFlag}
	flags = append(flags, PoolFlags()...)
	flags = append(flags,
		&cli.IntFlag{Name: "n", Usage: "Fibonacci n or matrix size"},
		&cli.IntFlag{Name: "iterations", Usage: "Fibonacci batch iterations"},
		&cli.IntFlag{Name: "length", Usage: "Quicksort length"},
		&cli.StringFlag{Name: "algorithm", Usage: "Matrix algorithm: naive or strassen"},
		&cli.StringFlag{Name: "data", Usage: "Comma-separated u32 values for sumArray"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress structured logs"},
	)

	return &cli.Command{
		Name:      "call",
		Usage:     "Send one request to a worker and print the response",
		ArgsUsage: "<message-type>",
		Flags:     flags,
		Action:    callAction,
	}
}

// buildCallRequest builds the request named by typ from flags.
func buildCallRequest(c *cli.Context, typ types.MessageType) (*types.Request, error) {
	if !slices.Contains(callableTypes, typ) {
		return nil, fmt.Errorf("unsupported message type %q for call", typ)
	}
	req := types.NewRequest(typ, uuid.NewString())
	req.N = c.Int("n")
	req.Iterations = c.Int("iterations")
	req.Length = c.Int("length")

	switch alg := types.Algorithm(c.String("algorithm")); alg {
	case "", types.AlgorithmNaive, types.AlgorithmStrassen:
		req.Algorithm = alg
	default:
		return nil, fmt.Errorf("unknown algorithm %q", alg)
	}

	if typ == types.MessageTypeSumArray || typ == types.MessageTypeSumArrayShared {
		data, err := parseUint32s(c.String("data"))
		if err != nil {
			return nil, fmt.Errorf("invalid --data: %w", err)
		}
		if len(data) == 0 {
			return nil, errors.New("--data is required for " + string(typ))
		}
		req.Data = data
		req.Length = len(data)
	}
	return req, nil
}

func parseUint32s(s string) ([]uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid u32 %q", p)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

func callAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return cli.Exit("call takes exactly one message type", 1)
	}
	req, err := buildCallRequest(c, types.MessageType(c.Args().First()))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
	}
	poolCfg, err := parsePoolConfig(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if poolCfg.Size == 0 {
		poolCfg.Size = 1
	}
	logger := log.NewLogger(log.Meta{Component: "call"})
	if c.Bool("quiet") {
		logger = log.Nop()
	}
	defer func() { _ = logger.Sync() }()
	poolCfg.Logger = logger

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := runtime.Start(ctx, poolCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to start pool: %v", err), exitRuntimeError)
	}
	defer func() { _ = client.Close() }()

	resp, err := send(ctx, client, req)
	var respErr *pool.ResponseError
	if errors.As(err, &respErr) {
		return cli.Exit(respErr.Message, 1)
	}
	if err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}
	return r.Render(resp)
}

// send dispatches req, moving sumArrayShared data into a shared buffer.
func send(ctx context.Context, client *runtime.Client, req *types.Request) (*types.Response, error) {
	if req.Type != types.MessageTypeSumArrayShared {
		return client.Request(ctx, req)
	}

	buf, err := client.NewSharedBuffer(4 * len(req.Data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = buf.Close() }()

	dst, err := buf.Uint32s(0, len(req.Data))
	if err != nil {
		return nil, err
	}
	copy(dst, req.Data)
	if req.Buffer, err = buf.RefPtr(0, 4*len(req.Data)); err != nil {
		return nil, err
	}
	req.Data = nil
	return client.Do(ctx, buf, req)
}
