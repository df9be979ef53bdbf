package cmd

import (
	"slices"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/types"
)

func buildCallArgs(t *testing.T, typ types.MessageType, args []string) (*types.Request, error) {
	t.Helper()
	var req *types.Request
	err := runCommand(t, CallCommand().Flags, args, func(c *cli.Context) error {
		var err error
		req, err = buildCallRequest(c, typ)
		return err
	})
	return req, err
}

func TestBuildCallRequest(t *testing.T) {
	req, err := buildCallArgs(t, types.MessageTypeMatrixMultiplyBench, []string{"--n", "64", "--algorithm", "strassen"})
	if err != nil {
		t.Fatalf("buildCallRequest failed: %v", err)
	}
	if req.Type != types.MessageTypeMatrixMultiplyBench || req.N != 64 || req.Algorithm != types.AlgorithmStrassen {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.RequestID == "" || req.Version != types.ProtocolVersion {
		t.Errorf("request not stamped: id=%q version=%d", req.RequestID, req.Version)
	}
}

func TestBuildCallRequest_SumArrayData(t *testing.T) {
	req, err := buildCallArgs(t, types.MessageTypeSumArray, []string{"--data", "1, 2,3"})
	if err != nil {
		t.Fatalf("buildCallRequest failed: %v", err)
	}
	if !slices.Equal(req.Data, []uint32{1, 2, 3}) || req.Length != 3 {
		t.Errorf("data = %v length = %d", req.Data, req.Length)
	}
}

func TestBuildCallRequest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		typ     types.MessageType
		args    []string
		wantErr string
	}{
		{"shared-only type", types.MessageTypeGrayscale, nil, "unsupported message type"},
		{"unknown type", "bogus", nil, "unsupported message type"},
		{"bad algorithm", types.MessageTypeMatrixMultiplyBench, []string{"--algorithm", "winograd"}, "unknown algorithm"},
		{"missing data", types.MessageTypeSumArray, nil, "--data is required"},
		{"bad data", types.MessageTypeSumArrayShared, []string{"--data", "1,-2"}, "invalid --data"},
		{"data overflow", types.MessageTypeSumArray, []string{"--data", "4294967296"}, "invalid --data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildCallArgs(t, tt.typ, tt.args)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestCallAction_RequiresType(t *testing.T) {
	app := cli.NewApp()
	app.Commands = []*cli.Command{CallCommand()}
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run([]string{"crucible", "call"})
	if err == nil || !strings.Contains(err.Error(), "exactly one message type") {
		t.Errorf("expected missing type error, got %v", err)
	}
}
