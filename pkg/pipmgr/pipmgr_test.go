package pipmgr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	bin  string
	args []string
	res  ExecResult
	err  error
}

func (f *fakeExecutor) Run(ctx context.Context, bin string, args []string) (ExecResult, error) {
	f.bin = bin
	f.args = args
	return f.res, f.err
}

func TestClient_Freeze_ReturnsStdout(t *testing.T) {
	exec := &fakeExecutor{res: ExecResult{Stdout: "numpy==1.26.0\n"}}
	c := &Client{Executor: exec, Builder: pipArgvBuilder{bin: "pip"}}

	out, err := c.Freeze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "numpy==1.26.0\n", string(out))
	assert.Equal(t, []string{"freeze"}, exec.args)
}

func TestClient_Freeze_PropagatesError(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 1"), res: ExecResult{Stderr: "boom"}}
	c := &Client{Executor: exec, Builder: pipArgvBuilder{bin: "pip"}}

	_, err := c.Freeze(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestClient_Install_BuildsArgvWithExtraIndexURL(t *testing.T) {
	exec := &fakeExecutor{}
	c := &Client{Executor: exec, Builder: pipArgvBuilder{bin: "pip"}}

	argv, err := c.Install(context.Background(), []string{"numpy==1.26.0"}, "https://example.com/simple")
	require.NoError(t, err)
	assert.Equal(t, []string{"pip", "install", "numpy==1.26.0", "--extra-index-url", "https://example.com/simple"}, argv)
}

func TestClient_Install_S4Scenario(t *testing.T) {
	exec := &fakeExecutor{}
	c := &Client{Executor: exec, Builder: pipArgvBuilder{bin: "pip"}}

	argv, err := c.Install(context.Background(), []string{"Pillow"}, "https://x.example/simple")
	require.NoError(t, err)
	assert.Equal(t, []string{"pip", "install", "Pillow", "--extra-index-url", "https://x.example/simple"}, argv)
}

func TestClient_Install_UVBackendPrefixesPip(t *testing.T) {
	exec := &fakeExecutor{}
	c := &Client{Executor: exec, Builder: uvArgvBuilder{bin: "uv"}}

	argv, err := c.Install(context.Background(), []string{"numpy"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"uv", "pip", "install", "numpy"}, argv)
}

func TestClient_Uninstall_BuildsArgv(t *testing.T) {
	exec := &fakeExecutor{}
	c := &Client{Executor: exec, Builder: pipArgvBuilder{bin: "pip"}}

	argv, err := c.Uninstall(context.Background(), []string{"numpy", "pandas"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pip", "uninstall", "-y", "numpy", "pandas"}, argv)
}

func TestNewWithBackend_UnsupportedBackend(t *testing.T) {
	_, err := NewWithBackend("conda")
	assert.Error(t, err)
}
