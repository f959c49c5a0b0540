// Package pipmgr wraps the pip/uv command-line surface cnpip drives:
// freezing the installed-packages list and running install/uninstall
// for caller-supplied targets, with the argv built per backend, per
// spec.md §6.
package pipmgr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Backend names a supported package-manager CLI.
type Backend string

const (
	BackendPip Backend = "pip"
	BackendUV  Backend = "uv"
)

// ExecResult is what one subprocess invocation produced.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor is the subprocess boundary, kept as an interface so the
// batch engine and this package's own tests can substitute a fake
// instead of shelling out for real.
type Executor interface {
	Run(ctx context.Context, bin string, args []string) (ExecResult, error)
}

// SystemExecutor runs commands via os/exec with a bounded timeout.
type SystemExecutor struct {
	Timeout time.Duration
}

// NewSystemExecutor creates a SystemExecutor with a 5 minute default
// timeout, matching a single pip/uv invocation's reasonable upper bound.
func NewSystemExecutor() *SystemExecutor {
	return &SystemExecutor{Timeout: 5 * time.Minute}
}

// Run executes bin with args and captures stdout/stderr.
func (e *SystemExecutor) Run(ctx context.Context, bin string, args []string) (ExecResult, error) {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}
	return result, err
}

// ArgvBuilder turns the manager-independent operations the batch engine
// needs into the argv for one concrete backend.
type ArgvBuilder interface {
	Backend() Backend
	Freeze() (bin string, args []string)
	Install(targets []string, extraIndexURL string) (bin string, args []string)
	Uninstall(targets []string) (bin string, args []string)
}

type pipArgvBuilder struct{ bin string }

func (b pipArgvBuilder) Backend() Backend { return BackendPip }

func (b pipArgvBuilder) Freeze() (string, []string) {
	return b.bin, []string{"freeze"}
}

func (b pipArgvBuilder) Install(targets []string, extraIndexURL string) (string, []string) {
	args := append([]string{"install"}, targets...)
	if extraIndexURL != "" {
		args = append(args, "--extra-index-url", extraIndexURL)
	}
	return b.bin, args
}

func (b pipArgvBuilder) Uninstall(targets []string) (string, []string) {
	args := append([]string{"uninstall", "-y"}, targets...)
	return b.bin, args
}

type uvArgvBuilder struct{ bin string }

func (b uvArgvBuilder) Backend() Backend { return BackendUV }

func (b uvArgvBuilder) Freeze() (string, []string) {
	return b.bin, []string{"pip", "freeze"}
}

func (b uvArgvBuilder) Install(targets []string, extraIndexURL string) (string, []string) {
	args := append([]string{"pip", "install"}, targets...)
	if extraIndexURL != "" {
		args = append(args, "--extra-index-url", extraIndexURL)
	}
	return b.bin, args
}

func (b uvArgvBuilder) Uninstall(targets []string) (string, []string) {
	args := append([]string{"pip", "uninstall"}, targets...)
	return b.bin, args
}

// Detect locates the first supported backend in PATH, preferring uv to
// pip the same way the teacher's scanner.New() prefers trivy to grype:
// the faster, more capable tool wins when both are present.
func Detect() (ArgvBuilder, error) {
	if path, err := exec.LookPath("uv"); err == nil {
		return uvArgvBuilder{bin: path}, nil
	}
	if path, err := exec.LookPath("pip"); err == nil {
		return pipArgvBuilder{bin: path}, nil
	}
	if path, err := exec.LookPath("pip3"); err == nil {
		return pipArgvBuilder{bin: path}, nil
	}
	return nil, fmt.Errorf("no supported package manager found (install pip or uv)")
}

// NewWithBackend builds an ArgvBuilder for a specific backend, bypassing
// auto-detection, for callers (and config) that want to pin the manager.
func NewWithBackend(backend Backend) (ArgvBuilder, error) {
	switch backend {
	case BackendUV:
		path, err := exec.LookPath("uv")
		if err != nil {
			return nil, fmt.Errorf("uv not found in PATH: %w", err)
		}
		return uvArgvBuilder{bin: path}, nil
	case BackendPip:
		path, err := exec.LookPath("pip")
		if err != nil {
			path, err = exec.LookPath("pip3")
			if err != nil {
				return nil, fmt.Errorf("pip not found in PATH: %w", err)
			}
		}
		return pipArgvBuilder{bin: path}, nil
	default:
		return nil, fmt.Errorf("unsupported package manager backend: %q", backend)
	}
}

// Client is the package-manager facade the batch engine and snapshot
// provider consume. It pairs an Executor with an ArgvBuilder so callers
// never assemble argv themselves.
type Client struct {
	Executor Executor
	Builder  ArgvBuilder
}

// NewClient creates a Client, auto-detecting the backend.
func NewClient(executor Executor) (*Client, error) {
	builder, err := Detect()
	if err != nil {
		return nil, err
	}
	return &Client{Executor: executor, Builder: builder}, nil
}

// Freeze runs the backend's freeze equivalent and returns raw stdout.
// Satisfies internal/snapshot.Freezer.
func (c *Client) Freeze(ctx context.Context) ([]byte, error) {
	bin, args := c.Builder.Freeze()
	res, err := c.Executor.Run(ctx, bin, args)
	if err != nil {
		return nil, fmt.Errorf("%s freeze failed: %w: %s", bin, err, res.Stderr)
	}
	return []byte(res.Stdout), nil
}

// Install runs the backend's install with targets and an optional extra
// index URL, returning the final argv used (for logging/tests) alongside
// any error.
func (c *Client) Install(ctx context.Context, targets []string, extraIndexURL string) ([]string, error) {
	bin, args := c.Builder.Install(targets, extraIndexURL)
	res, err := c.Executor.Run(ctx, bin, args)
	argv := append([]string{bin}, args...)
	if err != nil {
		return argv, fmt.Errorf("%s install failed: %w: %s", bin, err, res.Stderr)
	}
	return argv, nil
}

// Uninstall runs the backend's uninstall for targets.
func (c *Client) Uninstall(ctx context.Context, targets []string) ([]string, error) {
	bin, args := c.Builder.Uninstall(targets)
	res, err := c.Executor.Run(ctx, bin, args)
	argv := append([]string{bin}, args...)
	if err != nil {
		return argv, fmt.Errorf("%s uninstall failed: %w: %s", bin, err, res.Stderr)
	}
	return argv, nil
}
