// cnpip — a policy-driven wrapper around pip/uv that mediates install
// requests against a shared, pinned dependency set so that installing
// one extension's requirements doesn't silently break another's.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/comfy-org/cnpip/internal/batch"
	"github.com/comfy-org/cnpip/internal/condition"
	cnpipconfig "github.com/comfy-org/cnpip/internal/config"
	"github.com/comfy-org/cnpip/internal/host"
	"github.com/comfy-org/cnpip/internal/policy"
	"github.com/comfy-org/cnpip/internal/snapshot"
	"github.com/comfy-org/cnpip/pkg/pipmgr"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:     "cnpip",
		Short:   "cnpip — policy-driven pip/uv installer",
		Long:    `cnpip mediates package installs through a declarative policy so custom extensions don't corrupt a shared, working dependency set.`,
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}
	root.PersistentFlags().StringVar(&configPath, "config", "cnpip.yaml", "Path to cnpip configuration file")

	root.AddCommand(
		newInstallCmd(&configPath),
		newEnsureNotInstalledCmd(&configPath),
		newEnsureInstalledCmd(&configPath),
		newSyncCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newBatch wires config, policy, logging, probes, and the package
// manager shim into a ready-to-use batch. Callers must Close it.
func newBatch(configPath string) (*batch.PipBatch, *cnpipconfig.Config, *slog.Logger, error) {
	cfg, err := cnpipconfig.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	var builder pipmgr.ArgvBuilder
	if backend, ok := cfg.Backend(); ok {
		builder, err = pipmgr.NewWithBackend(backend)
	} else {
		builder, err = pipmgr.Detect()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("detecting package manager: %w", err)
	}

	client := &pipmgr.Client{Executor: pipmgr.NewSystemExecutor(), Builder: builder}
	snapProvider := snapshot.NewProvider(client, logger)
	conditions := condition.New(host.NewDefaultProbes(), logger)
	doc := policy.Get(cfg.BasePolicyPath, cfg.UserPolicyPath, logger)

	b := batch.NewBatch(doc, client, batch.NewSnapshotProvider(snapProvider), conditions, logger)
	return b, cfg, logger, nil
}

// resolveExtraIndexURL applies config-default-then-flag-override
// precedence: an explicit --extra-index-url flag always wins, falling
// back to the configured default when the flag was left empty.
func resolveExtraIndexURL(flagValue string, cfg *cnpipconfig.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.DefaultExtraIndexURL
}

// --- install command ---

func newInstallCmd(configPath *string) *cobra.Command {
	var (
		extraIndexURL  string
		overridePolicy bool
	)

	cmd := &cobra.Command{
		Use:   "install [package-spec]",
		Short: "Install a package, applying the pip policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(*configPath, args[0], extraIndexURL, overridePolicy)
		},
	}

	cmd.Flags().StringVar(&extraIndexURL, "extra-index-url", "", "Extra package index URL (overrides policy)")
	cmd.Flags().BoolVar(&overridePolicy, "override-policy", false, "Bypass policy and install the spec verbatim")
	return cmd
}

func runInstall(configPath, spec, extraIndexURL string, overridePolicy bool) error {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	b, cfg, logger, err := newBatch(configPath)
	if err != nil {
		return err
	}
	defer b.Close()

	bold.Printf("Installing %s\n", spec)

	ok, err := b.Install(context.Background(), spec, resolveExtraIndexURL(extraIndexURL, cfg), overridePolicy)
	if err != nil {
		return fmt.Errorf("install failed: %w", err)
	}
	if !ok {
		yellow.Println("skipped by policy")
		return nil
	}
	logger.Debug("install completed", "spec", spec)
	green.Println("installed")
	return nil
}

// --- ensure-not-installed command ---

func newEnsureNotInstalledCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-not-installed",
		Short: "Remove every package the policy bans, if present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnsureNotInstalled(*configPath)
		},
	}
}

func runEnsureNotInstalled(configPath string) error {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	b, _, _, err := newBatch(configPath)
	if err != nil {
		return err
	}
	defer b.Close()

	bold.Println("Enforcing uninstall policy")
	removed := b.EnsureNotInstalled(context.Background())
	if len(removed) == 0 {
		green.Println("nothing to remove")
		return nil
	}
	for _, pkg := range removed {
		fmt.Printf("  removed: %s\n", pkg)
	}
	return nil
}

// --- ensure-installed command ---

func newEnsureInstalledCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-installed",
		Short: "Restore every package the policy pins to a required version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnsureInstalled(*configPath)
		},
	}
}

func runEnsureInstalled(configPath string) error {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	b, _, _, err := newBatch(configPath)
	if err != nil {
		return err
	}
	defer b.Close()

	bold.Println("Enforcing restore policy")
	restored := b.EnsureInstalled(context.Background())
	if len(restored) == 0 {
		green.Println("everything already at its required version")
		return nil
	}
	for _, pkg := range restored {
		fmt.Printf("  restored: %s\n", pkg)
	}
	return nil
}

// --- sync command (full bookend sequence) ---

func newSyncCmd(configPath *string) *cobra.Command {
	var (
		specs         []string
		extraIndexURL string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run ensure-not-installed, install each given spec, then ensure-installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(*configPath, specs, extraIndexURL)
		},
	}

	cmd.Flags().StringArrayVar(&specs, "install", nil, "Package spec to install (repeatable)")
	cmd.Flags().StringVar(&extraIndexURL, "extra-index-url", "", "Extra package index URL (overrides policy)")
	return cmd
}

func runSync(configPath string, specs []string, extraIndexURL string) error {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	b, cfg, _, err := newBatch(configPath)
	if err != nil {
		return err
	}
	defer b.Close()

	resolvedExtraIndexURL := resolveExtraIndexURL(extraIndexURL, cfg)

	ctx := context.Background()

	bold.Println("Step 1/3: ensure-not-installed")
	removed := b.EnsureNotInstalled(ctx)
	fmt.Printf("  removed %d package(s)\n", len(removed))

	bold.Println("Step 2/3: install")
	failed := false
	for _, spec := range specs {
		ok, err := b.Install(ctx, spec, resolvedExtraIndexURL, false)
		switch {
		case err != nil:
			red.Printf("  %s: %v\n", spec, err)
			failed = true
		case !ok:
			fmt.Printf("  %s: skipped by policy\n", spec)
		default:
			fmt.Printf("  %s: installed\n", spec)
		}
	}

	bold.Println("Step 3/3: ensure-installed")
	restored := b.EnsureInstalled(ctx)
	fmt.Printf("  restored %d package(s)\n", len(restored))

	if failed {
		red.Println("sync completed with errors")
		os.Exit(1)
	}
	green.Println("sync completed")
	return nil
}
