// Package batch implements PipBatch, the scoped session that drives
// install, ensure_not_installed, and ensure_installed against a policy
// document and a package-manager shim, per spec.md §4.5.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/comfy-org/cnpip/internal/condition"
	"github.com/comfy-org/cnpip/internal/models"
	"github.com/comfy-org/cnpip/internal/pkgerrors"
	"github.com/comfy-org/cnpip/internal/specparser"
)

// Installer is the narrow package-manager capability the batch engine
// drives. pkg/pipmgr.Client satisfies this.
type Installer interface {
	Install(ctx context.Context, targets []string, extraIndexURL string) ([]string, error)
	Uninstall(ctx context.Context, targets []string) ([]string, error)
}

// SnapshotProvider is the narrow snapshot capability the batch engine
// needs: a cached read, an invalidation hook, and the two direct-write
// hooks that keep the cache fresh without forcing a rebuild after every
// single mutation. internal/snapshot.Provider satisfies this.
type SnapshotProvider interface {
	Get(ctx context.Context) SnapshotView
	Invalidate()
	Put(name, version string)
	Remove(name string)
}

// SnapshotView is the read-only surface the batch engine consults.
// internal/snapshot.Snapshot satisfies this, as does condition.Snapshot.
type SnapshotView interface {
	Lookup(name string) (version string, ok bool)
}

// PipBatch is one scoped installation session: one policy document, one
// snapshot provider, for the lifetime of the batch (spec.md §3.1, §5).
type PipBatch struct {
	policy     models.PolicyDocument
	installer  Installer
	snapshots  SnapshotProvider
	conditions *condition.Evaluator
	logger     *slog.Logger
}

// NewBatch creates a batch scoped to policy, bound to installer and
// snapshots for its subprocess and environment-view needs. Close must be
// called when the batch ends (spec.md §3.1: snapshot released on exit).
func NewBatch(policy models.PolicyDocument, installer Installer, snapshots SnapshotProvider, conditions *condition.Evaluator, logger *slog.Logger) *PipBatch {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipBatch{policy: policy, installer: installer, snapshots: snapshots, conditions: conditions, logger: logger}
}

// Close releases the batch's snapshot. No policy mutation and no
// filesystem side effects happen here (spec.md §3.1).
func (b *PipBatch) Close() {
	b.snapshots.Invalidate()
}

// Install runs steps 1-11 of spec.md §4.5.1 for one request spec.
func (b *PipBatch) Install(ctx context.Context, requestSpec string, extraIndexURL string, overridePolicy bool) (bool, error) {
	name, _, err := specparser.ParseRequirement(requestSpec)
	if err != nil {
		return false, pkgerrors.Input(requestSpec, err)
	}

	if overridePolicy {
		return b.defaultInstall(ctx, requestSpec, extraIndexURL, name)
	}

	snap := b.snapshots.Get(ctx)
	rule, hasRule := b.policy[name]
	if !hasRule {
		return b.defaultInstall(ctx, requestSpec, extraIndexURL, name)
	}

	target := requestSpec
	var directiveIndexURL string

	for _, d := range rule.ApplyFirstMatch {
		if !b.conditions.Evaluate(d.Condition, name, snap) {
			continue
		}
		switch d.Type {
		case models.DirectiveSkip:
			b.logger.Info("skip directive fired", "package", name, "reason", d.Reason)
			return false, nil
		case models.DirectiveForceVersion:
			target = fmt.Sprintf("%s==%s", name, d.Version)
			directiveIndexURL = d.ExtraIndexURL
		case models.DirectiveReplace:
			if d.Version != "" {
				target = fmt.Sprintf("%s==%s", d.Replacement, d.Version)
			} else {
				target = d.Replacement
			}
			directiveIndexURL = d.ExtraIndexURL
		}
		break
	}

	pinAdditions, retryWithoutPinAllowed := b.collectPinAdditions(rule, name, snap)
	extraAdds := b.collectInstallWithAdditions(rule, name, snap)
	b.emitWarnings(rule, name, snap)

	finalIndexURL := extraIndexURL
	if finalIndexURL == "" {
		finalIndexURL = directiveIndexURL
	}

	finalList := append([]string{target}, pinAdditions...)
	finalList = append(finalList, extraAdds...)

	_, err = b.installer.Install(ctx, finalList, finalIndexURL)
	if err == nil {
		b.snapshots.Invalidate()
		return true, nil
	}

	if len(pinAdditions) > 0 && retryWithoutPinAllowed {
		b.logger.Warn("pin install failed, retrying without pinned dependencies", "package", name, "error", err)
		retryList := append([]string{target}, extraAdds...)
		_, retryErr := b.installer.Install(ctx, retryList, finalIndexURL)
		if retryErr == nil {
			b.snapshots.Invalidate()
			return true, nil
		}
		err = retryErr
	}

	return false, pkgerrors.Install(name, err)
}

func (b *PipBatch) defaultInstall(ctx context.Context, requestSpec, extraIndexURL, name string) (bool, error) {
	_, err := b.installer.Install(ctx, []string{requestSpec}, extraIndexURL)
	if err != nil {
		return false, pkgerrors.Install(name, err)
	}
	b.snapshots.Invalidate()
	return true, nil
}

// collectPinAdditions implements step 6's pin_dependencies handling. The
// worst-case on_failure policy wins: any directive specifying "fail"
// (the default) forces the batch to surface a pin-conflict rather than
// retry, even if another directive on the same package allows it.
func (b *PipBatch) collectPinAdditions(rule models.PackageRule, name string, snap SnapshotView) (additions []string, retryWithoutPin bool) {
	sawRetry := false
	sawFail := false
	for _, d := range rule.ApplyAllMatches {
		if d.Type != models.DirectivePinDependencies {
			continue
		}
		if !b.conditions.Evaluate(d.Condition, name, snap) {
			continue
		}
		for _, pinned := range d.PinnedPackages {
			if version, ok := snap.Lookup(pinned); ok {
				additions = append(additions, fmt.Sprintf("%s==%s", pinned, version))
			}
		}
		switch d.OnFailure {
		case models.OnFailureRetryWithoutPin:
			sawRetry = true
		default:
			sawFail = true
		}
	}
	return additions, sawRetry && !sawFail
}

// collectInstallWithAdditions implements step 6's install_with handling.
func (b *PipBatch) collectInstallWithAdditions(rule models.PackageRule, name string, snap SnapshotView) []string {
	var additions []string
	for _, d := range rule.ApplyAllMatches {
		if d.Type != models.DirectiveInstallWith {
			continue
		}
		if !b.conditions.Evaluate(d.Condition, name, snap) {
			continue
		}
		additions = append(additions, d.AdditionalPackages...)
	}
	return additions
}

// emitWarnings implements step 6's warn handling: log only, no install
// list mutation.
func (b *PipBatch) emitWarnings(rule models.PackageRule, name string, snap SnapshotView) {
	for _, d := range rule.ApplyAllMatches {
		if d.Type != models.DirectiveWarn {
			continue
		}
		if !b.conditions.Evaluate(d.Condition, name, snap) {
			continue
		}
		b.logger.Warn(d.Message, "package", name, "allow_continue", allowContinue(d.AllowContinue))
	}
}

func allowContinue(p *bool) bool {
	if p == nil {
		return true
	}
	return *p
}

// EnsureNotInstalled implements spec.md §4.5.2: walk every rule's
// uninstall section, firing the first satisfied directive per rule.
func (b *PipBatch) EnsureNotInstalled(ctx context.Context) []string {
	snap := b.snapshots.Get(ctx)
	var removed []string

	for name, rule := range b.policy {
		for _, d := range rule.Uninstall {
			if !b.conditions.Evaluate(d.Condition, name, snap) {
				continue
			}
			if _, installed := snap.Lookup(d.Target); !installed {
				break
			}
			if _, err := b.installer.Uninstall(ctx, []string{d.Target}); err != nil {
				b.logger.Warn("uninstall failed, continuing sweep", "package", d.Target, "error", err)
				break
			}
			b.logger.Info("uninstalled", "package", d.Target, "reason", d.Reason)
			b.snapshots.Remove(d.Target)
			snap = b.snapshots.Get(ctx)
			removed = append(removed, d.Target)
			break
		}
	}
	return removed
}

// EnsureInstalled implements spec.md §4.5.3: walk every rule's restore
// section, firing the first satisfied directive per rule.
func (b *PipBatch) EnsureInstalled(ctx context.Context) []string {
	snap := b.snapshots.Get(ctx)
	var restored []string

	for name, rule := range b.policy {
		for _, d := range rule.Restore {
			if !b.conditions.Evaluate(d.Condition, name, snap) {
				continue
			}

			installedVersion, installed := snap.Lookup(d.Target)
			if installed && installedVersion == d.Version {
				break
			}

			target := fmt.Sprintf("%s==%s", d.Target, d.Version)
			if _, err := b.installer.Install(ctx, []string{target}, d.ExtraIndexURL); err != nil {
				b.logger.Warn("restore install failed, continuing sweep", "package", d.Target, "error", err)
				break
			}
			b.logger.Info("restored", "package", d.Target, "version", d.Version, "reason", d.Reason)
			b.snapshots.Put(d.Target, d.Version)
			snap = b.snapshots.Get(ctx)
			restored = append(restored, d.Target)
			break
		}
	}
	return restored
}
