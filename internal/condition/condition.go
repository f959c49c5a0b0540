// Package condition implements the pure predicate that decides whether a
// directive's condition is satisfied, per spec.md §4.4.
package condition

import (
	"log/slog"

	"github.com/comfy-org/cnpip/internal/models"
	"github.com/comfy-org/cnpip/internal/versionspec"
)

// Probes is the capability-probe collaborator injected from internal/host.
// Kept as a narrow interface here so condition stays independent of how
// the probes are implemented (spec.md §6).
type Probes interface {
	OSName() string
	HasGPU() bool
	AppVersion() (version string, ok bool)
}

// Snapshot is the read-only view of installed packages the evaluator
// consults for "installed" conditions. internal/snapshot.Snapshot
// satisfies this.
type Snapshot interface {
	Lookup(name string) (version string, ok bool)
}

// Evaluator evaluates conditions against the current environment.
type Evaluator struct {
	Probes Probes
	Logger *slog.Logger
}

// New creates an Evaluator. A nil logger falls back to slog.Default().
func New(probes Probes, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{Probes: probes, Logger: logger}
}

// Evaluate decides whether cond holds for pkgUnderConsideration given
// the current installed snapshot. A nil condition is always true.
func (e *Evaluator) Evaluate(cond *models.Condition, pkgUnderConsideration string, snap Snapshot) bool {
	if cond == nil {
		return true
	}

	switch cond.Type {
	case models.ConditionInstalled:
		return e.evaluateInstalled(cond, pkgUnderConsideration, snap)
	case models.ConditionPlatform:
		return e.evaluatePlatform(cond)
	default:
		e.Logger.Warn("unknown condition type, evaluating to false", "type", cond.Type)
		return false
	}
}

func (e *Evaluator) evaluateInstalled(cond *models.Condition, pkgUnderConsideration string, snap Snapshot) bool {
	target := cond.Package
	if target == "" {
		target = pkgUnderConsideration
	}

	version, ok := snap.Lookup(target)
	if !ok {
		return false
	}
	if cond.Spec == "" {
		return true
	}

	satisfies, err := versionspec.Satisfies(version, cond.Spec)
	if err != nil {
		e.Logger.Warn("failed to evaluate version spec, evaluating to false",
			"package", target, "spec", cond.Spec, "installed", version, "error", err)
		return false
	}
	return satisfies
}

func (e *Evaluator) evaluatePlatform(cond *models.Condition) bool {
	if cond.OS != "" && e.Probes.OSName() != cond.OS {
		return false
	}
	if cond.HasGPU != nil && e.Probes.HasGPU() != *cond.HasGPU {
		return false
	}
	if cond.HostAppVersion != "" {
		version, ok := e.Probes.AppVersion()
		if !ok {
			e.Logger.Warn("host_app_version probe not implemented, evaluating to false",
				"spec", cond.HostAppVersion)
			return false
		}
		satisfies, err := versionspec.Satisfies(version, cond.HostAppVersion)
		if err != nil {
			e.Logger.Warn("failed to evaluate host_app_version spec, evaluating to false",
				"spec", cond.HostAppVersion, "host_version", version, "error", err)
			return false
		}
		if !satisfies {
			return false
		}
	}
	return true
}
