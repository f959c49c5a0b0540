// Package snapshot provides the installed-packages view the batch
// engine and condition evaluator consult: a cached parse of one
// `pip freeze`-style invocation, per spec.md §4.3.
package snapshot

import (
	"bufio"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Freezer is the narrow package-manager capability a Provider needs: run
// the manager's freeze subcommand and return its raw stdout.
type Freezer interface {
	Freeze(ctx context.Context) ([]byte, error)
}

// Snapshot is the parsed {normalized name: version} view of the
// environment at the time it was built.
type Snapshot struct {
	packages map[string]string
}

// Lookup returns the installed version for name, if present. Satisfies
// internal/condition.Snapshot.
func (s Snapshot) Lookup(name string) (string, bool) {
	v, ok := s.packages[normalize(name)]
	return v, ok
}

// Has reports whether name is installed.
func (s Snapshot) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Count returns the number of installed packages captured.
func (s Snapshot) Count() int {
	return len(s.packages)
}

// clone returns a deep copy of s. Put and Remove below update the
// Provider's cached snapshot copy-on-write through it, so a Snapshot
// already returned by Get is not changed, and post-mutation freshness
// (spec.md invariant 3) holds without re-invoking freeze on every change.
func (s Snapshot) clone() Snapshot {
	cp := make(map[string]string, len(s.packages))
	for k, v := range s.packages {
		cp[k] = v
	}
	return Snapshot{packages: cp}
}

// Provider builds and caches a Snapshot for one batch. Its methods
// serialize on an internal mutex; PipBatch itself drives it from a
// single goroutine (spec.md §5).
type Provider struct {
	freezer Freezer
	logger  *slog.Logger

	mu     sync.Mutex
	cached *Snapshot
}

// NewProvider creates a Provider backed by freezer. A nil logger falls
// back to slog.Default().
func NewProvider(freezer Freezer, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{freezer: freezer, logger: logger}
}

// Get returns the cached snapshot, building it on first use or after
// Invalidate.
func (p *Provider) Get(ctx context.Context) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached
	}

	snap := p.build(ctx)
	p.cached = &snap
	return snap
}

// Invalidate clears the cache; the next Get rebuilds it, per spec.md
// invariant 3 (post-install/uninstall freshness).
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

// Put records an install/upgrade of name at version directly into the
// cache without a full rebuild, used by the batch engine after a
// successful single-package install/restore so a sweep doesn't need to
// re-run freeze for every directive it applies.
func (p *Provider) Put(name, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		return
	}
	next := p.cached.clone()
	next.packages[normalize(name)] = version
	p.cached = &next
}

// Remove records an uninstall of name directly into the cache.
func (p *Provider) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		return
	}
	next := p.cached.clone()
	delete(next.packages, normalize(name))
	p.cached = &next
}

func (p *Provider) build(ctx context.Context) Snapshot {
	raw, err := p.freezer.Freeze(ctx)
	if err != nil {
		p.logger.Warn("freeze failed, treating environment as empty", "error", err)
		return Snapshot{packages: map[string]string{}}
	}
	return Parse(string(raw), p.logger)
}

// Parse turns freeze output into a Snapshot. Lines starting with "-e"
// (editable installs) or "#" (comments) are ignored; a line that isn't
// "name==version" is skipped and logged at debug, per spec.md §4.3.
func Parse(raw string, logger *slog.Logger) Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	packages := make(map[string]string)

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-e") {
			continue
		}

		name, version, ok := strings.Cut(line, "==")
		if !ok || name == "" || version == "" {
			logger.Debug("skipping unrecognized freeze line", "line", line)
			continue
		}

		packages[normalize(name)] = strings.TrimSpace(version)
	}

	return Snapshot{packages: packages}
}

// normalize canonicalizes a package name the way pip/PyPI does:
// lowercase, and runs of "-", "_", "." folded to a single "-"
// (PEP 503), so "scikit_learn" and "Scikit-Learn" compare equal.
func normalize(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(name))
	lastWasSep := false
	for _, r := range name {
		if r == '-' || r == '_' || r == '.' {
			if !lastWasSep {
				b.WriteByte('-')
				lastWasSep = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasSep = false
	}
	return b.String()
}
