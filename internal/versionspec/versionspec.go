// Package versionspec evaluates PEP 440-style version specifiers
// (==, !=, <, <=, >, >=, ~=) against an installed version string, per
// spec.md's Design Notes on version-constraint semantics. It is a thin
// translation layer over github.com/Masterminds/semver/v3, which has no
// native "~=" (PEP 440 compatible-release) or "==" operator.
package versionspec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// Satisfies reports whether installedVersion satisfies spec, a raw
// constraint string as found in a Condition.Spec or
// Condition.HostAppVersion field (e.g. ">=1.20", "!=1.26.15", "~=2.28"). An empty spec always
// matches ("installed at any version"). Parsing is permissive: on a
// malformed spec or version, Satisfies returns an error so the caller
// can log a warning and fall back to false, per spec.md §4.4.
func Satisfies(installedVersion, spec string) (bool, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return true, nil
	}

	translated, err := translate(spec)
	if err != nil {
		return false, errors.Wrapf(err, "parsing version spec %q", spec)
	}

	constraint, err := semver.NewConstraint(translated)
	if err != nil {
		return false, errors.Wrapf(err, "parsing translated constraint %q (from %q)", translated, spec)
	}

	v, err := semver.NewVersion(padVersion(installedVersion))
	if err != nil {
		return false, errors.Wrapf(err, "parsing installed version %q", installedVersion)
	}

	return constraint.Check(v), nil
}

// translate rewrites a PEP 440 specifier into the subset of operators
// Masterminds/semver understands. "~=X.Y" (compatible release) has no
// direct semver analogue; PEP 440 defines "~=X.Y.Z" as ">=X.Y.Z,
// <X.(Y+1)" and "~=X.Y" as ">=X.Y, <(X+1)" — we expand it explicitly.
// "==X" is rewritten to semver's "=X". Every other operator semver
// supports as-is.
func translate(spec string) (string, error) {
	if strings.HasPrefix(spec, "==") {
		return "=" + strings.TrimPrefix(spec, "=="), nil
	}
	if !strings.HasPrefix(spec, "~=") {
		return spec, nil
	}

	base := strings.TrimSpace(strings.TrimPrefix(spec, "~="))
	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return "", errors.Errorf("~= requires at least major.minor, got %q", base)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", errors.Wrapf(err, "non-numeric component %q in %q", p, base)
		}
		nums[i] = n
	}

	// Bump the second-to-last component, drop everything after it.
	bumpIdx := len(nums) - 2
	upper := make([]int, bumpIdx+1)
	copy(upper, nums[:bumpIdx+1])
	upper[bumpIdx]++

	upperStr := make([]string, len(upper))
	for i, n := range upper {
		upperStr[i] = strconv.Itoa(n)
	}

	return fmt.Sprintf(">=%s, <%s", base, strings.Join(upperStr, ".")), nil
}

// padVersion makes a two-component version ("2023.7") acceptable to
// semver.NewVersion, which requires at least major.minor.patch.
func padVersion(v string) string {
	v = strings.TrimSpace(v)
	if strings.Count(v, ".") == 1 {
		return v + ".0"
	}
	if !strings.Contains(v, ".") && v != "" {
		return v + ".0.0"
	}
	return v
}
