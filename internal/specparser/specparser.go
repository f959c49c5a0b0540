// Package specparser splits a "name<op>version" package spec string into
// a bare name and a raw constraint suffix, per spec.md §4.2.
package specparser

import (
	"regexp"

	"github.com/pkg/errors"
)

var nameRe = regexp.MustCompile(`^([A-Za-z0-9_-]+)(.*)$`)

// ErrInvalidSpec is wrapped by ParseRequirement when the input does not match the
// name grammar ([A-Za-z0-9_-]+ followed by an optional raw constraint).
var ErrInvalidSpec = errors.New("invalid package spec")

// ParseRequirement splits a spec such as "numpy", "numpy==1.26.0", or
// "scikit-learn>=1.0" into (name, constraint). constraint is empty when
// the spec names a package with no version suffix. Whitespace anywhere
// in the name, or an empty name, is rejected.
func ParseRequirement(spec string) (name string, constraint string, err error) {
	if spec == "" {
		return "", "", errors.Wrap(ErrInvalidSpec, "empty spec")
	}

	matches := nameRe.FindStringSubmatch(spec)
	if matches == nil {
		return "", "", errors.Wrapf(ErrInvalidSpec, "%q has no valid package name", spec)
	}

	name = matches[1]
	constraint = matches[2]

	if constraint != "" && !looksLikeConstraint(constraint) {
		return "", "", errors.Wrapf(ErrInvalidSpec, "%q has an unexpected suffix %q", spec, constraint)
	}

	return name, constraint, nil
}

// looksLikeConstraint allows a handful of real-world requirement forms
// that contain interior whitespace, such as "requests ; python_version <
// '3'" or "numpy >=1.20,  <2.0". We only need to reject garbage, not
// fully validate PEP 508 markers.
var constraintOpRe = regexp.MustCompile(`^\s*(==|!=|<=|>=|~=|<|>|;|,).*$`)

func looksLikeConstraint(s string) bool {
	return constraintOpRe.MatchString(s)
}
