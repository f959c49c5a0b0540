// Package pkgerrors defines the error-kind taxonomy cnpip surfaces to
// callers, per spec.md §7: an error built with one of the constructors
// below carries one of five kinds so a CLI or caller can branch on Kind
// without string-matching messages. PipBatch.Install returns its parse
// and install failures this way; pkg/pipmgr and internal/config return
// plain errors that carry no Kind.
package pkgerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the stage at which an error originated.
type Kind string

const (
	// KindConfig covers policy-file and cnpip.yaml load/parse failures.
	KindConfig Kind = "config"
	// KindInput covers malformed package specs and ill-formed directives.
	KindInput Kind = "input"
	// KindEvaluation covers condition and version-spec evaluation failures.
	KindEvaluation Kind = "evaluation"
	// KindProbe covers capability-probe failures (OS, GPU, host app version).
	KindProbe Kind = "probe"
	// KindInstall covers package-manager install/uninstall/freeze failures.
	KindInstall Kind = "install"
)

// Error wraps an underlying cause with a Kind and package-level context.
type Error struct {
	Kind    Kind
	Package string
	cause   error
}

func (e *Error) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Package, e.cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause supports github.com/pkg/errors.Cause for callers walking the
// chain the pkg/errors way rather than with errors.Unwrap.
func (e *Error) Cause() error { return e.cause }

func wrap(kind Kind, pkg string, cause error) *Error {
	return &Error{Kind: kind, Package: pkg, cause: cause}
}

// Config wraps cause as a KindConfig error.
func Config(pkg string, cause error) *Error { return wrap(KindConfig, pkg, cause) }

// Input wraps cause as a KindInput error.
func Input(pkg string, cause error) *Error { return wrap(KindInput, pkg, cause) }

// Evaluation wraps cause as a KindEvaluation error.
func Evaluation(pkg string, cause error) *Error { return wrap(KindEvaluation, pkg, cause) }

// Probe wraps cause as a KindProbe error.
func Probe(pkg string, cause error) *Error { return wrap(KindProbe, pkg, cause) }

// Install wraps cause as a KindInstall error.
func Install(pkg string, cause error) *Error { return wrap(KindInstall, pkg, cause) }

// Is reports whether err is a pkgerrors.Error of the given kind,
// unwrapping through any pkg/errors stack frames in between.
func Is(err error, kind Kind) bool {
	var target *Error
	if !errors.As(err, &target) {
		return false
	}
	return target.Kind == kind
}
