// Package models defines shared types used across all cnpip components:
// the policy document, its directives and conditions, and an
// install-outcome record type.
package models

// Condition gates whether a directive fires. A nil Condition is always
// satisfied. Exactly one of the "installed" or "platform" field groups
// is meaningful for a given Type.
type Condition struct {
	Type string `json:"type"`

	// "installed" fields.
	Package string `json:"package,omitempty"`
	Spec    string `json:"spec,omitempty"`

	// "platform" fields.
	OS             string `json:"os,omitempty"`
	HasGPU         *bool  `json:"has_gpu,omitempty"`
	HostAppVersion string `json:"host_app_version,omitempty"`
}

// Condition type tags.
const (
	ConditionInstalled = "installed"
	ConditionPlatform  = "platform"
)

// Directive is a single rule element within one of a PackageRule's four
// sections. Type discriminates which fields are meaningful; see the
// required-fields table in spec.md §3.1.
type Directive struct {
	Condition *Condition `json:"condition,omitempty"`
	Type      string     `json:"type,omitempty"`
	Reason    string     `json:"reason,omitempty"`

	// uninstall / restore
	Target string `json:"target,omitempty"`

	// force_version / replace / restore
	Version       string `json:"version,omitempty"`
	ExtraIndexURL string `json:"extra_index_url,omitempty"`
	Replacement   string `json:"replacement,omitempty"`

	// pin_dependencies
	PinnedPackages []string `json:"pinned_packages,omitempty"`
	OnFailure      string   `json:"on_failure,omitempty"`

	// install_with
	AdditionalPackages []string `json:"additional_packages,omitempty"`

	// warn
	Message       string `json:"message,omitempty"`
	AllowContinue *bool  `json:"allow_continue,omitempty"`
}

// Directive type tags.
const (
	DirectiveSkip            = "skip"
	DirectiveForceVersion    = "force_version"
	DirectiveReplace         = "replace"
	DirectivePinDependencies = "pin_dependencies"
	DirectiveInstallWith     = "install_with"
	DirectiveWarn            = "warn"
)

// On-failure policies for pin_dependencies.
const (
	OnFailureFail            = "fail"
	OnFailureRetryWithoutPin = "retry_without_pin"
)

// PackageRule is the full set of directives the policy document attaches
// to one package name.
type PackageRule struct {
	Uninstall       []Directive `json:"uninstall,omitempty"`
	ApplyFirstMatch []Directive `json:"apply_first_match,omitempty"`
	ApplyAllMatches []Directive `json:"apply_all_matches,omitempty"`
	Restore         []Directive `json:"restore,omitempty"`
}

// PolicyDocument maps package name to its rule. Keys are matched
// case-sensitively against incoming package names (spec.md invariant 5).
type PolicyDocument map[string]PackageRule

// InstallOutcome holds the detail of composing and running one install
// call: skip state, main target, pin and extra additions, index URL,
// final argv, and whether the pin-free retry ran. PipBatch does not
// build or return it; Install reports only (bool, error).
type InstallOutcome struct {
	Skipped       bool
	SkipReason    string
	MainTarget    string
	PinAdditions  []string
	ExtraAdds     []string
	ExtraIndexURL string
	FinalArgv     []string
	Succeeded     bool
	RetriedNoPin  bool
}
