// Package host implements the capability probes the condition evaluator
// consults for "platform" conditions: OS name, GPU presence, and host
// application version (spec.md §4.4, §9 Open Question 1).
package host

import (
	"os/exec"
	"runtime"
)

// DefaultProbes is the production Probes implementation used by cmd/cnpip.
type DefaultProbes struct {
	// gpuProbeBin is the binary checked for GPU presence, overridable in
	// tests. Production code leaves this at its zero value and GPUProbeBin
	// is used.
	gpuProbeBin string
}

// GPUProbeBin is the binary whose presence and successful invocation is
// taken as evidence of an available NVIDIA GPU.
const GPUProbeBin = "nvidia-smi"

// NewDefaultProbes creates a Probes backed by the real host environment.
func NewDefaultProbes() *DefaultProbes {
	return &DefaultProbes{gpuProbeBin: GPUProbeBin}
}

// OSName returns the GOOS value cnpip was built for, matching the values
// policy authors write into condition.os (spec.md §3.1: "linux", "darwin",
// "windows").
func (p *DefaultProbes) OSName() string {
	return runtime.GOOS
}

// HasGPU reports whether an NVIDIA GPU appears usable, by shelling out to
// nvidia-smi and treating a zero exit code as presence. Any failure to locate or run the binary is treated as "no
// GPU" rather than propagated: absence of a probe tool is not an error
// condition for policy evaluation.
func (p *DefaultProbes) HasGPU() bool {
	bin := p.gpuProbeBin
	if bin == "" {
		bin = GPUProbeBin
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return false
	}
	return exec.Command(path, "-L").Run() == nil
}

// AppVersion reports the hosting application's own version. cnpip has no
// embedding application to query in this form factor, so this is the
// unimplemented probe from spec.md §9 Open Question 1: it always reports
// not-ok, and host_app_version conditions evaluate to false rather than
// guessing a version.
func (p *DefaultProbes) AppVersion() (string, bool) {
	return "", false
}
