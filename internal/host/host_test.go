package host

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOSName_MatchesRuntimeGOOS(t *testing.T) {
	p := NewDefaultProbes()
	assert.Equal(t, runtime.GOOS, p.OSName())
}

func TestHasGPU_FalseWhenProbeBinMissing(t *testing.T) {
	p := &DefaultProbes{gpuProbeBin: "definitely-not-a-real-binary-xyz"}
	assert.False(t, p.HasGPU())
}

func TestAppVersion_UnimplementedProbe(t *testing.T) {
	p := NewDefaultProbes()
	version, ok := p.AppVersion()
	assert.False(t, ok)
	assert.Empty(t, version)
}
