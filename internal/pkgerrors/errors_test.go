package pkgerrors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError_MessageIncludesKindAndPackage(t *testing.T) {
	err := Install("numpy", errors.New("exit status 1"))
	assert.Contains(t, err.Error(), "install")
	assert.Contains(t, err.Error(), "numpy")
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestIs_MatchesWrappedKind(t *testing.T) {
	err := Config("", errors.New("file not found"))
	var wrapped error = errors.Wrap(err, "loading base policy")

	assert.True(t, Is(wrapped, KindConfig))
	assert.False(t, Is(wrapped, KindInstall))
}

func TestIs_FalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), KindConfig))
}

func TestUnwrap_ReachesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Evaluation("numba", cause)
	assert.Equal(t, cause, err.Unwrap())
}
