package snapshot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestParse_SkipsEditableAndCommentLines(t *testing.T) {
	raw := "numpy==1.26.0\n# a comment\n-e git+https://example.com/foo.git#egg=foo\npandas==2.1.0\n\n"
	snap := Parse(raw, testLogger())

	assert.Equal(t, 2, snap.Count())
	v, ok := snap.Lookup("numpy")
	require.True(t, ok)
	assert.Equal(t, "1.26.0", v)
}

func TestParse_SkipsMalformedLines(t *testing.T) {
	raw := "numpy==1.26.0\nsome-garbage-without-operator\n"
	snap := Parse(raw, testLogger())
	assert.Equal(t, 1, snap.Count())
	assert.False(t, snap.Has("some-garbage-without-operator"))
}

func TestParse_NormalizesNames(t *testing.T) {
	snap := Parse("Scikit_Learn==1.3.0\n", testLogger())
	v, ok := snap.Lookup("scikit-learn")
	require.True(t, ok)
	assert.Equal(t, "1.3.0", v)
}

type fakeFreezer struct {
	out []byte
	err error
}

func (f fakeFreezer) Freeze(ctx context.Context) ([]byte, error) {
	return f.out, f.err
}

func TestProvider_CachesUntilInvalidated(t *testing.T) {
	freezer := &fakeFreezer{out: []byte("numpy==1.26.0\n")}
	p := NewProvider(freezer, testLogger())

	snap := p.Get(context.Background())
	assert.True(t, snap.Has("numpy"))

	freezer.out = []byte("numpy==1.26.0\npandas==2.1.0\n")
	snap2 := p.Get(context.Background())
	assert.Equal(t, 1, snap2.Count())

	p.Invalidate()
	snap3 := p.Get(context.Background())
	assert.Equal(t, 2, snap3.Count())
}

func TestProvider_FreezeErrorDegradesToEmpty(t *testing.T) {
	p := NewProvider(fakeFreezer{err: errors.New("boom")}, testLogger())
	snap := p.Get(context.Background())
	assert.Equal(t, 0, snap.Count())
}

func TestProvider_PutAndRemoveUpdateCacheWithoutRebuild(t *testing.T) {
	freezer := &fakeFreezer{out: []byte("numpy==1.26.0\n")}
	p := NewProvider(freezer, testLogger())
	_ = p.Get(context.Background())

	p.Put("pandas", "2.1.0")
	snap := p.Get(context.Background())
	v, ok := snap.Lookup("pandas")
	require.True(t, ok)
	assert.Equal(t, "2.1.0", v)

	p.Remove("numpy")
	snap2 := p.Get(context.Background())
	assert.False(t, snap2.Has("numpy"))
}

func TestProvider_PutBeforeFirstGetIsNoop(t *testing.T) {
	p := NewProvider(fakeFreezer{out: []byte("")}, testLogger())
	p.Put("numpy", "1.0.0")
	snap := p.Get(context.Background())
	assert.Equal(t, 0, snap.Count())
}
