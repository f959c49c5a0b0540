package batch

import (
	"context"

	"github.com/comfy-org/cnpip/internal/snapshot"
)

// snapshotProviderAdapter adapts *snapshot.Provider's concrete Snapshot
// return type to the SnapshotView interface this package depends on, so
// batch stays decoupled from snapshot's concrete type while still being
// constructible from it directly.
type snapshotProviderAdapter struct {
	provider *snapshot.Provider
}

// NewSnapshotProvider wraps an *snapshot.Provider as a SnapshotProvider.
func NewSnapshotProvider(provider *snapshot.Provider) SnapshotProvider {
	return snapshotProviderAdapter{provider: provider}
}

func (a snapshotProviderAdapter) Get(ctx context.Context) SnapshotView {
	snap := a.provider.Get(ctx)
	return snap
}

func (a snapshotProviderAdapter) Invalidate() {
	a.provider.Invalidate()
}

func (a snapshotProviderAdapter) Put(name, version string) {
	a.provider.Put(name, version)
}

func (a snapshotProviderAdapter) Remove(name string) {
	a.provider.Remove(name)
}
