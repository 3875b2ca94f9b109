package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// stubFactory is a registry-only factory; its operations are never
// reached by these tests.
type stubFactory struct {
	name string
}

func (f *stubFactory) Name() string { return f.name }
func (f *stubFactory) Open(ctx context.Context, p types.Path) (types.ArchiveBackend, error) {
	return nil, fserr.New(fserr.CodeUnimplemented, f.name)
}
func (f *stubFactory) Format(ctx context.Context, p types.Path, info types.FormatInfo) error {
	return fserr.New(fserr.CodeUnimplemented, f.name)
}
func (f *stubFactory) FormatInfo(ctx context.Context, p types.Path) (types.FormatInfo, error) {
	return types.FormatInfo{}, fserr.New(fserr.CodeUnimplemented, f.name)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	f := &stubFactory{name: "SDMC"}
	require.NoError(t, reg.Register(types.ArchiveSDMC, f))

	got, ok := reg.Lookup(types.ArchiveSDMC)
	require.True(t, ok)
	assert.Same(t, f, got.(*stubFactory))

	_, ok = reg.Lookup(types.ArchiveSaveData)
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(types.ArchiveSDMC, &stubFactory{name: "first"}))

	err := reg.Register(types.ArchiveSDMC, &stubFactory{name: "second"})
	require.Error(t, err)

	// The original registration stays in place.
	got, ok := reg.Lookup(types.ArchiveSDMC)
	require.True(t, ok)
	assert.Equal(t, "first", got.Name())
}

func TestRegistryMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(types.ArchiveSDMC, &stubFactory{name: "SDMC"})
	assert.Panics(t, func() {
		reg.MustRegister(types.ArchiveSDMC, &stubFactory{name: "SDMC"})
	})
}

func TestRegistryIDsSorted(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(types.ArchiveNCCH, &stubFactory{name: "NCCH"}))
	require.NoError(t, reg.Register(types.ArchiveSelfNCCH, &stubFactory{name: "SelfNCCH"}))
	require.NoError(t, reg.Register(types.ArchiveSDMC, &stubFactory{name: "SDMC"}))

	assert.Equal(t, []types.ArchiveID{
		types.ArchiveSelfNCCH,
		types.ArchiveSDMC,
		types.ArchiveNCCH,
	}, reg.IDs())
}

func TestRegistryReset(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(types.ArchiveSDMC, &stubFactory{name: "SDMC"}))
	reg.Reset()

	_, ok := reg.Lookup(types.ArchiveSDMC)
	assert.False(t, ok)
	assert.Empty(t, reg.IDs())

	// Re-registration after reset is allowed.
	assert.NoError(t, reg.Register(types.ArchiveSDMC, &stubFactory{name: "SDMC"}))
}
