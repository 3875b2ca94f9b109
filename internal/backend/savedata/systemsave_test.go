package savedata

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

func TestSystemSaveDataCreateOpenDelete(t *testing.T) {
	ctx := context.Background()
	f := NewSystemFactory(t.TempDir())
	p := types.SystemSaveDataPath(0x20000, 0x85)

	assert.Equal(t, "SystemSaveData", f.Name())

	// Open requires an existing container.
	_, err := f.Open(ctx, p)
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFound))

	require.NoError(t, f.CreateContainer(ctx, p))
	backend, err := f.Open(ctx, p)
	require.NoError(t, err)
	require.NoError(t, backend.CreateFile(ctx, types.CharPath("/config.bin"), 16))
	require.NoError(t, backend.Close())

	require.NoError(t, f.DeleteContainer(ctx, p))
	_, err = f.Open(ctx, p)
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFound))

	// Deleting an absent container is an error for this family.
	err = f.DeleteContainer(ctx, p)
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFound))
}

func TestSystemSaveDataFormat(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	f := NewSystemFactory(root)
	p := types.SystemSaveDataPath(0x20000, 0x11)

	require.NoError(t, f.Format(ctx, p, types.FormatInfo{}))
	backend, err := f.Open(ctx, p)
	require.NoError(t, err)
	require.NoError(t, backend.CreateFile(ctx, types.CharPath("/old.bin"), 1))
	require.NoError(t, backend.Close())

	// Formatting again starts over.
	require.NoError(t, f.Format(ctx, p, types.FormatInfo{}))
	backend, err = f.Open(ctx, p)
	require.NoError(t, err)
	_, err = backend.OpenFile(ctx, types.CharPath("/old.bin"), types.ModeRead)
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFound))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "all containers share the configured root")
}

func TestSystemSaveDataRejectsMalformedPaths(t *testing.T) {
	ctx := context.Background()
	f := NewSystemFactory(t.TempDir())

	for _, p := range []types.Path{
		types.EmptyPath(),
		types.CharPath("/x"),
		types.BinaryPath([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}),
	} {
		_, err := f.Open(ctx, p)
		assert.True(t, fserr.IsCode(err, fserr.CodeInvalidArgument), "path %s", p)
	}
}
