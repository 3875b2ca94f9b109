package extdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

func newTestFactory(t *testing.T, shared bool) (*Factory, string) {
	t.Helper()
	root := t.TempDir()
	f := NewFactory(root, shared)
	require.NoError(t, f.Initialize())
	return f, root
}

func TestFactoryNames(t *testing.T) {
	sd, _ := newTestFactory(t, false)
	assert.Equal(t, "ExtSaveData", sd.Name())
	nand, _ := newTestFactory(t, true)
	assert.Equal(t, "SharedExtSaveData", nand.Name())
}

func TestFormatAndOpen(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, false)
	p := types.ExtDataPath(types.MediaSD, 0x48000, 0xE0000001)

	_, err := f.Open(ctx, p)
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFormatted))

	info := types.FormatInfo{DirectoryCount: 4, FileCount: 12}
	require.NoError(t, f.Format(ctx, p, info))

	got, err := f.FormatInfo(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	backend, err := f.Open(ctx, p)
	require.NoError(t, err)
	require.NoError(t, backend.CreateFile(ctx, types.CharPath("/blob.bin"), 8))
	require.NoError(t, backend.Close())
}

func TestUserTreeIsolation(t *testing.T) {
	ctx := context.Background()
	f, root := newTestFactory(t, false)
	p := types.ExtDataPath(types.MediaSD, 0x48000, 0x100)
	require.NoError(t, f.Format(ctx, p, types.FormatInfo{}))

	backend, err := f.Open(ctx, p)
	require.NoError(t, err)
	require.NoError(t, backend.CreateFile(ctx, types.CharPath("/f.bin"), 1))

	// Guest writes land under the container's user tree, not next to
	// the metadata.
	_, err = os.Stat(filepath.Join(root, "extdata", "00048000", "00000100", "user", "f.bin"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "extdata", "00048000", "00000100", "boss"))
	assert.NoError(t, err, "format creates the boss tree alongside user")
}

func TestWriteIcon(t *testing.T) {
	ctx := context.Background()
	f, root := newTestFactory(t, false)
	p := types.ExtDataPath(types.MediaSD, 0x48000, 0x200)

	// The container must exist before an icon can be stored.
	err := f.WriteIcon(ctx, p, []byte{1, 2, 3})
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFormatted))

	require.NoError(t, f.Format(ctx, p, types.FormatInfo{}))
	require.NoError(t, f.WriteIcon(ctx, p, []byte{1, 2, 3}))

	data, err := os.ReadFile(filepath.Join(root, "extdata", "00048000", "00000200", "icon"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestDeleteContainer(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, false)
	p := types.ExtDataPath(types.MediaSD, 1, 2)

	// Absent containers count as already deleted.
	assert.NoError(t, f.DeleteContainer(ctx, p))

	require.NoError(t, f.Format(ctx, p, types.FormatInfo{}))
	require.NoError(t, f.DeleteContainer(ctx, p))
	_, err := f.Open(ctx, p)
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFormatted))
}

func TestMalformedPaths(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, false)

	for _, p := range []types.Path{
		types.EmptyPath(),
		types.CharPath("/ext"),
		types.SystemSaveDataPath(1, 2), // 8 bytes, not 12
	} {
		_, err := f.Open(ctx, p)
		assert.True(t, fserr.IsCode(err, fserr.CodeInvalidArgument), "path %s", p)
	}
}

func TestFormatWipesPriorContents(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, true)
	p := types.ExtDataPath(types.MediaNAND, 0x48000, 0xF000000B)

	require.NoError(t, f.Format(ctx, p, types.FormatInfo{}))
	backend, err := f.Open(ctx, p)
	require.NoError(t, err)
	require.NoError(t, backend.CreateFile(ctx, types.CharPath("/stale"), 1))

	require.NoError(t, f.Format(ctx, p, types.FormatInfo{}))
	backend, err = f.Open(ctx, p)
	require.NoError(t, err)
	_, err = backend.OpenFile(ctx, types.CharPath("/stale"), types.ModeRead)
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFound))
}
