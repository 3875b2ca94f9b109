package selfimage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

func testTitle() Title {
	return Title{
		ProgramID: 0x0004000000055D00,
		RomFS: map[string][]byte{
			"boot.bin":       {0xDE, 0xAD},
			"assets/tex.bin": {1, 2, 3, 4, 5},
		},
		ExeFS: map[string][]byte{
			"icon": {9, 9},
		},
	}
}

func TestOpenBeforeRegister(t *testing.T) {
	f := NewFactory()
	_, err := f.Open(context.Background(), types.EmptyPath())
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFound))
}

func TestSectionLayout(t *testing.T) {
	ctx := context.Background()
	f := NewFactory()
	require.NoError(t, f.Register(testTitle()))

	b, err := f.Open(ctx, types.EmptyPath())
	require.NoError(t, err)
	defer b.Close()

	d, err := b.OpenDirectory(ctx, types.EmptyPath())
	require.NoError(t, err)
	entries, err := d.Read(16)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "exefs", entries[0].Name)
	assert.True(t, entries[0].IsDirectory)
	assert.Equal(t, "romfs", entries[1].Name)
	assert.True(t, entries[1].IsDirectory)
}

func TestReadFile(t *testing.T) {
	ctx := context.Background()
	f := NewFactory()
	require.NoError(t, f.Register(testTitle()))

	b, err := f.Open(ctx, types.EmptyPath())
	require.NoError(t, err)
	defer b.Close()

	fb, err := b.OpenFile(ctx, types.CharPath("/romfs/assets/tex.bin"), types.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), fb.Size())

	buf := make([]byte, 5)
	n, err := fb.Read(0, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, buf[:n])
	require.NoError(t, fb.Close())

	_, err = b.OpenFile(ctx, types.CharPath("/romfs/missing.bin"), types.ModeRead)
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFound))
}

func TestDirectoryListing(t *testing.T) {
	ctx := context.Background()
	f := NewFactory()
	require.NoError(t, f.Register(testTitle()))

	b, err := f.Open(ctx, types.EmptyPath())
	require.NoError(t, err)
	defer b.Close()

	d, err := b.OpenDirectory(ctx, types.CharPath("/romfs"))
	require.NoError(t, err)
	entries, err := d.Read(16)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "assets", entries[0].Name)
	assert.True(t, entries[0].IsDirectory)
	assert.Equal(t, "boot.bin", entries[1].Name)
	assert.False(t, entries[1].IsDirectory)
	assert.True(t, entries[1].IsReadOnly)
	assert.Equal(t, uint64(2), entries[1].Size)

	_, err = b.OpenDirectory(ctx, types.CharPath("/nope"))
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFound))
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	f := NewFactory()
	require.NoError(t, f.Register(testTitle()))

	b, err := f.Open(ctx, types.EmptyPath())
	require.NoError(t, err)
	defer b.Close()

	_, err = b.OpenFile(ctx, types.CharPath("/romfs/boot.bin"), types.ModeWrite)
	assert.True(t, fserr.IsCode(err, fserr.CodeWriteProtected))
	assert.True(t, fserr.IsCode(b.CreateFile(ctx, types.CharPath("/x"), 1), fserr.CodeWriteProtected))
	assert.True(t, fserr.IsCode(b.DeleteDirectory(ctx, types.CharPath("/romfs")), fserr.CodeWriteProtected))

	err = f.Format(ctx, types.EmptyPath(), types.FormatInfo{})
	assert.True(t, fserr.IsCode(err, fserr.CodeWriteProtected))
	_, err = f.FormatInfo(ctx, types.EmptyPath())
	assert.True(t, fserr.IsCode(err, fserr.CodeUnimplemented))
}

func TestRegisterReplacesTree(t *testing.T) {
	ctx := context.Background()
	f := NewFactory()
	require.NoError(t, f.Register(testTitle()))

	require.NoError(t, f.Register(Title{
		ProgramID: 0x000400000011C400,
		RomFS:     map[string][]byte{"other.dat": {7}},
	}))

	b, err := f.Open(ctx, types.EmptyPath())
	require.NoError(t, err)
	defer b.Close()

	_, err = b.OpenFile(ctx, types.CharPath("/romfs/boot.bin"), types.ModeRead)
	assert.True(t, fserr.IsCode(err, fserr.CodeNotFound))
	fb, err := b.OpenFile(ctx, types.CharPath("/romfs/other.dat"), types.ModeRead)
	require.NoError(t, err)
	require.NoError(t, fb.Close())
}

// A backend opened before a re-registration keeps serving the tree it
// was opened against.
func TestOpenedBackendKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := NewFactory()
	require.NoError(t, f.Register(testTitle()))

	b, err := f.Open(ctx, types.EmptyPath())
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, f.Register(Title{ProgramID: 1}))

	fb, err := b.OpenFile(ctx, types.CharPath("/exefs/icon"), types.ModeRead)
	require.NoError(t, err)
	require.NoError(t, fb.Close())
}
