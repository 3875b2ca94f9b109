package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PreciousTrainer/citra/pkg/types"
)

// memDir serves a fixed entry list in chunks, like a real backend
// enumeration snapshot.
type memDir struct {
	entries []types.Entry
	cursor  int
	closes  int
}

func (m *memDir) Read(max int) ([]types.Entry, error) {
	if m.cursor >= len(m.entries) || max <= 0 {
		return nil, nil
	}
	end := m.cursor + max
	if end > len(m.entries) {
		end = len(m.entries)
	}
	out := m.entries[m.cursor:end]
	m.cursor = end
	return out, nil
}

func (m *memDir) Close() error { m.closes++; return nil }

func sampleEntries() []types.Entry {
	return []types.Entry{
		{Name: "boot.firm", Size: 0x40000},
		{Name: "saves", IsDirectory: true},
		{Name: ".hidden", IsHidden: true, Size: 12},
		{Name: "readme.txt", IsReadOnly: true, Size: 5},
		{Name: "old.bak", IsArchive: true, Size: 1},
	}
}

func TestDirectoryReadAllInChunks(t *testing.T) {
	ctx := context.Background()
	want := sampleEntries()
	d := NewDirectory(&memDir{entries: want}, types.CharPath("/"))

	var got []types.Entry
	for {
		resp := d.Dispatch(ctx, Request{Command: uint32(DirRead), Params: []uint32{2}})
		require.True(t, resp.Ok())
		count := int(resp.Values[0])
		if count == 0 {
			break
		}
		entries, err := DecodeEntries(resp.Buffer, count)
		require.NoError(t, err)
		assert.LessOrEqual(t, count, 2)
		got = append(got, entries...)
	}
	assert.Equal(t, want, got)
}

func TestDirectoryReadExhaustedReturnsZero(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(&memDir{}, types.CharPath("/empty"))

	resp := d.Dispatch(ctx, Request{Command: uint32(DirRead), Params: []uint32{16}})
	require.True(t, resp.Ok())
	assert.Equal(t, uint32(0), resp.Values[0])
	assert.Empty(t, resp.Buffer)
}

func TestDirectoryClose(t *testing.T) {
	ctx := context.Background()
	backend := &memDir{entries: sampleEntries()}
	d := NewDirectory(backend, types.CharPath("/"))

	hookFired := 0
	d.SetCloseHook(func() { hookFired++ })

	resp := d.Dispatch(ctx, Request{Command: uint32(DirClose)})
	require.True(t, resp.Ok())
	assert.Equal(t, 1, backend.closes)
	assert.Equal(t, 1, hookFired)

	resp = d.Dispatch(ctx, Request{Command: uint32(DirRead), Params: []uint32{1}})
	assert.Equal(t, ResultInvalidHandle, resp.Result)
	assert.Equal(t, 1, backend.closes)
}

func TestDirectoryUnimplementedCommand(t *testing.T) {
	d := NewDirectory(&memDir{}, types.CharPath("/"))
	resp := d.Dispatch(context.Background(), Request{Command: uint32(DirControl)})
	assert.Equal(t, ResultUnimplemented, resp.Result)
}

func TestDirectoryReadParamValidation(t *testing.T) {
	d := NewDirectory(&memDir{}, types.CharPath("/"))
	resp := d.Dispatch(context.Background(), Request{Command: uint32(DirRead)})
	assert.Equal(t, ResultInvalidArgument, resp.Result)
}
