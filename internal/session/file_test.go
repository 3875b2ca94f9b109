package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// memFile is an in-memory FileBackend for exercising the session
// protocol without a host filesystem.
type memFile struct {
	data    []byte
	flushes int
	closes  int
	failAll bool
}

func (m *memFile) Read(offset uint64, p []byte) (int, error) {
	if m.failAll {
		return 0, fserr.New(fserr.CodeBackendFailure, "injected")
	}
	if offset >= uint64(len(m.data)) {
		return 0, nil
	}
	return copy(p, m.data[offset:]), nil
}

func (m *memFile) Write(offset uint64, p []byte, flush bool) (int, error) {
	if m.failAll {
		return 0, fserr.New(fserr.CodeBackendFailure, "injected")
	}
	if end := offset + uint64(len(p)); end > uint64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[offset:], p)
	if flush {
		m.flushes++
	}
	return len(p), nil
}

func (m *memFile) Size() uint64 { return uint64(len(m.data)) }

func (m *memFile) SetSize(size uint64) error {
	resized := make([]byte, size)
	copy(resized, m.data)
	m.data = resized
	return nil
}

func (m *memFile) Flush() error { m.flushes++; return nil }
func (m *memFile) Close() error { m.closes++; return nil }

func newTestFile(data []byte) (*File, *memFile) {
	backend := &memFile{data: data}
	return NewFile(backend, types.CharPath("/test.bin")), backend
}

func TestFileReadWriteRoundtrip(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFile(nil)

	payload := []byte("guest save data")
	resp := f.Dispatch(ctx, Request{
		Command: uint32(FileWrite),
		Params:  []uint32{0, 0, uint32(len(payload)), 1},
		Buffer:  payload,
	})
	require.True(t, resp.Ok())
	assert.Equal(t, uint32(len(payload)), resp.Values[0])

	resp = f.Dispatch(ctx, Request{
		Command: uint32(FileRead),
		Params:  []uint32{0, 0, uint32(len(payload))},
	})
	require.True(t, resp.Ok())
	assert.Equal(t, payload, resp.Buffer)
}

// hugeFile reports a size above 4 GiB without allocating it.
type hugeFile struct{ memFile }

func (hugeFile) Size() uint64 { return 0x1_0000_0010 }

func TestFileGetSize(t *testing.T) {
	f := NewFile(&hugeFile{}, types.CharPath("/big.bin"))
	resp := f.Dispatch(context.Background(), Request{Command: uint32(FileGetSize)})
	require.True(t, resp.Ok())
	require.Len(t, resp.Values, 2)
	size := uint64(resp.Values[0]) | uint64(resp.Values[1])<<32
	assert.Equal(t, uint64(0x1_0000_0010), size)
}

func TestFileSetSize(t *testing.T) {
	f, backend := newTestFile([]byte("abc"))
	resp := f.Dispatch(context.Background(), Request{
		Command: uint32(FileSetSize),
		Params:  []uint32{10, 0},
	})
	require.True(t, resp.Ok())
	assert.Equal(t, uint64(10), backend.Size())
	assert.Equal(t, byte('a'), backend.data[0], "truncation keeps existing content")
}

func TestFileOutOfBoundsReadIsStillAttempted(t *testing.T) {
	f, _ := newTestFile([]byte("short"))
	resp := f.Dispatch(context.Background(), Request{
		Command: uint32(FileRead),
		Params:  []uint32{100, 0, 16},
	})
	require.True(t, resp.Ok(), "out-of-bounds is flagged, not rejected")
	assert.Equal(t, uint32(0), resp.Values[0])
	assert.Empty(t, resp.Buffer)
}

func TestFileWriteBufferShorterThanLength(t *testing.T) {
	f, _ := newTestFile(nil)
	resp := f.Dispatch(context.Background(), Request{
		Command: uint32(FileWrite),
		Params:  []uint32{0, 0, 100, 0},
		Buffer:  []byte("tiny"),
	})
	assert.Equal(t, ResultInvalidArgument, resp.Result)
}

func TestFilePriorityRoundtrip(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFile(nil)

	resp := f.Dispatch(ctx, Request{Command: uint32(FileGetPriority)})
	require.True(t, resp.Ok())
	assert.Equal(t, uint32(0), resp.Values[0])

	resp = f.Dispatch(ctx, Request{Command: uint32(FileSetPriority), Params: []uint32{7}})
	require.True(t, resp.Ok())

	resp = f.Dispatch(ctx, Request{Command: uint32(FileGetPriority)})
	require.True(t, resp.Ok())
	assert.Equal(t, uint32(7), resp.Values[0])
}

func TestFileLinkSharesSession(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFile(nil)

	resp := f.Dispatch(ctx, Request{Command: uint32(FileOpenLinkFile)})
	require.True(t, resp.Ok())
	require.NotNil(t, resp.Link)

	// Priority set through one endpoint is visible through the other.
	resp.Link.Dispatch(ctx, Request{Command: uint32(FileSetPriority), Params: []uint32{42}})
	got := f.Dispatch(ctx, Request{Command: uint32(FileGetPriority)})
	require.True(t, got.Ok())
	assert.Equal(t, uint32(42), got.Values[0])
}

func TestFileCloseReleasesBackendOnce(t *testing.T) {
	ctx := context.Background()
	f, backend := newTestFile(nil)

	hookFired := 0
	f.SetCloseHook(func() { hookFired++ })

	resp := f.Dispatch(ctx, Request{Command: uint32(FileClose)})
	require.True(t, resp.Ok())
	assert.Equal(t, 1, backend.closes)
	assert.Equal(t, 1, hookFired)

	// Commands after close fail without reaching the backend.
	resp = f.Dispatch(ctx, Request{Command: uint32(FileClose)})
	assert.Equal(t, ResultInvalidHandle, resp.Result)
	assert.Equal(t, 1, backend.closes)
	assert.Equal(t, 1, hookFired)

	resp = f.Dispatch(ctx, Request{Command: uint32(FileRead), Params: []uint32{0, 0, 4}})
	assert.Equal(t, ResultInvalidHandle, resp.Result)
}

func TestFileFlush(t *testing.T) {
	f, backend := newTestFile(nil)
	resp := f.Dispatch(context.Background(), Request{Command: uint32(FileFlush)})
	require.True(t, resp.Ok())
	assert.Equal(t, 1, backend.flushes)
}

func TestFileUnimplementedCommands(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFile(nil)

	for _, cmd := range []FileCommand{FileControl, FileOpenSubFile, FileGetAttributes, FileSetAttributes} {
		resp := f.Dispatch(ctx, Request{Command: uint32(cmd)})
		assert.Equal(t, ResultUnimplemented, resp.Result, "command %s", cmd)
	}

	resp := f.Dispatch(ctx, Request{Command: 0xDEADBEEF})
	assert.Equal(t, ResultUnimplemented, resp.Result)
}

func TestFileBackendErrorsMapToResultWords(t *testing.T) {
	ctx := context.Background()
	backend := &memFile{failAll: true}
	f := NewFile(backend, types.CharPath("/broken"))

	resp := f.Dispatch(ctx, Request{Command: uint32(FileRead), Params: []uint32{0, 0, 4}})
	assert.Equal(t, ResultBackendFailure, resp.Result)

	resp = f.Dispatch(ctx, Request{
		Command: uint32(FileWrite),
		Params:  []uint32{0, 0, 1, 0},
		Buffer:  []byte{1},
	})
	assert.Equal(t, ResultBackendFailure, resp.Result)
}

func TestFileParamCountValidation(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFile(nil)

	tests := []struct {
		name string
		req  Request
	}{
		{"read missing params", Request{Command: uint32(FileRead), Params: []uint32{0}}},
		{"write missing params", Request{Command: uint32(FileWrite), Params: []uint32{0, 0}}},
		{"get size extra params", Request{Command: uint32(FileGetSize), Params: []uint32{1}}},
		{"set size missing params", Request{Command: uint32(FileSetSize), Params: []uint32{1}}},
		{"set priority missing params", Request{Command: uint32(FileSetPriority)}},
		{"close extra params", Request{Command: uint32(FileClose), Params: []uint32{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.Dispatch(ctx, tt.req)
			assert.Equal(t, ResultInvalidArgument, resp.Result)
		})
	}
}
