package s3

import (
	"context"
	"sync"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// remoteFile is a file session over one object. Read-only sessions
// issue ranged reads; writable sessions buffer the object in memory
// and upload it on flush or close.
type remoteFile struct {
	mu      sync.Mutex
	backend *Backend
	key     string
	mode    types.Mode

	buf   []byte // writable sessions only
	size  uint64 // read-only sessions: size from HeadObject
	dirty bool
}

func newRemoteFile(b *Backend, key string, data []byte, mode types.Mode) *remoteFile {
	f := &remoteFile{backend: b, key: key, mode: mode}
	if mode.CanWrite() || mode.Creates() {
		f.buf = data
		f.size = uint64(len(data))
	}
	return f
}

func (f *remoteFile) Read(offset uint64, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buf != nil {
		if offset >= uint64(len(f.buf)) {
			return 0, nil
		}
		return copy(p, f.buf[offset:]), nil
	}
	if offset >= f.size || len(p) == 0 {
		return 0, nil
	}
	want := uint64(len(p))
	if offset+want > f.size {
		want = f.size - offset
	}
	data, err := f.backend.get(context.Background(), f.key, int64(offset), int64(want))
	if err != nil {
		return 0, err
	}
	return copy(p, data), nil
}

func (f *remoteFile) Write(offset uint64, p []byte, flush bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mode.CanWrite() {
		return 0, fserr.Newf(fserr.CodeWriteProtected, "%s opened read-only", f.key)
	}
	if end := offset + uint64(len(p)); end > uint64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[offset:], p)
	f.size = uint64(len(f.buf))
	f.dirty = true
	if flush {
		return len(p), f.flushLocked()
	}
	return len(p), nil
}

func (f *remoteFile) Size() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *remoteFile) SetSize(size uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mode.CanWrite() {
		return fserr.Newf(fserr.CodeWriteProtected, "%s opened read-only", f.key)
	}
	resized := make([]byte, size)
	copy(resized, f.buf)
	f.buf = resized
	f.size = size
	f.dirty = true
	return nil
}

func (f *remoteFile) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushLocked()
}

func (f *remoteFile) flushLocked() error {
	if !f.dirty {
		return nil
	}
	if err := f.backend.put(context.Background(), f.key, f.buf); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

func (f *remoteFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushLocked()
}

// remoteDirectory iterates a listing snapshot taken at open time.
type remoteDirectory struct {
	mu      sync.Mutex
	entries []types.Entry
	cursor  int
}

func newRemoteDirectory(entries []types.Entry) *remoteDirectory {
	return &remoteDirectory{entries: entries}
}

func (d *remoteDirectory) Read(max int) ([]types.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cursor >= len(d.entries) || max <= 0 {
		return nil, nil
	}
	end := d.cursor + max
	if end > len(d.entries) {
		end = len(d.entries)
	}
	out := d.entries[d.cursor:end]
	d.cursor = end
	return out, nil
}

func (d *remoteDirectory) Close() error { return nil }

var (
	_ types.FileBackend      = (*remoteFile)(nil)
	_ types.DirectoryBackend = (*remoteDirectory)(nil)
)
