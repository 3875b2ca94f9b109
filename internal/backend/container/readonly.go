package container

import (
	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// BytesFile is a read-only FileBackend over an in-memory blob. The
// image-backed families (container images, self-referential images)
// serve their file contents through it.
type BytesFile struct {
	name string
	data []byte
}

// NewBytesFile wraps data in a read-only file backend.
func NewBytesFile(name string, data []byte) *BytesFile {
	return &BytesFile{name: name, data: data}
}

func (f *BytesFile) Read(offset uint64, p []byte) (int, error) {
	if offset >= uint64(len(f.data)) {
		return 0, nil
	}
	return copy(p, f.data[offset:]), nil
}

func (f *BytesFile) Write(offset uint64, p []byte, flush bool) (int, error) {
	return 0, fserr.Newf(fserr.CodeWriteProtected, "%s is read-only", f.name)
}

func (f *BytesFile) Size() uint64 { return uint64(len(f.data)) }

func (f *BytesFile) SetSize(size uint64) error {
	return fserr.Newf(fserr.CodeWriteProtected, "%s is read-only", f.name)
}

func (f *BytesFile) Flush() error { return nil }
func (f *BytesFile) Close() error { return nil }

// StaticDirectory enumerates a fixed entry list with a one-way cursor.
type StaticDirectory struct {
	entries []types.Entry
	cursor  int
}

// NewStaticDirectory builds a directory backend over a snapshot.
func NewStaticDirectory(entries []types.Entry) *StaticDirectory {
	return &StaticDirectory{entries: entries}
}

func (d *StaticDirectory) Read(max int) ([]types.Entry, error) {
	if max <= 0 || d.cursor >= len(d.entries) {
		return nil, nil
	}
	end := d.cursor + max
	if end > len(d.entries) {
		end = len(d.entries)
	}
	batch := d.entries[d.cursor:end]
	d.cursor = end
	return batch, nil
}

func (d *StaticDirectory) Close() error {
	d.cursor = len(d.entries)
	return nil
}

var (
	_ types.FileBackend      = (*BytesFile)(nil)
	_ types.DirectoryBackend = (*StaticDirectory)(nil)
)
