package hostdir

import (
	"io"
	"os"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// file is the host-backed FileBackend. Offsets are absolute; the
// underlying descriptor's seek position is never relied on.
type file struct {
	f    *os.File
	path string
}

func newFile(f *os.File, path string) *file {
	return &file{f: f, path: path}
}

func (f *file) Read(offset uint64, p []byte) (int, error) {
	n, err := f.f.ReadAt(p, int64(offset))
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		return n, fserr.Wrap(err, fserr.CodeBackendFailure, "Read", f.path)
	}
	return n, nil
}

func (f *file) Write(offset uint64, p []byte, flush bool) (int, error) {
	n, err := f.f.WriteAt(p, int64(offset))
	if err != nil {
		return n, fserr.Wrap(err, fserr.CodeBackendFailure, "Write", f.path)
	}
	if flush {
		if err := f.f.Sync(); err != nil {
			return n, fserr.Wrap(err, fserr.CodeBackendFailure, "Write", f.path)
		}
	}
	return n, nil
}

func (f *file) Size() uint64 {
	st, err := f.f.Stat()
	if err != nil {
		return 0
	}
	return uint64(st.Size())
}

func (f *file) SetSize(size uint64) error {
	return fserr.Wrap(f.f.Truncate(int64(size)), fserr.CodeBackendFailure, "SetSize", f.path)
}

func (f *file) Flush() error {
	return fserr.Wrap(f.f.Sync(), fserr.CodeBackendFailure, "Flush", f.path)
}

func (f *file) Close() error {
	return fserr.Wrap(f.f.Close(), fserr.CodeBackendFailure, "Close", f.path)
}

var _ types.FileBackend = (*file)(nil)
