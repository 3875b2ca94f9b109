package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/PreciousTrainer/citra/pkg/types"
)

// File is a file session: a protocol object bound to one backend file.
// It owns the backend exclusively. The logical path is retained for
// diagnostics; priority is pure bookkeeping with no backend effect.
//
// A per-session mutex serializes command dispatch, so two endpoints
// produced by OpenLinkFile can issue commands concurrently without
// racing on the shared backend.
type File struct {
	mu       sync.Mutex
	logger   *slog.Logger
	backend  types.FileBackend
	path     types.Path
	priority uint32
	closed   bool
	onClose  func()
}

// NewFile binds a session to an opened backend file.
func NewFile(backend types.FileBackend, path types.Path) *File {
	return &File{
		logger:  slog.Default().With("component", "file-session", "path", path.String()),
		backend: backend,
		path:    path,
	}
}

// Path returns the logical path the session was opened with.
func (f *File) Path() types.Path { return f.path }

// SetCloseHook installs a callback invoked once when the session
// processes its Close command. Used for lifecycle accounting.
func (f *File) SetCloseHook(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClose = fn
}

// Dispatch answers one protocol command. Every command completes the
// exchange with a result word; a failing command leaves the session
// unchanged.
func (f *File) Dispatch(ctx context.Context, req Request) Response {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := FileCommand(req.Command)
	if f.closed {
		return Response{Result: ResultInvalidHandle}
	}

	switch cmd {
	case FileRead:
		return f.read(ctx, req)
	case FileWrite:
		return f.write(ctx, req)
	case FileGetSize:
		return f.getSize(req)
	case FileSetSize:
		return f.setSize(req)
	case FileClose:
		return f.close(req)
	case FileFlush:
		return f.flush(req)
	case FileSetPriority:
		return f.setPriority(req)
	case FileGetPriority:
		return f.getPriority(req)
	case FileOpenLinkFile:
		return f.openLinkFile(ctx, req)
	default:
		clog.FromContext(ctx).Warnf("unimplemented file command 0x%08X (%s) on %s",
			req.Command, cmd, f.path)
		return Response{Result: ResultUnimplemented}
	}
}

// read expects (offset lo, offset hi, length). An out-of-bounds request
// is flagged but still attempted: the backend decides what it returns.
func (f *File) read(ctx context.Context, req Request) Response {
	if len(req.Params) != 3 {
		return Response{Result: ResultInvalidArgument}
	}
	offset := uint64(req.Params[0]) | uint64(req.Params[1])<<32
	length := req.Params[2]

	if end := offset + uint64(length); end < offset || end > f.backend.Size() {
		clog.FromContext(ctx).Errorf("read out of bounds on %s: offset=0x%X length=0x%X size=0x%X",
			f.path, offset, length, f.backend.Size())
	}

	data := make([]byte, length)
	n, err := f.backend.Read(offset, data)
	if err != nil {
		return Response{Result: resultOf(err), Values: []uint32{0}}
	}
	return Response{Values: []uint32{uint32(n)}, Buffer: data[:n]}
}

// write expects (offset lo, offset hi, length, flush flag) plus the data
// buffer.
func (f *File) write(ctx context.Context, req Request) Response {
	if len(req.Params) != 4 {
		return Response{Result: ResultInvalidArgument}
	}
	offset := uint64(req.Params[0]) | uint64(req.Params[1])<<32
	length := req.Params[2]
	flush := req.Params[3] != 0

	if uint64(len(req.Buffer)) < uint64(length) {
		return Response{Result: ResultInvalidArgument}
	}

	n, err := f.backend.Write(offset, req.Buffer[:length], flush)
	if err != nil {
		return Response{Result: resultOf(err), Values: []uint32{0}}
	}
	return Response{Values: []uint32{uint32(n)}}
}

func (f *File) getSize(req Request) Response {
	if len(req.Params) != 0 {
		return Response{Result: ResultInvalidArgument}
	}
	size := f.backend.Size()
	return Response{Values: []uint32{uint32(size), uint32(size >> 32)}}
}

func (f *File) setSize(req Request) Response {
	if len(req.Params) != 2 {
		return Response{Result: ResultInvalidArgument}
	}
	size := uint64(req.Params[0]) | uint64(req.Params[1])<<32
	if err := f.backend.SetSize(size); err != nil {
		return Response{Result: resultOf(err)}
	}
	return Response{}
}

func (f *File) close(req Request) Response {
	if len(req.Params) != 0 {
		return Response{Result: ResultInvalidArgument}
	}
	err := f.backend.Close()
	// The session dies with its backend whether or not the release
	// reported a problem; a second Close must not reach the backend.
	f.closed = true
	if f.onClose != nil {
		f.onClose()
		f.onClose = nil
	}
	if err != nil {
		return Response{Result: resultOf(err)}
	}
	return Response{}
}

func (f *File) flush(req Request) Response {
	if len(req.Params) != 0 {
		return Response{Result: ResultInvalidArgument}
	}
	if err := f.backend.Flush(); err != nil {
		return Response{Result: resultOf(err)}
	}
	return Response{}
}

func (f *File) setPriority(req Request) Response {
	if len(req.Params) != 1 {
		return Response{Result: ResultInvalidArgument}
	}
	f.priority = req.Params[0]
	return Response{}
}

func (f *File) getPriority(req Request) Response {
	if len(req.Params) != 0 {
		return Response{Result: ResultInvalidArgument}
	}
	return Response{Values: []uint32{f.priority}}
}

// openLinkFile hands out a second endpoint bound to this same session.
// Both endpoints observe the same backend state and priority.
func (f *File) openLinkFile(ctx context.Context, req Request) Response {
	if len(req.Params) != 0 {
		return Response{Result: ResultInvalidArgument}
	}
	clog.FromContext(ctx).Infof("OpenLinkFile on %s", f.path)
	return Response{Link: f}
}
