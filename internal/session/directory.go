package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/PreciousTrainer/citra/pkg/types"
)

// Directory is a directory session bound to one backend directory
// object. The enumeration cursor lives in the backend; the session never
// re-fetches or reorders entries.
type Directory struct {
	mu      sync.Mutex
	logger  *slog.Logger
	backend types.DirectoryBackend
	path    types.Path
	closed  bool
	onClose func()
}

// NewDirectory binds a session to an opened backend directory.
func NewDirectory(backend types.DirectoryBackend, path types.Path) *Directory {
	return &Directory{
		logger:  slog.Default().With("component", "directory-session", "path", path.String()),
		backend: backend,
		path:    path,
	}
}

// Path returns the logical path the session was opened with.
func (d *Directory) Path() types.Path { return d.path }

// SetCloseHook installs a callback invoked once when the session
// processes its Close command.
func (d *Directory) SetCloseHook(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onClose = fn
}

// Dispatch answers one protocol command. Unknown commands report
// Unimplemented and leave session state unchanged.
func (d *Directory) Dispatch(ctx context.Context, req Request) Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmd := DirectoryCommand(req.Command)
	if d.closed {
		return Response{Result: ResultInvalidHandle}
	}

	switch cmd {
	case DirRead:
		return d.read(req)
	case DirClose:
		return d.close(req)
	default:
		clog.FromContext(ctx).Warnf("unimplemented directory command 0x%08X (%s) on %s",
			req.Command, cmd, d.path)
		return Response{Result: ResultUnimplemented}
	}
}

// read expects (maxCount). The response carries the number of entries
// actually produced, zero once the enumeration is exhausted.
func (d *Directory) read(req Request) Response {
	if len(req.Params) != 1 {
		return Response{Result: ResultInvalidArgument}
	}
	count := req.Params[0]

	entries, err := d.backend.Read(int(count))
	if err != nil {
		return Response{Result: resultOf(err), Values: []uint32{0}}
	}
	buf, err := encodeEntries(entries)
	if err != nil {
		d.logger.Error("encoding directory entries failed", "error", err)
		return Response{Result: ResultBackendFailure, Values: []uint32{0}}
	}
	return Response{Values: []uint32{uint32(len(entries))}, Buffer: buf}
}

func (d *Directory) close(req Request) Response {
	if len(req.Params) != 0 {
		return Response{Result: ResultInvalidArgument}
	}
	err := d.backend.Close()
	d.closed = true
	if d.onClose != nil {
		d.onClose()
		d.onClose = nil
	}
	if err != nil {
		return Response{Result: resultOf(err)}
	}
	return Response{}
}
