package hostdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// Factory produces host-directory archives over a fixed mount point.
// Every Open yields an independent Backend; the archive path is ignored
// by this family (the mount point is configuration, not guest input).
type Factory struct {
	name   string
	root   string
	logger *slog.Logger
}

// NewFactory creates a factory serving the tree rooted at root.
// Initialize must succeed before the factory is registered.
func NewFactory(name, root string) *Factory {
	return &Factory{
		name:   name,
		root:   root,
		logger: slog.Default().With("component", "hostdir-factory", "name", name),
	}
}

// Initialize makes sure the mount point exists and is usable.
func (f *Factory) Initialize() error {
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return fmt.Errorf("creating mount point %s: %w", f.root, err)
	}
	f.logger.Debug("mount point ready", "root", f.root)
	return nil
}

func (f *Factory) Name() string { return f.name }

// Root exposes the host mount point for composition by the container
// factories.
func (f *Factory) Root() string { return f.root }

// Open produces a backend over the mount point.
func (f *Factory) Open(ctx context.Context, path types.Path) (types.ArchiveBackend, error) {
	return NewBackend(f.name, f.root), nil
}

// Format is not meaningful for media-backed archives.
func (f *Factory) Format(ctx context.Context, path types.Path, info types.FormatInfo) error {
	return fserr.Newf(fserr.CodeUnimplemented, "%s cannot be formatted", f.name)
}

// FormatInfo is not meaningful for media-backed archives.
func (f *Factory) FormatInfo(ctx context.Context, path types.Path) (types.FormatInfo, error) {
	return types.FormatInfo{}, fserr.Newf(fserr.CodeUnimplemented, "%s has no format info", f.name)
}

// Backend is one opened host-directory archive.
type Backend struct {
	name string
	root string
}

// NewBackend builds a backend over an existing host directory. The
// container backends reuse this directly for their trees.
func NewBackend(name, root string) *Backend {
	return &Backend{name: name, root: root}
}

func (b *Backend) Name() string { return b.name }

// mapError translates host filesystem failures into the service's error
// taxonomy; anything unrecognized is surfaced as a backend failure.
func mapError(err error, op, path string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return &fserr.Error{Code: fserr.CodeNotFound, Op: op, Path: path, Cause: err}
	case errors.Is(err, fs.ErrExist):
		return &fserr.Error{Code: fserr.CodeAlreadyExists, Op: op, Path: path, Cause: err}
	case errors.Is(err, fs.ErrPermission):
		return &fserr.Error{Code: fserr.CodeWriteProtected, Op: op, Path: path, Cause: err}
	default:
		return fserr.WithOp(err, op, path)
	}
}

func (b *Backend) OpenFile(ctx context.Context, p types.Path, mode types.Mode) (types.FileBackend, error) {
	hp, err := hostPath(b.root, p)
	if err != nil {
		return nil, err
	}
	if !mode.CanRead() && !mode.CanWrite() {
		return nil, fserr.Newf(fserr.CodeInvalidArgument, "open %s with neither read nor write", p)
	}

	if st, err := os.Stat(hp); err == nil && st.IsDir() {
		return nil, fserr.Newf(fserr.CodeNotAFile, "%s is a directory", p)
	}

	flags := 0
	switch {
	case mode.CanRead() && mode.CanWrite():
		flags = os.O_RDWR
	case mode.CanWrite():
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}
	if mode.Creates() {
		flags |= os.O_CREATE
	}

	fh, err := os.OpenFile(hp, flags, 0o644)
	if err != nil {
		return nil, mapError(err, "OpenFile", p.String())
	}
	return newFile(fh, p.String()), nil
}

func (b *Backend) CreateFile(ctx context.Context, p types.Path, size uint64) error {
	hp, err := hostPath(b.root, p)
	if err != nil {
		return err
	}
	fh, err := os.OpenFile(hp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return mapError(err, "CreateFile", p.String())
	}
	defer fh.Close()
	if size > 0 {
		if err := fh.Truncate(int64(size)); err != nil {
			return mapError(err, "CreateFile", p.String())
		}
	}
	return nil
}

func (b *Backend) DeleteFile(ctx context.Context, p types.Path) error {
	hp, err := hostPath(b.root, p)
	if err != nil {
		return err
	}
	st, err := os.Stat(hp)
	if err != nil {
		return mapError(err, "DeleteFile", p.String())
	}
	if st.IsDir() {
		return fserr.Newf(fserr.CodeNotAFile, "%s is a directory", p)
	}
	return mapError(os.Remove(hp), "DeleteFile", p.String())
}

func (b *Backend) RenameFile(ctx context.Context, src, dst types.Path) error {
	return b.renameEntry(src, dst, false, "RenameFile")
}

func (b *Backend) OpenDirectory(ctx context.Context, p types.Path) (types.DirectoryBackend, error) {
	hp, err := hostPath(b.root, p)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(hp)
	if err != nil {
		return nil, mapError(err, "OpenDirectory", p.String())
	}
	if !st.IsDir() {
		return nil, fserr.Newf(fserr.CodeNotADirectory, "%s is a file", p)
	}
	ents, err := os.ReadDir(hp)
	if err != nil {
		return nil, mapError(err, "OpenDirectory", p.String())
	}
	return newDirectory(ents), nil
}

func (b *Backend) CreateDirectory(ctx context.Context, p types.Path) error {
	hp, err := hostPath(b.root, p)
	if err != nil {
		return err
	}
	return mapError(os.Mkdir(hp, 0o755), "CreateDirectory", p.String())
}

func (b *Backend) DeleteDirectory(ctx context.Context, p types.Path) error {
	hp, err := hostPath(b.root, p)
	if err != nil {
		return err
	}
	st, err := os.Stat(hp)
	if err != nil {
		return mapError(err, "DeleteDirectory", p.String())
	}
	if !st.IsDir() {
		return fserr.Newf(fserr.CodeNotADirectory, "%s is a file", p)
	}
	ents, err := os.ReadDir(hp)
	if err != nil {
		return mapError(err, "DeleteDirectory", p.String())
	}
	if len(ents) > 0 {
		return fserr.Newf(fserr.CodeDirectoryNotEmpty, "%s", p)
	}
	return mapError(os.Remove(hp), "DeleteDirectory", p.String())
}

func (b *Backend) DeleteDirectoryRecursively(ctx context.Context, p types.Path) error {
	hp, err := hostPath(b.root, p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(hp); err != nil {
		return mapError(err, "DeleteDirectoryRecursively", p.String())
	}
	return mapError(os.RemoveAll(hp), "DeleteDirectoryRecursively", p.String())
}

func (b *Backend) RenameDirectory(ctx context.Context, src, dst types.Path) error {
	return b.renameEntry(src, dst, true, "RenameDirectory")
}

func (b *Backend) renameEntry(src, dst types.Path, wantDir bool, op string) error {
	hsrc, err := hostPath(b.root, src)
	if err != nil {
		return err
	}
	hdst, err := hostPath(b.root, dst)
	if err != nil {
		return err
	}
	st, err := os.Stat(hsrc)
	if err != nil {
		return mapError(err, op, src.String())
	}
	if st.IsDir() != wantDir {
		if wantDir {
			return fserr.Newf(fserr.CodeNotADirectory, "%s is a file", src)
		}
		return fserr.Newf(fserr.CodeNotAFile, "%s is a directory", src)
	}
	if _, err := os.Stat(hdst); err == nil {
		return fserr.Newf(fserr.CodeAlreadyExists, "%s", dst)
	}
	return mapError(os.Rename(hsrc, hdst), op, src.String())
}

func (b *Backend) FreeBytes(ctx context.Context) (uint64, error) {
	_, free, err := diskUsage(b.root)
	if err != nil {
		return 0, fserr.Wrap(err, fserr.CodeBackendFailure, "FreeBytes", b.root)
	}
	return free, nil
}

func (b *Backend) Close() error { return nil }
