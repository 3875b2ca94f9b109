package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PreciousTrainer/citra/internal/metrics"
	"github.com/PreciousTrainer/citra/internal/session"
	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// Manager is the filesystem context: the factory registry plus the
// table of live archive handles. Mutating operations (open, close,
// handle allocation) are serialized under the write lock; handle
// resolution takes the read lock.
type Manager struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	registry  *Registry
	handles   map[types.ArchiveHandle]types.ArchiveBackend
	allocator handleAllocator
	collector *metrics.Collector
}

// NewManager creates a filesystem context over a populated registry.
// The collector may be nil when metrics are disabled.
func NewManager(registry *Registry, collector *metrics.Collector) *Manager {
	return &Manager{
		logger:    slog.Default().With("component", "archive-manager"),
		registry:  registry,
		handles:   make(map[types.ArchiveHandle]types.ArchiveBackend),
		allocator: newHandleAllocator(),
		collector: collector,
	}
}

// Registry exposes the registry for startup wiring and diagnostics.
func (m *Manager) Registry() *Registry { return m.registry }

// OpenArchive looks up the factory for the id code, opens a backend for
// the given path and stores it under a fresh handle. Backend open
// failures are propagated verbatim.
func (m *Manager) OpenArchive(ctx context.Context, id types.ArchiveID, path types.Path) (types.ArchiveHandle, error) {
	start := time.Now()
	factory, ok := m.registry.Lookup(id)
	if !ok {
		err := fserr.Newf(fserr.CodeArchiveNotFound, "no archive registered for %s", id)
		m.collector.RecordOperation("OpenArchive", time.Since(start), err)
		return types.InvalidHandle, err
	}

	backend, err := factory.Open(ctx, path)
	if err != nil {
		m.collector.RecordOperation("OpenArchive", time.Since(start), err)
		return types.InvalidHandle, err
	}

	m.mu.Lock()
	handle := m.allocator.allocate(m.handles)
	m.handles[handle] = backend
	open := len(m.handles)
	m.mu.Unlock()

	m.logger.Debug("opened archive", "id", id.String(), "path", path.String(), "handle", uint64(handle))
	m.collector.SetOpenArchives(open)
	m.collector.RecordOperation("OpenArchive", time.Since(start), nil)
	return handle, nil
}

// CloseArchive removes and releases a handle-table entry. Closing an
// unknown handle is an error, not a no-op. Sessions opened from the
// archive stay valid; only the archive-level entry is released.
func (m *Manager) CloseArchive(ctx context.Context, handle types.ArchiveHandle) error {
	m.mu.Lock()
	backend, ok := m.handles[handle]
	if ok {
		delete(m.handles, handle)
	}
	open := len(m.handles)
	m.mu.Unlock()

	if !ok {
		err := errInvalidHandle(handle)
		m.collector.RecordOperation("CloseArchive", 0, err)
		return err
	}
	if err := backend.Close(); err != nil {
		m.logger.Warn("archive backend close failed", "handle", uint64(handle), "error", err)
	}
	m.collector.SetOpenArchives(open)
	m.collector.RecordOperation("CloseArchive", 0, nil)
	return nil
}

// resolve maps a handle to its live backend. It never mutates state.
func (m *Manager) resolve(handle types.ArchiveHandle) (types.ArchiveBackend, error) {
	m.mu.RLock()
	backend, ok := m.handles[handle]
	m.mu.RUnlock()
	if !ok {
		return nil, errInvalidHandle(handle)
	}
	return backend, nil
}

func errInvalidHandle(handle types.ArchiveHandle) error {
	return fserr.Newf(fserr.CodeInvalidHandle, "handle %d", uint64(handle))
}

// OpenFile produces a new file session bound to the resolved backend.
// The handle table is only read: the session's lifetime is independent
// of later archive closure.
func (m *Manager) OpenFile(ctx context.Context, handle types.ArchiveHandle, path types.Path, mode types.Mode) (*session.File, error) {
	start := time.Now()
	backend, err := m.resolve(handle)
	if err != nil {
		m.collector.RecordOperation("OpenFile", time.Since(start), err)
		return nil, err
	}
	fb, err := backend.OpenFile(ctx, path, mode)
	if err != nil {
		m.collector.RecordOperation("OpenFile", time.Since(start), err)
		return nil, err
	}
	file := session.NewFile(fb, path)
	m.collector.SessionOpened("file")
	file.SetCloseHook(func() { m.collector.SessionClosed("file") })
	m.collector.RecordOperation("OpenFile", time.Since(start), nil)
	return file, nil
}

// OpenDirectory produces a new directory session bound to the resolved
// backend.
func (m *Manager) OpenDirectory(ctx context.Context, handle types.ArchiveHandle, path types.Path) (*session.Directory, error) {
	start := time.Now()
	backend, err := m.resolve(handle)
	if err != nil {
		m.collector.RecordOperation("OpenDirectory", time.Since(start), err)
		return nil, err
	}
	db, err := backend.OpenDirectory(ctx, path)
	if err != nil {
		m.collector.RecordOperation("OpenDirectory", time.Since(start), err)
		return nil, err
	}
	dir := session.NewDirectory(db, path)
	m.collector.SessionOpened("directory")
	dir.SetCloseHook(func() { m.collector.SessionClosed("directory") })
	m.collector.RecordOperation("OpenDirectory", time.Since(start), nil)
	return dir, nil
}

// DeleteFile removes a file inside the archive.
func (m *Manager) DeleteFile(ctx context.Context, handle types.ArchiveHandle, path types.Path) error {
	return m.delegate(ctx, "DeleteFile", handle, func(b types.ArchiveBackend) error {
		return b.DeleteFile(ctx, path)
	})
}

// CreateFile creates a file with the declared size.
func (m *Manager) CreateFile(ctx context.Context, handle types.ArchiveHandle, path types.Path, size uint64) error {
	return m.delegate(ctx, "CreateFile", handle, func(b types.ArchiveBackend) error {
		return b.CreateFile(ctx, path, size)
	})
}

// CreateDirectory creates a directory inside the archive.
func (m *Manager) CreateDirectory(ctx context.Context, handle types.ArchiveHandle, path types.Path) error {
	return m.delegate(ctx, "CreateDirectory", handle, func(b types.ArchiveBackend) error {
		return b.CreateDirectory(ctx, path)
	})
}

// DeleteDirectory removes an empty directory.
func (m *Manager) DeleteDirectory(ctx context.Context, handle types.ArchiveHandle, path types.Path) error {
	return m.delegate(ctx, "DeleteDirectory", handle, func(b types.ArchiveBackend) error {
		return b.DeleteDirectory(ctx, path)
	})
}

// DeleteDirectoryRecursively removes a directory and its contents.
func (m *Manager) DeleteDirectoryRecursively(ctx context.Context, handle types.ArchiveHandle, path types.Path) error {
	return m.delegate(ctx, "DeleteDirectoryRecursively", handle, func(b types.ArchiveBackend) error {
		return b.DeleteDirectoryRecursively(ctx, path)
	})
}

// RenameFile renames a file. Both handles must resolve to the same
// backend instance; renaming across archives is not supported and is
// rejected before anything is touched.
func (m *Manager) RenameFile(ctx context.Context, srcHandle types.ArchiveHandle, srcPath types.Path, dstHandle types.ArchiveHandle, dstPath types.Path) error {
	start := time.Now()
	err := m.rename(srcHandle, dstHandle, func(b types.ArchiveBackend) error {
		return b.RenameFile(ctx, srcPath, dstPath)
	})
	m.collector.RecordOperation("RenameFile", time.Since(start), err)
	return err
}

// RenameDirectory renames a directory under the same cross-archive rule
// as RenameFile.
func (m *Manager) RenameDirectory(ctx context.Context, srcHandle types.ArchiveHandle, srcPath types.Path, dstHandle types.ArchiveHandle, dstPath types.Path) error {
	start := time.Now()
	err := m.rename(srcHandle, dstHandle, func(b types.ArchiveBackend) error {
		return b.RenameDirectory(ctx, srcPath, dstPath)
	})
	m.collector.RecordOperation("RenameDirectory", time.Since(start), err)
	return err
}

func (m *Manager) rename(srcHandle, dstHandle types.ArchiveHandle, op func(types.ArchiveBackend) error) error {
	src, err := m.resolve(srcHandle)
	if err != nil {
		return err
	}
	dst, err := m.resolve(dstHandle)
	if err != nil {
		return err
	}
	if src != dst {
		return fserr.New(fserr.CodeUnimplemented, "rename between different archives")
	}
	return op(src)
}

// FreeBytes reports the space available to the archive.
func (m *Manager) FreeBytes(ctx context.Context, handle types.ArchiveHandle) (uint64, error) {
	start := time.Now()
	backend, err := m.resolve(handle)
	if err != nil {
		m.collector.RecordOperation("FreeBytes", time.Since(start), err)
		return 0, err
	}
	n, err := backend.FreeBytes(ctx)
	m.collector.RecordOperation("FreeBytes", time.Since(start), err)
	return n, err
}

// FormatArchive formats the storage location of an archive type.
func (m *Manager) FormatArchive(ctx context.Context, id types.ArchiveID, info types.FormatInfo, path types.Path) error {
	start := time.Now()
	factory, ok := m.registry.Lookup(id)
	if !ok {
		err := fserr.Newf(fserr.CodeArchiveNotFound, "no archive registered for %s", id)
		m.collector.RecordOperation("FormatArchive", time.Since(start), err)
		return err
	}
	err := factory.Format(ctx, path, info)
	m.collector.RecordOperation("FormatArchive", time.Since(start), err)
	return err
}

// ArchiveFormatInfo returns the metadata recorded by the last format of
// the addressed location.
func (m *Manager) ArchiveFormatInfo(ctx context.Context, id types.ArchiveID, path types.Path) (types.FormatInfo, error) {
	start := time.Now()
	factory, ok := m.registry.Lookup(id)
	if !ok {
		err := fserr.Newf(fserr.CodeArchiveNotFound, "no archive registered for %s", id)
		m.collector.RecordOperation("ArchiveFormatInfo", time.Since(start), err)
		return types.FormatInfo{}, err
	}
	info, err := factory.FormatInfo(ctx, path)
	m.collector.RecordOperation("ArchiveFormatInfo", time.Since(start), err)
	return info, err
}

// delegate resolves one handle and applies a backend operation,
// recording the outcome.
func (m *Manager) delegate(ctx context.Context, operation string, handle types.ArchiveHandle, op func(types.ArchiveBackend) error) error {
	start := time.Now()
	backend, err := m.resolve(handle)
	if err != nil {
		m.collector.RecordOperation(operation, time.Since(start), err)
		return err
	}
	err = op(backend)
	m.collector.RecordOperation(operation, time.Since(start), err)
	return err
}

// Shutdown releases every live handle and drops the registry. The
// manager must not be used afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for handle, backend := range m.handles {
		if err := backend.Close(); err != nil {
			m.logger.Warn("archive backend close failed during shutdown",
				"handle", uint64(handle), "error", err)
		}
	}
	m.handles = make(map[types.ArchiveHandle]types.ArchiveBackend)
	m.mu.Unlock()

	m.collector.SetOpenArchives(0)
	m.registry.Reset()
}
