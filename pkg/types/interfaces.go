package types

import "context"

// ArchiveFactory produces backend instances for one ArchiveID. A factory
// is registered once at subsystem start and lives for the process
// lifetime; Open may be called any number of times and every returned
// backend is independently owned by its archive handle.
type ArchiveFactory interface {
	// Name identifies the factory in logs and diagnostics.
	Name() string

	// Open produces a backend bound to the storage location the path
	// addresses. Backend-specific failures are returned verbatim.
	Open(ctx context.Context, path Path) (ArchiveBackend, error)

	// Format (re)initializes the storage location, destroying existing
	// contents and recording the supplied format metadata.
	Format(ctx context.Context, path Path, info FormatInfo) error

	// FormatInfo returns the metadata recorded by the last Format.
	FormatInfo(ctx context.Context, path Path) (FormatInfo, error)
}

// ArchiveBackend is one opened storage location. All paths are
// archive-relative guest paths. The backend is exclusively owned by the
// handle-table entry that produced it and is released via Close exactly
// once; file and directory objects opened from it outlive it.
type ArchiveBackend interface {
	Name() string

	OpenFile(ctx context.Context, path Path, mode Mode) (FileBackend, error)
	CreateFile(ctx context.Context, path Path, size uint64) error
	DeleteFile(ctx context.Context, path Path) error
	RenameFile(ctx context.Context, src, dst Path) error

	OpenDirectory(ctx context.Context, path Path) (DirectoryBackend, error)
	CreateDirectory(ctx context.Context, path Path) error
	DeleteDirectory(ctx context.Context, path Path) error
	DeleteDirectoryRecursively(ctx context.Context, path Path) error
	RenameDirectory(ctx context.Context, src, dst Path) error

	// FreeBytes reports the space still available to the archive.
	FreeBytes(ctx context.Context) (uint64, error)

	Close() error
}

// FileBackend is one opened file. It is exclusively owned by a single
// file session; concurrent use from multiple goroutines is the session's
// problem, not the backend's.
type FileBackend interface {
	// Read copies up to len(p) bytes starting at offset and returns the
	// count actually read. Reading at or past end of file returns 0, nil.
	Read(offset uint64, p []byte) (int, error)

	// Write stores p at offset, extending the file as needed. When flush
	// is set the data is durably committed before Write returns success.
	Write(offset uint64, p []byte, flush bool) (int, error)

	// Size reports the current logical size. It cannot fail.
	Size() uint64

	SetSize(size uint64) error
	Flush() error
	Close() error
}

// IconWriter is the optional factory capability of storing a container
// icon blob. The extended-data families implement it.
type IconWriter interface {
	WriteIcon(ctx context.Context, path Path, icon []byte) error
}

// ContainerCreator is the optional factory capability of creating a
// container's directory structure without formatting metadata.
type ContainerCreator interface {
	CreateContainer(ctx context.Context, path Path) error
}

// ContainerDeleter is the optional factory capability of removing a
// container and its substructure. Whether a missing container is an
// error is defined per family.
type ContainerDeleter interface {
	DeleteContainer(ctx context.Context, path Path) error
}

// DirectoryBackend is one opened directory. The enumeration cursor is
// backend state: successive Read calls continue where the previous one
// stopped and never revisit entries.
type DirectoryBackend interface {
	// Read returns up to max entries, or an empty slice once the
	// enumeration is exhausted.
	Read(max int) ([]Entry, error)

	Close() error
}
