// Package selfimage implements the self-referential archive family
// (SelfNCCH): the running title's own image sections, captured into an
// ephemeral in-memory filesystem at load time and served read-only.
package selfimage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/psanford/memfs"

	"github.com/PreciousTrainer/citra/internal/backend/container"
	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// Title is the image content the running application exposes.
type Title struct {
	ProgramID uint64
	RomFS     map[string][]byte
	ExeFS     map[string][]byte
}

// Factory serves the currently registered title. It starts empty;
// Register is called when an application is loaded and replaces any
// prior registration.
type Factory struct {
	mu     sync.RWMutex
	logger *slog.Logger
	fsys   *memfs.FS
	loaded bool
}

// NewFactory creates an empty self-image factory.
func NewFactory() *Factory {
	return &Factory{
		logger: slog.Default().With("component", "selfimage-factory"),
	}
}

func (f *Factory) Name() string { return "SelfNCCH" }

// Register captures the title's sections into a fresh in-memory tree.
func (f *Factory) Register(title Title) error {
	fsys := memfs.New()
	for section, files := range map[string]map[string][]byte{
		"romfs": title.RomFS,
		"exefs": title.ExeFS,
	} {
		if err := fsys.MkdirAll(section, 0o755); err != nil {
			return fserr.Wrap(err, fserr.CodeBackendFailure, "Register", section)
		}
		for name, data := range files {
			p := path.Join(section, strings.TrimPrefix(name, "/"))
			if err := fsys.MkdirAll(path.Dir(p), 0o755); err != nil {
				return fserr.Wrap(err, fserr.CodeBackendFailure, "Register", p)
			}
			if err := fsys.WriteFile(p, data, 0o444); err != nil {
				return fserr.Wrap(err, fserr.CodeBackendFailure, "Register", p)
			}
		}
	}

	f.mu.Lock()
	f.fsys = fsys
	f.loaded = true
	f.mu.Unlock()
	f.logger.Debug("registered self image", "program_id", title.ProgramID)
	return nil
}

func (f *Factory) Open(ctx context.Context, p types.Path) (types.ArchiveBackend, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.loaded {
		return nil, fserr.New(fserr.CodeNotFound, "no application registered")
	}
	return &backend{fsys: f.fsys}, nil
}

func (f *Factory) Format(ctx context.Context, p types.Path, info types.FormatInfo) error {
	return fserr.New(fserr.CodeWriteProtected, "self image cannot be formatted")
}

func (f *Factory) FormatInfo(ctx context.Context, p types.Path) (types.FormatInfo, error) {
	return types.FormatInfo{}, fserr.New(fserr.CodeUnimplemented, "self image has no format info")
}

// backend serves one opened self-image archive. Multiple opens share
// the same immutable tree.
type backend struct {
	fsys fs.FS
}

func (b *backend) Name() string { return "SelfNCCH" }

func fsName(p types.Path) (string, error) {
	s, ok := p.AsString()
	if !ok && !p.IsEmpty() {
		return "", fserr.Newf(fserr.CodeInvalidArgument, "unsupported path variant %v", p.Type())
	}
	clean := path.Clean("/" + s)
	if clean == "/" {
		return ".", nil
	}
	return strings.TrimPrefix(clean, "/"), nil
}

func (b *backend) OpenFile(ctx context.Context, p types.Path, mode types.Mode) (types.FileBackend, error) {
	if mode.CanWrite() || mode.Creates() {
		return nil, fserr.Newf(fserr.CodeWriteProtected, "%s is read-only", p)
	}
	name, err := fsName(p)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(b.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fserr.Newf(fserr.CodeNotFound, "%s", p)
	}
	if err != nil {
		return nil, fserr.Wrap(err, fserr.CodeBackendFailure, "OpenFile", name)
	}
	return container.NewBytesFile(name, data), nil
}

func (b *backend) OpenDirectory(ctx context.Context, p types.Path) (types.DirectoryBackend, error) {
	name, err := fsName(p)
	if err != nil {
		return nil, err
	}
	ents, err := fs.ReadDir(b.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fserr.Newf(fserr.CodeNotFound, "%s", p)
	}
	if err != nil {
		return nil, fserr.Wrap(err, fserr.CodeBackendFailure, "OpenDirectory", name)
	}

	entries := make([]types.Entry, 0, len(ents))
	for _, ent := range ents {
		e := types.Entry{Name: ent.Name(), IsDirectory: ent.IsDir(), IsReadOnly: true}
		if info, err := ent.Info(); err == nil && !ent.IsDir() {
			e.Size = uint64(info.Size())
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return container.NewStaticDirectory(entries), nil
}

func (b *backend) CreateFile(ctx context.Context, p types.Path, size uint64) error {
	return errReadOnly()
}

func (b *backend) DeleteFile(ctx context.Context, p types.Path) error { return errReadOnly() }

func (b *backend) RenameFile(ctx context.Context, src, dst types.Path) error { return errReadOnly() }

func (b *backend) CreateDirectory(ctx context.Context, p types.Path) error { return errReadOnly() }

func (b *backend) DeleteDirectory(ctx context.Context, p types.Path) error { return errReadOnly() }

func (b *backend) DeleteDirectoryRecursively(ctx context.Context, p types.Path) error {
	return errReadOnly()
}

func (b *backend) RenameDirectory(ctx context.Context, src, dst types.Path) error {
	return errReadOnly()
}

func (b *backend) FreeBytes(ctx context.Context) (uint64, error) { return 0, nil }

func (b *backend) Close() error { return nil }

func errReadOnly() error {
	return fserr.New(fserr.CodeWriteProtected, "self image is read-only")
}

var _ types.ArchiveBackend = (*backend)(nil)
