package cia

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/PreciousTrainer/citra/internal/backend/container"
	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// Factory opens container images stored under a content root. An
// archive is addressed by a (title id low, title id high, content
// index) binary path mapping to one image file.
type Factory struct {
	root string
}

// NewFactory roots the content store at the given host directory.
func NewFactory(root string) *Factory {
	return &Factory{root: root}
}

func (f *Factory) Name() string { return "NCCH" }

func (f *Factory) imagePath(p types.Path) (string, error) {
	raw, ok := p.AsBinary()
	if !ok || len(raw) != 12 {
		return "", fserr.Newf(fserr.CodeInvalidArgument, "malformed content path %s", p)
	}
	low := binary.LittleEndian.Uint32(raw[0:])
	high := binary.LittleEndian.Uint32(raw[4:])
	index := binary.LittleEndian.Uint32(raw[8:])
	titleID := uint64(high)<<32 | uint64(low)
	return filepath.Join(f.root, fmt.Sprintf("%016x", titleID), fmt.Sprintf("%08x.cia", index)), nil
}

// ContentPath builds the binary archive path for a title's content.
func ContentPath(titleID uint64, index uint32) types.Path {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:], uint32(titleID))
	binary.LittleEndian.PutUint32(b[4:], uint32(titleID>>32))
	binary.LittleEndian.PutUint32(b[8:], index)
	return types.BinaryPath(b)
}

func (f *Factory) Open(ctx context.Context, p types.Path) (types.ArchiveBackend, error) {
	hp, err := f.imagePath(p)
	if err != nil {
		return nil, err
	}
	img, err := openImage(hp)
	if os.IsNotExist(err) {
		return nil, fserr.Newf(fserr.CodeNotFound, "no content image for %s", p)
	}
	if err != nil {
		return nil, fserr.Wrap(err, fserr.CodeBackendFailure, "Open", hp)
	}
	return &Backend{img: img}, nil
}

// Format is rejected: container images are immutable title content.
func (f *Factory) Format(ctx context.Context, p types.Path, info types.FormatInfo) error {
	return fserr.New(fserr.CodeWriteProtected, "content images cannot be formatted")
}

func (f *Factory) FormatInfo(ctx context.Context, p types.Path) (types.FormatInfo, error) {
	return types.FormatInfo{}, fserr.New(fserr.CodeUnimplemented, "content images have no format info")
}

// Backend serves one opened image read-only.
type Backend struct {
	mu  sync.Mutex
	img *image
}

func (b *Backend) Name() string { return "NCCH" }

// entryName normalizes a guest path onto the slash-separated names the
// file table uses.
func entryName(p types.Path) (string, error) {
	s, ok := p.AsString()
	if !ok && !p.IsEmpty() {
		return "", fserr.Newf(fserr.CodeInvalidArgument, "unsupported path variant %v", p.Type())
	}
	clean := path.Clean("/" + s)
	return strings.TrimPrefix(clean, "/"), nil
}

func (b *Backend) OpenFile(ctx context.Context, p types.Path, mode types.Mode) (types.FileBackend, error) {
	if mode.CanWrite() || mode.Creates() {
		return nil, fserr.Newf(fserr.CodeWriteProtected, "%s is read-only", p)
	}
	name, err := entryName(p)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ent, ok := b.img.entries[name]
	if !ok {
		return nil, fserr.Newf(fserr.CodeNotFound, "%s", p)
	}
	data, err := b.img.load(ent)
	if err != nil {
		return nil, fserr.Wrap(err, fserr.CodeBackendFailure, "OpenFile", name)
	}
	return container.NewBytesFile(name, data), nil
}

func (b *Backend) OpenDirectory(ctx context.Context, p types.Path) (types.DirectoryBackend, error) {
	prefix, err := entryName(p)
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		prefix += "/"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// The table stores files only; directories exist implicitly through
	// the slash-separated names.
	seen := make(map[string]types.Entry)
	order := make([]string, 0)
	for _, name := range b.img.order {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			child := rest[:i]
			if _, ok := seen[child]; !ok {
				seen[child] = types.Entry{Name: child, IsDirectory: true, IsReadOnly: true}
				order = append(order, child)
			}
		} else {
			seen[rest] = types.Entry{Name: rest, IsReadOnly: true, Size: b.img.entries[name].size}
			order = append(order, rest)
		}
	}
	if prefix != "" && len(order) == 0 {
		return nil, fserr.Newf(fserr.CodeNotFound, "%s", p)
	}

	sort.Strings(order)
	entries := make([]types.Entry, 0, len(order))
	for _, name := range order {
		entries = append(entries, seen[name])
	}
	return container.NewStaticDirectory(entries), nil
}

func (b *Backend) CreateFile(ctx context.Context, p types.Path, size uint64) error {
	return errReadOnly()
}

func (b *Backend) DeleteFile(ctx context.Context, p types.Path) error { return errReadOnly() }

func (b *Backend) RenameFile(ctx context.Context, src, dst types.Path) error { return errReadOnly() }

func (b *Backend) CreateDirectory(ctx context.Context, p types.Path) error { return errReadOnly() }

func (b *Backend) DeleteDirectory(ctx context.Context, p types.Path) error { return errReadOnly() }

func (b *Backend) DeleteDirectoryRecursively(ctx context.Context, p types.Path) error {
	return errReadOnly()
}

func (b *Backend) RenameDirectory(ctx context.Context, src, dst types.Path) error {
	return errReadOnly()
}

func (b *Backend) FreeBytes(ctx context.Context) (uint64, error) { return 0, nil }

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img.close()
}

func errReadOnly() error {
	return fserr.New(fserr.CodeWriteProtected, "content images are read-only")
}

var _ types.ArchiveBackend = (*Backend)(nil)
