// Package extdata implements the extended-data archive families:
// SD-resident ExtSaveData and NAND-resident SharedExtSaveData. A
// container is addressed by a (media, low, high) binary path, carries
// format metadata and an icon blob, and exposes its user tree to the
// guest.
package extdata

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/PreciousTrainer/citra/internal/backend/container"
	"github.com/PreciousTrainer/citra/internal/backend/hostdir"
	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// iconFile is the name of the icon blob inside a container.
const iconFile = "icon"

// Factory produces extended-data archives rooted under one media tree.
type Factory struct {
	name string
	root string
}

// NewFactory builds an extended-data factory. shared selects the
// NAND-resident family name.
func NewFactory(root string, shared bool) *Factory {
	name := "ExtSaveData"
	if shared {
		name = "SharedExtSaveData"
	}
	return &Factory{name: name, root: filepath.Join(root, "extdata")}
}

// Initialize makes the media tree usable.
func (f *Factory) Initialize() error {
	return os.MkdirAll(f.root, 0o755)
}

func (f *Factory) Name() string { return f.name }

func (f *Factory) containerDir(p types.Path) (string, error) {
	raw, ok := p.AsBinary()
	if !ok || len(raw) != 12 {
		return "", fserr.Newf(fserr.CodeInvalidArgument, "malformed ext data path %s", p)
	}
	low := binary.LittleEndian.Uint32(raw[4:])
	high := binary.LittleEndian.Uint32(raw[8:])
	return filepath.Join(f.root, fmt.Sprintf("%08x", high), fmt.Sprintf("%08x", low)), nil
}

func (f *Factory) Open(ctx context.Context, path types.Path) (types.ArchiveBackend, error) {
	dir, err := f.containerDir(path)
	if err != nil {
		return nil, err
	}
	if !container.Formatted(dir) {
		return nil, fserr.Newf(fserr.CodeNotFormatted, "ext data %s", path)
	}
	return hostdir.NewBackend(f.name, filepath.Join(dir, "user")), nil
}

func (f *Factory) Format(ctx context.Context, path types.Path, info types.FormatInfo) error {
	dir, err := f.containerDir(path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fserr.Wrap(err, fserr.CodeBackendFailure, "Format", dir)
	}
	for _, sub := range []string{"user", "boss"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fserr.Wrap(err, fserr.CodeBackendFailure, "Format", dir)
		}
	}
	return container.WriteFormatInfo(dir, info)
}

func (f *Factory) FormatInfo(ctx context.Context, path types.Path) (types.FormatInfo, error) {
	dir, err := f.containerDir(path)
	if err != nil {
		return types.FormatInfo{}, err
	}
	return container.ReadFormatInfo(dir)
}

// WriteIcon stores the container icon blob.
func (f *Factory) WriteIcon(ctx context.Context, path types.Path, icon []byte) error {
	dir, err := f.containerDir(path)
	if err != nil {
		return err
	}
	if !container.Formatted(dir) {
		return fserr.Newf(fserr.CodeNotFormatted, "ext data %s", path)
	}
	return fserr.Wrap(os.WriteFile(filepath.Join(dir, iconFile), icon, 0o644),
		fserr.CodeBackendFailure, "WriteIcon", dir)
}

// DeleteContainer removes the container and its substructure. A missing
// container is treated as already deleted.
func (f *Factory) DeleteContainer(ctx context.Context, path types.Path) error {
	dir, err := f.containerDir(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fserr.Wrap(os.RemoveAll(dir), fserr.CodeBackendFailure, "DeleteContainer", dir)
}

var (
	_ types.ArchiveFactory   = (*Factory)(nil)
	_ types.IconWriter       = (*Factory)(nil)
	_ types.ContainerDeleter = (*Factory)(nil)
)
