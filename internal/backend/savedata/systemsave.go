package savedata

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

// SystemFactory serves NAND-resident system save data. Containers are
// addressed by a (high, low) binary path.
type SystemFactory struct {
	root string
}

// NewSystemFactory roots system save data under the NAND tree
// (typically <nand>/data/sysdata).
func NewSystemFactory(root string) *SystemFactory {
	return &SystemFactory{root: root}
}

func (f *SystemFactory) Name() string { return "SystemSaveData" }

func (f *SystemFactory) containerDir(p types.Path) (string, error) {
	raw, ok := p.AsBinary()
	if !ok || len(raw) != 8 {
		return "", fserr.Newf(fserr.CodeInvalidArgument, "malformed system save data path %s", p)
	}
	high := binary.LittleEndian.Uint32(raw[0:])
	low := binary.LittleEndian.Uint32(raw[4:])
	return filepath.Join(f.root, fmt.Sprintf("%08x", high), fmt.Sprintf("%08x", low)), nil
}

func (f *SystemFactory) Open(ctx context.Context, path types.Path) (types.ArchiveBackend, error) {
	dir, err := f.containerDir(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, fserr.Newf(fserr.CodeNotFound, "system save data %s", path)
	} else if err != nil {
		return nil, fserr.Wrap(err, fserr.CodeBackendFailure, "Open", dir)
	}
	return hostdir.NewBackend("SystemSaveData", dir), nil
}

func (f *SystemFactory) Format(ctx context.Context, path types.Path, info types.FormatInfo) error {
	dir, err := f.containerDir(path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fserr.Wrap(err, fserr.CodeBackendFailure, "Format", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fserr.Wrap(err, fserr.CodeBackendFailure, "Format", dir)
	}
	return container.WriteFormatInfo(dir, info)
}

func (f *SystemFactory) FormatInfo(ctx context.Context, path types.Path) (types.FormatInfo, error) {
	dir, err := f.containerDir(path)
	if err != nil {
		return types.FormatInfo{}, err
	}
	return container.ReadFormatInfo(dir)
}

// CreateContainer creates the bare directory structure of a container
// without formatting metadata.
func (f *SystemFactory) CreateContainer(ctx context.Context, path types.Path) error {
	dir, err := f.containerDir(path)
	if err != nil {
		return err
	}
	return fserr.Wrap(os.MkdirAll(dir, 0o755), fserr.CodeBackendFailure, "CreateContainer", dir)
}

// DeleteContainer removes a container and everything beneath it. A
// missing container is an error for this family.
func (f *SystemFactory) DeleteContainer(ctx context.Context, path types.Path) error {
	dir, err := f.containerDir(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fserr.Newf(fserr.CodeNotFound, "system save data %s", path)
	}
	return fserr.Wrap(os.RemoveAll(dir), fserr.CodeBackendFailure, "DeleteContainer", dir)
}

var (
	_ types.ArchiveFactory   = (*SystemFactory)(nil)
	_ types.ContainerCreator = (*SystemFactory)(nil)
	_ types.ContainerDeleter = (*SystemFactory)(nil)
)
