// Package savedata implements the save-data archive families: the
// current title's save container, the two families addressing other
// titles' containers, and NAND-resident system save data. Containers
// live on the emulated SD or NAND trees and must be formatted before
// they can be opened.
package savedata

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PreciousTrainer/citra/internal/backend/container"
	"github.com/PreciousTrainer/citra/internal/backend/hostdir"
	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// Source locates save-data containers on one media tree. It is shared
// by the SaveData factory and both OtherSaveData factories so they all
// agree on the on-host layout.
type Source struct {
	root string
}

// NewSource roots a save-data tree at the given host directory
// (typically <sdmc>/title).
func NewSource(root string) *Source {
	return &Source{root: root}
}

// ContainerDir returns the container directory of a program id.
func (s *Source) ContainerDir(programID uint64) string {
	return filepath.Join(s.root, fmt.Sprintf("%08x", uint32(programID>>32)), fmt.Sprintf("%08x", uint32(programID)))
}

// open mounts the data tree of a formatted container.
func (s *Source) open(programID uint64) (types.ArchiveBackend, error) {
	dir := s.ContainerDir(programID)
	if !container.Formatted(dir) {
		return nil, fserr.Newf(fserr.CodeNotFormatted, "save data for %016X", programID)
	}
	return hostdir.NewBackend("SaveData", filepath.Join(dir, "data")), nil
}

// format wipes and recreates a container.
func (s *Source) format(programID uint64, info types.FormatInfo) error {
	dir := s.ContainerDir(programID)
	if err := os.RemoveAll(dir); err != nil {
		return fserr.Wrap(err, fserr.CodeBackendFailure, "Format", dir)
	}
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		return fserr.Wrap(err, fserr.CodeBackendFailure, "Format", dir)
	}
	return container.WriteFormatInfo(dir, info)
}

func (s *Source) formatInfo(programID uint64) (types.FormatInfo, error) {
	return container.ReadFormatInfo(s.ContainerDir(programID))
}

// Factory serves the running title's own save container. The program id
// is resolved at open time so title switches are picked up.
type Factory struct {
	source    *Source
	programID func() uint64
}

// NewFactory builds the per-title save-data factory. programID reports
// the currently running title.
func NewFactory(source *Source, programID func() uint64) *Factory {
	return &Factory{source: source, programID: programID}
}

func (f *Factory) Name() string { return "SaveData" }

func (f *Factory) Open(ctx context.Context, path types.Path) (types.ArchiveBackend, error) {
	return f.source.open(f.programID())
}

func (f *Factory) Format(ctx context.Context, path types.Path, info types.FormatInfo) error {
	return f.source.format(f.programID(), info)
}

func (f *Factory) FormatInfo(ctx context.Context, path types.Path) (types.FormatInfo, error) {
	return f.source.formatInfo(f.programID())
}

// parseSaveDataPath decodes the binary path addressing another title's
// container: media type, program id low word, program id high word.
func parseSaveDataPath(p types.Path) (types.MediaType, uint64, error) {
	raw, ok := p.AsBinary()
	if !ok || len(raw) != 12 {
		return 0, 0, fserr.Newf(fserr.CodeInvalidArgument, "malformed save data path %s", p)
	}
	media := types.MediaType(binary.LittleEndian.Uint32(raw[0:]))
	low := binary.LittleEndian.Uint32(raw[4:])
	high := binary.LittleEndian.Uint32(raw[8:])
	return media, uint64(high)<<32 | uint64(low), nil
}

// OtherFactory serves the OtherSaveDataGeneral and
// OtherSaveDataPermitted families. Both resolve an explicit program id
// from the archive path; only SD-resident containers are reachable.
type OtherFactory struct {
	name   string
	source *Source
}

// NewOtherFactory builds one of the other-save-data variants over the
// shared source.
func NewOtherFactory(name string, source *Source) *OtherFactory {
	return &OtherFactory{name: name, source: source}
}

func (f *OtherFactory) Name() string { return f.name }

func (f *OtherFactory) Open(ctx context.Context, path types.Path) (types.ArchiveBackend, error) {
	media, programID, err := parseSaveDataPath(path)
	if err != nil {
		return nil, err
	}
	if media != types.MediaSD {
		return nil, fserr.Newf(fserr.CodeUnimplemented, "%s on media %s", f.name, media)
	}
	return f.source.open(programID)
}

func (f *OtherFactory) Format(ctx context.Context, path types.Path, info types.FormatInfo) error {
	media, programID, err := parseSaveDataPath(path)
	if err != nil {
		return err
	}
	if media != types.MediaSD {
		return fserr.Newf(fserr.CodeUnimplemented, "%s on media %s", f.name, media)
	}
	return f.source.format(programID, info)
}

func (f *OtherFactory) FormatInfo(ctx context.Context, path types.Path) (types.FormatInfo, error) {
	media, programID, err := parseSaveDataPath(path)
	if err != nil {
		return types.FormatInfo{}, err
	}
	if media != types.MediaSD {
		return types.FormatInfo{}, fserr.Newf(fserr.CodeUnimplemented, "%s on media %s", f.name, media)
	}
	return f.source.formatInfo(programID)
}
