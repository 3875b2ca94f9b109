package archive

import (
	"context"
	"io"

	"github.com/chainguard-dev/clog"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// Maintenance operations compose canonical container paths, factory
// lookup and backend capability calls. They add no new protocol
// surface.

// extDataFactory picks the extended-data family owning containers on
// the given media: NAND containers belong to SharedExtSaveData.
func (m *Manager) extDataFactory(media types.MediaType) (types.ArchiveFactory, error) {
	id := types.ArchiveExtSaveData
	if media == types.MediaNAND {
		id = types.ArchiveSharedExtSaveData
	}
	factory, ok := m.registry.Lookup(id)
	if !ok {
		return nil, fserr.Newf(fserr.CodeArchiveNotFound, "no archive registered for %s", id)
	}
	return factory, nil
}

// CreateExtSaveData formats a new extended-data container and stores its
// icon. The icon is read from the caller-supplied source, bounded by
// iconSize, before any mutation: an unreadable source fails the whole
// operation with nothing created.
func (m *Manager) CreateExtSaveData(ctx context.Context, media types.MediaType, high, low uint32, icon io.Reader, iconSize uint32, info types.FormatInfo) error {
	factory, err := m.extDataFactory(media)
	if err != nil {
		return err
	}
	writer, ok := factory.(types.IconWriter)
	if !ok {
		return fserr.Newf(fserr.CodeUnimplemented, "%s cannot store icons", factory.Name())
	}

	if icon == nil {
		return fserr.New(fserr.CodeInvalidArgument, "icon source is not readable")
	}
	blob := make([]byte, iconSize)
	if _, err := io.ReadFull(icon, blob); err != nil {
		return fserr.Wrap(err, fserr.CodeInvalidArgument, "CreateExtSaveData", "icon")
	}

	path := types.ExtDataPath(media, high, low)
	if err := factory.Format(ctx, path, info); err != nil {
		return err
	}
	if err := writer.WriteIcon(ctx, path, blob); err != nil {
		return err
	}
	clog.FromContext(ctx).Infof("created ext save data %08X/%08X on %s", high, low, media)
	return nil
}

// DeleteExtSaveData removes an extended-data container and its
// substructure. A missing container counts as already deleted; a
// container that exists but cannot be removed fails the call.
func (m *Manager) DeleteExtSaveData(ctx context.Context, media types.MediaType, high, low uint32) error {
	factory, err := m.extDataFactory(media)
	if err != nil {
		return err
	}
	deleter, ok := factory.(types.ContainerDeleter)
	if !ok {
		return fserr.Newf(fserr.CodeUnimplemented, "%s cannot delete containers", factory.Name())
	}
	return deleter.DeleteContainer(ctx, types.ExtDataPath(media, high, low))
}

// CreateSystemSaveData creates the directory structure of a system
// save-data container.
func (m *Manager) CreateSystemSaveData(ctx context.Context, high, low uint32) error {
	factory, ok := m.registry.Lookup(types.ArchiveSystemSaveData)
	if !ok {
		return fserr.Newf(fserr.CodeArchiveNotFound, "no archive registered for %s", types.ArchiveSystemSaveData)
	}
	creator, ok := factory.(types.ContainerCreator)
	if !ok {
		return fserr.Newf(fserr.CodeUnimplemented, "%s cannot create containers", factory.Name())
	}
	return creator.CreateContainer(ctx, types.SystemSaveDataPath(high, low))
}

// DeleteSystemSaveData removes a system save-data container. Unlike the
// extended-data variant, a missing container is an error here.
func (m *Manager) DeleteSystemSaveData(ctx context.Context, high, low uint32) error {
	factory, ok := m.registry.Lookup(types.ArchiveSystemSaveData)
	if !ok {
		return fserr.Newf(fserr.CodeArchiveNotFound, "no archive registered for %s", types.ArchiveSystemSaveData)
	}
	deleter, ok := factory.(types.ContainerDeleter)
	if !ok {
		return fserr.Newf(fserr.CodeUnimplemented, "%s cannot delete containers", factory.Name())
	}
	return deleter.DeleteContainer(ctx, types.SystemSaveDataPath(high, low))
}
