package archive

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/PreciousTrainer/citra/internal/backend/cia"
	"github.com/PreciousTrainer/citra/internal/backend/extdata"
	"github.com/PreciousTrainer/citra/internal/backend/hostdir"
	"github.com/PreciousTrainer/citra/internal/backend/s3"
	"github.com/PreciousTrainer/citra/internal/backend/savedata"
	"github.com/PreciousTrainer/citra/internal/backend/selfimage"
	"github.com/PreciousTrainer/citra/internal/config"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// Paths of the media roots inside the emulated SD card and NAND. They
// mirror the console's on-card directory layout.
func sdmcRoot(cfg config.StorageConfig) string {
	return filepath.Join(cfg.SDMCDir, "Nintendo 3DS")
}

func nandDataRoot(cfg config.StorageConfig) string {
	return filepath.Join(cfg.NANDDir, "data")
}

// RegisterDefaultTypes populates the registry with every archive type
// the service knows how to serve, rooted at the configured storage
// directories. A backend whose initialization fails is logged and
// skipped so the remaining archive types stay available.
func RegisterDefaultTypes(ctx context.Context, reg *Registry, cfg *config.Configuration, programID func() uint64) *selfimage.Factory {
	logger := slog.Default().With("component", "archive-registry")

	// An init failure disables one archive type; a duplicate id is a
	// wiring bug and panics via MustRegister.
	register := func(id types.ArchiveID, factory types.ArchiveFactory, init func() error) {
		if init != nil {
			if err := init(); err != nil {
				logger.Warn("skipping archive type", "archive_id", id, "error", err)
				return
			}
		}
		reg.MustRegister(id, factory)
	}

	self := selfimage.NewFactory()
	register(types.ArchiveSelfNCCH, self, nil)

	sdmc := hostdir.NewFactory("SDMC", sdmcRoot(cfg.Storage))
	register(types.ArchiveSDMC, sdmc, sdmc.Initialize)
	wo := hostdir.NewWriteOnlyFactory("SDMCWriteOnly", sdmcRoot(cfg.Storage))
	register(types.ArchiveSDMCWriteOnly, wo, wo.Initialize)

	saves := savedata.NewSource(filepath.Join(sdmcRoot(cfg.Storage), "title"))
	register(types.ArchiveSaveData, savedata.NewFactory(saves, programID), nil)
	register(types.ArchiveOtherSaveDataGeneral,
		savedata.NewOtherFactory("OtherSaveDataGeneral", saves), nil)
	register(types.ArchiveOtherSaveDataPermitted,
		savedata.NewOtherFactory("OtherSaveDataPermitted", saves), nil)

	ext := extdata.NewFactory(sdmcRoot(cfg.Storage), false)
	register(types.ArchiveExtSaveData, ext, ext.Initialize)
	shared := extdata.NewFactory(nandDataRoot(cfg.Storage), true)
	register(types.ArchiveSharedExtSaveData, shared, shared.Initialize)

	register(types.ArchiveSystemSaveData,
		savedata.NewSystemFactory(filepath.Join(nandDataRoot(cfg.Storage), "sysdata")), nil)

	register(types.ArchiveNCCH, cia.NewFactory(cfg.Storage.ContentDir), nil)

	if cfg.Remote.Enabled {
		remote, err := s3.NewFactory(ctx, "RemoteSaveData", s3.Config{
			Bucket:         cfg.Remote.Bucket,
			Region:         cfg.Remote.Region,
			Endpoint:       cfg.Remote.Endpoint,
			Prefix:         cfg.Remote.Prefix,
			ForcePathStyle: cfg.Remote.ForcePathStyle,
			AccessKey:      cfg.Remote.AccessKey,
			SecretKey:      cfg.Remote.SecretKey,
			MaxRetries:     cfg.Remote.MaxRetries,
		})
		if err != nil {
			logger.Warn("skipping remote archive", "error", err)
		} else {
			register(types.ArchiveRemoteSaveData, remote, nil)
		}
	}

	return self
}
