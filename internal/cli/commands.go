// Package cli implements the citrafs command line tool: host-side
// inspection and maintenance of the emulated archives.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PreciousTrainer/citra/internal/archive"
	"github.com/PreciousTrainer/citra/internal/config"
	"github.com/PreciousTrainer/citra/internal/metrics"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// rootFlags carries the persistent flags shared by every subcommand.
type rootFlags struct {
	configFile string
	logLevel   string
}

// New builds the citrafs root command.
func New() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:               "citrafs",
		Short:             "Inspect and maintain emulated archive storage",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.AddCommand(archivesCmd(flags))
	cmd.AddCommand(lsCmd(flags))
	cmd.AddCommand(getCmd(flags))
	cmd.AddCommand(putCmd(flags))
	cmd.AddCommand(mkdirCmd(flags))
	cmd.AddCommand(rmCmd(flags))
	cmd.AddCommand(freeCmd(flags))
	cmd.AddCommand(formatCmd(flags))
	cmd.AddCommand(packCmd())

	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	return cmd
}

// setupLogging installs the default logger per the global configuration.
// A non-empty override wins over the configured level; a configured log
// file receives the output instead of stderr and stays open for the
// process lifetime.
func setupLogging(global config.GlobalConfig, override string) error {
	level := global.LogLevel
	if override != "" {
		level = override
	}
	var l slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		l = slog.LevelDebug
	case "INFO", "":
		l = slog.LevelInfo
	case "WARN":
		l = slog.LevelWarn
	case "ERROR":
		l = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q", level)
	}

	out := io.Writer(os.Stderr)
	if global.LogFile != "" {
		f, err := os.OpenFile(global.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		out = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: l})))
	return nil
}

// runtime holds the assembled service pieces one command run needs.
type runtime struct {
	cfg *config.Configuration
	mgr *archive.Manager
}

func setup(ctx context.Context, flags *rootFlags) (*runtime, error) {
	cfg := config.NewDefault()
	if flags.configFile != "" {
		if err := cfg.LoadFromFile(flags.configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := setupLogging(cfg.Global, flags.logLevel); err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Monitoring.Enabled,
		Port:      cfg.Monitoring.MetricsPort,
		Path:      cfg.Monitoring.MetricsPath,
		Namespace: cfg.Monitoring.Namespace,
	})
	if err != nil {
		return nil, err
	}
	if collector != nil {
		// Exposition runs until the command's context is canceled.
		go func() {
			if err := collector.Start(ctx); err != nil {
				slog.Default().Warn("metrics server stopped", "error", err)
			}
		}()
	}

	reg := archive.NewRegistry()
	// The CLI has no running title; SaveData resolves against program
	// id zero unless addressed explicitly.
	archive.RegisterDefaultTypes(ctx, reg, cfg, func() uint64 { return 0 })
	return &runtime{cfg: cfg, mgr: archive.NewManager(reg, collector)}, nil
}

func (r *runtime) close() { r.mgr.Shutdown() }

// archiveByName maps the CLI's archive names onto ids.
func archiveByName(name string) (types.ArchiveID, error) {
	for _, id := range []types.ArchiveID{
		types.ArchiveSelfNCCH,
		types.ArchiveSaveData,
		types.ArchiveExtSaveData,
		types.ArchiveSharedExtSaveData,
		types.ArchiveSystemSaveData,
		types.ArchiveSDMC,
		types.ArchiveSDMCWriteOnly,
		types.ArchiveNCCH,
		types.ArchiveOtherSaveDataGeneral,
		types.ArchiveOtherSaveDataPermitted,
		types.ArchiveRemoteSaveData,
	} {
		if strings.EqualFold(id.String(), name) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown archive %q", name)
}

// openArchive opens the named archive with an empty archive path, which
// is what the host-facing archives accept.
func openArchive(ctx context.Context, r *runtime, name string) (types.ArchiveHandle, error) {
	id, err := archiveByName(name)
	if err != nil {
		return types.InvalidHandle, err
	}
	return r.mgr.OpenArchive(ctx, id, types.EmptyPath())
}
