package cli

import (
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/PreciousTrainer/citra/internal/session"
	"github.com/PreciousTrainer/citra/pkg/types"
)

func archivesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "archives",
		Short: "List the registered archive types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer r.close()
			for _, id := range r.mgr.Registry().IDs() {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%08X  %s\n", uint32(id), id)
			}
			return nil
		},
	}
}

func lsCmd(flags *rootFlags) *cobra.Command {
	var archiveName string
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory inside an archive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer r.close()
			handle, err := openArchive(ctx, r, archiveName)
			if err != nil {
				return err
			}

			p := types.EmptyPath()
			if len(args) == 1 {
				p = types.CharPath(args[0])
			}
			dir, err := r.mgr.OpenDirectory(ctx, handle, p)
			if err != nil {
				return err
			}
			defer dir.Dispatch(ctx, session.Request{Command: uint32(session.DirClose)})

			for {
				resp := dir.Dispatch(ctx, session.Request{
					Command: uint32(session.DirRead),
					Params:  []uint32{32},
				})
				if !resp.Ok() {
					return fmt.Errorf("directory read failed: result 0x%08X", resp.Result)
				}
				count := int(resp.Values[0])
				if count == 0 {
					return nil
				}
				entries, err := session.DecodeEntries(resp.Buffer, count)
				if err != nil {
					return err
				}
				for _, e := range entries {
					kind := "-"
					if e.IsDirectory {
						kind = "d"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %10d  %s\n", kind, e.Size, e.Name)
				}
			}
		},
	}
	cmd.Flags().StringVarP(&archiveName, "archive", "a", "SDMC", "archive to operate on")
	return cmd
}

func getCmd(flags *rootFlags) *cobra.Command {
	var archiveName string
	cmd := &cobra.Command{
		Use:   "get <path> [out]",
		Short: "Copy a file out of an archive",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer r.close()
			handle, err := openArchive(ctx, r, archiveName)
			if err != nil {
				return err
			}

			f, err := r.mgr.OpenFile(ctx, handle, types.CharPath(args[0]), types.ModeRead)
			if err != nil {
				return err
			}
			defer f.Dispatch(ctx, session.Request{Command: uint32(session.FileClose)})

			resp := f.Dispatch(ctx, session.Request{Command: uint32(session.FileGetSize)})
			if !resp.Ok() {
				return fmt.Errorf("get size failed: result 0x%08X", resp.Result)
			}
			size := uint64(resp.Values[0]) | uint64(resp.Values[1])<<32

			data := make([]byte, 0, size)
			const chunk = 1 << 20
			for offset := uint64(0); offset < size; {
				want := size - offset
				if want > chunk {
					want = chunk
				}
				resp := f.Dispatch(ctx, session.Request{
					Command: uint32(session.FileRead),
					Params:  []uint32{uint32(offset), uint32(offset >> 32), uint32(want)},
				})
				if !resp.Ok() {
					return fmt.Errorf("read failed at offset %d: result 0x%08X", offset, resp.Result)
				}
				if len(resp.Buffer) == 0 {
					break
				}
				data = append(data, resp.Buffer...)
				offset += uint64(len(resp.Buffer))
			}

			if len(args) == 2 {
				return os.WriteFile(args[1], data, 0644)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&archiveName, "archive", "a", "SDMC", "archive to operate on")
	return cmd
}

func putCmd(flags *rootFlags) *cobra.Command {
	var archiveName string
	cmd := &cobra.Command{
		Use:   "put <local-file> <path>",
		Short: "Copy a local file into an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			r, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer r.close()
			handle, err := openArchive(ctx, r, archiveName)
			if err != nil {
				return err
			}

			mode := types.ModeWrite | types.ModeCreate
			f, err := r.mgr.OpenFile(ctx, handle, types.CharPath(args[1]), mode)
			if err != nil {
				return err
			}
			defer f.Dispatch(ctx, session.Request{Command: uint32(session.FileClose)})

			resp := f.Dispatch(ctx, session.Request{
				Command: uint32(session.FileWrite),
				Params:  []uint32{0, 0, uint32(len(data)), 1},
				Buffer:  data,
			})
			if !resp.Ok() {
				return fmt.Errorf("write failed: result 0x%08X", resp.Result)
			}
			clog.FromContext(ctx).Infof("wrote %d bytes to %s", len(data), args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&archiveName, "archive", "a", "SDMC", "archive to operate on")
	return cmd
}

func mkdirCmd(flags *rootFlags) *cobra.Command {
	var archiveName string
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory inside an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer r.close()
			handle, err := openArchive(ctx, r, archiveName)
			if err != nil {
				return err
			}
			return r.mgr.CreateDirectory(ctx, handle, types.CharPath(args[0]))
		},
	}
	cmd.Flags().StringVarP(&archiveName, "archive", "a", "SDMC", "archive to operate on")
	return cmd
}

func rmCmd(flags *rootFlags) *cobra.Command {
	var archiveName string
	var recursive bool
	var dir bool
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file or directory inside an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer r.close()
			handle, err := openArchive(ctx, r, archiveName)
			if err != nil {
				return err
			}
			p := types.CharPath(args[0])
			switch {
			case recursive:
				return r.mgr.DeleteDirectoryRecursively(ctx, handle, p)
			case dir:
				return r.mgr.DeleteDirectory(ctx, handle, p)
			default:
				return r.mgr.DeleteFile(ctx, handle, p)
			}
		},
	}
	cmd.Flags().StringVarP(&archiveName, "archive", "a", "SDMC", "archive to operate on")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete a directory tree")
	cmd.Flags().BoolVarP(&dir, "dir", "d", false, "delete an empty directory")
	return cmd
}

func freeCmd(flags *rootFlags) *cobra.Command {
	var archiveName string
	cmd := &cobra.Command{
		Use:   "free",
		Short: "Report the free space of an archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer r.close()
			handle, err := openArchive(ctx, r, archiveName)
			if err != nil {
				return err
			}
			free, err := r.mgr.FreeBytes(ctx, handle)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", free)
			return nil
		},
	}
	cmd.Flags().StringVarP(&archiveName, "archive", "a", "SDMC", "archive to operate on")
	return cmd
}

func formatCmd(flags *rootFlags) *cobra.Command {
	var archiveName string
	var files, dirs uint32
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Format an archive, discarding its contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer r.close()
			id, err := archiveByName(archiveName)
			if err != nil {
				return err
			}
			info := types.FormatInfo{FileCount: files, DirectoryCount: dirs}
			if err := r.mgr.FormatArchive(ctx, id, info, types.EmptyPath()); err != nil {
				return err
			}
			clog.FromContext(ctx).Infof("formatted %s", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&archiveName, "archive", "a", "SaveData", "archive to format")
	cmd.Flags().Uint32Var(&files, "files", 0, "maximum file count to record")
	cmd.Flags().Uint32Var(&dirs, "dirs", 0, "maximum directory count to record")
	return cmd
}
