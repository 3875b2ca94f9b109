package cli

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/PreciousTrainer/citra/internal/backend/cia"
)

// packCmd builds a content image from a host directory tree, so
// installed titles can be served through the NCCH archive.
func packCmd() *cobra.Command {
	var compress bool
	cmd := &cobra.Command{
		Use:   "pack <src-dir> <out-image>",
		Short: "Pack a directory tree into a content image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, out := args[0], args[1]

			files := make(map[string][]byte)
			err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return err
				}
				rel, err := filepath.Rel(src, p)
				if err != nil {
					return err
				}
				data, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				files[filepath.ToSlash(rel)] = data
				return nil
			})
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := cia.WriteImage(f, files, compress); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			clog.FromContext(cmd.Context()).Infof("packed %d files into %s", len(files), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&compress, "compress", true, "compress entries that shrink")
	return cmd
}
