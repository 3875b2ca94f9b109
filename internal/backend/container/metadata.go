// Package container holds the pieces shared by the formatted-container
// backend families (save data, extended data): persisted format
// metadata and container directory conventions.
package container

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// MetadataFile is the name of the per-container format metadata file.
const MetadataFile = "metadata.yaml"

// WriteFormatInfo persists the format metadata inside the container
// directory, creating the directory if needed.
func WriteFormatInfo(dir string, info types.FormatInfo) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fserr.Wrap(err, fserr.CodeBackendFailure, "WriteFormatInfo", dir)
	}
	out, err := yaml.Marshal(&info)
	if err != nil {
		return fserr.Wrap(err, fserr.CodeBackendFailure, "WriteFormatInfo", dir)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), out, 0o644); err != nil {
		return fserr.Wrap(err, fserr.CodeBackendFailure, "WriteFormatInfo", dir)
	}
	return nil
}

// ReadFormatInfo loads the metadata recorded by the last format. A
// container without metadata has never been formatted.
func ReadFormatInfo(dir string) (types.FormatInfo, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return types.FormatInfo{}, fserr.Newf(fserr.CodeNotFormatted, "%s", dir)
	}
	if err != nil {
		return types.FormatInfo{}, fserr.Wrap(err, fserr.CodeBackendFailure, "ReadFormatInfo", dir)
	}
	var info types.FormatInfo
	if err := yaml.Unmarshal(raw, &info); err != nil {
		return types.FormatInfo{}, fserr.Wrap(err, fserr.CodeBackendFailure, "ReadFormatInfo", dir)
	}
	return info, nil
}

// Formatted reports whether the container carries format metadata.
func Formatted(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, MetadataFile))
	return err == nil
}
