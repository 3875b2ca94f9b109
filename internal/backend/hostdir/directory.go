package hostdir

import (
	"io/fs"
	"strings"

	"github.com/PreciousTrainer/citra/pkg/types"
)

// directory enumerates a snapshot of the host directory taken at open
// time. The cursor advances monotonically; entries are never revisited.
type directory struct {
	entries []types.Entry
	cursor  int
}

func newDirectory(ents []fs.DirEntry) *directory {
	out := make([]types.Entry, 0, len(ents))
	for _, ent := range ents {
		e := types.Entry{
			Name:        ent.Name(),
			IsDirectory: ent.IsDir(),
			IsHidden:    strings.HasPrefix(ent.Name(), "."),
		}
		if info, err := ent.Info(); err == nil {
			if !ent.IsDir() {
				e.Size = uint64(info.Size())
			}
			e.IsReadOnly = info.Mode().Perm()&0o200 == 0
		}
		out = append(out, e)
	}
	return &directory{entries: out}
}

func (d *directory) Read(max int) ([]types.Entry, error) {
	if max <= 0 || d.cursor >= len(d.entries) {
		return nil, nil
	}
	end := d.cursor + max
	if end > len(d.entries) {
		end = len(d.entries)
	}
	batch := d.entries[d.cursor:end]
	d.cursor = end
	return batch, nil
}

func (d *directory) Close() error {
	d.cursor = len(d.entries)
	return nil
}

var _ types.DirectoryBackend = (*directory)(nil)
