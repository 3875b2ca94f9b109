package hostdir

import (
	"context"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// WriteOnlyFactory wraps a host-directory factory in the
// write-restricted media policy: files cannot be opened for reading and
// directories cannot be enumerated. Everything else passes through.
type WriteOnlyFactory struct {
	*Factory
}

// NewWriteOnlyFactory builds the restricted variant over the same mount
// point as the unrestricted one.
func NewWriteOnlyFactory(name, root string) *WriteOnlyFactory {
	return &WriteOnlyFactory{Factory: NewFactory(name, root)}
}

func (f *WriteOnlyFactory) Open(ctx context.Context, path types.Path) (types.ArchiveBackend, error) {
	backend, err := f.Factory.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return &writeOnlyBackend{ArchiveBackend: backend}, nil
}

type writeOnlyBackend struct {
	types.ArchiveBackend
}

func (b *writeOnlyBackend) OpenFile(ctx context.Context, p types.Path, mode types.Mode) (types.FileBackend, error) {
	if mode.CanRead() {
		return nil, fserr.Newf(fserr.CodeWriteProtected, "%s cannot be opened for reading on write-only media", p)
	}
	return b.ArchiveBackend.OpenFile(ctx, p, mode)
}

func (b *writeOnlyBackend) OpenDirectory(ctx context.Context, p types.Path) (types.DirectoryBackend, error) {
	return nil, fserr.New(fserr.CodeWriteProtected, "directories cannot be enumerated on write-only media")
}
