package indexer

import (
	"context"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
)

// Source abstracts listing and downloading objects so that local and
// remote file systems can be indexed.
type Source interface {
	// List returns objects available at the given location/URI.
	List(ctx context.Context, location string) ([]storage.Object, error)
	// Download returns the content of the given object.
	Download(ctx context.Context, object storage.Object) ([]byte, error)
}

// afsSource is a Source implemented using github.com/viant/afs
type afsSource struct {
	fs afs.Service
}

// NewAFSSource constructs a Source backed by the given AFS service; nil uses afs.New().
func NewAFSSource(fs afs.Service) Source {
	if fs == nil {
		fs = afs.New()
	}
	return &afsSource{fs: fs}
}

func (a *afsSource) List(ctx context.Context, location string) ([]storage.Object, error) {
	return a.fs.List(ctx, location)
}

func (a *afsSource) Download(ctx context.Context, object storage.Object) ([]byte, error) {
	return a.fs.Download(ctx, object)
}
