package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DirMaterializer serves an existing local directory without syncing it.
type DirMaterializer struct{}

// NewDirMaterializer returns a materializer for plain local trees.
func NewDirMaterializer() *DirMaterializer {
	return &DirMaterializer{}
}

func (m *DirMaterializer) Materialize(ctx context.Context, d Descriptor) (*FileSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(d.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrSourceUnavailable, d.Path)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrSourceUnavailable, d.Path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceCorrupt, d.Path)
	}
	return newFileSet(d.Path, nil), nil
}
