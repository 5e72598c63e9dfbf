package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/factory/pkg/archive"
	"github.com/papercomputeco/factory/pkg/blob"
)

// Download writes the project's repo pack to w as a tar.gz archive with
// paths relative to the pack prefix. A project without files yields a
// valid empty archive.
func (p *Pipeline) Download(ctx context.Context, projectID string, w io.Writer) error {
	if projectID == "" {
		return fmt.Errorf("%w: project_id required", ErrValidation)
	}

	prefix := RepoPackPrefix(projectID)
	infos, err := p.blobs.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("listing %s: %w", prefix, err)
	}

	files := make([]archive.File, 0, len(infos))
	for _, info := range infos {
		obj, err := p.blobs.Get(ctx, info.Key)
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", info.Key, err)
		}
		files = append(files, archive.File{
			Path: strings.TrimPrefix(info.Key, prefix),
			Data: obj.Data,
		})
	}

	return archive.WriteTarGz(w, files, p.now())
}
