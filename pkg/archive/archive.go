// Package archive packs repo-pack files into a gzip compressed tar stream
// and reads them back.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// FileMode is applied to every entry.
const FileMode = 0o644

// owner is written as the uname and gname of every entry.
const owner = "factory"

// File is one regular file in an archive.
type File struct {
	Path string
	Data []byte
}

// WriteTarGz writes files to w as a gzip compressed tar archive. Every entry
// is a regular file sharing the same mtime, truncated to whole seconds. An
// empty file list still yields a valid archive.
func WriteTarGz(w io.Writer, files []File, mtime time.Time) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	mtime = mtime.Truncate(time.Second)
	for _, f := range files {
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     f.Path,
			Mode:     FileMode,
			Size:     int64(len(f.Data)),
			ModTime:  mtime,
			Uname:    owner,
			Gname:    owner,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", f.Path, err)
		}
		if _, err := tw.Write(f.Data); err != nil {
			return fmt.Errorf("writing tar entry %s: %w", f.Path, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip stream: %w", err)
	}
	return nil
}

// ReadTarGz reads every regular file from a gzip compressed tar archive, in
// archive order.
func ReadTarGz(r io.Reader) ([]File, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var files []File
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar header: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading tar entry %s: %w", hdr.Name, err)
		}
		files = append(files, File{Path: hdr.Name, Data: data})
	}
}
