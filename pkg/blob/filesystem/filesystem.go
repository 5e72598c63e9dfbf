// Package filesystem stores blobs as files under a root directory. The
// content type of each object lives in a sidecar file next to it.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papercomputeco/factory/pkg/blob"
)

// sidecarSuffix marks content-type sidecar files. They never appear in List.
const sidecarSuffix = ".content-type"

// Store implements blob.Store on the local filesystem.
type Store struct {
	root string
}

// NewStore creates the root directory if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("blob root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory blobs are stored under.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(key string) (string, string, error) {
	key, err := blob.CleanKey(key)
	if err != nil {
		return "", "", err
	}
	if strings.HasSuffix(key, sidecarSuffix) {
		return "", "", fmt.Errorf("%w: %q", blob.ErrInvalidKey, key)
	}
	return key, filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) error {
	_, p, err := s.path(key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = blob.DefaultContentType
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating blob directory: %w", err)
	}
	if err := writeFileAtomic(p, data); err != nil {
		return fmt.Errorf("writing blob: %w", err)
	}
	if err := writeFileAtomic(p+sidecarSuffix, []byte(contentType)); err != nil {
		return fmt.Errorf("writing blob content type: %w", err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) (*blob.Object, error) {
	key, p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return &blob.Object{
		Key:         key,
		Data:        data,
		ContentType: readContentType(p),
	}, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]blob.ObjectInfo, error) {
	out := []blob.ObjectInfo{}
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, sidecarSuffix) || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, blob.ObjectInfo{
			Key:         key,
			Size:        info.Size(),
			ContentType: readContentType(p),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	_, p, err := s.path(key)
	if err != nil {
		return err
	}
	for _, f := range []string{p, p + sidecarSuffix} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting blob: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

func readContentType(p string) string {
	ct, err := os.ReadFile(p + sidecarSuffix)
	if err != nil || len(ct) == 0 {
		return blob.DefaultContentType
	}
	return string(ct)
}

func writeFileAtomic(p string, data []byte) error {
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
