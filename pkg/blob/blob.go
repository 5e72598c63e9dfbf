// Package blob defines the object store that holds generated repo pack
// files.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey is returned for empty keys or keys that escape the store.
var ErrInvalidKey = errors.New("invalid blob key")

// DefaultContentType is used when Put is given an empty content type.
const DefaultContentType = "application/octet-stream"

// Object is a stored blob.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
}

// ObjectInfo describes a stored blob without its data.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is a flat key to bytes store. Keys use "/" as separator.
type Store interface {
	// Put writes data under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the object under key or ErrNotFound.
	Get(ctx context.Context, key string) (*Object, error)

	// List returns every object whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// CleanKey normalises key and rejects keys that are empty, absolute or
// climb out of the store.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
