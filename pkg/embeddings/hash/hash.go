// Package hash implements an offline embedder that hashes tokens into a
// fixed number of buckets. It needs no model and is deterministic, which
// makes it the embedder for tests and air-gapped installs.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/papercomputeco/factory/pkg/embeddings"
)

const (
	// DefaultDimensions is used when none are configured.
	DefaultDimensions = 256

	// ModelID is recorded in memory pointers for hash embeddings.
	ModelID = "factory-hash-v1"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_\-]+`)

// Embedder hashes tokens with FNV-1a. The low bit picks the sign so
// collisions partly cancel.
type Embedder struct {
	dims int
}

// NewEmbedder returns a hash embedder with dims buckets.
func NewEmbedder(dims uint) *Embedder {
	if dims == 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: int(dims)}
}

// Dimensions reports the embedding width.
func (e *Embedder) Dimensions() int {
	return e.dims
}

func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()

		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vec[int(sum%uint64(e.dims))] += sign * float32(1+len(token)/8)
	}
	normalize(vec)
	return vec, nil
}

func (e *Embedder) Close() error {
	return nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

var _ embeddings.Embedder = (*Embedder)(nil)
