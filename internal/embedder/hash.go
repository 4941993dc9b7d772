// Package embedder provides a deterministic, network-free embedding provider.
// It keeps chunking and search tests independent of the OpenAI boundary and
// doubles as an offline backend for local runs.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Hash derives a fixed-dimension unit vector from the SHA-256 of the input
// text. Identical text always maps to an identical vector, so cosine
// similarity of a text with itself is exactly 1.
type Hash struct {
	dimension int
}

// NewHash creates a hash embedder with the given vector dimension.
func NewHash(dimension int) *Hash {
	if dimension <= 0 {
		dimension = 1536
	}
	return &Hash{dimension: dimension}
}

// Dimension returns the fixed vector size.
func (h *Hash) Dimension() int { return h.dimension }

// EmbedBatch returns one deterministic vector per input, in input order.
// It never fails.
func (h *Hash) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = h.embed(text)
	}
	return vectors, nil
}

func (h *Hash) embed(text string) []float32 {
	vec := make([]float32, h.dimension)

	// Stretch the digest across the vector by re-hashing with a counter,
	// then L2-normalize so dot products are true cosine similarities.
	seed := sha256.Sum256([]byte(text))
	var norm float64
	for i := 0; i < h.dimension; i++ {
		block := i / 4
		slot := i % 4
		if slot == 0 && block > 0 {
			var counter [8]byte
			binary.BigEndian.PutUint64(counter[:], uint64(block))
			seed = sha256.Sum256(append(seed[:], counter[:]...))
		}
		bits := binary.BigEndian.Uint64(seed[slot*8 : slot*8+8])
		v := float32(int64(bits%2000001)-1000000) / 1000000.0
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
