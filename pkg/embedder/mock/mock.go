// Package mock provides a deterministic embedder for tests and offline use.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// Embedder produces bag-of-words embeddings: each lowercase word seeds a
// pseudo-random unit vector and a text's embedding is the normalized sum.
// Identical texts embed identically and texts sharing words score higher.
type Embedder struct {
	mu         sync.Mutex
	dimensions int
	pinned     map[string][]float64
	err        error
	calls      int
}

// New creates a mock embedder producing vectors of the given dimension.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &Embedder{
		dimensions: dimensions,
		pinned:     make(map[string][]float64),
	}
}

// Embed returns one vector per text. It fails with the configured error, if any.
func (e *Embedder) Embed(ctx context.Context, texts []string, dimensions int) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dimensions <= 0 {
		dimensions = e.dimensions
	}

	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := e.pinned[t]; ok {
			out[i] = append([]float64(nil), v...)
			continue
		}
		out[i] = embed(t, dimensions)
	}
	return out, nil
}

// Pin makes Embed return v for text verbatim.
func (e *Embedder) Pin(text string, v []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinned[text] = append([]float64(nil), v...)
}

// SetError makes every later Embed call fail with err. Pass nil to recover.
func (e *Embedder) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns how many times Embed has been invoked.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Dimensions returns the configured dimension.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

func embed(text string, dims int) []float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		words = []string{text}
	}

	sum := make([]float64, dims)
	for _, w := range words {
		for i, v := range wordVector(w, dims) {
			sum[i] += v
		}
	}
	return normalize(sum)
}

// wordVector derives a unit vector from an FNV hash using an LCG.
func wordVector(word string, dims int) []float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	seed := h.Sum64()

	v := make([]float64, dims)
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float64(int64(seed)) / float64(math.MaxInt64)
	}
	return normalize(v)
}

func normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}
