package mock_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/embedder/mock"
	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

func embedAll(t *testing.T, e *mock.Embedder, texts ...string) [][]float64 {
	t.Helper()
	out, err := e.Embed(context.Background(), texts, e.Dimensions())
	require.NoError(t, err)
	return out
}

func TestEmbedder_Deterministic(t *testing.T) {
	v := embedAll(t, mock.New(32), "User likes coffee", "User likes coffee")
	w := embedAll(t, mock.New(32), "User likes coffee")

	assert.Equal(t, v[0], v[1])
	assert.Equal(t, v[0], w[0])
	assert.InDelta(t, 1.0, storage.CosineSimilarity(v[0], v[1]), 1e-9)
}

func TestEmbedder_UnitLength(t *testing.T) {
	for _, v := range embedAll(t, mock.New(0), "hello world", "", "!!!") {
		var norm float64
		for _, x := range v {
			norm += x * x
		}
		assert.Len(t, v, 64)
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	}
}

func TestEmbedder_SharedWordsScoreHigher(t *testing.T) {
	v := embedAll(t, mock.New(64), "User likes coffee", "User likes tea", "quarterly revenue forecast")

	related := storage.CosineSimilarity(v[0], v[1])
	unrelated := storage.CosineSimilarity(v[0], v[2])
	assert.Greater(t, related, unrelated)
}

func TestEmbedder_HonoursRequestedDimension(t *testing.T) {
	e := mock.New(64)
	out, err := e.Embed(context.Background(), []string{"a"}, 8)
	require.NoError(t, err)
	assert.Len(t, out[0], 8)
}

func TestEmbedder_Calls(t *testing.T) {
	e := mock.New(8)
	embedAll(t, e, "a")
	embedAll(t, e, "b", "c")
	assert.Equal(t, 2, e.Calls())
}

func TestEmbedder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.New(8).Embed(ctx, []string{"a"}, 8)
	assert.ErrorIs(t, err, context.Canceled)
}
