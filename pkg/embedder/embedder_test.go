package embedder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/embedder"
	"github.com/yashdiniz/focusa-remind/pkg/embedder/mock"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		vectors  [][]float64
		want     int
		dims     int
		wantErr  bool
		mismatch bool
	}{
		{name: "valid", vectors: [][]float64{{1, 2, 3}}, want: 1, dims: 3},
		{name: "any dimension when dims is zero", vectors: [][]float64{{1, 2}}, want: 1},
		{name: "count mismatch", vectors: [][]float64{{1, 2, 3}}, want: 2, dims: 3, wantErr: true},
		{name: "empty vector", vectors: [][]float64{{}}, want: 1, dims: 3, wantErr: true},
		{name: "wrong dimension", vectors: [][]float64{{1, 2}}, want: 1, dims: 3, wantErr: true, mismatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := embedder.Check(tt.vectors, tt.want, tt.dims)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.mismatch, errors.Is(err, embedder.ErrDimensionMismatch))
		})
	}
}

func TestEmbedOne(t *testing.T) {
	p := mock.New(16)

	v, err := embedder.EmbedOne(context.Background(), p, "User likes coffee")
	require.NoError(t, err)
	assert.Len(t, v, 16)

	p.Pin("short", []float64{1, 0})
	_, err = embedder.EmbedOne(context.Background(), p, "short")
	assert.ErrorIs(t, err, embedder.ErrDimensionMismatch)

	boom := errors.New("provider down")
	p.SetError(boom)
	_, err = embedder.EmbedOne(context.Background(), p, "anything")
	assert.ErrorIs(t, err, boom)
}

func TestFloat32To64(t *testing.T) {
	assert.Equal(t, []float64{0.5, -1}, embedder.Float32To64([]float32{0.5, -1}))
	assert.Empty(t, embedder.Float32To64(nil))
}
