package chromem_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/storage"
	chromemStore "github.com/yashdiniz/focusa-remind/pkg/storage/chromem"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func record(id int64, user, fact string, embedding []float64, offset time.Duration) *storage.Record {
	return &storage.Record{
		ID:        id,
		UserID:    user,
		Fact:      fact,
		Embedding: embedding,
		Category:  "fact",
		CreatedAt: base.Add(offset),
	}
}

func newStore(t *testing.T) *chromemStore.Client {
	t.Helper()
	store, err := chromemStore.NewClient(&chromemStore.Config{EmbeddingModelDims: 3})
	require.NoError(t, err)
	return store
}

func TestChromemClient_SupersedeHidesParent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "User likes coffee", []float64{1, 0, 0}, 0)))
	require.NoError(t, store.Supersede(ctx, "alice", 1, record(2, "alice", "User likes tea", []float64{0.9, 0.1, 0}, time.Second)))

	hits, err := store.Search(ctx, []float64{1, 0, 0}, &storage.SearchOptions{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].ID)
	require.NotNil(t, hits[0].ParentID)
	assert.Equal(t, int64(1), *hits[0].ParentID)

	parent, err := store.Get(ctx, 1, nil)
	require.NoError(t, err)
	assert.True(t, parent.Deleted)

	err = store.Supersede(ctx, "alice", 1, record(3, "alice", "again", []float64{0, 1, 0}, 2*time.Second))
	assert.ErrorIs(t, err, storage.ErrParentUnavailable)
}

func TestChromemClient_SoftDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "a", []float64{1, 0, 0}, 0)))
	require.NoError(t, store.Insert(ctx, record(2, "bob", "b", []float64{1, 0, 0}, 0)))

	deleted, err := store.SoftDelete(ctx, "alice", []int64{1, 1, 2, 99})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, deleted)

	deleted, err = store.SoftDelete(ctx, "alice", []int64{1})
	require.NoError(t, err)
	assert.Empty(t, deleted)

	hits, err := store.Search(ctx, []float64{1, 0, 0}, &storage.SearchOptions{UserID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemClient_SearchTieBreaksByRecency(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "older", []float64{0, 0, 1}, 0)))
	require.NoError(t, store.Insert(ctx, record(2, "alice", "newer", []float64{0, 0, 1}, time.Hour)))

	hits, err := store.Search(ctx, []float64{0, 0, 1}, &storage.SearchOptions{UserID: "alice", Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "newer", hits[0].Fact)
}

func TestChromemClient_KeywordSearch(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "User likes coffee", []float64{1, 0, 0}, 0)))
	require.NoError(t, store.Insert(ctx, record(2, "alice", "User likes tea", []float64{0, 1, 0}, time.Minute)))

	hits, err := store.KeywordSearch(ctx, &storage.SearchOptions{UserID: "alice", Query: "likes"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].ID)

	hits, err = store.KeywordSearch(ctx, &storage.SearchOptions{UserID: "alice", Query: "likes -tea"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)

	hits, err = store.KeywordSearch(ctx, &storage.SearchOptions{UserID: "alice", Query: "-tea"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemClient_ConcurrentSupersedeOfOneParent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "User likes coffee", []float64{1, 0, 0}, 0)))

	const writers = 16
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child := record(int64(100+i), "alice", "User likes tea", []float64{0, 1, 0}, time.Second)
			errs[i] = store.Supersede(ctx, "alice", 1, child)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrParentUnavailable)
	}
	assert.Equal(t, 1, succeeded)

	hits, err := store.Search(ctx, []float64{0, 1, 0}, &storage.SearchOptions{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestChromemClient_InsertRejectsWrongDimension(t *testing.T) {
	store := newStore(t)

	err := store.Insert(context.Background(), record(1, "alice", "short", []float64{1, 0}, 0))
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestChromemClient_ClosedStoreIsUnavailable(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Close())

	err := store.Insert(context.Background(), record(1, "alice", "a", []float64{1, 0, 0}, 0))
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
