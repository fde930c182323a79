package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/storage"
	sqliteStore "github.com/yashdiniz/focusa-remind/pkg/storage/sqlite"
)

func setupSQLiteTest(t *testing.T) *sqliteStore.Client {
	t.Helper()

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath:             filepath.Join(t.TempDir(), "remind_test.db"),
		CollectionName:     "memories",
		EmbeddingModelDims: 3,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

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

func TestSQLiteClient_InsertAndGet(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "User likes coffee", []float64{1, 0, 0}, 0)))

	got, err := store.Get(ctx, 1, &storage.GetOptions{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "User likes coffee", got.Fact)
	assert.Equal(t, []float64{1, 0, 0}, got.Embedding)
	assert.Nil(t, got.ParentID)
	assert.False(t, got.Deleted)
	assert.True(t, base.Equal(got.CreatedAt))

	_, err = store.Get(ctx, 1, &storage.GetOptions{UserID: "bob"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Get(ctx, 42, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteClient_InsertRejectsWrongDimension(t *testing.T) {
	store := setupSQLiteTest(t)

	err := store.Insert(context.Background(), record(1, "alice", "short", []float64{1, 0}, 0))
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = store.Get(context.Background(), 1, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteClient_ReopenWithOtherDimensionFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remind_test.db")
	open := func(dims int) (*sqliteStore.Client, error) {
		return sqliteStore.NewClient(&sqliteStore.Config{DBPath: path, CollectionName: "memories", EmbeddingModelDims: dims})
	}

	store, err := open(3)
	require.NoError(t, err)
	require.NoError(t, store.Insert(context.Background(), record(1, "alice", "User likes coffee", []float64{1, 0, 0}, 0)))
	require.NoError(t, store.Close())

	_, err = open(2)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	store, err = open(3)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Get(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "User likes coffee", got.Fact)
}

func TestSQLiteClient_ReopenEmptyTableWithOtherDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remind_test.db")

	store, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: path, EmbeddingModelDims: 3})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = sqliteStore.NewClient(&sqliteStore.Config{DBPath: path, EmbeddingModelDims: 2})
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestSQLiteClient_Supersede(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "User likes coffee", []float64{1, 0, 0}, 0)))

	child := record(2, "alice", "User likes tea", []float64{0, 1, 0}, time.Second)
	child.EdgeType = "replace"
	require.NoError(t, store.Supersede(ctx, "alice", 1, child))

	parent, err := store.Get(ctx, 1, nil)
	require.NoError(t, err)
	assert.True(t, parent.Deleted)

	got, err := store.Get(ctx, 2, nil)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, int64(1), *got.ParentID)
	assert.Equal(t, "replace", got.EdgeType)

	hits, err := store.Search(ctx, []float64{1, 0, 0}, &storage.SearchOptions{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].ID)
}

func TestSQLiteClient_SupersedeRejectsUnavailableParent(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "User likes coffee", []float64{1, 0, 0}, 0)))

	tests := []struct {
		name     string
		userID   string
		parentID int64
	}{
		{name: "missing parent", userID: "alice", parentID: 99},
		{name: "other user's parent", userID: "bob", parentID: 1},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			childID := int64(10 + i)
			err := store.Supersede(ctx, tt.userID, tt.parentID, record(childID, tt.userID, "x", []float64{0, 1, 0}, time.Second))
			assert.ErrorIs(t, err, storage.ErrParentUnavailable)

			_, err = store.Get(ctx, childID, nil)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}

	parent, err := store.Get(ctx, 1, nil)
	require.NoError(t, err)
	assert.False(t, parent.Deleted)
}

func TestSQLiteClient_SupersedeRollsBackOnChildFailure(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "User likes coffee", []float64{1, 0, 0}, 0)))

	// Wrong dimension makes the child insert fail after the parent update.
	err := store.Supersede(ctx, "alice", 1, record(2, "alice", "User likes tea", []float64{0, 1}, time.Second))
	require.ErrorIs(t, err, storage.ErrDimensionMismatch)

	parent, err := store.Get(ctx, 1, nil)
	require.NoError(t, err)
	assert.False(t, parent.Deleted)
}

func TestSQLiteClient_ConcurrentSupersedeOfOneParent(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "User likes coffee", []float64{1, 0, 0}, 0)))

	const writers = 8
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
	require.Len(t, hits, 1)
	require.NotNil(t, hits[0].ParentID)
	assert.Equal(t, int64(1), *hits[0].ParentID)
}

func TestSQLiteClient_SoftDeleteIsIdempotent(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "a", []float64{1, 0, 0}, 0)))
	require.NoError(t, store.Insert(ctx, record(2, "alice", "b", []float64{0, 1, 0}, 0)))
	require.NoError(t, store.Insert(ctx, record(3, "bob", "c", []float64{0, 0, 1}, 0)))

	deleted, err := store.SoftDelete(ctx, "alice", []int64{1, 3, 404})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, deleted)

	deleted, err = store.SoftDelete(ctx, "alice", []int64{1})
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.NotNil(t, deleted)

	bobs, err := store.Get(ctx, 3, nil)
	require.NoError(t, err)
	assert.False(t, bobs.Deleted)
}

func TestSQLiteClient_SearchTieBreaksByRecency(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "older", []float64{1, 0, 0}, 0)))
	require.NoError(t, store.Insert(ctx, record(2, "alice", "newer", []float64{1, 0, 0}, time.Minute)))
	require.NoError(t, store.Insert(ctx, record(3, "alice", "far", []float64{0, 1, 0}, 2*time.Minute)))

	hits, err := store.Search(ctx, []float64{1, 0, 0}, &storage.SearchOptions{UserID: "alice", Limit: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "newer", hits[0].Fact)
	assert.Equal(t, "older", hits[1].Fact)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestSQLiteClient_SearchIsScopedToUser(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "a", []float64{1, 0, 0}, 0)))

	hits, err := store.Search(ctx, []float64{1, 0, 0}, &storage.SearchOptions{UserID: "bob"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSQLiteClient_KeywordSearch(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, record(1, "alice", "User likes filter coffee", []float64{1, 0, 0}, 0)))
	require.NoError(t, store.Insert(ctx, record(2, "alice", "User drinks coffee at 9am", []float64{0, 1, 0}, time.Minute)))
	require.NoError(t, store.Insert(ctx, record(3, "alice", "User likes 100% cotton", []float64{0, 0, 1}, 2*time.Minute)))
	_, err := store.SoftDelete(ctx, "alice", []int64{2})
	require.NoError(t, err)

	hits, err := store.KeywordSearch(ctx, &storage.SearchOptions{UserID: "alice", Query: "Coffee"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.Equal(t, 1.0, hits[0].Score)

	hits, err = store.KeywordSearch(ctx, &storage.SearchOptions{UserID: "alice", Query: "likes"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(3), hits[0].ID)

	hits, err = store.KeywordSearch(ctx, &storage.SearchOptions{UserID: "alice", Query: "%"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = store.KeywordSearch(ctx, &storage.SearchOptions{UserID: "alice", Query: "likes -coffee"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(3), hits[0].ID)

	hits, err = store.KeywordSearch(ctx, &storage.SearchOptions{UserID: "alice", Query: "-coffee"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSQLiteClient_ClosedStoreIsUnavailable(t *testing.T) {
	store := setupSQLiteTest(t)
	require.NoError(t, store.Close())

	_, err := store.Search(context.Background(), []float64{1, 0, 0}, &storage.SearchOptions{UserID: "alice"})
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	err = store.Supersede(context.Background(), "alice", 1, record(2, "alice", "x", []float64{1, 0, 0}, 0))
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
