package core_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	remind "github.com/yashdiniz/focusa-remind/pkg/core"
)

func TestAsyncClient_ConcurrentUsers(t *testing.T) {
	client, _ := newTestClient(t)
	async := remind.NewAsyncClient(client)
	ctx := context.Background()

	var chans []<-chan *remind.RecordResult
	for i := 0; i < 4; i++ {
		chans = append(chans, async.AddAsync(ctx, "User likes coffee", remind.CategoryFact,
			remind.WithUserID(fmt.Sprintf("user_%d", i))))
	}
	for _, ch := range chans {
		res := <-ch
		require.NoError(t, res.Error)
		require.NotNil(t, res.Record)
	}
	async.Wait()

	for i := 0; i < 4; i++ {
		res := <-async.SearchAsync(ctx, "User likes coffee", remind.WithUserIDForSearch(fmt.Sprintf("user_%d", i)))
		require.NoError(t, res.Error)
		assert.Len(t, res.Hits, 1)
	}
}

func TestAsyncClient_UpdateAndDelete(t *testing.T) {
	client, _ := newTestClient(t)
	async := remind.NewAsyncClient(client)
	ctx := context.Background()

	added := <-async.AddAsync(ctx, "User likes coffee", remind.CategoryFact, remind.WithUserID(testUser))
	require.NoError(t, added.Error)

	updated := <-async.UpdateAsync(ctx, added.Record.ID, "User likes tea", remind.EdgeReplace, remind.CategoryFact,
		remind.WithUserIDForUpdate(testUser))
	require.NoError(t, updated.Error)

	deleted := <-async.DeleteAsync(ctx, []int64{added.Record.ID, updated.Record.ID}, remind.WithUserIDForDelete(testUser))
	require.NoError(t, deleted.Error)
	assert.Equal(t, []int64{updated.Record.ID}, deleted.Result.DeletedIDs)

	recalled := <-async.RecallAsync(ctx, "tea", remind.WithUserIDForSearch(testUser))
	require.NoError(t, recalled.Error)
	assert.Empty(t, recalled.Hits)
}
