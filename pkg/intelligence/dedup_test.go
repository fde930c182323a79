package intelligence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/intelligence"
)

func TestDedupPolicy_DropsKnownFacts(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Add(ctx, "User lives in Pune", core.CategoryFact, core.WithUserID(testUser))
	require.NoError(t, err)

	deleteOld := intelligence.Intent{Action: intelligence.ActionDelete, IDs: []int64{7}}
	inner := fixed(intelligence.Decision{
		Intents: []intelligence.Intent{add("User lives in Pune"), add("User likes tea"), deleteOld},
		Done:    true,
	})

	d, err := intelligence.NewDedupPolicy(inner, client, 0).Decide(ctx, intelligence.DecisionInput{
		Turn: intelligence.Turn{UserID: testUser, Content: "I live in Pune and like tea"},
	})
	require.NoError(t, err)
	assert.True(t, d.Done)
	assert.Equal(t, []intelligence.Intent{add("User likes tea"), deleteOld}, d.Intents)
}

func TestDedupPolicy_ScopedToUser(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Add(ctx, "User lives in Pune", core.CategoryFact, core.WithUserID("someone_else"))
	require.NoError(t, err)

	d, err := intelligence.NewDedupPolicy(fixed(intelligence.Decision{
		Intents: []intelligence.Intent{add("User lives in Pune")},
		Done:    true,
	}), client, 0).Decide(ctx, intelligence.DecisionInput{Turn: intelligence.Turn{UserID: testUser}})
	require.NoError(t, err)
	assert.Len(t, d.Intents, 1)
}

func TestDedupPolicy_OnlyChecksAdds(t *testing.T) {
	store := newFakeStore()
	update := intelligence.Intent{Action: intelligence.ActionUpdate, MemoryID: 1, Content: "User likes tea", EdgeType: core.EdgeReplace}

	d, err := intelligence.NewDedupPolicy(fixed(intelligence.Decision{
		Intents: []intelligence.Intent{update},
		Done:    true,
	}), store, 0).Decide(context.Background(), intelligence.DecisionInput{Turn: intelligence.Turn{UserID: testUser}})
	require.NoError(t, err)
	assert.Equal(t, []intelligence.Intent{update}, d.Intents)

	searches, _ := store.counts()
	assert.Zero(t, searches)
}

func TestDedupPolicy_OutageAbortsRun(t *testing.T) {
	store := newFakeStore()
	// Retrieval succeeds; the duplicate check then hits the outage.
	store.failAfter = 1
	policy := intelligence.NewDedupPolicy(fixed(intelligence.Decision{
		Intents: []intelligence.Intent{add("User likes tea")},
		Done:    true,
	}), store, 0)

	agent := intelligence.NewAgent(store, policy)
	res, err := agent.Run(context.Background(), intelligence.Turn{UserID: testUser, Content: "I like tea"})
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Equal(t, intelligence.TerminatedAborted, res.State)
	assert.Empty(t, store.active(testUser))
}

