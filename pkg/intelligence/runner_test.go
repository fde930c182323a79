package intelligence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/intelligence"
)

func TestRunner_UsersRunInParallel(t *testing.T) {
	store := newFakeStore()
	policy := intelligence.PolicyFunc(func(ctx context.Context, in intelligence.DecisionInput) (*intelligence.Decision, error) {
		return &intelligence.Decision{
			Intents: []intelligence.Intent{add("User said: " + in.Turn.Content)},
			Done:    true,
		}, nil
	})
	runner := intelligence.NewRunner(intelligence.NewAgent(store, policy))

	ctx := context.Background()
	users := map[string]string{
		"user_a": "I like tea",
		"user_b": "I like coffee",
		"user_c": "I play chess",
	}
	results := make(map[string]<-chan *intelligence.RunResult, len(users))
	for user, content := range users {
		results[user] = runner.RunAsync(ctx, intelligence.Turn{UserID: user, Content: content})
	}

	for user, ch := range results {
		res := <-ch
		require.NoError(t, res.Error)
		assert.Equal(t, "added 1", res.Result.Summary)

		_, open := <-ch
		assert.False(t, open, "channel for %s should be closed", user)
	}
	runner.Wait()

	for user, content := range users {
		assert.Equal(t, []string{"User said: " + content}, store.active(user))
	}
}

func TestRunner_ReportsErrors(t *testing.T) {
	runner := intelligence.NewRunner(intelligence.NewAgent(newFakeStore(), fixed(intelligence.Decision{Done: true})))

	res := <-runner.RunAsync(context.Background(), intelligence.Turn{Content: "no user"})
	runner.Wait()
	assert.Error(t, res.Error)
	assert.Nil(t, res.Result)
}
