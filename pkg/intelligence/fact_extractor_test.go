package intelligence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/intelligence"
	"github.com/yashdiniz/focusa-remind/pkg/llm"
)

func TestFactExtractor_Extract(t *testing.T) {
	tests := []struct {
		name     string
		response string
		facts    []string
		noInfo   bool
	}{
		{
			name:     "info",
			response: `{"noInfo": false, "info": ["User lives in Pune", "  User likes filter coffee "]}`,
			facts:    []string{"User lives in Pune", "User likes filter coffee"},
		},
		{
			name:     "facts key",
			response: `{"facts": ["User plays chess"]}`,
			facts:    []string{"User plays chess"},
		},
		{
			name:     "code fence",
			response: "```json\n{\"noInfo\": false, \"info\": [\"User has a cat\"]}\n```",
			facts:    []string{"User has a cat"},
		},
		{
			name:     "no info",
			response: `{"noInfo": true, "info": []}`,
			facts:    []string{},
			noInfo:   true,
		},
		{
			name:     "blank entries only",
			response: `{"noInfo": false, "info": ["", "   "]}`,
			facts:    []string{},
			noInfo:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeLLM{responses: []string{tt.response}, usage: llm.Usage{PromptTokens: 10, CompletionTokens: 2}}

			facts, noInfo, usage, err := intelligence.NewFactExtractor(provider).Extract(context.Background(),
				intelligence.Turn{UserID: testUser, Content: "some turn"})
			require.NoError(t, err)
			assert.Equal(t, tt.facts, facts)
			assert.Equal(t, tt.noInfo, noInfo)
			assert.Equal(t, 12, usage.Total())
		})
	}
}

func TestFactExtractor_InvalidJSON(t *testing.T) {
	provider := &fakeLLM{responses: []string{"User lives in Pune"}, usage: llm.Usage{PromptTokens: 8}}

	facts, noInfo, usage, err := intelligence.NewFactExtractor(provider).Extract(context.Background(),
		intelligence.Turn{UserID: testUser, Content: "I live in Pune"})
	require.Error(t, err)
	assert.Nil(t, facts)
	assert.False(t, noInfo)
	assert.Equal(t, 8, usage.Total())
}

func TestFactExtractor_UsesProfileTimezone(t *testing.T) {
	provider := &fakeLLM{responses: []string{`{"noInfo": true}`}}

	_, _, _, err := intelligence.NewFactExtractor(provider).Extract(context.Background(), intelligence.Turn{
		UserID:  testUser,
		Content: "I went hiking yesterday",
		Profile: core.Profile{Timezone: "Asia/Kolkata"},
	})
	require.NoError(t, err)
	assert.Contains(t, provider.seen[0][0].Content, "Asia/Kolkata")
	assert.Equal(t, "Input:\nI went hiking yesterday", provider.seen[0][1].Content)
}

func TestFactExtractor_RequiresProvider(t *testing.T) {
	_, _, _, err := intelligence.NewFactExtractor(nil).Extract(context.Background(), intelligence.Turn{})
	assert.ErrorIs(t, err, intelligence.ErrNoLLM)
}
