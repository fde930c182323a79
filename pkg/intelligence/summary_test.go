package intelligence_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/intelligence"
)

func TestDescribe(t *testing.T) {
	failed := errors.New("boom")
	update := func(edge core.EdgeType) intelligence.Intent {
		return intelligence.Intent{Action: intelligence.ActionUpdate, MemoryID: 1, Content: "x", EdgeType: edge}
	}

	tests := []struct {
		name     string
		outcomes []intelligence.Outcome
		want     string
	}{
		{"nothing", nil, "acked"},
		{
			name: "every action",
			outcomes: []intelligence.Outcome{
				{Intent: add("a")},
				{Intent: update(core.EdgeReplace)},
				{Intent: update(core.EdgeExtend)},
				{Intent: intelligence.Intent{Action: intelligence.ActionDelete, IDs: []int64{1, 2, 3}}, DeletedIDs: []int64{1, 2}},
			},
			want: "added 1, replaced 1, extended 1, deleted 2",
		},
		{
			name:     "partial failure",
			outcomes: []intelligence.Outcome{{Intent: add("a")}, {Intent: add("b"), Err: failed}},
			want:     "added 1; 1 failed",
		},
		{
			name:     "all failed",
			outcomes: []intelligence.Outcome{{Intent: add("a"), Err: failed}, {Intent: update(core.EdgeReplace), Err: failed}},
			want:     "2 failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, intelligence.Describe(tt.outcomes))
		})
	}
}
