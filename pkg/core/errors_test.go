package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	remind "github.com/yashdiniz/focusa-remind/pkg/core"
)

func TestMemoryError(t *testing.T) {
	err := remind.NewMemoryError("Add", remind.ErrEmbeddingFailed)

	assert.Equal(t, "remind: Add: embedding generation failed", err.Error())
	assert.ErrorIs(t, err, remind.ErrEmbeddingFailed)

	var memErr *remind.MemoryError
	assert.True(t, errors.As(err, &memErr))
	assert.Equal(t, "Add", memErr.Op)

	assert.NoError(t, remind.NewMemoryError("Add", nil))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		fatal   bool
		benign  bool
		message string
	}{
		{name: "nil", err: nil, message: ""},
		{name: "store unavailable", err: remind.NewMemoryError("Search", remind.ErrStoreUnavailable), fatal: true, message: "something went wrong"},
		{name: "dimension mismatch", err: fmt.Errorf("wrapped: %w", remind.ErrDimensionMismatch), fatal: true, message: "something went wrong"},
		{name: "nothing deleted", err: remind.NewMemoryError("Delete", remind.ErrNothingDeleted), benign: true, message: "nothing to forget"},
		{name: "update failed", err: remind.NewMemoryError("Update", remind.ErrUpdateFailed), message: "something went wrong"},
		{name: "embedding failed", err: remind.ErrEmbeddingFailed, message: "something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, remind.IsFatal(tt.err))
			assert.Equal(t, tt.benign, remind.IsBenign(tt.err))
			assert.Equal(t, tt.message, remind.UserMessage(tt.err))
		})
	}
}

func TestParseCategory(t *testing.T) {
	c, err := remind.ParseCategory(" Episode ")
	assert.NoError(t, err)
	assert.Equal(t, remind.CategoryEpisode, c)

	c, err = remind.ParseCategory("")
	assert.NoError(t, err)
	assert.Equal(t, remind.CategoryFact, c)

	_, err = remind.ParseCategory("gossip")
	assert.ErrorIs(t, err, remind.ErrInvalidInput)
}
