package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := logging.ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(slog.LevelWarn, &buf)

	logger.Info("quiet")
	assert.Empty(t, buf.String())

	logger.Warn("loud", "user_id", "user_001")
	assert.Contains(t, buf.String(), "loud")
	assert.Contains(t, buf.String(), "user_001")
}

func TestContextLogger(t *testing.T) {
	assert.Same(t, logging.Default(), logging.From(context.Background()))

	var buf bytes.Buffer
	logger := logging.New(slog.LevelDebug, &buf)
	ctx := logging.With(context.Background(), logger)
	assert.Same(t, logger, logging.From(ctx))
}
