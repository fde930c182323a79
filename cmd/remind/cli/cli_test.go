package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/logging"
)

func TestReadMessage(t *testing.T) {
	msg, err := readMessage(strings.NewReader("ignored"), []string{"I", "like", "tea"})
	require.NoError(t, err)
	assert.Equal(t, "I like tea", msg)

	msg, err = readMessage(strings.NewReader("  I moved to Pune\n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "I moved to Pune", msg)

	_, err = readMessage(strings.NewReader("\n"), []string{"-"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestParseID(t *testing.T) {
	id, err := parseID("1834567890123456789")
	require.NoError(t, err)
	assert.Equal(t, int64(1834567890123456789), id)

	_, err = parseID("abc")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestParseIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(slog.LevelDebug, &buf)

	ids := parseIDs(logger, []string{"42", "nonexistent-id", "7"})
	assert.Equal(t, []int64{42, 7}, ids)
	assert.Contains(t, buf.String(), "nonexistent-id")

	assert.Empty(t, parseIDs(logger, []string{"abc"}))
}

func TestReadPrompt(t *testing.T) {
	prompt, err := readPrompt("")
	require.NoError(t, err)
	assert.Empty(t, prompt)

	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("Only store food preferences.\n"), 0o600))
	prompt, err = readPrompt(path)
	require.NoError(t, err)
	assert.Equal(t, "Only store food preferences.", prompt)

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	_, err = readPrompt(path)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = readPrompt(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

// execute runs the root command with args against a temporary sqlite store.
func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetArgs(nil)
	})
	require.NoError(t, RootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestDeleteCmd_SkipsUnparsableIDs(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "remind.db"))
	t.Setenv("EMBEDDING_PROVIDER", "mock")
	t.Setenv("EMBEDDING_DIMS", "64")
	t.Setenv("LLM_PROVIDER", "")

	var added struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(execute(t, "add", "-u", "alice", "User likes coffee")), &added))
	require.NotZero(t, added.ID)

	var result core.DeleteResult
	require.NoError(t, json.Unmarshal([]byte(execute(t, "delete", "-u", "alice", strconv.FormatInt(added.ID, 10), "nonexistent-id")), &result))
	assert.Equal(t, []int64{added.ID}, result.DeletedIDs)

	result = core.DeleteResult{}
	require.NoError(t, json.Unmarshal([]byte(execute(t, "delete", "-u", "alice", "nonexistent-id")), &result))
	assert.Empty(t, result.DeletedIDs)
}

func TestRootCmd_Commands(t *testing.T) {
	var names []string
	for _, c := range RootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"add", "update", "delete", "search", "recall", "history", "index", "consolidate", "profile"} {
		assert.Contains(t, names, want)
	}
}
