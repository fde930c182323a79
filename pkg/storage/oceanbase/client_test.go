package oceanbase_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdiniz/focusa-remind/pkg/storage"
	"github.com/yashdiniz/focusa-remind/pkg/storage/oceanbase"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &oceanbase.Config{Host: "127.0.0.1", Port: 2881, User: "root@test", Password: "pw", DBName: "remind"}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "tcp(127.0.0.1:2881)/remind")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestOceanBaseClient_Lifecycle(t *testing.T) {
	_ = godotenv.Load(filepath.Join("..", "..", "..", ".env"))

	password := os.Getenv("OCEANBASE_PASSWORD")
	if password == "" {
		t.Skip("Skipping OceanBase test: OCEANBASE_PASSWORD not set")
	}
	port, err := strconv.Atoi(os.Getenv("OCEANBASE_PORT"))
	if err != nil {
		port = 2881
	}

	store, err := oceanbase.NewClient(&oceanbase.Config{
		Host:               os.Getenv("OCEANBASE_HOST"),
		Port:               port,
		User:               os.Getenv("OCEANBASE_USER"),
		Password:           password,
		DBName:             os.Getenv("OCEANBASE_DATABASE"),
		CollectionName:     fmt.Sprintf("test_memories_%d", time.Now().UnixNano()),
		EmbeddingModelDims: 3,
	})
	if err != nil {
		t.Skipf("Skipping OceanBase test: failed to connect: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Insert(ctx, &storage.Record{
		ID: 1, UserID: "alice", Fact: "User likes coffee", Embedding: []float64{1, 0, 0}, Category: "fact", CreatedAt: now,
	}))
	require.NoError(t, store.Supersede(ctx, "alice", 1, &storage.Record{
		ID: 2, UserID: "alice", Fact: "User likes tea", Embedding: []float64{0, 1, 0}, Category: "fact",
		EdgeType: "replace", CreatedAt: now.Add(time.Second),
	}))

	hits, err := store.Search(ctx, []float64{0, 1, 0}, &storage.SearchOptions{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].ID)

	deleted, err := store.SoftDelete(ctx, "alice", []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, deleted)
}
