package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dimi/db"
	"dimi/model"
)

func newUploadRepo(t *testing.T) UploadRepository {
	t.Helper()
	gdb, err := db.OpenMemory(strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateModels(gdb, &model.Upload{}))
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})
	return NewGormUploadRepository(gdb)
}

func TestUploadRepository_LatestBySHA256(t *testing.T) {
	repo := newUploadRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &model.Upload{SHA256: "aa", URI: "https://arweave.net/1", Bytes: 3, CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, &model.Upload{SHA256: "aa", URI: "https://arweave.net/2", Bytes: 3, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, &model.Upload{SHA256: "bb", URI: "https://arweave.net/3", Bytes: 5, CreatedAt: base}))

	got, err := repo.GetLatestBySHA256(ctx, "aa")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://arweave.net/2", got.URI)

	missing, err := repo.GetLatestBySHA256(ctx, "cc")
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUploadRepository_ListByUploader(t *testing.T) {
	repo := newUploadRepo(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Create(ctx, &model.Upload{SHA256: "x", URI: "u", Uploader: "alice"}))
	}
	require.NoError(t, repo.Create(ctx, &model.Upload{SHA256: "y", URI: "u", Uploader: "bob"}))

	list, err := repo.ListByUploader(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.ListByUploader(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, list, 4)
	for _, u := range list {
		assert.Equal(t, "alice", u.Uploader)
	}
}
