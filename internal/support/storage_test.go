package support

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

func newTestStorage(t *testing.T, baseURL string) *LocalAttachmentStorage {
	t.Helper()
	storage, err := NewLocalAttachmentStorage(t.TempDir(), baseURL, testutil.Logger(t), observability.NewForTest())
	require.NoError(t, err)
	return storage
}

func TestStorageSaveWritesFile(t *testing.T) {
	storage := newTestStorage(t, "")

	stored, err := storage.Save(context.Background(), "/support/cases/tick-1/attachments/ab12cd34-receipt.pdf", []byte("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, "support/cases/tick-1/attachments/ab12cd34-receipt.pdf", stored.RelativePath)
	assert.Equal(t, stored.RelativePath, stored.URI)
	assert.Equal(t, int64(9), stored.SizeBytes)

	content, err := os.ReadFile(filepath.Join(storage.basePath, filepath.FromSlash(stored.RelativePath)))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), content)
}

func TestStorageSaveBuildsURIFromBaseURL(t *testing.T) {
	storage := newTestStorage(t, "https://cdn.example.com/attachments/")

	stored, err := storage.Save(context.Background(), "support/cases/tick-1/attachments/x-y.png", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/attachments/support/cases/tick-1/attachments/x-y.png", stored.URI)
}

func TestStorageOffloadOlderThan(t *testing.T) {
	storage := newTestStorage(t, "")
	ctx := context.Background()

	old, err := storage.Save(ctx, "support/cases/tick-1/attachments/old.txt", []byte("stale"))
	require.NoError(t, err)
	fresh, err := storage.Save(ctx, "support/cases/tick-1/attachments/fresh.txt", []byte("new"))
	require.NoError(t, err)

	oldPath := filepath.Join(storage.basePath, filepath.FromSlash(old.RelativePath))
	staleTime := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, staleTime, staleTime))

	moved, err := storage.OffloadOlderThan(ctx, 24*time.Hour, "")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Contains(t, moved[0], filepath.Join("archive", "support"))

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(storage.basePath, filepath.FromSlash(fresh.RelativePath)))
	assert.NoError(t, err)

	// Already archived files stay put on the next pass.
	moved, err = storage.OffloadOlderThan(ctx, 24*time.Hour, "")
	require.NoError(t, err)
	assert.Empty(t, moved)
}

func TestStorageOffloadRejectsNonPositiveAge(t *testing.T) {
	storage := newTestStorage(t, "")
	_, err := storage.OffloadOlderThan(context.Background(), 0, "")
	assert.Error(t, err)
}
