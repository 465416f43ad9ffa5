package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

func newTestStore(t *testing.T) interfaces.BlobStore {
	t.Helper()
	store, err := NewStore(&common.BlobConfig{
		Dir:           t.TempDir(),
		PublicBaseURL: "http://localhost:8085/blobs/",
	}, common.GetLogger())
	require.NoError(t, err)
	return store
}

func TestStore_UploadDownload(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	url, err := store.Upload(ctx, []byte("content"), "scraped_20250601_120000_circular.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8085/blobs/scraped_20250601_120000_circular.pdf", url)

	data, err := store.Download(ctx, "scraped_20250601_120000_circular.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), data)

	exists, err := store.Exists(ctx, "scraped_20250601_120000_circular.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_UploadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Upload(ctx, []byte("v1"), "doc.pdf")
	require.NoError(t, err)
	_, err = store.Upload(ctx, []byte("v2"), "doc.pdf")
	require.NoError(t, err)

	data, err := store.Download(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestStore_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Upload(ctx, []byte("x"), "../escape.pdf")
	require.Error(t, err)
	assert.Equal(t, models.KindInputInvalid, models.KindOf(err))
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	assert.NoError(t, store.Delete(ctx, "absent.pdf"))

	_, err := store.Download(ctx, "absent.pdf")
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}
