package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelscope/internal/domain"
	"parcelscope/internal/port"
	"parcelscope/internal/storage/local"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	root := t.TempDir()
	store, err := local.NewLocalStorage(root)
	require.NoError(t, err)
	ctx := context.Background()

	out, err := store.Upload(ctx, port.UploadInput{
		Bucket:      "parcelscope",
		Key:         "uploads/abc/abc.png",
		Body:        strings.NewReader("png-bytes"),
		ContentType: "image/png",
		Size:        9,
	})
	require.NoError(t, err)
	assert.Contains(t, out.Location, "uploads/abc/abc.png")

	data, err := store.Download(ctx, "parcelscope", "uploads/abc/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, "parcelscope", "uploads/abc/abc.png"))
	_, err = store.Download(ctx, "parcelscope", "uploads/abc/abc.png")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	_, err = os.Stat(filepath.Join(root, "parcelscope", "uploads", "abc"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_DeleteMissingIsNoop(t *testing.T) {
	store, err := local.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "b", "uploads/x/x.txt"))
}

func TestLocalStorage_RejectsEscapingKey(t *testing.T) {
	store, err := local.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), port.UploadInput{
		Bucket: "b",
		Key:    "../../etc/passwd",
		Body:   strings.NewReader("x"),
	})
	assert.Error(t, err)
}

func TestLocalStorage_Ping(t *testing.T) {
	root := t.TempDir()
	store, err := local.NewLocalStorage(root)
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(root))
	assert.Error(t, store.Ping(context.Background()))
}
