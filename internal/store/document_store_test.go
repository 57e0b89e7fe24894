package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"parcelscope/internal/domain"
	"parcelscope/internal/store"
	"parcelscope/mocks"
)

func newDoc(expires time.Time) *domain.Document {
	id := uuid.New()
	return &domain.Document{
		ID:            id,
		OriginalName:  "parcel.png",
		FileType:      domain.FileTypePNG,
		StorageBucket: "parcelscope",
		StorageKey:    "uploads/" + id.String() + "/" + id.String() + ".png",
		UploadedAt:    time.Now(),
		ExpiresAt:     expires,
	}
}

func expectBlobDelete(blobs *mocks.MockObjectStorage, doc *domain.Document) chan string {
	deleted := make(chan string, 1)
	blobs.On("Delete", mock.Anything, doc.StorageBucket, doc.StorageKey).
		Run(func(args mock.Arguments) { deleted <- args.String(2) }).
		Return(nil)
	return deleted
}

func waitFor(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for blob deletion")
		return ""
	}
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	s := store.NewDocumentStore(time.Hour, new(mocks.MockObjectStorage))
	ctx := context.Background()
	doc := newDoc(time.Now().Add(time.Hour))

	require.NoError(t, s.Save(ctx, doc))
	got, err := s.Get(ctx, doc.ID)

	require.NoError(t, err)
	assert.Equal(t, doc.OriginalName, got.OriginalName)
	assert.Equal(t, 1, s.Len())

	got.OriginalName = "mutated"
	again, err := s.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "parcel.png", again.OriginalName, "stored documents are immutable")
}

func TestDocumentStore_GetUnknown(t *testing.T) {
	s := store.NewDocumentStore(time.Hour, nil)

	_, err := s.Get(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentStore_SaveExpired(t *testing.T) {
	s := store.NewDocumentStore(time.Hour, nil)

	err := s.Save(context.Background(), newDoc(time.Now().Add(-time.Second)))

	assert.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestDocumentStore_DeleteRemovesBlob(t *testing.T) {
	blobs := new(mocks.MockObjectStorage)
	s := store.NewDocumentStore(time.Hour, blobs)
	ctx := context.Background()
	doc := newDoc(time.Now().Add(time.Hour))
	deleted := expectBlobDelete(blobs, doc)

	require.NoError(t, s.Save(ctx, doc))
	require.NoError(t, s.Delete(ctx, doc.ID))

	assert.Equal(t, doc.StorageKey, waitFor(t, deleted))
	_, err := s.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	assert.ErrorIs(t, s.Delete(ctx, doc.ID), domain.ErrDocumentNotFound)
}

func TestDocumentStore_ExpiryEvictsAndDeletesBlob(t *testing.T) {
	blobs := new(mocks.MockObjectStorage)
	s := store.NewDocumentStore(time.Hour, blobs)
	ctx := context.Background()
	doc := newDoc(time.Now().Add(50 * time.Millisecond))
	deleted := expectBlobDelete(blobs, doc)

	require.NoError(t, s.Save(ctx, doc))
	time.Sleep(80 * time.Millisecond)

	_, err := s.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	assert.Equal(t, 1, s.DeleteExpired(ctx))
	assert.Equal(t, doc.StorageKey, waitFor(t, deleted))
	assert.Zero(t, s.Len())
}

func TestDocumentStore_Analysis(t *testing.T) {
	s := store.NewDocumentStore(time.Hour, nil)
	ctx := context.Background()
	doc := newDoc(time.Now().Add(time.Hour))
	require.NoError(t, s.Save(ctx, doc))

	_, err := s.LatestAnalysis(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotAnalyzed)

	analysis := &domain.Analysis{ID: uuid.New(), ModelUsed: "gpt-4o"}
	require.NoError(t, s.SaveAnalysis(ctx, doc.ID, analysis))

	got, err := s.LatestAnalysis(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.ID, got.ID)

	assert.ErrorIs(t, s.SaveAnalysis(ctx, uuid.New(), analysis), domain.ErrDocumentNotFound)
}

func TestDocumentStore_SaveAnalysisKeepsExpiry(t *testing.T) {
	s := store.NewDocumentStore(time.Hour, nil)
	ctx := context.Background()
	doc := newDoc(time.Now().Add(60 * time.Millisecond))
	require.NoError(t, s.Save(ctx, doc))

	require.NoError(t, s.SaveAnalysis(ctx, doc.ID, &domain.Analysis{ID: uuid.New()}))
	time.Sleep(100 * time.Millisecond)

	_, err := s.LatestAnalysis(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentStore_CanceledContext(t *testing.T) {
	s := store.NewDocumentStore(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, newDoc(time.Time{})), context.Canceled)
	assert.Zero(t, s.DeleteExpired(ctx))
}
