// Package store keeps uploaded documents and their latest analysis in
// memory, keyed by file_id, until they expire.
package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"parcelscope/internal/domain"
	"parcelscope/internal/port"
)

const blobDeleteTimeout = 30 * time.Second

type entry struct {
	doc      domain.Document
	analysis *domain.Analysis
}

type documentStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[uuid.UUID, entry]
	blobs port.ObjectStorage
}

// NewDocumentStore creates a DocumentStore whose entries live for ttl unless
// the document carries its own ExpiresAt. When an entry is deleted or
// expires, its blob is removed from blobs.
func NewDocumentStore(ttl time.Duration, blobs port.ObjectStorage) port.DocumentStore {
	s := &documentStore{
		cache: ttlcache.New[uuid.UUID, entry](
			ttlcache.WithTTL[uuid.UUID, entry](ttl),
			ttlcache.WithDisableTouchOnHit[uuid.UUID, entry](),
		),
		blobs: blobs,
	}
	s.cache.OnEviction(s.onEviction)
	return s
}

func (s *documentStore) onEviction(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[uuid.UUID, entry]) {
	doc := item.Value().doc
	if s.blobs == nil || doc.StorageKey == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, blobDeleteTimeout)
	defer cancel()
	if err := s.blobs.Delete(ctx, doc.StorageBucket, doc.StorageKey); err != nil {
		log.Printf("documentStore.onEviction: deleting blob for %s (reason %d): %v", doc.ID, reason, err)
		return
	}
	log.Printf("documentStore.onEviction: removed %s (reason %d)", doc.ID, reason)
}

func (s *documentStore) Save(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ttl := ttlcache.DefaultTTL
	if !doc.ExpiresAt.IsZero() {
		ttl = time.Until(doc.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("document %s already expired", doc.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(doc.ID, entry{doc: *doc}, ttl)
	return nil
}

// lookup returns the live entry for id and its remaining lifetime.
func (s *documentStore) lookup(id uuid.UUID) (entry, time.Duration, error) {
	item := s.cache.Get(id)
	if item == nil || item.IsExpired() {
		return entry{}, 0, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	return item.Value(), time.Until(item.ExpiresAt()), nil
}

func (s *documentStore) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	doc := e.doc
	return &doc, nil
}

func (s *documentStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.lookup(id); err != nil {
		return err
	}
	s.cache.Delete(id)
	return nil
}

// SaveAnalysis replaces the stored analysis for fileID without extending the
// document's lifetime.
func (s *documentStore) SaveAnalysis(ctx context.Context, fileID uuid.UUID, analysis *domain.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, remaining, err := s.lookup(fileID)
	if err != nil {
		return err
	}
	if remaining <= 0 {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, fileID)
	}
	a := *analysis
	e.analysis = &a
	s.cache.Set(fileID, e, remaining)
	return nil
}

func (s *documentStore) LatestAnalysis(ctx context.Context, fileID uuid.UUID) (*domain.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _, err := s.lookup(fileID)
	if err != nil {
		return nil, err
	}
	if e.analysis == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotAnalyzed, fileID)
	}
	a := *e.analysis
	return &a, nil
}

// DeleteExpired evicts expired entries and returns how many were removed.
func (s *documentStore) DeleteExpired(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.cache.Metrics().Evictions
	s.cache.DeleteExpired()
	return int(s.cache.Metrics().Evictions - before)
}

func (s *documentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
