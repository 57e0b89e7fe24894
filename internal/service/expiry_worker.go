package service

import (
	"context"
	"log"
	"time"

	"parcelscope/internal/port"
)

// ExpiryWorkerConfig holds settings for the expiry worker.
type ExpiryWorkerConfig struct {
	SweepInterval time.Duration
}

// ExpiryWorker periodically evicts expired uploads from the document store.
// Eviction removes the stored blob as well.
type ExpiryWorker struct {
	docs port.DocumentStore
	cfg  ExpiryWorkerConfig
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(docs port.DocumentStore, cfg ExpiryWorkerConfig) *ExpiryWorker {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &ExpiryWorker{docs: docs, cfg: cfg}
}

// Start runs the sweep loop until ctx is canceled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	log.Printf("expiryWorker: started (sweep=%s)", w.cfg.SweepInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("expiryWorker: shutdown complete")
			return
		case <-ticker.C:
			if n := w.docs.DeleteExpired(ctx); n > 0 {
				log.Printf("expiryWorker: evicted %d expired document(s), %d remaining", n, w.docs.Len())
			}
		}
	}
}
