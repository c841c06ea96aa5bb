// Package blockstatus batch-resolves enforcement status for content hashes
// against an external media enforcement service.
package blockstatus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

// Action is the enforcement action recorded against a content hash.
type Action string

const (
	ActionNone          Action = "NONE"
	ActionWarn          Action = "WARN"
	ActionTemporaryBan  Action = "TEMPORARY_BAN"
	ActionPermanentBan  Action = "PERMANENT_BAN"
	ActionAgeRestricted Action = "AGE_RESTRICTED"
)

// Blocking reports whether an action hides content from default views. Warn
// and temporary actions do not.
func (a Action) Blocking() bool {
	return a == ActionPermanentBan || a == ActionAgeRestricted
}

// Source looks up the enforcement action for one content hash.
type Source interface {
	HashStatus(ctx context.Context, hash string) (Action, error)
}

// Status is one hash's resolved enforcement state.
type Status struct {
	Hash      string
	Action    Action
	IsBlocked bool
}

// BatchStatus is the result of one batch lookup, keyed by hash.
type BatchStatus struct {
	byHash map[string]Status
}

func (b *BatchStatus) Get(hash string) (Status, bool) {
	s, ok := b.byHash[hash]
	return s, ok
}

func (b *BatchStatus) Len() int { return len(b.byHash) }

func (b *BatchStatus) BlockedCount() int {
	n := 0
	for _, s := range b.byHash {
		if s.IsBlocked {
			n++
		}
	}
	return n
}

func (b *BatchStatus) UnblockedCount() int {
	return len(b.byHash) - b.BlockedCount()
}

// Resolver fans out per-hash lookups and caches whole batches for a short
// window, keyed by the ordered hash list.
type Resolver struct {
	Source Source
	Logger *slog.Logger
	// Concurrency bounds the per-hash fan-out.
	Concurrency int

	cache *expirable.LRU[string, *BatchStatus]
}

func NewResolver(source Source, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		Source:      source,
		Logger:      logger.With("system", "blockstatus"),
		Concurrency: 8,
		cache:       expirable.NewLRU[string, *BatchStatus](128, nil, 30*time.Second),
	}
}

func batchKey(hashes []string) string {
	sum := sha256.Sum256([]byte(strings.Join(hashes, "\n")))
	return hex.EncodeToString(sum[:])
}

// Lookup resolves enforcement status for every hash in the batch. An empty
// batch short-circuits without querying the source.
func (r *Resolver) Lookup(ctx context.Context, hashes []string) (*BatchStatus, error) {
	batch := &BatchStatus{byHash: make(map[string]Status, len(hashes))}
	if len(hashes) == 0 {
		return batch, nil
	}

	key := batchKey(hashes)
	if cached, ok := r.cache.Get(key); ok {
		batchCacheHits.Inc()
		return cached, nil
	}

	results := make([]Status, len(hashes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Concurrency)
	for i, hash := range hashes {
		g.Go(func() error {
			action, err := r.Source.HashStatus(ctx, hash)
			if err != nil {
				return err
			}
			results[i] = Status{Hash: hash, Action: action, IsBlocked: action.Blocking()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, s := range results {
		batch.byHash[s.Hash] = s
	}
	batchLookups.Add(float64(len(hashes)))
	r.cache.Add(key, batch)
	return batch, nil
}
