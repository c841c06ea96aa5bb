// Package cachestore is a small named-namespace string cache with in-memory
// and redis backends. The daemon uses it to share aggregated review context
// and status snapshots across replicas.
package cachestore

import (
	"context"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
