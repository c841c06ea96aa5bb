// Package modstatus answers "is this account banned, is this content
// deleted" against a relay's optional enforcement-list capability, degrading
// to empty lists when the relay does not support it.
package modstatus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gavel-mod/gavel/store"
)

const defaultTTL = 30 * time.Second

// cacheEntry is an explicit value+fetch-time pair so staleness semantics are
// testable with a fake clock.
type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

func (e *cacheEntry[T]) stale(now time.Time, ttl time.Duration) bool {
	return e.fetchedAt.IsZero() || now.Sub(e.fetchedAt) >= ttl
}

// Resolver caches the banned-pubkey and banned-event lists independently,
// each on its own staleness window.
//
// When the capability is unsupported (or a fetch fails) the affected list
// degrades to empty: "capability unsupported, assumed not banned" is not
// distinguishable from "confirmed not banned" by the boolean results, so a
// warning is logged and Degraded is set for callers that want to surface the
// ambiguity.
type Resolver struct {
	Lists  store.ModerationLists
	Logger *slog.Logger
	TTL    time.Duration

	// now is swapped out by tests
	now func() time.Time

	mu            sync.Mutex
	bannedPubkeys cacheEntry[map[string]string]
	bannedEvents  cacheEntry[map[string]string]
	degraded      bool
}

func NewResolver(lists store.ModerationLists, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		Lists:  lists,
		Logger: logger.With("system", "modstatus"),
		TTL:    defaultTTL,
		now:    time.Now,
	}
}

func (r *Resolver) refreshPubkeys(ctx context.Context, force bool) map[string]string {
	if !force && !r.bannedPubkeys.stale(r.now(), r.TTL) {
		return r.bannedPubkeys.value
	}
	byPubkey := make(map[string]string)
	entries, err := r.Lists.ListBannedPubkeys(ctx)
	if err != nil {
		r.Logger.Warn("banned-pubkey list unavailable, assuming empty", "err", err)
		statusListFallbacks.WithLabelValues("pubkeys").Inc()
		r.degraded = true
	} else {
		r.degraded = false
		for _, e := range entries {
			byPubkey[e.Pubkey] = e.Reason
		}
	}
	r.bannedPubkeys = cacheEntry[map[string]string]{value: byPubkey, fetchedAt: r.now()}
	return byPubkey
}

func (r *Resolver) refreshEvents(ctx context.Context, force bool) map[string]string {
	if !force && !r.bannedEvents.stale(r.now(), r.TTL) {
		return r.bannedEvents.value
	}
	byID := make(map[string]string)
	entries, err := r.Lists.ListBannedEvents(ctx)
	if err != nil {
		r.Logger.Warn("banned-event list unavailable, assuming empty", "err", err)
		statusListFallbacks.WithLabelValues("events").Inc()
	} else {
		for _, e := range entries {
			byID[e.ID] = e.Reason
		}
	}
	r.bannedEvents = cacheEntry[map[string]string]{value: byID, fetchedAt: r.now()}
	return byID
}

// IsBanned reports whether pubkey appears on the relay's banned-identity
// list. List fetch failures degrade to false, never to an error.
func (r *Resolver) IsBanned(ctx context.Context, pubkey string) bool {
	if pubkey == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, banned := r.refreshPubkeys(ctx, false)[pubkey]
	return banned
}

// BanReason returns the recorded reason for a banned pubkey, when the relay
// provided one.
func (r *Resolver) BanReason(ctx context.Context, pubkey string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshPubkeys(ctx, false)[pubkey]
}

// EventStatus reports whether the event id appears on the banned/deleted
// event list, and the recorded reason when present.
func (r *Resolver) EventStatus(ctx context.Context, eventID string) (deleted bool, reason string) {
	if eventID == "" {
		return false, ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reason, deleted = r.refreshEvents(ctx, false)[eventID]
	return deleted, reason
}

// Degraded reports whether the last banned-pubkey refresh fell back to an
// empty list. Callers should treat "not banned" as "unknown" while degraded.
func (r *Resolver) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Refetch bypasses both staleness windows and re-runs both list fetches.
func (r *Resolver) Refetch(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshPubkeys(ctx, true)
	r.refreshEvents(ctx, true)
}
