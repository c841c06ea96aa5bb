package modstatus

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavel-mod/gavel/store"
)

// countingLists wraps MemStore's list capability and counts fetches.
type countingLists struct {
	*store.MemStore
	mu          sync.Mutex
	pubkeyCalls int
	eventCalls  int
}

func (c *countingLists) ListBannedPubkeys(ctx context.Context) ([]store.BannedPubkey, error) {
	c.mu.Lock()
	c.pubkeyCalls++
	c.mu.Unlock()
	return c.MemStore.ListBannedPubkeys(ctx)
}

func (c *countingLists) ListBannedEvents(ctx context.Context) ([]store.BannedEvent, error) {
	c.mu.Lock()
	c.eventCalls++
	c.mu.Unlock()
	return c.MemStore.ListBannedEvents(ctx)
}

// recordHandler captures log records so tests can assert a warning fired.
type recordHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordHandler) Enabled(ctx context.Context, level slog.Level) bool { return true }
func (h *recordHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}
func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(name string) slog.Handler       { return h }

func (h *recordHandler) warnings() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == slog.LevelWarn {
			n++
		}
	}
	return n
}

func TestResolverBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	st := store.NewMemStore()
	st.BannedPubkeys = []store.BannedPubkey{
		{Pubkey: "mallory", Reason: "spam"},
		{Pubkey: "eve"},
	}
	st.BannedEvents = []store.BannedEvent{
		{ID: "evt1", Reason: "csam"},
	}
	r := NewResolver(st, nil)

	assert.True(r.IsBanned(ctx, "mallory"))
	assert.Equal("spam", r.BanReason(ctx, "mallory"))
	assert.True(r.IsBanned(ctx, "eve"))
	assert.False(r.IsBanned(ctx, "alice"))
	assert.False(r.IsBanned(ctx, ""))

	deleted, reason := r.EventStatus(ctx, "evt1")
	assert.True(deleted)
	assert.Equal("csam", reason)
	deleted, _ = r.EventStatus(ctx, "evt2")
	assert.False(deleted)
	assert.False(r.Degraded())
}

func TestResolverUnsupportedDegrades(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	handler := &recordHandler{}
	st := store.NewMemStore()
	st.Unsupported = true
	r := NewResolver(st, slog.New(handler))

	assert.False(r.IsBanned(ctx, "mallory"), "unsupported capability must resolve to not-banned")
	deleted, _ := r.EventStatus(ctx, "evt1")
	assert.False(deleted)

	assert.True(r.Degraded())
	assert.GreaterOrEqual(handler.warnings(), 2, "fallback path must warn")
}

func TestResolverStaleness(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	lists := &countingLists{MemStore: store.NewMemStore()}
	r := NewResolver(lists, nil)

	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }

	r.IsBanned(ctx, "mallory")
	r.IsBanned(ctx, "mallory")
	r.IsBanned(ctx, "eve")
	assert.Equal(1, lists.pubkeyCalls, "within the staleness window only one fetch runs")

	// list changes server-side; not visible until the window lapses
	lists.BannedPubkeys = []store.BannedPubkey{{Pubkey: "mallory"}}
	assert.False(r.IsBanned(ctx, "mallory"))

	now = now.Add(31 * time.Second)
	assert.True(r.IsBanned(ctx, "mallory"))
	assert.Equal(2, lists.pubkeyCalls)
}

func TestResolverRefetch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	lists := &countingLists{MemStore: store.NewMemStore()}
	r := NewResolver(lists, nil)

	r.IsBanned(ctx, "mallory")
	r.EventStatus(ctx, "evt1")
	require.Equal(t, 1, lists.pubkeyCalls)
	require.Equal(t, 1, lists.eventCalls)

	// forces both fetches despite fresh caches
	lists.BannedPubkeys = []store.BannedPubkey{{Pubkey: "mallory"}}
	r.Refetch(ctx)
	assert.Equal(2, lists.pubkeyCalls)
	assert.Equal(2, lists.eventCalls)
	assert.True(r.IsBanned(ctx, "mallory"))
}
