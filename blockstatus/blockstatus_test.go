package blockstatus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	actions map[string]Action
	calls   int
}

func (s *fakeSource) HashStatus(ctx context.Context, hash string) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	action, ok := s.actions[hash]
	if !ok {
		return ActionNone, nil
	}
	return action, nil
}

func TestLookupEmpty(t *testing.T) {
	src := &fakeSource{}
	batch, err := NewResolver(src, nil).Lookup(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())
	assert.Equal(t, 0, src.calls, "empty batch must not query the source")
}

func TestLookupCounts(t *testing.T) {
	assert := assert.New(t)

	src := &fakeSource{actions: map[string]Action{
		"h1": ActionPermanentBan,
		"h2": ActionWarn,
		"h3": ActionAgeRestricted,
	}}
	batch, err := NewResolver(src, nil).Lookup(context.Background(), []string{"h1", "h2", "h3"})
	require.NoError(t, err)

	assert.Equal(3, batch.Len())
	assert.Equal(2, batch.BlockedCount())
	assert.Equal(1, batch.UnblockedCount())

	s, ok := batch.Get("h1")
	require.True(t, ok)
	assert.True(s.IsBlocked)
	assert.Equal(ActionPermanentBan, s.Action)

	s, ok = batch.Get("h2")
	require.True(t, ok)
	assert.False(s.IsBlocked, "warn-only actions are not blocking")

	_, ok = batch.Get("h4")
	assert.False(ok)
}

func TestLookupUnknownHash(t *testing.T) {
	src := &fakeSource{}
	batch, err := NewResolver(src, nil).Lookup(context.Background(), []string{"hx"})
	require.NoError(t, err)

	s, ok := batch.Get("hx")
	require.True(t, ok)
	assert.Equal(t, ActionNone, s.Action)
	assert.False(t, s.IsBlocked)
}

func TestLookupBatchCache(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	src := &fakeSource{actions: map[string]Action{"h1": ActionPermanentBan}}
	r := NewResolver(src, nil)

	_, err := r.Lookup(ctx, []string{"h1", "h2"})
	require.NoError(t, err)
	assert.Equal(2, src.calls)

	// identical batch within the window is served from cache
	_, err = r.Lookup(ctx, []string{"h1", "h2"})
	require.NoError(t, err)
	assert.Equal(2, src.calls)

	// different ordering is a different batch identity
	_, err = r.Lookup(ctx, []string{"h2", "h1"})
	require.NoError(t, err)
	assert.Equal(4, src.calls)
}
