package report

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportEvt(reporter string, tags ...nostr.Tag) *nostr.Event {
	return &nostr.Event{
		ID:     "report-id",
		PubKey: reporter,
		Kind:   nostr.KindReporting,
		Tags:   tags,
	}
}

func TestResolveTargetPositional(t *testing.T) {
	assert := assert.New(t)

	target, err := ResolveTarget(reportEvt("bob",
		nostr.Tag{"e", "evt1"},
		nostr.Tag{"p", "alice"},
		nostr.Tag{"report", "spam"},
	))
	require.NoError(t, err)
	assert.Equal(TargetEvent, target.Type)
	assert.Equal("evt1", target.Value)
	assert.Equal("spam", target.Category)
	assert.Equal("alice", target.ReportedPubkey)

	target, err = ResolveTarget(reportEvt("bob",
		nostr.Tag{"p", "alice"},
		nostr.Tag{"report", "impersonation"},
	))
	require.NoError(t, err)
	assert.Equal(TargetPubkey, target.Type)
	assert.Equal("alice", target.Value)
	assert.Equal("alice", target.ReportedPubkey)
	assert.Equal("impersonation", target.Category)
}

func TestResolveTargetCategorized(t *testing.T) {
	assert := assert.New(t)

	target, err := ResolveTarget(reportEvt("bob", nostr.Tag{"e", "evt1", "nudity"}))
	require.NoError(t, err)
	assert.Equal(TargetEvent, target.Type)
	assert.Equal("nudity", target.Category)

	target, err = ResolveTarget(reportEvt("bob", nostr.Tag{"p", "alice", "harassment"}))
	require.NoError(t, err)
	assert.Equal(TargetPubkey, target.Type)
	assert.Equal("harassment", target.Category)
}

func TestResolveTargetNamespacedLabel(t *testing.T) {
	assert := assert.New(t)

	target, err := ResolveTarget(reportEvt("bob",
		nostr.Tag{"e", "evt1"},
		nostr.Tag{"L", "MOD"},
		nostr.Tag{"l", "NS-csam", "MOD"},
	))
	require.NoError(t, err)
	assert.Equal("csam", target.Category)

	// l-tag without a declared namespace is ignored
	target, err = ResolveTarget(reportEvt("bob",
		nostr.Tag{"e", "evt1"},
		nostr.Tag{"l", "NS-spam", "OTHER"},
	))
	require.NoError(t, err)
	assert.Equal("", target.Category)
}

func TestResolveTargetPriority(t *testing.T) {
	assert := assert.New(t)

	// event target outranks pubkey target regardless of tag order
	target, err := ResolveTarget(reportEvt("bob",
		nostr.Tag{"p", "alice"},
		nostr.Tag{"e", "evt1"},
	))
	require.NoError(t, err)
	assert.Equal(TargetEvent, target.Type)
	assert.Equal("evt1", target.Value)
	assert.Equal("alice", target.ReportedPubkey)

	// report tag outranks the categorized third element
	target, err = ResolveTarget(reportEvt("bob",
		nostr.Tag{"e", "evt1", "nudity"},
		nostr.Tag{"report", "spam"},
	))
	require.NoError(t, err)
	assert.Equal("spam", target.Category)
}

func TestResolveTargetNone(t *testing.T) {
	_, err := ResolveTarget(reportEvt("bob", nostr.Tag{"report", "spam"}))
	assert.ErrorIs(t, err, ErrNoTarget)
}
