package reputation

import (
	"context"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavel-mod/gavel/store"
)

func evt(id, pubkey string, kind int, createdAt int64, tags ...nostr.Tag) *nostr.Event {
	return &nostr.Event{
		ID:        id,
		PubKey:    pubkey,
		Kind:      kind,
		CreatedAt: nostr.Timestamp(createdAt),
		Tags:      tags,
	}
}

func TestUserStatsNoIdentity(t *testing.T) {
	assert := assert.New(t)
	st := store.NewMemStore()

	stats, err := NewAggregator(st, nil).UserStats(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(0, stats.PostCount)
	assert.Equal(0, stats.ReportCount)
	assert.Equal(0, stats.LabelCount)
	assert.Equal(0, st.QueryCount(), "no identity must mean no queries")
}

func TestUserStats(t *testing.T) {
	assert := assert.New(t)

	st := store.NewMemStore(
		evt("post1", "alice", nostr.KindTextNote, 100),
		evt("post2", "alice", nostr.KindTextNote, 300),
		evt("post3", "alice", nostr.KindTextNote, 200),
		evt("post-other", "bob", nostr.KindTextNote, 400),
		evt("label1", "mod", nostr.KindLabel, 150, nostr.Tag{"p", "alice"}),
		evt("report1", "bob", nostr.KindReporting, 160, nostr.Tag{"p", "alice"}),
		evt("report2", "carol", nostr.KindReporting, 170, nostr.Tag{"p", "alice"}),
	)

	stats, err := NewAggregator(st, nil).UserStats(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(3, stats.PostCount)
	assert.Equal(1, stats.LabelCount)
	assert.Equal(2, stats.ReportCount)

	// most recent first, regardless of store order
	require.Len(t, stats.RecentPosts, 3)
	assert.Equal("post2", stats.RecentPosts[0].ID)
	assert.Equal("post3", stats.RecentPosts[1].ID)
	assert.Equal("post1", stats.RecentPosts[2].ID)
}

func TestReportCount(t *testing.T) {
	st := store.NewMemStore(
		evt("r1", "bob", nostr.KindReporting, 1, nostr.Tag{"p", "alice"}),
		evt("r2", "bob", nostr.KindReporting, 2, nostr.Tag{"e", "some-event"}),
		evt("r3", "carol", nostr.KindReporting, 3, nostr.Tag{"p", "alice"}),
	)
	agg := NewAggregator(st, nil)

	n, err := agg.ReportCount(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = agg.ReportCount(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestProfile(t *testing.T) {
	assert := assert.New(t)

	st := store.NewMemStore(
		evt("meta-old", "alice", nostr.KindProfileMetadata, 100),
		&nostr.Event{
			ID:        "meta-new",
			PubKey:    "alice",
			Kind:      nostr.KindProfileMetadata,
			CreatedAt: 200,
			Content:   `{"name":"alice","about":"hi","picture":"https://example.com/a.png"}`,
		},
		&nostr.Event{
			ID:        "meta-bad",
			PubKey:    "mallory",
			Kind:      nostr.KindProfileMetadata,
			CreatedAt: 100,
			Content:   `{not json`,
		},
	)
	agg := NewAggregator(st, nil)

	profile, err := agg.Profile(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal("alice", profile.Name)
	assert.Equal("hi", profile.About)

	// malformed content degrades to an empty profile
	profile, err = agg.Profile(context.Background(), "mallory")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal("", profile.Name)

	// missing profile is nil, not an error
	profile, err = agg.Profile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(profile)
}
