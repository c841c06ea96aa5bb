// Package reputation computes bounded, recent-window activity signals for a
// single identity: how much they post, how often they get labeled, and how
// often they get reported.
package reputation

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/sync/errgroup"

	"github.com/gavel-mod/gavel/store"
)

// UserStats is a recent-window sample of one identity's activity. PostCount
// counts the fetched sample, not lifetime totals.
type UserStats struct {
	PostCount   int
	ReportCount int
	LabelCount  int

	RecentPosts     []*nostr.Event
	ExistingLabels  []*nostr.Event
	PreviousReports []*nostr.Event
}

type Aggregator struct {
	Store  store.EventStore
	Logger *slog.Logger
	// Timeout bounds all three stats queries together.
	Timeout time.Duration
	// QueryLimit bounds each individual query.
	QueryLimit int
}

func NewAggregator(st store.EventStore, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		Store:      st,
		Logger:     logger.With("system", "reputation"),
		Timeout:    8 * time.Second,
		QueryLimit: 50,
	}
}

var errStatsBudget = errors.New("user stats budget exceeded")

// UserStats assembles activity signals for pubkey with three concurrent
// bounded queries under one shared deadline. An empty pubkey short-circuits
// to zero stats without touching the store.
func (a *Aggregator) UserStats(ctx context.Context, pubkey string) (*UserStats, error) {
	stats := &UserStats{}
	if pubkey == "" {
		return stats, nil
	}

	ctx, cancel := context.WithTimeoutCause(ctx, a.Timeout, errStatsBudget)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		posts, err := a.Store.Query(ctx, nostr.Filter{
			Authors: []string{pubkey},
			Kinds:   []int{nostr.KindTextNote},
			Limit:   a.QueryLimit,
		})
		if err != nil {
			return err
		}
		// the store guarantees no ordering
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].CreatedAt > posts[j].CreatedAt
		})
		stats.RecentPosts = posts
		stats.PostCount = len(posts)
		return nil
	})
	g.Go(func() error {
		labels, err := a.Store.Query(ctx, nostr.Filter{
			Kinds: []int{nostr.KindLabel},
			Tags:  nostr.TagMap{"p": []string{pubkey}},
			Limit: a.QueryLimit,
		})
		if err != nil {
			return err
		}
		stats.ExistingLabels = labels
		stats.LabelCount = len(labels)
		return nil
	})
	g.Go(func() error {
		reports, err := a.Store.Query(ctx, nostr.Filter{
			Kinds: []int{nostr.KindReporting},
			Tags:  nostr.TagMap{"p": []string{pubkey}},
			Limit: a.QueryLimit,
		})
		if err != nil {
			return err
		}
		stats.PreviousReports = reports
		stats.ReportCount = len(reports)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// ReportCount counts recent reports authored by pubkey (reporter history).
func (a *Aggregator) ReportCount(ctx context.Context, pubkey string) (int, error) {
	if pubkey == "" {
		return 0, nil
	}
	reports, err := a.Store.Query(ctx, nostr.Filter{
		Authors: []string{pubkey},
		Kinds:   []int{nostr.KindReporting},
		Limit:   a.QueryLimit,
	})
	if err != nil {
		return 0, err
	}
	return len(reports), nil
}
