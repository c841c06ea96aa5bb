package thread

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nbd-wtf/go-nostr"

	"github.com/gavel-mod/gavel/store"
)

// maxRootWalkDepth bounds how far ResolveRoot chases parent links when a
// reply chain never states its root.
const maxRootWalkDepth = 25

// Fetcher loads conversation threads out of an event store.
type Fetcher struct {
	Store  store.EventStore
	Logger *slog.Logger
	// MaxEvents bounds the thread event set fetched per conversation.
	MaxEvents int
}

func NewFetcher(st store.EventStore, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		Store:     st,
		Logger:    logger.With("system", "thread"),
		MaxEvents: 500,
	}
}

func (f *Fetcher) getEvent(ctx context.Context, id string) (*nostr.Event, error) {
	evts, err := f.Store.Query(ctx, nostr.Filter{IDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(evts) == 0 {
		return nil, fmt.Errorf("event %s: %w", id, ErrRootNotFound)
	}
	return evts[0], nil
}

// ResolveRoot finds the conversation root for an event: the event's own root
// link when stated, otherwise a bounded walk up parent links. An event with
// no reply links is its own root.
func (f *Fetcher) ResolveRoot(ctx context.Context, eventID string) (*nostr.Event, error) {
	evt, err := f.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for depth := 0; depth < maxRootWalkDepth; depth++ {
		links := ParseReplyLinks(evt)
		if links == nil {
			return evt, nil
		}
		next := links.RootID
		if next == "" {
			next = links.ParentID
		}
		parent, err := f.getEvent(ctx, next)
		if err != nil {
			// dangling link: treat the last resolvable event as root
			f.Logger.Debug("root walk hit missing parent", "event", evt.ID, "parent", next)
			return evt, nil
		}
		evt = parent
		if links.RootID != "" {
			// a stated root is authoritative once fetched
			return evt, nil
		}
	}
	return evt, nil
}

// FetchThread loads the event set for a conversation and reconstructs the
// reply tree under rootID. Replies that tag only an intermediate parent are
// attached when the fetched set contains them; the set is not recursively
// expanded.
func (f *Fetcher) FetchThread(ctx context.Context, rootID string) (*Node, error) {
	events, err := f.Store.Query(ctx,
		nostr.Filter{IDs: []string{rootID}, Limit: 1},
		nostr.Filter{Tags: nostr.TagMap{"e": []string{rootID}}, Limit: f.MaxEvents},
	)
	if err != nil {
		return nil, fmt.Errorf("fetching thread events: %w", err)
	}
	node, err := Reconstruct(events, rootID)
	if err != nil {
		return nil, err
	}
	threadFetchedEvents.Add(float64(len(events)))
	threadNodeCount.Observe(float64(node.Size()))
	return node, nil
}
