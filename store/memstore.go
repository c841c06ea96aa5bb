package store

import (
	"context"
	"sync"

	"github.com/nbd-wtf/go-nostr"
)

// MemStore is an in-memory EventStore for tests and local development. It
// records every filter it is asked to run so tests can assert that a code
// path issued (or did not issue) queries.
type MemStore struct {
	mu      sync.Mutex
	events  []*nostr.Event
	queries []nostr.Filter

	// BannedPubkeys / BannedEvents back the optional ModerationLists
	// capability. When Unsupported is set both list calls fail with
	// ErrUnsupported.
	BannedPubkeys []BannedPubkey
	BannedEvents  []BannedEvent
	Unsupported   bool
}

var _ EventStore = (*MemStore)(nil)
var _ ModerationLists = (*MemStore)(nil)

func NewMemStore(events ...*nostr.Event) *MemStore {
	return &MemStore{events: events}
}

func (s *MemStore) Add(events ...*nostr.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *MemStore) Query(ctx context.Context, filters ...nostr.Filter) ([]*nostr.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, filters...)

	seen := make(map[string]bool)
	var out []*nostr.Event
	for _, f := range filters {
		matched := 0
		for _, evt := range s.events {
			if f.Limit > 0 && matched >= f.Limit {
				break
			}
			if !f.Matches(evt) {
				continue
			}
			matched++
			if seen[evt.ID] {
				continue
			}
			seen[evt.ID] = true
			out = append(out, evt)
		}
	}
	return out, nil
}

// QueryCount reports how many filters have been executed so far.
func (s *MemStore) QueryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *MemStore) ListBannedPubkeys(ctx context.Context) ([]BannedPubkey, error) {
	if s.Unsupported {
		return nil, ErrUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BannedPubkey{}, s.BannedPubkeys...), nil
}

func (s *MemStore) ListBannedEvents(ctx context.Context) ([]BannedEvent, error) {
	if s.Unsupported {
		return nil, ErrUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BannedEvent{}, s.BannedEvents...), nil
}
