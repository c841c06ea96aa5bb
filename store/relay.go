package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/time/rate"
)

// RelayStore queries a set of relays through a shared connection pool,
// de-duplicating events by id across relays.
type RelayStore struct {
	pool    *nostr.SimplePool
	relays  []string
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ EventStore = (*RelayStore)(nil)

type RelayStoreConfig struct {
	Relays []string
	// QueryRateLimit is max queries per second against the pool; zero means
	// no limit.
	QueryRateLimit int
	Logger         *slog.Logger
}

func NewRelayStore(ctx context.Context, config RelayStoreConfig) (*RelayStore, error) {
	if len(config.Relays) == 0 {
		return nil, fmt.Errorf("relay store requires at least one relay URL")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if config.QueryRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.QueryRateLimit), 1)
	}
	return &RelayStore{
		pool:    nostr.NewSimplePool(ctx),
		relays:  config.Relays,
		limiter: limiter,
		logger:  logger.With("system", "store"),
	}, nil
}

// Query runs all filters against every configured relay and collects results
// until end-of-stored-events. Event order is whatever the relays return.
func (s *RelayStore) Query(ctx context.Context, filters ...nostr.Filter) ([]*nostr.Event, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	var out []*nostr.Event
	ch := s.pool.SubManyEose(ctx, s.relays, filters)
	for {
		select {
		case <-ctx.Done():
			return out, context.Cause(ctx)
		case ie, ok := <-ch:
			if !ok {
				s.logger.Debug("relay query complete", "filters", len(filters), "events", len(out))
				return out, nil
			}
			if ie.Event == nil || seen[ie.Event.ID] {
				continue
			}
			seen[ie.Event.ID] = true
			out = append(out, ie.Event)
		}
	}
}
