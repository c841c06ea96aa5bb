package store

import (
	"context"
	"errors"

	"github.com/nbd-wtf/go-nostr"
)

// EventStore is the query surface this service consumes from the underlying
// protocol store (usually one or more relays). No ordering is guaranteed;
// consumers impose their own.
type EventStore interface {
	Query(ctx context.Context, filters ...nostr.Filter) ([]*nostr.Event, error)
}

// ErrUnsupported indicates the backing store does not implement an optional
// extension capability. Callers are expected to degrade, not fail.
var ErrUnsupported = errors.New("store capability unsupported")

// BannedPubkey is one entry of a relay's banned-identity list. Reason may be
// empty; some deployments only return bare pubkeys.
type BannedPubkey struct {
	Pubkey string
	Reason string
}

// BannedEvent is one entry of a relay's banned/deleted-event list.
type BannedEvent struct {
	ID     string
	Reason string
}

// ModerationLists is an optional store extension exposing relay-level
// enforcement lists. Implementations return ErrUnsupported (possibly wrapped)
// when the backing relay does not provide the capability.
type ModerationLists interface {
	ListBannedPubkeys(ctx context.Context) ([]BannedPubkey, error)
	ListBannedEvents(ctx context.Context) ([]BannedEvent, error)
}
