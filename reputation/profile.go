package reputation

import (
	"context"
	"encoding/json"

	"github.com/nbd-wtf/go-nostr"
)

// Profile is the self-asserted metadata an identity publishes about itself.
type Profile struct {
	Pubkey      string `json:"-"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	About       string `json:"about"`
	Picture     string `json:"picture"`
	Nip05       string `json:"nip05"`
}

// Profile fetches the latest profile metadata event for pubkey. Malformed
// metadata content yields an empty profile, not an error; a missing profile
// yields nil.
func (a *Aggregator) Profile(ctx context.Context, pubkey string) (*Profile, error) {
	if pubkey == "" {
		return nil, nil
	}
	evts, err := a.Store.Query(ctx, nostr.Filter{
		Authors: []string{pubkey},
		Kinds:   []int{nostr.KindProfileMetadata},
		Limit:   5,
	})
	if err != nil {
		return nil, err
	}
	var latest *nostr.Event
	for _, evt := range evts {
		if latest == nil || evt.CreatedAt > latest.CreatedAt {
			latest = evt
		}
	}
	if latest == nil {
		return nil, nil
	}
	profile := &Profile{Pubkey: pubkey}
	if err := json.Unmarshal([]byte(latest.Content), profile); err != nil {
		a.Logger.Debug("malformed profile metadata", "pubkey", pubkey, "err", err)
	}
	return profile, nil
}
