package modstatus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gavel-mod/gavel/store"
	"github.com/gavel-mod/gavel/util"
)

// ManagementClient speaks the relay management RPC (JSON over HTTP POST) and
// exposes the optional enforcement-list capability. Relays that do not
// implement the management API surface as store.ErrUnsupported.
type ManagementClient struct {
	Endpoint string
	// AuthHeader is sent as Authorization when non-empty.
	AuthHeader string
	Client     *http.Client
}

var _ store.ModerationLists = (*ManagementClient)(nil)

func NewManagementClient(endpoint, authHeader string) *ManagementClient {
	return &ManagementClient{
		Endpoint:   endpoint,
		AuthHeader: authHeader,
		Client:     util.RobustHTTPClient(),
	}
}

type mgmtRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type mgmtResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (c *ManagementClient) call(ctx context.Context, method string, result any) error {
	body, err := json.Marshal(mgmtRequest{Method: method, Params: []any{}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/nostr+json+rpc")
	if c.AuthHeader != "" {
		req.Header.Set("Authorization", c.AuthHeader)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("management request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return fmt.Errorf("%s: %w", method, store.ErrUnsupported)
	default:
		return fmt.Errorf("management request status %d", resp.StatusCode)
	}

	var out mgmtResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decoding management response: %w", err)
	}
	if out.Error != "" {
		return fmt.Errorf("%s: %s: %w", method, out.Error, store.ErrUnsupported)
	}
	if result != nil && len(out.Result) > 0 {
		if err := json.Unmarshal(out.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// bannedEntry tolerates both entry shapes relays return: a bare string, or a
// structured object with a reason. Normalization happens here, at the decode
// boundary, so comparison logic only ever sees one shape.
type bannedEntry struct {
	Value  string
	Reason string
}

func (e *bannedEntry) UnmarshalJSON(raw []byte) error {
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		e.Value = bare
		return nil
	}
	var structured struct {
		Pubkey string `json:"pubkey"`
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &structured); err != nil {
		return err
	}
	e.Value = structured.Pubkey
	if e.Value == "" {
		e.Value = structured.ID
	}
	e.Reason = structured.Reason
	return nil
}

func (c *ManagementClient) ListBannedPubkeys(ctx context.Context) ([]store.BannedPubkey, error) {
	var entries []bannedEntry
	if err := c.call(ctx, "listbannedpubkeys", &entries); err != nil {
		return nil, err
	}
	out := make([]store.BannedPubkey, 0, len(entries))
	for _, e := range entries {
		if e.Value == "" {
			continue
		}
		out = append(out, store.BannedPubkey{Pubkey: e.Value, Reason: e.Reason})
	}
	return out, nil
}

func (c *ManagementClient) ListBannedEvents(ctx context.Context) ([]store.BannedEvent, error) {
	var entries []bannedEntry
	if err := c.call(ctx, "listbannedevents", &entries); err != nil {
		return nil, err
	}
	out := make([]store.BannedEvent, 0, len(entries))
	for _, e := range entries {
		if e.Value == "" {
			continue
		}
		out = append(out, store.BannedEvent{ID: e.Value, Reason: e.Reason})
	}
	return out, nil
}
