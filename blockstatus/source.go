package blockstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gavel-mod/gavel/util"
)

// HTTPSource queries a media enforcement service for per-hash status:
// GET <endpoint>/blocked/<hash> returning {"action": "...", "reason": "..."}.
type HTTPSource struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

var _ Source = (*HTTPSource)(nil)

func NewHTTPSource(endpoint, apiKey string) *HTTPSource {
	return &HTTPSource{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   util.RobustHTTPClient(),
	}
}

func (s *HTTPSource) HashStatus(ctx context.Context, hash string) (Action, error) {
	u := fmt.Sprintf("%s/blocked/%s", s.Endpoint, url.PathEscape(hash))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ActionNone, err
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return ActionNone, fmt.Errorf("block status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ActionNone, nil
	}
	if resp.StatusCode != http.StatusOK {
		return ActionNone, fmt.Errorf("block status request status %d", resp.StatusCode)
	}

	var body struct {
		Action Action `json:"action"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ActionNone, fmt.Errorf("decoding block status: %w", err)
	}
	if body.Action == "" {
		return ActionNone, nil
	}
	return body.Action, nil
}
