package federation

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/aegishub/hub/internal/herr"
	"github.com/aegishub/hub/internal/model"
)

// peerSearchResponse is the wire shape returned by a peer hub's own search
// endpoint when queried with federate_flag=false.
type peerSearchResponse struct {
	Hits []struct {
		Fragment model.Fragment `json:"fragment"`
	} `json:"hits"`
}

// peerCallAttempts and peerCallBaseBackoff bound the short retry a single
// outbound peer call gets before it's counted as a partial failure.
const (
	peerCallAttempts    = 3
	peerCallBaseBackoff = 100 * time.Millisecond
)

// Search issues a single-hop query to peerURL's search endpoint. The
// deadline is whatever remains on ctx — callers derive ctx from the
// overall federated_search deadline. Transient failures get a short
// jittered retry before the call is given up on.
func (c *HTTPPeerSearcher) Search(ctx context.Context, peerURL, query string) ([]Hit, error) {
	if !c.limiters.Allow(peerURL) {
		return nil, herr.New(herr.PeerFailure, "outbound rate limit exceeded for peer %s", peerURL)
	}

	var lastErr error
	backoff := peerCallBaseBackoff
	for attempt := 1; attempt <= peerCallAttempts; attempt++ {
		hits, err := c.doSearch(ctx, peerURL, query)
		if err == nil {
			return hits, nil
		}
		lastErr = err
		if attempt == peerCallAttempts {
			break
		}
		jittered := time.Duration(float64(backoff) * (0.75 + rand.Float64()*0.5))
		select {
		case <-ctx.Done():
			return nil, herr.Wrap(herr.PeerFailure, ctx.Err(), "call peer %s", peerURL)
		case <-time.After(jittered):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (c *HTTPPeerSearcher) doSearch(ctx context.Context, peerURL, query string) ([]Hit, error) {
	u, err := url.Parse(peerURL)
	if err != nil {
		return nil, herr.Wrap(herr.PeerFailure, err, "parse peer url %s", peerURL)
	}
	u.Path = "/api/v1/search"
	q := u.Query()
	q.Set("q", query)
	q.Set("federate", "false")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, herr.Wrap(herr.PeerFailure, err, "build request to %s", peerURL)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, herr.Wrap(herr.PeerFailure, err, "call peer %s", peerURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, herr.New(herr.PeerFailure, "peer %s returned status %d", peerURL, resp.StatusCode)
	}

	var parsed peerSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, herr.Wrap(herr.PeerFailure, err, "decode response from %s", peerURL)
	}

	hits := make([]Hit, 0, len(parsed.Hits))
	for _, h := range parsed.Hits {
		hits = append(hits, Hit{
			Fragment: h.Fragment,
			Origin:   &model.Address{HubURL: peerURL, EntityID: h.Fragment.ID},
		})
	}
	return hits, nil
}
