package client

import (
	"context"
	"net/http"
)

// Search limits for top_k.
const (
	MinTopK     = 1
	MaxTopK     = 10
	DefaultTopK = 5
)

// ClampTopK bounds k to [MinTopK, MaxTopK]; zero means DefaultTopK.
func ClampTopK(k int) int {
	switch {
	case k == 0:
		return DefaultTopK
	case k < MinTopK:
		return MinTopK
	case k > MaxTopK:
		return MaxTopK
	}
	return k
}

// Search runs a ranked search on the host.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	r, err := jsonRequest(http.MethodPost, "/api/search", map[string]any{
		"query": query,
		"top_k": ClampTopK(topK),
	})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r, c.retry)
	if err != nil {
		return nil, err
	}
	resp, err := decode[struct {
		Results []SearchResult `json:"results"`
	}](body)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}
