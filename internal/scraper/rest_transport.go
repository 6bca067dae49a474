package scraper

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// RestTransport is the real-HTTP Transport spec.md's design notes
// anticipate swapping in for SimulatedTransport: one GET per
// competitor, against a base URL keyed by Competitor. It is not wired
// into any cmd/ binary by default (no live marketplace credentials
// exist in this environment) but exists so an operator can switch
// Fetcher.Transport without touching the rest of the pipeline.
type RestTransport struct {
	client   *resty.Client
	baseURLs map[Competitor]string
}

// NewRestTransport builds a transport that issues GET
// {baseURLs[competitor]}/price/{sku} and expects a JSON body shaped
// {"price": <number>}.
func NewRestTransport(client *resty.Client, baseURLs map[Competitor]string) *RestTransport {
	return &RestTransport{client: client, baseURLs: baseURLs}
}

type priceResponse struct {
	Price float64 `json:"price"`
}

// Fetch issues the HTTP request and decodes the competitor's price.
func (t *RestTransport) Fetch(ctx context.Context, competitor Competitor, sku string) (float64, error) {
	base, ok := t.baseURLs[competitor]
	if !ok {
		return 0, fmt.Errorf("scraper: no base URL configured for competitor %s", competitor)
	}

	var out priceResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("%s/price/%s", base, sku))
	if err != nil {
		return 0, fmt.Errorf("scraper: request to %s failed: %w", competitor, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("scraper: %s responded %d", competitor, resp.StatusCode())
	}

	return out.Price, nil
}
