// Package scraper implements the competitor price fetcher behind the
// Scraper/Ingestion API. Per spec.md §4.1 it simulates a third-party
// scrape: randomized latency, randomized availability, and a small
// fixed registry of competitor sources.
package scraper

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"iaros/pricing_pipeline/internal/models"
)

// Competitor names the fixed registry of sources spec.md §4.1 lists.
// A real deployment would swap Fetcher's Transport for one that hits
// these marketplaces' actual APIs; nothing else in the pipeline
// changes.
type Competitor string

const (
	CompetitorAmazon      Competitor = "amazon"
	CompetitorEbay        Competitor = "ebay"
	CompetitorMercadoLivre Competitor = "mercado_livre"
	CompetitorShopee      Competitor = "shopee"
)

// Competitors is the full registry, in a stable order so /competitors
// responses are deterministic.
var Competitors = []Competitor{CompetitorAmazon, CompetitorEbay, CompetitorMercadoLivre, CompetitorShopee}

// competitorIndex maps a competitor id string to its registry entry,
// used to resolve a caller-supplied competitor_ids filter.
var competitorIndex = func() map[string]Competitor {
	idx := make(map[string]Competitor, len(Competitors))
	for _, c := range Competitors {
		idx[string(c)] = c
	}
	return idx
}()

// Transport performs the actual price lookup for one competitor. The
// default implementation simulates a scrape; go-resty/resty/v2 is
// wired in RestTransport for the real-HTTP swap-in spec.md's design
// notes call for.
type Transport interface {
	Fetch(ctx context.Context, competitor Competitor, sku string) (float64, error)
}

// Fetcher queries every competitor in Competitors for a SKU, bounding
// concurrency with a semaphore and each request with a timeout, per
// spec.md §5's resource model.
type Fetcher struct {
	Transport      Transport
	MaxConcurrency int
	Timeout        time.Duration

	sem chan struct{}
}

// NewFetcher builds a Fetcher backed by transport. maxConcurrency
// bounds in-flight competitor requests across all SKUs being scraped
// concurrently; timeout bounds a single competitor request.
func NewFetcher(transport Transport, maxConcurrency int, timeout time.Duration) *Fetcher {
	if maxConcurrency <= 0 {
		maxConcurrency = 100
	}
	return &Fetcher{
		Transport:      transport,
		MaxConcurrency: maxConcurrency,
		Timeout:        timeout,
		sem:            make(chan struct{}, maxConcurrency),
	}
}

// resolveCompetitors returns the registry entries to query for a
// request's optional competitor_ids filter. An empty filter means
// every registered competitor; unknown ids in a non-empty filter are
// silently skipped per spec.md §4.2.
func resolveCompetitors(competitorIDs []string) []Competitor {
	if len(competitorIDs) == 0 {
		return Competitors
	}
	out := make([]Competitor, 0, len(competitorIDs))
	for _, id := range competitorIDs {
		if c, ok := competitorIndex[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// FetchAll queries the competitors named by competitorIDs (or every
// registered competitor when competitorIDs is empty) for sku
// concurrently and returns one CompetitorPrice per competitor that
// responded successfully, in no particular order. A competitor that
// errors, times out, or is simulated as unavailable produces no entry
// at all -- per spec.md §4.2, "an empty result for that (sku,
// competitor) pair is the signal" -- so the caller never has to
// inspect a per-entry error.
func (f *Fetcher) FetchAll(ctx context.Context, sku string, competitorIDs []string) []models.CompetitorPrice {
	targets := resolveCompetitors(competitorIDs)

	type outcome struct {
		price models.CompetitorPrice
		ok    bool
	}
	outcomes := make([]outcome, len(targets))
	var wg sync.WaitGroup

	for i, c := range targets {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case f.sem <- struct{}{}:
				defer func() { <-f.sem }()
			case <-ctx.Done():
				return
			}
			if ctx.Err() != nil {
				return
			}

			reqCtx, cancel := context.WithTimeout(ctx, f.Timeout)
			defer cancel()

			price, err := f.Transport.Fetch(reqCtx, c, sku)
			if err != nil {
				return
			}
			outcomes[i] = outcome{
				ok: true,
				price: models.CompetitorPrice{
					ProductSKU:   sku,
					CompetitorID: string(c),
					Price:        roundToCents(price),
					Timestamp:    time.Now().UTC(),
					Availability: true,
					SourceURL:    fmt.Sprintf("simulated://%s/price/%s", c, sku),
				},
			}
		}()
	}

	wg.Wait()

	out := make([]models.CompetitorPrice, 0, len(targets))
	for _, o := range outcomes {
		if o.ok {
			out = append(out, o.price)
		}
	}
	return out
}

// Prices extracts each entry's price, in the order returned by
// FetchAll, for callers (the rules pipeline) that only need the raw
// numbers.
func Prices(prices []models.CompetitorPrice) []float64 {
	out := make([]float64, 0, len(prices))
	for _, p := range prices {
		out = append(out, p.Price)
	}
	return out
}

func roundToCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ErrUnavailable is returned by SimulatedTransport when the simulated
// source is down for a given attempt.
var ErrUnavailable = fmt.Errorf("scraper: competitor source unavailable")

// SimulatedTransport stands in for a real marketplace integration: each
// fetch sleeps 100-300ms and succeeds with probability 0.75, matching
// the behavior of the original scraper this pipeline was modeled on.
type SimulatedTransport struct {
	rng   *rand.Rand
	mu    sync.Mutex
	basePrices map[string]float64
}

// NewSimulatedTransport builds a transport seeded from seed, so tests
// can construct a deterministic instance.
func NewSimulatedTransport(seed int64) *SimulatedTransport {
	return &SimulatedTransport{
		rng:        rand.New(rand.NewSource(seed)),
		basePrices: make(map[string]float64),
	}
}

// Fetch simulates one competitor lookup for sku.
func (s *SimulatedTransport) Fetch(ctx context.Context, competitor Competitor, sku string) (float64, error) {
	s.mu.Lock()
	latencyMs := 100 + s.rng.Intn(201)
	available := s.rng.Float64() < 0.75
	base := s.basePriceFor(sku)
	jitter := (s.rng.Float64() - 0.5) * 0.1 // +/-5%
	s.mu.Unlock()

	select {
	case <-time.After(time.Duration(latencyMs) * time.Millisecond):
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	if !available {
		return 0, ErrUnavailable
	}

	return base * (1 + jitter), nil
}

// basePriceFor deterministically derives a base price for a SKU so
// repeated fetches for the same SKU return comparable numbers; caller
// must hold s.mu.
func (s *SimulatedTransport) basePriceFor(sku string) float64 {
	if p, ok := s.basePrices[sku]; ok {
		return p
	}
	p := 50 + s.rng.Float64()*150
	s.basePrices[sku] = p
	return p
}
