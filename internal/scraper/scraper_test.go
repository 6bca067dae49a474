package scraper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iaros/pricing_pipeline/internal/scraper"
)

type stubTransport struct {
	fail map[scraper.Competitor]bool
	price float64
}

func (s *stubTransport) Fetch(ctx context.Context, competitor scraper.Competitor, sku string) (float64, error) {
	if s.fail[competitor] {
		return 0, errors.New("stub failure")
	}
	return s.price, nil
}

func TestFetchAllReturnsOneEntryPerCompetitor(t *testing.T) {
	f := scraper.NewFetcher(&stubTransport{price: 42}, 10, time.Second)
	prices := f.FetchAll(context.Background(), "SKU001", nil)
	require.Len(t, prices, len(scraper.Competitors))
	for _, p := range prices {
		assert.Equal(t, "SKU001", p.ProductSKU)
		assert.True(t, p.Availability)
		assert.Equal(t, 42.0, p.Price)
	}
}

func TestFetchAllToleratesPartialFailure(t *testing.T) {
	f := scraper.NewFetcher(&stubTransport{price: 10, fail: map[scraper.Competitor]bool{scraper.CompetitorEbay: true}}, 10, time.Second)
	prices := f.FetchAll(context.Background(), "SKU001", nil)

	assert.Len(t, prices, len(scraper.Competitors)-1)
	for _, p := range prices {
		assert.NotEqual(t, string(scraper.CompetitorEbay), p.CompetitorID)
	}
}

func TestFetchAllFiltersByCompetitorIDs(t *testing.T) {
	f := scraper.NewFetcher(&stubTransport{price: 10}, 10, time.Second)

	prices := f.FetchAll(context.Background(), "SKU001", []string{string(scraper.CompetitorAmazon), "not_a_real_competitor"})

	require.Len(t, prices, 1)
	assert.Equal(t, string(scraper.CompetitorAmazon), prices[0].CompetitorID)
}

func TestFetchAllRespectsContextCancellation(t *testing.T) {
	f := scraper.NewFetcher(&stubTransport{price: 10}, 1, 500*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prices := f.FetchAll(ctx, "SKU001", nil)
	assert.Empty(t, prices)
}

func TestSimulatedTransportIsBoundedByTimeout(t *testing.T) {
	transport := scraper.NewSimulatedTransport(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := transport.Fetch(ctx, scraper.CompetitorAmazon, "SKU001")
	assert.Error(t, err)
}

func TestSimulatedTransportReturnsComparablePricesForSameSKU(t *testing.T) {
	transport := scraper.NewSimulatedTransport(7)
	ctx := context.Background()

	var successes []float64
	for i := 0; i < 20; i++ {
		p, err := transport.Fetch(ctx, scraper.CompetitorAmazon, "SKU-STABLE")
		if err == nil {
			successes = append(successes, p)
		}
	}
	require.NotEmpty(t, successes)
	for _, p := range successes {
		assert.InDelta(t, successes[0], p, successes[0]*0.2)
	}
}
