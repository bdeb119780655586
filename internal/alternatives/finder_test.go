package alternatives

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[models.Source]*models.ProductRecord
	err     error
	delay   time.Duration
	queries []string
}

func (f *fakeSearcher) SearchProduct(ctx context.Context, source models.Source, query string) (*models.ProductRecord, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[source], nil
}

func searchHit(source models.Source, title string, price float64) *models.ProductRecord {
	return &models.ProductRecord{
		Source: source,
		URL:    "https://www." + string(source) + ".com/item/1",
		Title:  title,
		Price:  models.FloatPtr(price),
		Status: models.StatusSuccess,
	}
}

func primary(title string, price float64) *models.ProductRecord {
	return &models.ProductRecord{
		Source: models.SourceAmazon,
		URL:    "https://www.amazon.com/dp/B0TEST",
		Title:  title,
		Price:  models.FloatPtr(price),
		Status: models.StatusSuccess,
	}
}

func TestFindMarksBetterDeals(t *testing.T) {
	searcher := &fakeSearcher{results: map[models.Source]*models.ProductRecord{
		models.SourceWalmart: searchHit(models.SourceWalmart, "Sony WH-1000XM5 Headphones", 250.00),
		models.SourceBestBuy: searchHit(models.SourceBestBuy, "Sony WH-1000XM5 Headphones", 320.00),
	}}
	f := NewFinder(Options{Searcher: searcher, MaxResults: 5})

	alts, err := f.Find(context.Background(), primary("Sony WH-1000XM5 Wireless Headphones", 328.00))
	require.NoError(t, err)
	require.Len(t, alts, 2)

	bySource := map[models.Source]models.AlternativeRecord{}
	for _, a := range alts {
		bySource[a.Source] = a
	}

	cheaper := bySource[models.SourceWalmart]
	assert.True(t, cheaper.IsBetterDeal)
	assert.Contains(t, cheaper.Reason, "cheaper than original")

	similar := bySource[models.SourceBestBuy]
	assert.False(t, similar.IsBetterDeal)
	assert.Equal(t, "Similar price to original", similar.Reason)
}

func TestFindSkipsUnsuccessfulPrimary(t *testing.T) {
	searcher := &fakeSearcher{}
	f := NewFinder(Options{Searcher: searcher})

	rec := primary("Anything", 10)
	rec.Status = models.StatusError

	alts, err := f.Find(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, alts)
	assert.Empty(t, searcher.queries, "no searches should run for a failed fetch")
}

func TestFindSkipsWithoutPrice(t *testing.T) {
	f := NewFinder(Options{Searcher: &fakeSearcher{}})

	rec := primary("Priceless Thing Indeed", 0)
	rec.Price = nil

	alts, err := f.Find(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, alts)
}

func TestFindRecoversPriceFromText(t *testing.T) {
	searcher := &fakeSearcher{results: map[models.Source]*models.ProductRecord{
		models.SourceWalmart: searchHit(models.SourceWalmart, "Gaming Console Bundle", 180.00),
	}}
	f := NewFinder(Options{Searcher: searcher})

	rec := primary("Gaming Console Bundle", 0)
	rec.Price = nil
	rec.PriceText = models.StringPtr("$199.99")

	alts, err := f.Find(context.Background(), rec)
	require.NoError(t, err)
	assert.Nil(t, rec.Price, "recovery works on a copy, the caller's record stays as fetched")
	require.NotEmpty(t, alts)
	assert.True(t, alts[0].IsBetterDeal, "comparison uses the price recovered from text")
	assert.Contains(t, alts[0].Reason, "cheaper than original")
}

func TestFindSkipsUnusableTitle(t *testing.T) {
	f := NewFinder(Options{Searcher: &fakeSearcher{}})

	alts, err := f.Find(context.Background(), primary("xx", 19.99))
	require.NoError(t, err)
	assert.Empty(t, alts)
}

func TestFindAllSearchesFail(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("blocked")}
	f := NewFinder(Options{Searcher: searcher})

	alts, err := f.Find(context.Background(), primary("Sony WH-1000XM5 Headphones", 328.00))
	require.NoError(t, err, "an empty result set is not an error")
	assert.Empty(t, alts)
}

func TestFindHonorsBudget(t *testing.T) {
	searcher := &fakeSearcher{
		delay: 500 * time.Millisecond,
		results: map[models.Source]*models.ProductRecord{
			models.SourceWalmart: searchHit(models.SourceWalmart, "Slow Result Item", 10.00),
		},
	}
	f := NewFinder(Options{
		Searcher:         searcher,
		Budget:           50 * time.Millisecond,
		PerSearchTimeout: 40 * time.Millisecond,
	})

	start := time.Now()
	alts, err := f.Find(context.Background(), primary("Sony WH-1000XM5 Headphones", 328.00))
	require.NoError(t, err)
	assert.Empty(t, alts)
	assert.Less(t, time.Since(start), 2*time.Second)
}

// stallThenHitSearcher blocks until the deadline for the first strict-pass
// fan-out, then answers instantly, so only a relaxed retry can find anything.
type stallThenHitSearcher struct {
	mu      sync.Mutex
	calls   int
	stalled int
}

func (s *stallThenHitSearcher) SearchProduct(ctx context.Context, source models.Source, query string) (*models.ProductRecord, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if n <= s.stalled {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return searchHit(source, "Sony WH-1000XM5 Headphones", 250.00), nil
}

func TestFindRelaxedPassAfterBudget(t *testing.T) {
	markets := []models.Source{models.SourceWalmart, models.SourceBestBuy, models.SourceTarget, models.SourceEbay}
	searcher := &stallThenHitSearcher{stalled: len(markets)}
	f := NewFinder(Options{
		Searcher:         searcher,
		Budget:           50 * time.Millisecond,
		PerSearchTimeout: 400 * time.Millisecond,
		Markets:          markets,
	})

	alts, err := f.Find(context.Background(), primary("Sony WH-1000XM5 Headphones", 328.00))
	require.NoError(t, err)

	// Two relaxed-market retries on top of the four stalled searches.
	assert.Equal(t, len(markets)+2, searcher.calls)
	require.Len(t, alts, 2)
	for _, a := range alts {
		assert.True(t, a.IsBetterDeal)
	}
}

func TestFindExcludesPrimarySource(t *testing.T) {
	searcher := &fakeSearcher{results: map[models.Source]*models.ProductRecord{
		models.SourceAmazon:  searchHit(models.SourceAmazon, "Should Not Appear Item", 1.00),
		models.SourceWalmart: searchHit(models.SourceWalmart, "Sony Headphones Deal", 200.00),
	}}
	f := NewFinder(Options{Searcher: searcher, MaxResults: 5})

	alts, err := f.Find(context.Background(), primary("Sony WH-1000XM5 Headphones", 328.00))
	require.NoError(t, err)
	for _, a := range alts {
		assert.NotEqual(t, models.SourceAmazon, a.Source)
	}
}

func TestFindCapsResults(t *testing.T) {
	results := map[models.Source]*models.ProductRecord{}
	for _, s := range []models.Source{models.SourceWalmart, models.SourceBestBuy, models.SourceTarget, models.SourceEbay} {
		results[s] = searchHit(s, "Sony Headphones Listing", 300.00)
	}
	f := NewFinder(Options{Searcher: &fakeSearcher{results: results}, MaxResults: 2})

	alts, err := f.Find(context.Background(), primary("Sony WH-1000XM5 Headphones", 328.00))
	require.NoError(t, err)
	assert.Len(t, alts, 2)
}
