package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/fetch"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/ranker"
)

// fakeFetcher scripts one tier's responses per URL.
type fakeFetcher struct {
	name    string
	records map[string]*models.ProductRecord
	err     error
	calls   int
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.ProductRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if rec, ok := f.records[url]; ok {
		copied := *rec
		return &copied, nil
	}
	return models.NewErrorRecord(url, f.name, "not scripted"), nil
}

type fakeFinder struct {
	alts  []models.AlternativeRecord
	calls int
}

func (f *fakeFinder) Find(ctx context.Context, primary *models.ProductRecord) ([]models.AlternativeRecord, error) {
	f.calls++
	return f.alts, nil
}

func successRecord(url string, price float64) *models.ProductRecord {
	return &models.ProductRecord{
		Source: models.ResolveSource(url),
		URL:    url,
		Title:  "Scripted Product",
		Price:  models.FloatPtr(price),
		Status: models.StatusSuccess,
	}
}

const productURL = "https://www.amazon.com/dp/B0TEST0000"

func TestGetPriceFirstTierWins(t *testing.T) {
	structured := &fakeFetcher{name: fetch.TierStructured, records: map[string]*models.ProductRecord{
		productURL: successRecord(productURL, 19.99),
	}}
	rendering := &fakeFetcher{name: fetch.TierRendering}

	p := New(Options{Tiers: []fetch.Fetcher{structured, rendering}})

	rec, err := p.GetPrice(context.Background(), productURL)
	require.NoError(t, err)
	assert.True(t, rec.Succeeded())
	assert.Equal(t, 1, structured.calls)
	assert.Equal(t, 0, rendering.calls, "cascade short-circuits on the first priced success")
}

func TestGetPriceFallsThroughTiers(t *testing.T) {
	structured := &fakeFetcher{name: fetch.TierStructured, records: map[string]*models.ProductRecord{
		productURL: models.NewErrorRecord(productURL, fetch.TierStructured, "HTTP error: 503"),
	}}
	rendering := &fakeFetcher{name: fetch.TierRendering, records: map[string]*models.ProductRecord{
		productURL: successRecord(productURL, 24.99),
	}}

	rk := ranker.New([]string{fetch.TierStructured, fetch.TierRendering})
	p := New(Options{Tiers: []fetch.Fetcher{structured, rendering}, Ranker: rk})

	rec, err := p.GetPrice(context.Background(), productURL)
	require.NoError(t, err)
	assert.True(t, rec.Succeeded())
	require.NotNil(t, rec.Price)
	assert.InDelta(t, 24.99, *rec.Price, 0.001)
	assert.Equal(t, 1, structured.calls)
	assert.Equal(t, 1, rendering.calls)

	// Each attempt lands in the reliability stats for the domain.
	domain := string(models.SourceAmazon)
	assert.Equal(t, 1, rk.Attempts(domain, fetch.TierStructured))
	assert.Equal(t, 0.0, rk.SuccessRate(domain, fetch.TierStructured))
	assert.Equal(t, 1, rk.Attempts(domain, fetch.TierRendering))
	assert.Equal(t, 1.0, rk.SuccessRate(domain, fetch.TierRendering))
}

func TestGetPriceMergesPartials(t *testing.T) {
	partial := successRecord(productURL, 0)
	partial.Price = nil
	partial.Rating = models.FloatPtr(4.4)
	partial.Status = models.StatusSuccess

	structured := &fakeFetcher{name: fetch.TierStructured, records: map[string]*models.ProductRecord{
		productURL: partial,
	}}
	rendering := &fakeFetcher{name: fetch.TierRendering, records: map[string]*models.ProductRecord{
		productURL: successRecord(productURL, 49.99),
	}}

	p := New(Options{Tiers: []fetch.Fetcher{structured, rendering}})

	rec, err := p.GetPrice(context.Background(), productURL)
	require.NoError(t, err)
	require.NotNil(t, rec.Price)
	assert.InDelta(t, 49.99, *rec.Price, 0.001)
	require.NotNil(t, rec.Rating, "rating from the earlier partial record survives the merge")
	assert.InDelta(t, 4.4, *rec.Rating, 0.001)
}

func TestGetPriceRecoversPriceFromText(t *testing.T) {
	rec := successRecord(productURL, 0)
	rec.Price = nil
	rec.PriceText = models.StringPtr("$199.99")

	structured := &fakeFetcher{name: fetch.TierStructured, records: map[string]*models.ProductRecord{
		productURL: rec,
	}}
	rendering := &fakeFetcher{name: fetch.TierRendering}

	p := New(Options{Tiers: []fetch.Fetcher{structured, rendering}})

	got, err := p.GetPrice(context.Background(), productURL)
	require.NoError(t, err)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 199.99, *got.Price, 0.001)
	assert.Equal(t, 0, rendering.calls, "a recovered price short-circuits later tiers")
}

func TestGetPriceUnsupportedRetailer(t *testing.T) {
	p := New(Options{Tiers: []fetch.Fetcher{&fakeFetcher{name: fetch.TierStructured}}})

	_, err := p.GetPrice(context.Background(), "https://example.com/product/1")
	assert.ErrorIs(t, err, fetch.ErrUnsupportedRetailer)
}

func TestGetPriceCacheHit(t *testing.T) {
	structured := &fakeFetcher{name: fetch.TierStructured, records: map[string]*models.ProductRecord{
		productURL: successRecord(productURL, 19.99),
	}}
	p := New(Options{Tiers: []fetch.Fetcher{structured}})

	_, err := p.GetPrice(context.Background(), productURL)
	require.NoError(t, err)
	_, err = p.GetPrice(context.Background(), productURL)
	require.NoError(t, err)

	assert.Equal(t, 1, structured.calls, "second lookup is served from cache")
}

func TestGetPriceRateLimitedTierSkipped(t *testing.T) {
	structured := &fakeFetcher{name: fetch.TierStructured, records: map[string]*models.ProductRecord{
		productURL: successRecord(productURL, 19.99),
	}}
	rendering := &fakeFetcher{name: fetch.TierRendering, records: map[string]*models.ProductRecord{
		productURL: successRecord(productURL, 21.99),
	}}

	p := New(Options{
		Tiers: []fetch.Fetcher{structured, rendering},
		TierLimits: map[string]int{
			fetch.TierStructured: 0, // exhausted from the start
			fetch.TierRendering:  10,
		},
	})

	rec, err := p.GetPrice(context.Background(), productURL)
	require.NoError(t, err)
	assert.Equal(t, 0, structured.calls)
	assert.Equal(t, 1, rendering.calls)
	assert.InDelta(t, 21.99, *rec.Price, 0.001)
}

func TestGetPriceTransportErrorBecomesErrorRecord(t *testing.T) {
	structured := &fakeFetcher{name: fetch.TierStructured, err: errors.New("connection refused")}

	p := New(Options{Tiers: []fetch.Fetcher{structured}})

	rec, err := p.GetPrice(context.Background(), productURL)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, rec.Status)
	// The last-resort pass is nil here, so two attempts never happen.
	assert.Equal(t, 1, structured.calls)
}

func TestGetPriceLastResortPass(t *testing.T) {
	failing := &fakeFetcher{name: fetch.TierRendering, records: map[string]*models.ProductRecord{
		productURL: models.NewErrorRecord(productURL, fetch.TierRendering, "timed out"),
	}}
	lastResort := &fakeFetcher{name: fetch.TierStructured, records: map[string]*models.ProductRecord{
		productURL: successRecord(productURL, 15.00),
	}}

	p := New(Options{Tiers: []fetch.Fetcher{failing}, LastResort: lastResort})

	rec, err := p.GetPrice(context.Background(), productURL)
	require.NoError(t, err)
	assert.True(t, rec.Succeeded())
	assert.Equal(t, 1, lastResort.calls)
}

func TestEvaluateBundlesEverything(t *testing.T) {
	structured := &fakeFetcher{name: fetch.TierStructured, records: map[string]*models.ProductRecord{
		productURL: successRecord(productURL, 19.99),
	}}
	finder := &fakeFinder{alts: []models.AlternativeRecord{
		{ProductRecord: *successRecord("https://www.walmart.com/ip/thing/123", 17.50)},
	}}

	p := New(Options{Tiers: []fetch.Fetcher{structured}, Finder: finder})

	result, err := p.Evaluate(context.Background(), "is this a good deal? "+productURL)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	require.Len(t, result.Results, 1)
	r := result.Results[0]
	assert.Equal(t, productURL, r.URL)
	assert.True(t, r.Product.Succeeded())
	assert.Len(t, r.Alternatives, 1)
	require.NotNil(t, r.Verdict)
	assert.Equal(t, 1, finder.calls)
}

func TestEvaluateNoURLs(t *testing.T) {
	p := New(Options{Tiers: []fetch.Fetcher{&fakeFetcher{name: fetch.TierStructured}}})

	_, err := p.Evaluate(context.Background(), "no links in here")
	assert.ErrorIs(t, err, fetch.ErrUnsupportedRetailer)
}

func TestEvaluateSkipsAlternativesForFailedFetch(t *testing.T) {
	structured := &fakeFetcher{name: fetch.TierStructured}
	finder := &fakeFinder{}

	p := New(Options{Tiers: []fetch.Fetcher{structured}, Finder: finder})

	result, err := p.Evaluate(context.Background(), productURL)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, models.StatusError, result.Results[0].Product.Status)
	assert.Equal(t, 0, finder.calls)
	assert.Equal(t, models.VerdictCannotDetermine, result.Results[0].Verdict.Verdict)
}

func TestExtractProductURLs(t *testing.T) {
	text := `check https://www.amazon.com/dp/B0TEST0000 and also
	(https://www.walmart.com/ip/thing/123), plus https://example.com/nope
	and https://www.amazon.com/dp/B0TEST0000 again`

	urls := ExtractProductURLs(text)
	assert.Equal(t, []string{
		"https://www.amazon.com/dp/B0TEST0000",
		"https://www.walmart.com/ip/thing/123",
	}, urls)
}
