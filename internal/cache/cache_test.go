package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

func testRecord(url string, price float64) *models.ProductRecord {
	return &models.ProductRecord{
		Source: models.ResolveSource(url),
		URL:    url,
		Title:  "Test Product",
		Price:  models.FloatPtr(price),
		Status: models.StatusSuccess,
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := New(DefaultTTL)
	url := "https://www.amazon.com/dp/B0TEST"

	_, ok := c.Lookup(url)
	assert.False(t, ok)

	c.Store(url, testRecord(url, 19.99))

	got, ok := c.Lookup(url)
	require.True(t, ok)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 19.99, *got.Price, 0.001)
	assert.Equal(t, 1, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	c := New(20 * time.Millisecond)
	url := "https://www.walmart.com/ip/thing/123"
	c.Store(url, testRecord(url, 24.99))

	_, ok := c.Lookup(url)
	assert.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	_, ok = c.Lookup(url)
	assert.False(t, ok, "entry past its TTL must be a miss")
	assert.Equal(t, 0, c.Len(), "expired entry is evicted on lookup")
}

func TestCacheStoreOverwrites(t *testing.T) {
	c := New(DefaultTTL)
	url := "https://www.amazon.com/dp/B0TEST"

	c.Store(url, testRecord(url, 10.00))
	c.Store(url, testRecord(url, 12.00))

	got, ok := c.Lookup(url)
	require.True(t, ok)
	assert.InDelta(t, 12.00, *got.Price, 0.001)
	assert.Equal(t, 1, c.Len())
}
