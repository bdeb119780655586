package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSource(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected Source
	}{
		{
			name:     "amazon product page",
			url:      "https://www.amazon.com/dp/B0CV9W8VL4",
			expected: SourceAmazon,
		},
		{
			name:     "amazon with www prefix resolves to amazon not www",
			url:      "https://www.amazon.com/Apple-AirPods-Pro/dp/B0CHWRXH8B",
			expected: SourceAmazon,
		},
		{
			name:     "mobile walmart",
			url:      "https://m.walmart.com/ip/12345",
			expected: SourceWalmart,
		},
		{
			name:     "bestbuy sku page",
			url:      "https://www.bestbuy.com/site/some-product/6522225.p?skuId=6522225",
			expected: SourceBestBuy,
		},
		{
			name:     "target listing",
			url:      "https://www.target.com/p/item/-/A-89542189",
			expected: SourceTarget,
		},
		{
			name:     "ebay item",
			url:      "https://www.ebay.com/itm/195914938457",
			expected: SourceEbay,
		},
		{
			name:     "unrelated host",
			url:      "https://example.com/product/123",
			expected: SourceUnknown,
		},
		{
			name:     "not a url",
			url:      "just some text",
			expected: SourceUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveSource(tt.url))
		})
	}
}

func TestPlausiblePrice(t *testing.T) {
	assert.True(t, PlausiblePrice(0.01))
	assert.True(t, PlausiblePrice(19.99))
	assert.True(t, PlausiblePrice(10000))
	assert.False(t, PlausiblePrice(0))
	assert.False(t, PlausiblePrice(-5))
	assert.False(t, PlausiblePrice(10000.01))
}

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected *float64
	}{
		{"plain dollar amount", "$199.99", FloatPtr(199.99)},
		{"thousands separator", "$1,299.00", FloatPtr(1299.00)},
		{"currency words around it", "Now only 24.99 USD", FloatPtr(24.99)},
		{"no digits", "out of stock", nil},
		{"zero is not plausible", "$0.00", nil},
		{"above ceiling", "$25,000.00", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePriceText(tt.text)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 0.001)
		})
	}
}

func TestParseRatingText(t *testing.T) {
	got := ParseRatingText("4.5 out of 5 stars")
	require.NotNil(t, got)
	assert.InDelta(t, 4.5, *got, 0.001)

	assert.Nil(t, ParseRatingText("no rating here"))
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "amazon slug",
			url:      "https://www.amazon.com/Apple-AirPods-Pro-2nd-Generation/dp/B0CHWRXH8B",
			expected: "Apple Airpods Pro 2nd Generation",
		},
		{
			name:     "walmart slug skips numeric id",
			url:      "https://www.walmart.com/ip/Sony-WH-1000XM5-Headphones/1944249933",
			expected: "Sony Wh 1000xm5 Headphones",
		},
		{
			name:     "no usable segment",
			url:      "https://www.amazon.com/dp/B0CHWRXH8B",
			expected: "Unknown Product",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TitleFromURL(tt.url))
		})
	}
}

func TestMerge(t *testing.T) {
	t.Run("fills only missing fields", func(t *testing.T) {
		first := &ProductRecord{
			Source: SourceAmazon,
			URL:    "https://www.amazon.com/dp/B0TEST",
			Title:  "Widget",
			Status: StatusSuccess,
			Price:  FloatPtr(19.99),
		}
		second := &ProductRecord{
			Source:       SourceAmazon,
			Title:        "Widget Deluxe Edition",
			Price:        FloatPtr(99.99),
			Rating:       FloatPtr(4.2),
			Availability: StringPtr("in stock"),
			Status:       StatusSuccess,
		}

		merged := first.Merge(second)
		assert.Equal(t, "Widget", merged.Title)
		require.NotNil(t, merged.Price)
		assert.InDelta(t, 19.99, *merged.Price, 0.001)
		require.NotNil(t, merged.Rating)
		assert.InDelta(t, 4.2, *merged.Rating, 0.001)
		require.NotNil(t, merged.Availability)
		assert.Equal(t, "in stock", *merged.Availability)
	})

	t.Run("error upgrades to success and clears message", func(t *testing.T) {
		failed := &ProductRecord{
			Source:           SourceWalmart,
			URL:              "https://www.walmart.com/ip/thing/123",
			Status:           StatusError,
			ErrorMessage:     "HTTP error: 503",
			ExtractionMethod: "structured",
		}
		recovered := &ProductRecord{
			Source:           SourceWalmart,
			Title:            "Thing",
			Price:            FloatPtr(24.99),
			Status:           StatusSuccess,
			ExtractionMethod: "rendering",
		}

		merged := failed.Merge(recovered)
		assert.Equal(t, StatusSuccess, merged.Status)
		assert.Empty(t, merged.ErrorMessage)
		assert.True(t, merged.Succeeded())
		assert.Equal(t, "rendering", merged.ExtractionMethod,
			"the tier that produced the data gets the credit")
	})

	t.Run("merging with itself changes nothing", func(t *testing.T) {
		rec := &ProductRecord{
			Source: SourceEbay,
			URL:    "https://www.ebay.com/itm/123456",
			Title:  "Collectible",
			Price:  FloatPtr(42.00),
			Status: StatusSuccess,
		}
		merged := rec.Merge(rec)
		assert.Equal(t, rec.Title, merged.Title)
		assert.Equal(t, *rec.Price, *merged.Price)
		assert.Equal(t, rec.Status, merged.Status)
	})

	t.Run("nil other is a copy", func(t *testing.T) {
		rec := &ProductRecord{Title: "Solo", Status: StatusSuccess}
		merged := rec.Merge(nil)
		assert.Equal(t, "Solo", merged.Title)
	})
}

func TestSucceeded(t *testing.T) {
	assert.False(t, (&ProductRecord{Status: StatusSuccess}).Succeeded())
	assert.False(t, (&ProductRecord{Status: StatusError, Price: FloatPtr(5)}).Succeeded())
	assert.True(t, (&ProductRecord{Status: StatusSuccess, Price: FloatPtr(5)}).Succeeded())
}

func TestNewErrorRecord(t *testing.T) {
	rec := NewErrorRecord("https://www.amazon.com/dp/B0TEST", "structured", "HTTP error: 503")
	assert.Equal(t, SourceAmazon, rec.Source)
	assert.Equal(t, StatusError, rec.Status)
	assert.Equal(t, "HTTP error: 503", rec.ErrorMessage)
	assert.Nil(t, rec.Price)
	assert.False(t, rec.FetchedAt.IsZero())
}
