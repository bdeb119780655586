package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

func TestRetailerID(t *testing.T) {
	tests := []struct {
		name     string
		source   models.Source
		url      string
		expected string
	}{
		{
			name:     "amazon dp path",
			source:   models.SourceAmazon,
			url:      "https://www.amazon.com/dp/B0CHWRXH8B",
			expected: "B0CHWRXH8B",
		},
		{
			name:     "amazon slug before dp",
			source:   models.SourceAmazon,
			url:      "https://www.amazon.com/Apple-AirPods-Pro/dp/B0CHWRXH8B?ref=sr_1_1",
			expected: "B0CHWRXH8B",
		},
		{
			name:     "amazon gp product path",
			source:   models.SourceAmazon,
			url:      "https://www.amazon.com/gp/product/B0B11VFL6X",
			expected: "B0B11VFL6X",
		},
		{
			name:     "walmart item with slug",
			source:   models.SourceWalmart,
			url:      "https://www.walmart.com/ip/Sony-WH-1000XM5/1944249933",
			expected: "1944249933",
		},
		{
			name:     "walmart bare item",
			source:   models.SourceWalmart,
			url:      "https://www.walmart.com/ip/1944249933",
			expected: "1944249933",
		},
		{
			name:     "bestbuy skuId query",
			source:   models.SourceBestBuy,
			url:      "https://www.bestbuy.com/site/lg-oled-tv/6522225.p?skuId=6522225",
			expected: "6522225",
		},
		{
			name:     "bestbuy site path without query",
			source:   models.SourceBestBuy,
			url:      "https://www.bestbuy.com/site/lg-oled-tv/6522225.p",
			expected: "6522225",
		},
		{
			name:     "target tcin",
			source:   models.SourceTarget,
			url:      "https://www.target.com/p/widget/-/A-89542189",
			expected: "89542189",
		},
		{
			name:     "ebay item",
			source:   models.SourceEbay,
			url:      "https://www.ebay.com/itm/195914938457",
			expected: "195914938457",
		},
		{
			name:     "no recognizable id",
			source:   models.SourceAmazon,
			url:      "https://www.amazon.com/deals",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RetailerID(tt.source, tt.url))
		})
	}
}

func TestSearchURL(t *testing.T) {
	assert.Equal(t,
		"https://www.amazon.com/s?k=sony+headphones",
		SearchURL(models.SourceAmazon, "sony headphones"))
	assert.Equal(t,
		"https://www.walmart.com/search?q=sony+headphones",
		SearchURL(models.SourceWalmart, "sony headphones"))
	assert.Equal(t,
		"https://www.bestbuy.com/site/searchpage.jsp?st=lg+tv",
		SearchURL(models.SourceBestBuy, "lg tv"))
	assert.Equal(t,
		"https://www.target.com/s?searchTerm=lg+tv",
		SearchURL(models.SourceTarget, "lg tv"))
	assert.Equal(t,
		"https://www.ebay.com/sch/i.html?_nkw=lg+tv",
		SearchURL(models.SourceEbay, "lg tv"))
	assert.Empty(t, SearchURL(models.SourceUnknown, "anything"))
}
