package fetch

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})(?:[/?]|$)`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})(?:[/?]|$)`),
	regexp.MustCompile(`/ASIN/([A-Z0-9]{10})(?:[/?]|$)`),
	regexp.MustCompile(`/product/([A-Z0-9]{10})(?:[/?]|$)`),
}

var (
	walmartItemPattern = regexp.MustCompile(`/ip/(?:.*?/)?(\d+)`)
	bestbuySkuPattern  = regexp.MustCompile(`/(?:site|shop)/(?:.*?/)?(\d+)(?:\.p)?(?:[/?]|$)`)
	targetTcinPattern  = regexp.MustCompile(`/-/A-(\d+)`)
	ebayItemPattern    = regexp.MustCompile(`/itm/(?:.*?/)?(\d+)`)
)

// RetailerID extracts the retailer-specific catalog identifier embedded in a
// product URL (ASIN, item ID, SKU, TCIN), or "" when none is recognizable.
func RetailerID(source models.Source, rawURL string) string {
	switch source {
	case models.SourceAmazon:
		for _, p := range asinPatterns {
			if m := p.FindStringSubmatch(rawURL); m != nil {
				return m[1]
			}
		}
	case models.SourceWalmart:
		if m := walmartItemPattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
		if u, err := url.Parse(rawURL); err == nil {
			if id := u.Query().Get("itemId"); id != "" {
				return id
			}
		}
	case models.SourceBestBuy:
		if u, err := url.Parse(rawURL); err == nil {
			if sku := u.Query().Get("skuId"); sku != "" {
				return sku
			}
		}
		if m := bestbuySkuPattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	case models.SourceTarget:
		if m := targetTcinPattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	case models.SourceEbay:
		if m := ebayItemPattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// SearchURL builds the search endpoint URL for a retailer.
func SearchURL(source models.Source, query string) string {
	q := url.QueryEscape(strings.TrimSpace(query))
	switch source {
	case models.SourceAmazon:
		return "https://www.amazon.com/s?k=" + q
	case models.SourceWalmart:
		return "https://www.walmart.com/search?q=" + q
	case models.SourceBestBuy:
		return "https://www.bestbuy.com/site/searchpage.jsp?st=" + q
	case models.SourceTarget:
		return "https://www.target.com/s?searchTerm=" + q
	case models.SourceEbay:
		return "https://www.ebay.com/sch/i.html?_nkw=" + q
	}
	return ""
}
