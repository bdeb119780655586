package fetch

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

// Per-retailer CSS selector fallbacks, in priority order per field. These
// are the last resort within the structured tier; inline JSON and JSON-LD
// are tried first because they break far less often.
type fieldSelectors struct {
	title        []string
	price        []string
	rating       []string
	availability []string
	image        []string
}

var selectorTable = map[models.Source]fieldSelectors{
	models.SourceAmazon: {
		title:        []string{"#productTitle"},
		price:        []string{".a-price .a-offscreen", "#priceblock_ourprice", "#priceblock_dealprice"},
		rating:       []string{"span[data-hook='rating-out-of-text']", "#acrPopover"},
		availability: []string{"#availability span", "#availability"},
		image:        []string{"#landingImage"},
	},
	models.SourceWalmart: {
		title:        []string{"h1[itemprop='name']", "h1.prod-ProductTitle"},
		price:        []string{"[itemprop='price']", "span.price-characteristic"},
		rating:       []string{".stars-reviews-count .visually-hidden"},
		availability: []string{".prod-ProductOffer-availability span"},
		image:        []string{"img.hover-zoom-hero-image"},
	},
	models.SourceBestBuy: {
		title:        []string{".sku-title h1", "h1"},
		price:        []string{".priceView-hero-price.priceView-customer-price span[aria-hidden='true']", ".pricing-price__regular-price"},
		rating:       []string{".c-review-average"},
		availability: []string{".fulfillment-add-to-cart-button button"},
		image:        []string{".primary-image"},
	},
	models.SourceTarget: {
		title:        []string{"h1[data-test='product-title']", "h1"},
		price:        []string{"span[data-test='product-price']"},
		rating:       []string{"span[data-test='ratings']"},
		availability: []string{"div[data-test='fulfillment']"},
		image:        []string{"img[data-test='product-image']"},
	},
	models.SourceEbay: {
		title:        []string{"h1.x-item-title__mainTitle span", "h1"},
		price:        []string{".x-price-primary span", "span[itemprop='price']"},
		rating:       []string{".ux-summary__stars"},
		availability: []string{".d-quantity__availability"},
		image:        []string{".ux-image-carousel-item img"},
	},
}

var genericSelectors = fieldSelectors{
	title: []string{"h1"},
	image: []string{"img#landingImage", "img#main-image"},
}

var (
	amazonPriceAmount   = regexp.MustCompile(`"priceAmount"\s*:\s*([\d.]+)`)
	bestbuyCurrentPrice = regexp.MustCompile(`"currentPrice"\s*:\s*(\d+\.\d+)`)
	preloadedStateBlob  = regexp.MustCompile(`window\.__PRELOADED_STATE__\s*=\s*(\{.+?\});`)
	genericPriceToken   = regexp.MustCompile(`"price"[:\s]+"?(\d+\.?\d*)"?`)
)

// ExtractFromHTML projects a ProductRecord out of a page body without any
// network access. It is shared by the structured tier and by the browser
// tiers, which run it over rendered HTML before falling back to live DOM
// queries. Never panics; missing data degrades to a partial or error record.
func ExtractFromHTML(rawURL, html, method string) *models.ProductRecord {
	source := models.ResolveSource(rawURL)
	rec := &models.ProductRecord{
		Source:           source,
		URL:              rawURL,
		Status:           models.StatusSuccess,
		ExtractionMethod: method,
		RetailerID:       RetailerID(source, rawURL),
		FetchedAt:        time.Now(),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		doc = nil
	}

	switch source {
	case models.SourceAmazon:
		extractAmazonInline(rec, html)
	case models.SourceWalmart:
		extractWalmartInline(rec, doc, html)
	case models.SourceBestBuy:
		extractBestBuyInline(rec, html)
	}

	if doc != nil {
		if rec.Price == nil || rec.Title == "" {
			extractJSONLD(rec, doc)
		}
		sels, ok := selectorTable[source]
		if !ok {
			sels = genericSelectors
		}
		extractBySelectors(rec, doc, sels)
	}

	if rec.Price == nil {
		if m := genericPriceToken.FindStringSubmatch(html); m != nil {
			if v := models.ParsePriceText(m[1]); v != nil {
				rec.Price = v
				rec.PriceText = models.StringPtr(fmt.Sprintf("$%.2f", *v))
			}
		}
	}

	hadTitle := rec.Title != ""
	if !hadTitle {
		rec.Title = models.TitleFromURL(rawURL)
	}
	if rec.Rating == nil && rec.RatingText == "" {
		rec.RatingText = models.NoRatings
	}

	if rec.Price == nil && !hadTitle && rec.Rating == nil && rec.Availability == nil {
		return models.NewErrorRecord(rawURL, method, ErrNoProductData.Error())
	}
	return rec
}

func extractAmazonInline(rec *models.ProductRecord, html string) {
	if m := amazonPriceAmount.FindStringSubmatch(html); m != nil {
		if v := models.ParsePriceText(m[1]); v != nil {
			rec.Price = v
			rec.PriceText = models.StringPtr(fmt.Sprintf("$%.2f", *v))
		}
	}
}

func extractBestBuyInline(rec *models.ProductRecord, html string) {
	if m := bestbuyCurrentPrice.FindStringSubmatch(html); m != nil {
		if v := models.ParsePriceText(m[1]); v != nil {
			rec.Price = v
			rec.PriceText = models.StringPtr(fmt.Sprintf("$%.2f", *v))
		}
	}
}

// extractWalmartInline walks the JSON state blob Walmart embeds in every
// product page. The paths change frequently; both known layouts are tried.
func extractWalmartInline(rec *models.ProductRecord, doc *goquery.Document, html string) {
	var blob string
	if doc != nil {
		blob = doc.Find("script#__NEXT_DATA__").First().Text()
	}
	if blob == "" {
		if m := preloadedStateBlob.FindStringSubmatch(html); m != nil {
			blob = m[1]
		}
	}
	if blob == "" {
		return
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(blob), &data); err != nil {
		return
	}

	product, ok := dig(data, "props", "pageProps", "initialData", "data", "product")
	if !ok {
		product, ok = dig(data, "props", "pageProps", "initialState", "product")
	}
	if !ok {
		if products, found := dig(data, "product", "products"); found {
			if list, isList := products.([]any); isList && len(list) > 0 {
				product, ok = list[0], true
			}
		}
	}
	if !ok {
		return
	}
	pm, ok := product.(map[string]any)
	if !ok {
		return
	}

	if name, found := asString(pm["name"]); found {
		rec.Title = name
	}
	if raw, found := dig(pm, "priceInfo", "currentPrice", "price"); found {
		if v, isNum := asFloat(raw); isNum && models.PlausiblePrice(v) {
			rec.Price = models.FloatPtr(v)
			rec.PriceText = models.StringPtr(fmt.Sprintf("$%.2f", v))
		}
	}
	if raw, found := dig(pm, "rating", "averageRating"); found {
		if v, isNum := asFloat(raw); isNum && v >= 0 && v <= 5 {
			rec.Rating = models.FloatPtr(v)
			rec.RatingText = fmt.Sprintf("%.1f stars", v)
		}
	}
	if avail, found := asString(pm["availabilityStatusDisplayValue"]); found {
		rec.Availability = models.StringPtr(avail)
	}
	if img, found := dig(pm, "imageInfo", "thumbnailUrl"); found {
		if s, isStr := asString(img); isStr {
			rec.ImageURL = models.StringPtr(s)
		}
	}
}

// extractJSONLD accepts the first Schema.org block describing a Product,
// including blocks that wrap the product in a top-level array.
func extractJSONLD(rec *models.ProductRecord, doc *goquery.Document) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		product, ok := findProductNode(raw)
		if !ok {
			return true
		}
		applyProductNode(rec, product)
		return false
	})
}

func findProductNode(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		if isProductType(v["@type"]) {
			return v, true
		}
		if graph, ok := v["@graph"].([]any); ok {
			return findProductNode(graph)
		}
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok && isProductType(m["@type"]) {
				return m, true
			}
		}
	}
	return nil, false
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func applyProductNode(rec *models.ProductRecord, product map[string]any) {
	if rec.Title == "" {
		if name, ok := asString(product["name"]); ok {
			rec.Title = name
		}
	}
	if rec.Price == nil {
		if raw, ok := offersPrice(product["offers"]); ok {
			if v, isNum := asFloat(raw); isNum && models.PlausiblePrice(v) {
				rec.Price = models.FloatPtr(v)
				rec.PriceText = models.StringPtr(fmt.Sprintf("$%.2f", v))
			}
		}
	}
	if rec.Rating == nil {
		if raw, ok := dig(product, "aggregateRating", "ratingValue"); ok {
			if v, isNum := asFloat(raw); isNum && v >= 0 && v <= 5 {
				rec.Rating = models.FloatPtr(v)
				rec.RatingText = fmt.Sprintf("%.1f stars", v)
			}
		}
	}
	if rec.Availability == nil {
		if raw, ok := offersAvailability(product["offers"]); ok {
			rec.Availability = models.StringPtr(normalizeSchemaAvailability(raw))
		}
	}
	if rec.ImageURL == nil {
		switch img := product["image"].(type) {
		case string:
			rec.ImageURL = models.StringPtr(img)
		case []any:
			if len(img) > 0 {
				if s, ok := asString(img[0]); ok {
					rec.ImageURL = models.StringPtr(s)
				}
			}
		}
	}
}

func offersPrice(offers any) (any, bool) {
	switch v := offers.(type) {
	case map[string]any:
		if p, ok := v["price"]; ok {
			return p, true
		}
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				if p, ok := m["price"]; ok {
					return p, true
				}
			}
		}
	}
	return nil, false
}

func offersAvailability(offers any) (string, bool) {
	switch v := offers.(type) {
	case map[string]any:
		return asString(v["availability"])
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return asString(m["availability"])
			}
		}
	}
	return "", false
}

func normalizeSchemaAvailability(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "instock"):
		return "in stock"
	case strings.Contains(lower, "outofstock"), strings.Contains(lower, "soldout"):
		return "out of stock"
	}
	return s
}

func extractBySelectors(rec *models.ProductRecord, doc *goquery.Document, sels fieldSelectors) {
	if rec.Title == "" {
		if text, ok := firstText(doc, sels.title); ok {
			rec.Title = text
		}
	}
	if rec.Price == nil {
		if text, ok := firstText(doc, sels.price); ok {
			if v := models.ParsePriceText(text); v != nil {
				rec.Price = v
				rec.PriceText = models.StringPtr(text)
			}
		}
	}
	if rec.Rating == nil {
		if text, ok := firstText(doc, sels.rating); ok {
			if v := models.ParseRatingText(text); v != nil {
				rec.Rating = v
				rec.RatingText = text
			}
		}
	}
	if rec.Availability == nil {
		if text, ok := firstText(doc, sels.availability); ok {
			rec.Availability = models.StringPtr(normalizeAvailabilityText(text))
		}
	}
	if rec.ImageURL == nil {
		for _, sel := range sels.image {
			if src, ok := doc.Find(sel).First().Attr("src"); ok && src != "" {
				rec.ImageURL = models.StringPtr(src)
				break
			}
		}
	}
}

func firstText(doc *goquery.Document, selectors []string) (string, bool) {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

// normalizeAvailabilityText collapses add-to-cart button labels and similar
// phrasing into the common in/out of stock vocabulary.
func normalizeAvailabilityText(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "add to cart"), strings.Contains(lower, "in stock"):
		return "in stock"
	case strings.Contains(lower, "sold out"), strings.Contains(lower, "unavailable"), strings.Contains(lower, "out of stock"):
		return "out of stock"
	}
	return text
}

func dig(m any, keys ...string) (any, bool) {
	cur := m
	for _, key := range keys {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		if p := models.ParsePriceText(n); p != nil {
			return *p, true
		}
		// Ratings and other small decimals fall below the price floor check.
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%f", &f); err == nil {
			return f, true
		}
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}
