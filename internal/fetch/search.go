package fetch

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

// Result-card selectors per retailer search page. Card selection mirrors
// product-page extraction: find the repeating result container, then pull
// fields out of the first card that carries a title.
type searchSelectors struct {
	card   string
	title  []string
	price  []string
	rating []string
	link   string
}

var searchTable = map[models.Source]searchSelectors{
	models.SourceAmazon: {
		card:   "[data-component-type='s-search-result']",
		title:  []string{"h2 a span", "h2 span"},
		price:  []string{".a-price .a-offscreen"},
		rating: []string{".a-icon-alt"},
		link:   "h2 a",
	},
	models.SourceWalmart: {
		card:   "div[data-item-id]",
		title:  []string{"span[data-automation-id='product-title']"},
		price:  []string{"div[data-automation-id='product-price'] .w_iUH7", "div[data-automation-id='product-price']"},
		rating: []string{"span[data-testid='product-ratings']"},
		link:   "a",
	},
	models.SourceBestBuy: {
		card:   ".sku-item",
		title:  []string{"h4.sku-title a", ".sku-title"},
		price:  []string{".priceView-customer-price span[aria-hidden='true']", ".priceView-customer-price"},
		rating: []string{".c-ratings-reviews p"},
		link:   "h4.sku-title a",
	},
	models.SourceTarget: {
		card:   "div[data-test='product-card']",
		title:  []string{"a[data-test='product-title']"},
		price:  []string{"span[data-test='current-price']"},
		rating: []string{"span[data-test='ratings']"},
		link:   "a[data-test='product-title']",
	},
	models.SourceEbay: {
		card:   ".s-item",
		title:  []string{".s-item__title"},
		price:  []string{".s-item__price"},
		rating: []string{".x-star-rating"},
		link:   "a.s-item__link",
	},
}

// FirstSearchResult extracts the best (first usable) listing from a search
// results page. Sponsored placeholder cards without a title are skipped. A
// page with no recognizable cards yields an error record, never a panic.
func FirstSearchResult(source models.Source, searchURL, html string) *models.ProductRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.NewErrorRecord(searchURL, TierStructured, "unparseable search page")
	}
	sels, ok := searchTable[source]
	if !ok {
		return models.NewErrorRecord(searchURL, TierStructured, ErrUnsupportedRetailer.Error())
	}

	var rec *models.ProductRecord
	doc.Find(sels.card).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		title := firstCardText(card, sels.title)
		if title == "" || strings.EqualFold(title, "Shop on eBay") {
			return true
		}

		r := &models.ProductRecord{
			Source:           source,
			URL:              cardLink(card, sels.link, searchURL),
			Title:            title,
			Status:           models.StatusSuccess,
			ExtractionMethod: TierStructured,
			FetchedAt:        time.Now(),
		}
		if text := firstCardText(card, sels.price); text != "" {
			if v := models.ParsePriceText(text); v != nil {
				r.Price = v
				r.PriceText = models.StringPtr(text)
			}
		}
		if text := firstCardText(card, sels.rating); text != "" {
			if v := models.ParseRatingText(text); v != nil {
				r.Rating = v
				r.RatingText = text
			}
		}
		if r.Rating == nil {
			r.RatingText = models.NoRatings
		}
		r.RetailerID = RetailerID(source, r.URL)
		rec = r
		return false
	})

	if rec == nil {
		return models.NewErrorRecord(searchURL, TierStructured, "no search results found")
	}
	return rec
}

func firstCardText(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(card.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func cardLink(card *goquery.Selection, sel, searchURL string) string {
	href, ok := card.Find(sel).First().Attr("href")
	if !ok || href == "" {
		return searchURL
	}
	base, err := url.Parse(searchURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return searchURL
	}
	return base.ResolveReference(ref).String()
}
