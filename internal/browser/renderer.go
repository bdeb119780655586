package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/fetch"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

// RenderingFetcher drives a headless browser so JS-rendered product pages
// can be extracted with the same projection as the structured tier, plus
// live DOM queries for fields the embedded data misses.
type RenderingFetcher struct {
	opts       *Options
	navRetries int
	logger     *slog.Logger
}

func NewRenderingFetcher(opts *Options, navRetries int) *RenderingFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if navRetries <= 0 {
		navRetries = 3
	}
	return &RenderingFetcher{
		opts:       opts,
		navRetries: navRetries,
		logger:     slog.Default().With("component", "rendering_fetcher"),
	}
}

func (f *RenderingFetcher) Name() string { return fetch.TierRendering }

func (f *RenderingFetcher) Fetch(ctx context.Context, url string) (rec *models.ProductRecord, err error) {
	// A crashed driver must look like an ordinary tier failure to the cascade.
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("rendering tier panic: %v", r)
		}
	}()

	session, err := NewSession(f.opts)
	if err != nil {
		return nil, fmt.Errorf("rendering session: %w", err)
	}
	defer session.Close()

	page, err := session.NewPage()
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	defer page.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		// Navigation inside playwright does not observe ctx; force the page
		// shut when the deadline passes so the goroutine below unblocks.
		select {
		case <-ctx.Done():
			page.Close()
		case <-done:
		}
	}()

	if err := session.NavigateWithRetry(page, url, f.navRetries); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("rendering navigation: %w", err)
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("rendering content: %w", err)
	}

	rec = fetch.ExtractFromHTML(url, html, fetch.TierRendering)
	if rec.Status == models.StatusError {
		// The page rendered but embedded no structured data; rebuild a
		// partial record from the live DOM.
		rec = &models.ProductRecord{
			Source:           models.ResolveSource(url),
			URL:              url,
			Status:           models.StatusSuccess,
			ExtractionMethod: fetch.TierRendering,
			RetailerID:       fetch.RetailerID(models.ResolveSource(url), url),
			FetchedAt:        time.Now(),
		}
	}
	f.fillFromDOM(rec, page)

	if rec.Title == "" {
		rec.Title = models.TitleFromURL(url)
	}
	if rec.Rating == nil && rec.RatingText == "" {
		rec.RatingText = models.NoRatings
	}
	f.logger.Info("rendered extraction complete", "url", url, "has_price", rec.HasPrice())
	return rec, nil
}

// Live DOM selector lists, broader than the static tables because rendered
// markup often differs from the served HTML.
var domSelectors = map[models.Source]struct {
	title, price, rating, availability, image []string
}{
	models.SourceAmazon: {
		title:        []string{"#productTitle"},
		price:        []string{".a-price .a-offscreen", "#priceblock_ourprice", "#priceblock_dealprice", "#corePrice_feature_div .a-offscreen"},
		rating:       []string{"span[data-hook='rating-out-of-text']", "#acrPopover"},
		availability: []string{"#availability span"},
		image:        []string{"#landingImage"},
	},
	models.SourceWalmart: {
		title:        []string{"h1[itemprop='name']", "h1"},
		price:        []string{"span[itemprop='price']", "div[data-testid='price-wrap'] span"},
		rating:       []string{"span[data-testid='reviews-and-ratings'] span"},
		availability: []string{"div[data-testid='fulfillment-badge']"},
		image:        []string{"img[data-testid='hero-image']"},
	},
	models.SourceBestBuy: {
		title:        []string{".sku-title h1", "h1"},
		price:        []string{".priceView-hero-price span[aria-hidden='true']"},
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
		price:        []string{".x-price-primary span"},
		rating:       []string{".ux-summary__stars"},
		availability: []string{".d-quantity__availability"},
		image:        []string{".ux-image-carousel-item img"},
	},
}

func (f *RenderingFetcher) fillFromDOM(rec *models.ProductRecord, page playwright.Page) {
	sels, ok := domSelectors[rec.Source]
	if !ok {
		return
	}
	if rec.Title == "" {
		if text := queryText(page, sels.title); text != "" {
			rec.Title = text
		}
	}
	if rec.Price == nil {
		if text := queryText(page, sels.price); text != "" {
			if v := models.ParsePriceText(text); v != nil {
				rec.Price = v
				rec.PriceText = models.StringPtr(text)
			}
		}
	}
	if rec.Rating == nil {
		if text := queryText(page, sels.rating); text != "" {
			if v := models.ParseRatingText(text); v != nil {
				rec.Rating = v
				rec.RatingText = text
			}
		}
	}
	if rec.Availability == nil {
		if text := queryText(page, sels.availability); text != "" {
			rec.Availability = models.StringPtr(normalizeAvailability(text))
		}
	}
	if rec.ImageURL == nil {
		for _, sel := range sels.image {
			el, err := page.QuerySelector(sel)
			if err != nil || el == nil {
				continue
			}
			if src, err := el.GetAttribute("src"); err == nil && src != "" {
				rec.ImageURL = models.StringPtr(src)
				break
			}
		}
	}
}

func queryText(page playwright.Page, selectors []string) string {
	for _, sel := range selectors {
		el, err := page.QuerySelector(sel)
		if err != nil || el == nil {
			continue
		}
		text, err := el.TextContent()
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func normalizeAvailability(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "in stock"), strings.Contains(lower, "add to cart"):
		return "in stock"
	case strings.Contains(lower, "out of stock"), strings.Contains(lower, "unavailable"), strings.Contains(lower, "sold out"):
		return "out of stock"
	}
	return text
}
