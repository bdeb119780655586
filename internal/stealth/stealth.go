// Package stealth is the hardened browser tier for the one retailer that
// actively blocks ordinary headless automation. It rides go-rod's stealth
// page, which scrubs the automation markers page scripts probe for, and
// randomizes the fingerprint surface per call.
package stealth

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/fetch"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

var viewports = []struct{ width, height int }{
	{1920, 1080},
	{1680, 1050},
	{1536, 864},
	{1440, 900},
	{1366, 768},
}

type Fetcher struct {
	timeout    time.Duration
	navRetries int
	logger     *slog.Logger
}

func NewFetcher(timeout time.Duration, navRetries int) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if navRetries <= 0 {
		navRetries = 3
	}
	return &Fetcher{
		timeout:    timeout,
		navRetries: navRetries,
		logger:     slog.Default().With("component", "stealth_fetcher"),
	}
}

func (f *Fetcher) Name() string { return fetch.TierStealth }

// Fetch loads the page through a freshly launched stealth browser. Only the
// largest marketplace warrants the cost; other domains fail fast so the
// cascade moves on without burning a browser launch.
func (f *Fetcher) Fetch(ctx context.Context, url string) (rec *models.ProductRecord, err error) {
	source := models.ResolveSource(url)
	if source != models.SourceAmazon {
		return models.NewErrorRecord(url, fetch.TierStealth, fmt.Sprintf("stealth tier not tuned for %s", source)), nil
	}

	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("stealth tier panic: %v", r)
		}
	}()

	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false).
		Set("disable-blink-features", "AutomationControlled")
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("stealth launch: %w", err)
	}
	defer l.Cleanup()

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("stealth connect: %w", err)
	}
	defer b.Close()

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("stealth page: %w", err)
	}
	defer page.Close()

	vp := viewports[rand.Intn(len(viewports))]
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.width,
		Height:            vp.height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("stealth viewport: %w", err)
	}

	if err := f.navigate(page, url); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	humanlikeScroll(page)

	html, err := page.Timeout(f.timeout).HTML()
	if err != nil {
		return nil, fmt.Errorf("stealth content: %w", err)
	}

	rec = fetch.ExtractFromHTML(url, html, fetch.TierStealth)
	if rec.Status == models.StatusSuccess && rec.Price == nil {
		f.fillFromDOM(rec, page)
	}
	if blocked(html) {
		return models.NewErrorRecord(url, fetch.TierStealth, "bot check page served"), nil
	}
	f.logger.Info("stealth extraction complete", "url", url, "has_price", rec.HasPrice())
	return rec, nil
}

func (f *Fetcher) navigate(page *rod.Page, url string) error {
	var lastErr error
	for i := 0; i < f.navRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
		if err := page.Timeout(f.timeout).Navigate(url); err != nil {
			lastErr = err
			continue
		}
		if err := page.Timeout(f.timeout).WaitLoad(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("stealth navigation failed after %d attempts: %w", f.navRetries, lastErr)
}

func (f *Fetcher) fillFromDOM(rec *models.ProductRecord, page *rod.Page) {
	for _, sel := range []string{".a-price .a-offscreen", "#priceblock_ourprice", "#priceblock_dealprice"} {
		el, err := page.Timeout(3 * time.Second).Element(sel)
		if err != nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		if v := models.ParsePriceText(text); v != nil {
			rec.Price = v
			rec.PriceText = models.StringPtr(strings.TrimSpace(text))
			break
		}
	}
	if rec.Availability == nil {
		if el, err := page.Timeout(2 * time.Second).Element("#availability span"); err == nil {
			if text, err := el.Text(); err == nil && strings.TrimSpace(text) != "" {
				rec.Availability = models.StringPtr(strings.TrimSpace(text))
			}
		}
	}
}

// humanlikeScroll nudges the page down in uneven steps so lazy-loaded price
// blocks render and the session looks less synthetic.
func humanlikeScroll(page *rod.Page) {
	for i := 0; i < 4; i++ {
		_, _ = page.Eval(`() => window.scrollBy(0, window.innerHeight * 0.5)`)
		time.Sleep(time.Duration(120+rand.Intn(180)) * time.Millisecond)
	}
	_, _ = page.Eval(`() => window.scrollBy(0, -200)`)
}

func blocked(html string) bool {
	return strings.Contains(html, "Type the characters you see in this image") ||
		strings.Contains(html, "api-services-support@amazon.com")
}
