package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

// DefaultUserAgents is a small fixed pool of realistic browser identities.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
}

const maxBodySize = 4 << 20 // pages past 4MB are never product pages

// StructuredFetcher is the cheapest tier: one HTTP GET with browser-like
// headers, then structured extraction. No browser engine involved.
type StructuredFetcher struct {
	client     *http.Client
	userAgents []string
	logger     *slog.Logger
}

type StructuredOptions struct {
	Timeout    time.Duration
	UserAgents []string
}

func NewStructuredFetcher(opts StructuredOptions) *StructuredFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = DefaultUserAgents
	}
	return &StructuredFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		userAgents: opts.UserAgents,
		logger:     slog.Default().With("component", "structured_fetcher"),
	}
}

func (f *StructuredFetcher) Name() string { return TierStructured }

// Fetch retrieves a product page over plain HTTP and extracts what it can.
// Transport failures surface as the error return so the cascade can retry;
// extraction failures degrade to a partial or error record.
func (f *StructuredFetcher) Fetch(ctx context.Context, url string) (*models.ProductRecord, error) {
	html, status, err := f.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("structured fetch %s: %w", url, err)
	}
	if status < 200 || status >= 300 {
		f.logger.Warn("non-2xx response", "url", url, "status", status)
		return models.NewErrorRecord(url, TierStructured, fmt.Sprintf("HTTP error: %d", status)), nil
	}
	rec := ExtractFromHTML(url, html, TierStructured)
	if rec.Status == models.StatusSuccess {
		f.logger.Info("structured extraction complete", "url", url, "has_price", rec.HasPrice())
	}
	return rec, nil
}

// SearchProduct runs a retailer search and normalizes the first result card
// into a ProductRecord. Used by the alternative finder.
func (f *StructuredFetcher) SearchProduct(ctx context.Context, source models.Source, query string) (*models.ProductRecord, error) {
	searchURL := SearchURL(source, query)
	if searchURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRetailer, source)
	}
	html, status, err := f.get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("search %s on %s: %w", query, source, err)
	}
	if status < 200 || status >= 300 {
		return models.NewErrorRecord(searchURL, TierStructured, fmt.Sprintf("HTTP error: %d", status)), nil
	}
	return FirstSearchResult(source, searchURL, html), nil
}

func (f *StructuredFetcher) get(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", f.userAgents[rand.Intn(len(f.userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}
