// Package provider orchestrates the fetch cascade. It walks the browser
// tiers in reliability order, merges partial records, consults the memo
// cache and rate limiter, and bundles product, alternatives, and verdict
// into one evaluation result.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/cache"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/deal"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/fetch"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/ranker"
)

// DefaultTierLimits caps calls per tier per sliding hour. The heavier the
// tier, the tighter the ceiling.
var DefaultTierLimits = map[string]int{
	fetch.TierStructured: 60,
	fetch.TierRendering:  30,
	fetch.TierStealth:    10,
}

// DefaultTierTimeouts bounds a single fetch attempt per tier.
var DefaultTierTimeouts = map[string]time.Duration{
	fetch.TierStructured: 15 * time.Second,
	fetch.TierRendering:  45 * time.Second,
	fetch.TierStealth:    60 * time.Second,
}

// AlternativeFinder is implemented by internal/alternatives.Finder.
type AlternativeFinder interface {
	Find(ctx context.Context, primary *models.ProductRecord) ([]models.AlternativeRecord, error)
}

type Options struct {
	Tiers        []fetch.Fetcher
	LastResort   fetch.Fetcher
	Cache        *cache.Cache
	Limiter      *cache.RateLimiter
	Ranker       *ranker.Ranker
	Finder       AlternativeFinder
	TierLimits   map[string]int
	TierTimeouts map[string]time.Duration
}

type Provider struct {
	tiers        map[string]fetch.Fetcher
	lastResort   fetch.Fetcher
	cache        *cache.Cache
	limiter      *cache.RateLimiter
	ranker       *ranker.Ranker
	finder       AlternativeFinder
	tierLimits   map[string]int
	tierTimeouts map[string]time.Duration
	logger       *slog.Logger
}

func New(opts Options) *Provider {
	p := &Provider{
		tiers:        make(map[string]fetch.Fetcher, len(opts.Tiers)),
		lastResort:   opts.LastResort,
		cache:        opts.Cache,
		limiter:      opts.Limiter,
		ranker:       opts.Ranker,
		finder:       opts.Finder,
		tierLimits:   opts.TierLimits,
		tierTimeouts: opts.TierTimeouts,
		logger:       slog.Default().With("component", "price_provider"),
	}
	var order []string
	for _, t := range opts.Tiers {
		p.tiers[t.Name()] = t
		order = append(order, t.Name())
	}
	if p.cache == nil {
		p.cache = cache.New(cache.DefaultTTL)
	}
	if p.limiter == nil {
		p.limiter = cache.NewRateLimiter(cache.DefaultWindow)
	}
	if p.ranker == nil {
		p.ranker = ranker.New(order)
	}
	if p.tierLimits == nil {
		p.tierLimits = DefaultTierLimits
	}
	if p.tierTimeouts == nil {
		p.tierTimeouts = DefaultTierTimeouts
	}
	return p
}

// GetPrice runs the fetch cascade for one product URL. Tiers are tried in
// the domain's current reliability order; the first tier that produces a
// priced success short-circuits the rest. Partial data from failed tiers is
// merged so a later tier only has to fill the gaps.
func (p *Provider) GetPrice(ctx context.Context, rawURL string) (*models.ProductRecord, error) {
	source := models.ResolveSource(rawURL)
	if source == models.SourceUnknown {
		return nil, fmt.Errorf("%w: %s", fetch.ErrUnsupportedRetailer, rawURL)
	}

	if rec, ok := p.cache.Lookup(rawURL); ok {
		p.logger.Info("cache hit", "url", rawURL)
		return rec, nil
	}

	var merged *models.ProductRecord
	for _, tierName := range p.ranker.Rank(string(source)) {
		tier, ok := p.tiers[tierName]
		if !ok {
			continue
		}
		if !p.limiter.TryAcquire(tierName, p.tierLimits[tierName]) {
			// An exhausted tier counts as a failed attempt so the
			// ranker learns to prefer tiers with headroom.
			p.logger.Warn("tier rate limit exhausted", "tier", tierName, "source", source)
			p.ranker.Record(string(source), tierName, false)
			continue
		}

		rec := p.runTier(ctx, tier, rawURL)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		success := rec != nil && rec.Succeeded()
		p.ranker.Record(string(source), tierName, success)

		if merged == nil {
			merged = rec
		} else if rec != nil {
			merged = merged.Merge(rec)
		}
		if merged != nil {
			recoverPrice(merged)
		}
		if merged != nil && merged.Succeeded() {
			p.cache.Store(rawURL, merged)
			return merged, nil
		}
	}

	// One straight fetch outside the cascade so a transient early failure
	// does not leave the caller empty-handed.
	if p.lastResort != nil && (merged == nil || !merged.Succeeded()) {
		if rec := p.runTier(ctx, p.lastResort, rawURL); rec != nil {
			if merged == nil {
				merged = rec
			} else {
				merged = merged.Merge(rec)
			}
			recoverPrice(merged)
		}
	}

	if merged == nil {
		merged = models.NewErrorRecord(rawURL, "", "all fetch tiers failed")
	}
	if merged.Succeeded() {
		p.cache.Store(rawURL, merged)
	}
	return merged, nil
}

func (p *Provider) runTier(ctx context.Context, tier fetch.Fetcher, rawURL string) *models.ProductRecord {
	timeout, ok := p.tierTimeouts[tier.Name()]
	if !ok {
		timeout = 30 * time.Second
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	rec, err := tier.Fetch(tctx, rawURL)
	elapsed := time.Since(start)
	if err != nil {
		p.logger.Warn("tier fetch failed",
			"tier", tier.Name(),
			"url", rawURL,
			"elapsed", elapsed.Round(time.Millisecond),
			"error", err,
		)
		return models.NewErrorRecord(rawURL, tier.Name(), err.Error())
	}
	p.logger.Info("tier fetch complete",
		"tier", tier.Name(),
		"url", rawURL,
		"elapsed", elapsed.Round(time.Millisecond),
		"status", rec.Status,
		"has_price", rec.HasPrice(),
	)
	return rec
}

// recoverPrice backfills the numeric price from raw text when a tier
// captured the display string but not the parsed value.
func recoverPrice(rec *models.ProductRecord) {
	if rec.Price == nil && rec.PriceText != nil {
		if v := models.ParsePriceText(*rec.PriceText); v != nil {
			rec.Price = v
		}
	}
}

// FindAlternatives delegates to the configured finder. A nil finder means
// alternatives are disabled; that is a valid configuration, not an error.
func (p *Provider) FindAlternatives(ctx context.Context, primary *models.ProductRecord) ([]models.AlternativeRecord, error) {
	if p.finder == nil {
		return nil, nil
	}
	return p.finder.Find(ctx, primary)
}

// URLResult bundles everything the pipeline learned about one product URL.
type URLResult struct {
	URL          string                     `json:"url"`
	Product      *models.ProductRecord      `json:"product"`
	Alternatives []models.AlternativeRecord `json:"alternatives"`
	Verdict      *models.DealVerdict        `json:"verdict"`
}

// EvaluationResult is the response for one evaluation request, covering
// every product URL found in the input text.
type EvaluationResult struct {
	ID      string      `json:"id"`
	Query   string      `json:"query"`
	Results []URLResult `json:"results"`
}

// Evaluate extracts product URLs from free-form text and runs the full
// pipeline for each: fetch, alternatives, verdict.
func (p *Provider) Evaluate(ctx context.Context, text string) (*EvaluationResult, error) {
	urls := ExtractProductURLs(text)
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no supported product URLs in input", fetch.ErrUnsupportedRetailer)
	}

	out := &EvaluationResult{
		ID:    uuid.New().String(),
		Query: text,
	}
	for _, u := range urls {
		product, err := p.GetPrice(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			product = models.NewErrorRecord(u, "", err.Error())
		}

		var alts []models.AlternativeRecord
		if product.Succeeded() {
			alts, err = p.FindAlternatives(ctx, product)
			if err != nil {
				p.logger.Warn("alternatives search failed", "url", u, "error", err)
				alts = nil
			}
		}

		verdict := deal.Analyze(product, alts)
		out.Results = append(out.Results, URLResult{
			URL:          u,
			Product:      product,
			Alternatives: alts,
			Verdict:      verdict,
		})
	}
	return out, nil
}

// ExtractProductURLs pulls http(s) URLs for supported retailers out of
// free-form text, preserving order and dropping duplicates.
func ExtractProductURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, token := range strings.Fields(text) {
		token = strings.Trim(token, `"'<>(),.`)
		if !strings.HasPrefix(token, "http://") && !strings.HasPrefix(token, "https://") {
			continue
		}
		if models.ResolveSource(token) == models.SourceUnknown {
			continue
		}
		if !seen[token] {
			seen[token] = true
			urls = append(urls, token)
		}
	}
	return urls
}
