// Package alternatives locates comparable listings on competing retailers
// and marks the ones that undercut the original by a meaningful margin.
package alternatives

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/fetch"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

const (
	// DefaultBudget caps the whole alternatives pass. Searches still in
	// flight when it expires are abandoned.
	DefaultBudget = 45 * time.Second

	defaultPerSearchTimeout = 8 * time.Second
	defaultMaxResults       = 3

	// When the budget expires empty-handed, one relaxed pass runs against
	// a trimmed market list under a fraction of the configured deadlines.
	maxRelaxedBudget = 10 * time.Second
	relaxedMarketCap = 2

	betterDealMargin = 5.0 // percent
)

type Options struct {
	Searcher         fetch.Searcher
	Categories       []Category
	Budget           time.Duration
	PerSearchTimeout time.Duration
	MaxResults       int
	Markets          []models.Source
}

type Finder struct {
	searcher         fetch.Searcher
	table            []Category
	budget           time.Duration
	perSearchTimeout time.Duration
	maxResults       int
	markets          []models.Source
	logger           *slog.Logger
}

func NewFinder(opts Options) *Finder {
	f := &Finder{
		searcher:         opts.Searcher,
		table:            opts.Categories,
		budget:           opts.Budget,
		perSearchTimeout: opts.PerSearchTimeout,
		maxResults:       opts.MaxResults,
		markets:          opts.Markets,
		logger:           slog.Default().With("component", "alternative_finder"),
	}
	if f.table == nil {
		f.table = DefaultCategories
	}
	if f.budget <= 0 {
		f.budget = DefaultBudget
	}
	if f.perSearchTimeout <= 0 {
		f.perSearchTimeout = defaultPerSearchTimeout
	}
	if f.maxResults <= 0 {
		f.maxResults = defaultMaxResults
	}
	if f.markets == nil {
		f.markets = models.SupportedSources
	}
	return f
}

// Find searches competing retailers for listings comparable to the primary
// record. An empty slice is a normal outcome, not an error; the caller's
// verdict simply leans on fewer signals.
func (f *Finder) Find(ctx context.Context, primary *models.ProductRecord) ([]models.AlternativeRecord, error) {
	if primary == nil || primary.Status != models.StatusSuccess {
		f.logger.Warn("skipping alternatives for unsuccessful fetch")
		return nil, nil
	}

	// Recover a price from the raw text when numeric parsing upstream
	// came up empty. The recovery goes into a local copy; the caller's
	// record stays as fetched. Without any price the comparison is
	// pointless.
	if primary.Price == nil && primary.PriceText != nil {
		if v := models.ParsePriceText(*primary.PriceText); v != nil {
			recovered := *primary
			recovered.Price = v
			primary = &recovered
			f.logger.Info("recovered price from price text", "price", *v)
		}
	}
	if primary.Price == nil {
		f.logger.Warn("skipping alternatives, no price to compare against")
		return nil, nil
	}
	if !usableTitle(primary.Title) {
		f.logger.Warn("skipping alternatives, title unusable", "title", primary.Title)
		return nil, nil
	}

	budgetCtx, cancel := context.WithTimeout(ctx, f.budget)
	defer cancel()

	category := IdentifyCategory(f.table, primary.Title, primary.URL)
	markets := f.targetMarkets(primary.Source)
	f.logger.Info("searching for alternatives",
		"category", category,
		"markets", len(markets),
		"title", primary.Title,
	)

	found := f.searchMarkets(budgetCtx, markets, primary.Title, f.perSearchTimeout)

	if len(found) < f.maxResults && budgetCtx.Err() == nil {
		brand := ExtractBrand(primary.Title)
		model := ExtractModel(primary.Title)
		attrs := ExtractAttributes(primary.Title, category)
		query := BuildQuery(f.table, brand, model, attrs, category)

		if query != "" && query != primary.Title {
			remaining := marketsWithout(markets, found)
			f.logger.Info("targeted search", "query", query, "markets", len(remaining))
			for _, rec := range f.searchMarkets(budgetCtx, remaining, query, f.perSearchTimeout) {
				if len(found) >= f.maxResults {
					break
				}
				found = append(found, rec)
			}
		}
	}

	// Budget ran out before anything came back. One relaxed pass with
	// fewer markets and tighter per-call deadlines, then give up; an
	// empty list is still a normal outcome.
	if len(found) == 0 && budgetCtx.Err() != nil && ctx.Err() == nil {
		relaxed := markets
		if len(relaxed) > relaxedMarketCap {
			relaxed = relaxed[:relaxedMarketCap]
		}
		relaxBudget := f.budget / 4
		if relaxBudget > maxRelaxedBudget {
			relaxBudget = maxRelaxedBudget
		}
		f.logger.Warn("budget exhausted, relaxed search",
			"markets", len(relaxed),
			"budget", relaxBudget,
		)

		relaxCtx, relaxCancel := context.WithTimeout(ctx, relaxBudget)
		found = f.searchMarkets(relaxCtx, relaxed, primary.Title, f.perSearchTimeout/2)
		relaxCancel()
	}

	if len(found) > f.maxResults {
		found = found[:f.maxResults]
	}

	alts := make([]models.AlternativeRecord, 0, len(found))
	for _, rec := range found {
		alts = append(alts, annotate(rec, primary))
	}
	return alts, nil
}

// searchMarkets fans out one search per market under the shared deadline and
// keeps the successful hits in market order.
func (f *Finder) searchMarkets(ctx context.Context, markets []models.Source, query string, perTimeout time.Duration) []*models.ProductRecord {
	results := make([]*models.ProductRecord, len(markets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, market := range markets {
		i, market := i, market
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, perTimeout)
			defer cancel()

			rec, err := f.searcher.SearchProduct(sctx, market, query)
			if err != nil {
				f.logger.Warn("market search failed", "market", market, "error", err)
				return nil
			}
			if rec == nil || rec.Status != models.StatusSuccess || !usableTitle(rec.Title) {
				return nil
			}
			mu.Lock()
			results[i] = rec
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Strict pass wants priced hits; fall back to unpriced successes so a
	// thin result set still names where else the product is sold.
	var priced, unpriced []*models.ProductRecord
	for _, rec := range results {
		if rec == nil {
			continue
		}
		if rec.HasPrice() {
			priced = append(priced, rec)
		} else {
			unpriced = append(unpriced, rec)
		}
	}
	if len(priced) > 0 {
		return priced
	}
	return unpriced
}

func (f *Finder) targetMarkets(source models.Source) []models.Source {
	var out []models.Source
	for _, m := range f.markets {
		if m != source {
			out = append(out, m)
		}
	}
	return out
}

func marketsWithout(markets []models.Source, found []*models.ProductRecord) []models.Source {
	used := make(map[models.Source]bool, len(found))
	for _, rec := range found {
		used[rec.Source] = true
	}
	var out []models.Source
	for _, m := range markets {
		if !used[m] {
			out = append(out, m)
		}
	}
	return out
}

// annotate compares an alternative's price to the primary's and records
// whether it is a better deal, mirroring how a shopper would phrase it.
func annotate(rec *models.ProductRecord, primary *models.ProductRecord) models.AlternativeRecord {
	alt := models.AlternativeRecord{ProductRecord: *rec}

	if rec.Price == nil && rec.PriceText != nil {
		if v := models.ParsePriceText(*rec.PriceText); v != nil {
			alt.Price = v
		}
	}

	if alt.Price == nil || primary.Price == nil || *primary.Price <= 0 {
		alt.IsBetterDeal = false
		alt.Reason = "Cannot compare prices (missing data)"
		return alt
	}

	diffPercent := (*primary.Price - *alt.Price) / *primary.Price * 100
	switch {
	case diffPercent > betterDealMargin:
		alt.IsBetterDeal = true
		alt.Reason = fmt.Sprintf("%d%% cheaper than original", int(math.Round(math.Abs(diffPercent))))
	case diffPercent < -betterDealMargin:
		alt.Reason = fmt.Sprintf("%d%% more expensive than original", int(math.Round(math.Abs(diffPercent))))
	default:
		alt.Reason = "Similar price to original"
	}
	return alt
}

func usableTitle(title string) bool {
	t := strings.TrimSpace(title)
	if len(t) < 5 {
		return false
	}
	switch strings.ToLower(t) {
	case "unknown product", "shop on ebay":
		return false
	}
	return true
}
