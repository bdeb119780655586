// Package fetch defines the fetch-tier capability interface and implements
// the structured-data tier: plain-HTTP retrieval plus extraction of product
// facts from embedded JSON state, Schema.org JSON-LD, retailer HTML patterns
// and a generic price token fallback.
package fetch

import (
	"context"
	"errors"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

// Tier identifiers, in default cascade order.
const (
	TierStructured = "structured"
	TierRendering  = "rendering"
	TierStealth    = "stealth"
)

// DefaultTierOrder is the cascade order used until reliability stats say
// otherwise.
var DefaultTierOrder = []string{TierStructured, TierRendering, TierStealth}

var (
	ErrUnsupportedRetailer = errors.New("unsupported retailer")
	ErrNoProductData       = errors.New("no product data found in page")
)

// Fetcher is one strategy in the fallback cascade. Implementations must not
// panic across this boundary: extraction failures degrade to a partial or
// error record, and the returned error is reserved for transport-level
// failures the caller may want to retry.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, url string) (*models.ProductRecord, error)
}

// Searcher locates the best matching listing for a query on one retailer's
// search endpoint, normalized into the same record shape as a direct fetch.
type Searcher interface {
	SearchProduct(ctx context.Context, source models.Source, query string) (*models.ProductRecord, error)
}
