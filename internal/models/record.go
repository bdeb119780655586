package models

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Source identifies which retailer a record came from.
type Source string

const (
	SourceAmazon  Source = "amazon"
	SourceWalmart Source = "walmart"
	SourceBestBuy Source = "bestbuy"
	SourceTarget  Source = "target"
	SourceEbay    Source = "ebay"
	SourceUnknown Source = "unknown"
)

// SupportedSources lists the retailers the pipeline knows how to fetch from.
var SupportedSources = []Source{SourceAmazon, SourceWalmart, SourceBestBuy, SourceTarget, SourceEbay}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Prices outside this range are treated as extraction noise, not data.
const (
	MinPlausiblePrice = 0.0
	MaxPlausiblePrice = 10000.0
)

const NoRatings = "No ratings"

// ProductRecord is the canonical unit produced by every fetch tier and by
// the alternative finder. Records are never mutated after construction;
// the orchestrator's Merge produces a new composite instead.
type ProductRecord struct {
	Source           Source    `json:"source"`
	URL              string    `json:"url"`
	Title            string    `json:"title"`
	Price            *float64  `json:"price"`
	PriceText        *string   `json:"price_text"`
	Rating           *float64  `json:"rating"`
	RatingText       string    `json:"rating_text,omitempty"`
	Availability     *string   `json:"availability"`
	ImageURL         *string   `json:"image_url"`
	Status           Status    `json:"status"`
	ExtractionMethod string    `json:"extraction_method,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	RetailerID       string    `json:"retailer_id,omitempty"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// AlternativeRecord is a comparable listing found on a different retailer.
type AlternativeRecord struct {
	ProductRecord
	IsBetterDeal  bool     `json:"is_better_deal"`
	Reason        string   `json:"reason"`
	HolisticScore *float64 `json:"holistic_score,omitempty"`
}

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Verdict labels.
const (
	VerdictCannotDetermine    = "cannot determine"
	VerdictGoodDeal           = "good deal"
	VerdictNotBest            = "not the best deal"
	VerdictLikelyReasonable   = "likely reasonable"
	VerdictBetterAlternatives = "better alternatives available"
)

// DealVerdict is the holistic judgement for one evaluated listing.
type DealVerdict struct {
	IsGoodDeal    *bool      `json:"is_good_deal"`
	Verdict       string     `json:"verdict"`
	Confidence    Confidence `json:"confidence"`
	Price         *float64   `json:"price"`
	HolisticScore *float64   `json:"holistic_score"`
	Reasons       []string   `json:"reasons"`
}

// NewErrorRecord builds a status=error record for a URL. Error records
// carry no price, rating or availability data.
func NewErrorRecord(rawURL, method, message string) *ProductRecord {
	return &ProductRecord{
		Source:           ResolveSource(rawURL),
		URL:              rawURL,
		Title:            TitleFromURL(rawURL),
		Status:           StatusError,
		ExtractionMethod: method,
		ErrorMessage:     message,
		FetchedAt:        time.Now(),
	}
}

// ResolveSource maps a URL's host to a retailer identifier. The host is
// matched by retailer token so "www.amazon.com", "smile.amazon.co.uk" and
// "m.walmart.com" all resolve; a bare "www" is never a valid source.
func ResolveSource(rawURL string) Source {
	host := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}
	for _, s := range SupportedSources {
		if strings.Contains(host, string(s)) {
			return s
		}
	}
	return SourceUnknown
}

// TitleFromURL derives a readable title guess from the URL path, used when
// no structured title can be extracted.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Unknown Product"
	}
	for _, segment := range strings.Split(u.Path, "/") {
		if len(segment) <= 3 || isAllDigits(segment) || looksLikeCatalogID(segment) {
			continue
		}
		title := strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(segment)
		return titleCase(strings.TrimSpace(title))
	}
	return "Unknown Product"
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

var catalogIDPattern = regexp.MustCompile(`^[A-Z0-9]{8,}$`)

func looksLikeCatalogID(s string) bool {
	return catalogIDPattern.MatchString(s)
}

// PlausiblePrice reports whether a value sits in a believable retail range.
func PlausiblePrice(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v > MinPlausiblePrice && v <= MaxPlausiblePrice
}

var priceDigits = regexp.MustCompile(`[^0-9.]`)

// ParsePriceText recovers a numeric price from a display string by stripping
// everything but digits and the decimal point. US-centric: thousands
// separators survive ("1,299.99" parses as 1299.99) but European decimal
// commas do not; the original behavior is preserved deliberately.
func ParsePriceText(text string) *float64 {
	cleaned := priceDigits.ReplaceAllString(text, "")
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || !PlausiblePrice(v) {
		return nil
	}
	return &v
}

// ParseRatingText pulls a 0-5 star value out of strings like
// "4.5 out of 5 stars" or "4.5".
func ParseRatingText(text string) *float64 {
	m := ratingPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

var ratingPattern = regexp.MustCompile(`([0-5](?:\.\d+)?)`)

// Merge returns a new composite record with the receiver's fields taking
// priority and nil/empty fields filled from other. Already-populated fields
// are never overwritten, so merging a record with itself is a no-op.
func (r *ProductRecord) Merge(other *ProductRecord) *ProductRecord {
	out := *r
	if other == nil {
		return &out
	}
	if out.Source == SourceUnknown || out.Source == "" {
		out.Source = other.Source
	}
	if out.URL == "" {
		out.URL = other.URL
	}
	if out.Title == "" || out.Title == "Unknown Product" {
		if other.Title != "" {
			out.Title = other.Title
		}
	}
	if out.Price == nil {
		out.Price = other.Price
	}
	if out.PriceText == nil {
		out.PriceText = other.PriceText
	}
	if out.Rating == nil {
		out.Rating = other.Rating
	}
	if out.RatingText == "" {
		out.RatingText = other.RatingText
	}
	if out.Availability == nil {
		out.Availability = other.Availability
	}
	if out.ImageURL == nil {
		out.ImageURL = other.ImageURL
	}
	if out.RetailerID == "" {
		out.RetailerID = other.RetailerID
	}
	if out.Status == StatusError && other.Status == StatusSuccess {
		out.Status = StatusSuccess
		out.ErrorMessage = ""
		// The succeeding record's method wins, so the composite names the
		// tier that actually produced the data.
		if other.ExtractionMethod != "" {
			out.ExtractionMethod = other.ExtractionMethod
		}
	}
	return &out
}

// HasPrice reports whether the record carries a determined, plausible price.
func (r *ProductRecord) HasPrice() bool {
	return r.Price != nil && PlausiblePrice(*r.Price)
}

// Succeeded reports whether the record is a usable success with a price,
// the cascade's short-circuit condition.
func (r *ProductRecord) Succeeded() bool {
	return r.Status == StatusSuccess && r.HasPrice()
}

// Ptr helpers used across the fetch tiers.
func StringPtr(s string) *string  { return &s }
func FloatPtr(v float64) *float64 { return &v }
func BoolPtr(v bool) *bool        { return &v }
