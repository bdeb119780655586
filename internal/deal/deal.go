// Package deal turns a product record and its alternatives into a verdict a
// shopper can act on. Scoring is weighted across price, rating, and
// availability; weights renormalize over whichever signals are present so a
// record missing a rating is not penalized for the gap.
package deal

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

const (
	weightPrice        = 60.0
	weightRating       = 25.0
	weightAvailability = 15.0

	// An alternative counts as a meaningfully better deal only when its
	// price undercuts the primary by more than this fraction.
	betterDealMargin = 0.05
)

// Analyze scores the primary record against its alternatives and returns a
// verdict with a confidence level and human-readable reasons. Alternatives
// get their HolisticScore annotated in place.
func Analyze(primary *models.ProductRecord, alts []models.AlternativeRecord) *models.DealVerdict {
	logger := slog.Default().With("component", "deal_analyzer")

	verdict := &models.DealVerdict{
		Verdict:    models.VerdictCannotDetermine,
		Confidence: models.ConfidenceLow,
	}
	if primary == nil {
		verdict.Reasons = []string{"no product data available"}
		return verdict
	}

	pricedAlts := pricedAlternatives(alts)
	priceScore, priceOK := scorePrice(primary, pricedAlts)
	ratingScore, ratingOK := scoreRating(primary)
	availScore, availOK := scoreAvailability(primary)

	var score, weightSum float64
	signals := 0
	if priceOK {
		score += priceScore
		weightSum += weightPrice
		signals++
	}
	if ratingOK {
		score += ratingScore
		weightSum += weightRating
		signals++
	}
	if availOK {
		score += availScore
		weightSum += weightAvailability
		signals++
	}
	if weightSum > 0 {
		score = score * 100 / weightSum
	}
	verdict.HolisticScore = models.FloatPtr(score)
	verdict.Price = primary.Price

	verdict.Confidence = confidence(signals, len(pricedAlts))

	var betterReasons []string
	for i := range alts {
		altSignals := annotateAlternative(&alts[i], primary)
		alt := &alts[i]
		switch {
		case alt.IsBetterDeal:
			reason := alt.Reason
			if alt.Rating != nil {
				reason = fmt.Sprintf("%s (rated %.1f)", reason, *alt.Rating)
			}
			betterReasons = append(betterReasons, reason)
		case altSignals >= signals && alt.HolisticScore != nil && *alt.HolisticScore > score:
			// A score assembled from fewer signals than the primary's is
			// not evidence of a better product; only equal or richer
			// coverage can outrank on score alone.
			betterReasons = append(betterReasons, fmt.Sprintf("%s listing scores %.0f against %.0f on the same signals", alt.Source, *alt.HolisticScore, score))
		}
	}

	verdict.Reasons = append(buildReasons(primary, pricedAlts, ratingOK, availOK), betterReasons...)

	switch {
	case signals == 0, !primary.HasPrice() && verdict.Confidence == models.ConfidenceLow:
		verdict.Verdict = models.VerdictCannotDetermine
		verdict.IsGoodDeal = nil
	case len(betterReasons) > 0:
		verdict.Verdict = models.VerdictBetterAlternatives
		verdict.IsGoodDeal = models.BoolPtr(false)
	case score >= 70 && len(pricedAlts) > 0:
		// "Good deal" is a comparative claim, so it needs at least one
		// priced alternative behind it.
		verdict.Verdict = models.VerdictGoodDeal
		verdict.IsGoodDeal = models.BoolPtr(true)
	case score >= 50:
		verdict.Verdict = models.VerdictLikelyReasonable
		verdict.IsGoodDeal = models.BoolPtr(true)
	default:
		verdict.Verdict = models.VerdictNotBest
		verdict.IsGoodDeal = models.BoolPtr(false)
	}

	logger.Info("deal analyzed",
		"verdict", verdict.Verdict,
		"score", fmt.Sprintf("%.1f", score),
		"confidence", verdict.Confidence,
		"alternatives", len(alts),
		"better", len(betterReasons),
	)
	return verdict
}

func pricedAlternatives(alts []models.AlternativeRecord) []float64 {
	var prices []float64
	for i := range alts {
		if alts[i].Price != nil && models.PlausiblePrice(*alts[i].Price) {
			prices = append(prices, *alts[i].Price)
		}
	}
	sort.Float64s(prices)
	return prices
}

// scorePrice compares the primary price against the priced alternatives.
// With no priced alternatives to compare against, a present price earns the
// full allocation since there is no evidence it is out of line.
func scorePrice(primary *models.ProductRecord, altPrices []float64) (float64, bool) {
	if !primary.HasPrice() {
		return 0, false
	}
	if len(altPrices) == 0 {
		return weightPrice, true
	}
	price := *primary.Price
	cheaper := 0
	for _, p := range altPrices {
		if p < price*(1-betterDealMargin) {
			cheaper++
		}
	}
	frac := 1 - float64(cheaper)/float64(len(altPrices))
	return weightPrice * frac, true
}

func scoreRating(primary *models.ProductRecord) (float64, bool) {
	if primary.Rating == nil {
		return 0, false
	}
	r := *primary.Rating
	if r < 0 {
		r = 0
	}
	if r > 5 {
		r = 5
	}
	return weightRating * r / 5, true
}

func scoreAvailability(primary *models.ProductRecord) (float64, bool) {
	if primary.Availability == nil {
		return 0, false
	}
	text := strings.ToLower(strings.TrimSpace(*primary.Availability))
	switch {
	case text == "" || text == "unknown":
		return 0, false
	case strings.Contains(text, "in stock") || strings.Contains(text, "available"):
		return weightAvailability, true
	case strings.Contains(text, "out of stock") || strings.Contains(text, "unavailable"):
		return 0, true
	default:
		return weightAvailability / 2, true
	}
}

func confidence(signals, pricedAlts int) models.Confidence {
	switch {
	case signals >= 3 && pricedAlts >= 1:
		return models.ConfidenceHigh
	case signals >= 2:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// annotateAlternative scores an alternative with the same signal-presence
// renormalization the primary gets, so the two numbers sit on one 0-100
// scale. Price credit is relative to the primary's price, full when the
// alternative matches or undercuts it and scaled down linearly as it costs
// more. Returns how many signals went into the score.
func annotateAlternative(alt *models.AlternativeRecord, primary *models.ProductRecord) int {
	var score, weightSum float64
	signals := 0

	altPriced := alt.Price != nil && models.PlausiblePrice(*alt.Price)
	if altPriced && primary.HasPrice() {
		frac := 1.0
		if *alt.Price > *primary.Price {
			frac = 2 - *alt.Price / *primary.Price
			if frac < 0 {
				frac = 0
			}
		}
		score += weightPrice * frac
		weightSum += weightPrice
		signals++
	}
	if s, ok := scoreRating(&alt.ProductRecord); ok {
		score += s
		weightSum += weightRating
		signals++
	}
	if s, ok := scoreAvailability(&alt.ProductRecord); ok {
		score += s
		weightSum += weightAvailability
		signals++
	}
	if weightSum > 0 {
		score = score * 100 / weightSum
	}
	alt.HolisticScore = models.FloatPtr(score)

	if altPriced && primary.HasPrice() && *alt.Price < *primary.Price*(1-betterDealMargin) {
		alt.IsBetterDeal = true
		saving := *primary.Price - *alt.Price
		alt.Reason = fmt.Sprintf("$%.2f cheaper at %s", saving, alt.Source)
	}
	return signals
}

func buildReasons(primary *models.ProductRecord, altPrices []float64, ratingOK, availOK bool) []string {
	var reasons []string

	if primary.HasPrice() {
		if len(altPrices) > 0 {
			lowest := altPrices[0]
			switch {
			case *primary.Price <= lowest:
				reasons = append(reasons, fmt.Sprintf("price $%.2f is the lowest found across %d alternatives", *primary.Price, len(altPrices)))
			case *primary.Price < lowest*(1+betterDealMargin):
				reasons = append(reasons, fmt.Sprintf("price $%.2f is within 5%% of the lowest alternative ($%.2f)", *primary.Price, lowest))
			default:
				reasons = append(reasons, fmt.Sprintf("price $%.2f exceeds the lowest alternative ($%.2f)", *primary.Price, lowest))
			}
		} else {
			reasons = append(reasons, fmt.Sprintf("price $%.2f found, no priced alternatives to compare", *primary.Price))
		}
	} else {
		reasons = append(reasons, "no price could be extracted")
	}

	if ratingOK {
		reasons = append(reasons, fmt.Sprintf("rated %.1f out of 5", *primary.Rating))
	} else {
		reasons = append(reasons, "no rating signal available")
	}

	if availOK {
		reasons = append(reasons, fmt.Sprintf("availability: %s", strings.TrimSpace(*primary.Availability)))
	}

	return reasons
}
