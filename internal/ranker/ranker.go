// Package ranker tracks per-retailer fetch-tier reliability and reorders the
// cascade by empirically observed success rates.
package ranker

import (
	"sort"
	"sync"
)

// rankThreshold is the cumulative attempt count a domain must accumulate
// across all tiers before the default order is abandoned.
const rankThreshold = 10

type counts struct {
	success int
	failure int
}

func (c counts) total() int { return c.success + c.failure }

func (c counts) rate() float64 {
	if c.total() == 0 {
		return 0
	}
	return float64(c.success) / float64(c.total())
}

// Ranker keeps success/failure counters per (domain, tier). The ranking is
// advisory; counters sit behind a mutex so concurrent fetch attempts cannot
// corrupt them, but strict serializability is not required.
type Ranker struct {
	mu           sync.Mutex
	defaultOrder []string
	stats        map[string]map[string]counts
}

func New(defaultOrder []string) *Ranker {
	order := make([]string, len(defaultOrder))
	copy(order, defaultOrder)
	return &Ranker{
		defaultOrder: order,
		stats:        make(map[string]map[string]counts),
	}
}

// Record updates the counter for one fetch attempt, success or failure.
func (r *Ranker) Record(domain, tier string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byTier, ok := r.stats[domain]
	if !ok {
		byTier = make(map[string]counts)
		r.stats[domain] = byTier
	}
	c := byTier[tier]
	if success {
		c.success++
	} else {
		c.failure++
	}
	byTier[tier] = c
}

// Rank returns the tier order to try for a domain: the fixed default order
// until enough history exists, then descending empirical success rate with
// ties keeping the default relative order.
func (r *Ranker) Rank(domain string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	order := make([]string, len(r.defaultOrder))
	copy(order, r.defaultOrder)

	byTier := r.stats[domain]
	total := 0
	for _, c := range byTier {
		total += c.total()
	}
	if total < rankThreshold {
		return order
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byTier[order[i]].rate() > byTier[order[j]].rate()
	})
	return order
}

// SuccessRate exposes the observed rate for diagnostics.
func (r *Ranker) SuccessRate(domain, tier string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats[domain][tier].rate()
}

// Attempts reports how many attempts have been recorded for a tier.
func (r *Ranker) Attempts(domain, tier string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats[domain][tier].total()
}
