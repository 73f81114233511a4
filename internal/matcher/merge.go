package matcher

import (
	"sort"
	"sync"

	"billing-match-service/internal/models"
)

// accumulator is the fan-in point for concurrently running strategies. It
// reduces raw candidates over a shared shipment-key space under a mutex so
// concurrent writes to the same shipment never lose updates.
//
// When two raw candidates reference the same shipment, the one with the
// higher base confidence survives; on an exact tie the earlier-priority
// strategy wins. Every strategy that found the shipment is remembered on the
// surviving candidate for explainability.
type accumulator struct {
	mu    sync.Mutex
	byKey map[string]*models.MatchCandidate

	// lookup outcome counters distinguish "nothing matched" from "the
	// store never answered".
	succeeded int
	failed    int
}

func newAccumulator() *accumulator {
	return &accumulator{byKey: make(map[string]*models.MatchCandidate)}
}

// add merges one raw candidate into the shared key space.
func (a *accumulator) add(c *models.MatchCandidate) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := c.Shipment.Key
	existing, ok := a.byKey[key]
	if !ok {
		c.MatchedBy = mergeStrategies(nil, c.Strategy)
		a.byKey[key] = c
		return
	}

	if c.Confidence > existing.Confidence ||
		(c.Confidence == existing.Confidence && c.Strategy.HigherPriorityThan(existing.Strategy)) {
		c.MatchedBy = mergeStrategies(existing.MatchedBy, c.Strategy)
		a.byKey[key] = c
		return
	}

	existing.MatchedBy = mergeStrategies(existing.MatchedBy, c.Strategy)
}

// lookupSucceeded records one store call that returned without error.
func (a *accumulator) lookupSucceeded() {
	a.mu.Lock()
	a.succeeded++
	a.mu.Unlock()
}

// lookupFailed records one store call that errored and was recovered.
func (a *accumulator) lookupFailed() {
	a.mu.Lock()
	a.failed++
	a.mu.Unlock()
}

// storeUnreachable reports whether every attempted store call failed. Used
// after fan-in to distinguish an infrastructure failure from a legitimate
// empty result.
func (a *accumulator) storeUnreachable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failed > 0 && a.succeeded == 0
}

// merged returns the deduplicated candidates in deterministic (key) order.
// Ranking happens after scoring.
func (a *accumulator) merged() []*models.MatchCandidate {
	a.mu.Lock()
	defer a.mu.Unlock()

	candidates := make([]*models.MatchCandidate, 0, len(a.byKey))
	for _, c := range a.byKey {
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Shipment.Key < candidates[j].Shipment.Key
	})

	return candidates
}

// mergeStrategies inserts s into the sorted strategy set.
func mergeStrategies(existing []models.Strategy, s models.Strategy) []models.Strategy {
	for _, e := range existing {
		if e == s {
			return existing
		}
	}

	merged := append(append([]models.Strategy(nil), existing...), s)
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	return merged
}
