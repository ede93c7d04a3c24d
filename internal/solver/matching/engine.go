package matching

import (
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"github.com/shivam123-dev/cowSolver/internal/domain"
)

var (
	weightOverlap = decimal.NewFromFloat(0.4)
	weightVolume  = decimal.NewFromFloat(0.3)
	weightBalance = decimal.NewFromFloat(0.3)
	one           = decimal.NewFromInt(1)
	two           = decimal.NewFromInt(2)
)

// Engine discovers coincidence-of-wants matches among a batch of orders and
// selects a conflict-free subset. It holds configuration only; every call
// operates on the caller's immutable snapshot.
type Engine struct {
	logger      *zap.Logger
	maxRingSize int
	minQuality  decimal.Decimal
	workers     int
}

// NewEngine creates a matching engine. maxRingSize bounds ring cycle length;
// candidates scoring below minQuality are discarded.
func NewEngine(logger *zap.Logger, maxRingSize int, minQuality decimal.Decimal) *Engine {
	return &Engine{
		logger:      logger.Named("matching-engine"),
		maxRingSize: maxRingSize,
		minQuality:  minQuality,
		workers:     runtime.NumCPU(),
	}
}

// FindMatches returns all match candidates above the quality floor, ordered by
// quality descending with a stable order-id tie-break. Candidate scoring runs
// in parallel; the final ordering is re-imposed afterwards so the result does
// not depend on scheduling.
func (e *Engine) FindMatches(orders []domain.Order) []domain.OrderMatch {
	candidates := e.findDirectPairs(orders)
	candidates = append(candidates, e.findRings(orders)...)

	filtered := candidates[:0]
	for _, m := range candidates {
		if m.Quality.GreaterThanOrEqual(e.minQuality) {
			filtered = append(filtered, m)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].Quality.Equal(filtered[j].Quality) {
			return filtered[i].Quality.GreaterThan(filtered[j].Quality)
		}
		return matchIDKey(filtered[i]) < matchIDKey(filtered[j])
	})

	e.logger.Debug("match discovery complete",
		zap.Int("orders", len(orders)),
		zap.Int("candidates", len(filtered)))
	return filtered
}

// findDirectPairs enumerates compatible order pairs and scores them across a
// worker pool. Results are written by candidate index, keeping the output
// order independent of worker scheduling.
func (e *Engine) findDirectPairs(orders []domain.Order) []domain.OrderMatch {
	type pairJob struct{ a, b int }
	var jobs []pairJob
	for i := range orders {
		for j := i + 1; j < len(orders); j++ {
			if orders[i].SellToken.Equal(orders[j].BuyToken) && orders[i].BuyToken.Equal(orders[j].SellToken) {
				jobs = append(jobs, pairJob{a: i, b: j})
			}
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	results := make([]*domain.OrderMatch, len(jobs))
	jobCh := make(chan int, len(jobs))
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)

	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				a, b := &orders[jobs[i].a], &orders[jobs[i].b]
				if m, ok := scorePair(a, b); ok {
					results[i] = &m
				}
			}
		}()
	}
	wg.Wait()

	matches := make([]domain.OrderMatch, 0, len(results))
	for _, m := range results {
		if m != nil {
			matches = append(matches, *m)
		}
	}
	return matches
}

// scorePair checks price-band compatibility of two token-opposed orders and
// computes quality and a provisional midpoint surplus for ranking.
func scorePair(a, b *domain.Order) (domain.OrderMatch, bool) {
	// a sells X wanting at least lo Y per X; b sells Y and will pay at most
	// hi Y per X. The match is feasible when the band [lo, hi] is non-empty.
	lo := a.LimitPrice()
	lb := b.LimitPrice()
	if lo.LessThanOrEqual(decimal.Zero) || lb.LessThanOrEqual(decimal.Zero) {
		return domain.OrderMatch{}, false
	}
	hi := one.Div(lb)
	if lo.GreaterThan(hi) {
		return domain.OrderMatch{}, false
	}

	mid := lo.Add(hi).Div(two)
	overlap := hi.Sub(lo).Div(hi)

	// Matchable volume in X units at the midpoint price.
	volA := a.SellAmount
	volB := b.SellAmount.Div(mid)
	traded := decimal.Min(volA, volB)
	volumeCompat := decimal.Min(volA, volB).Div(decimal.Max(volA, volB))

	fillA := traded.Div(a.SellAmount)
	fillB := traded.Mul(mid).Div(b.SellAmount)
	balance := decimal.Min(fillA, fillB).Div(decimal.Max(fillA, fillB))

	quality := weightOverlap.Mul(clamp01(overlap)).
		Add(weightVolume.Mul(clamp01(volumeCompat))).
		Add(weightBalance.Mul(clamp01(balance)))

	// Combined midpoint surplus of both sides: (mid - lo) + (hi - mid) per
	// unit, times the traded volume.
	surplus := hi.Sub(lo).Mul(traded)

	return domain.OrderMatch{
		OrderIDs:         []uuid.UUID{a.ID, b.ID},
		Kind:             domain.MatchDirect,
		Quality:          quality,
		EstimatedSurplus: surplus,
	}, true
}

// findRings detects multi-order cycles over the token graph arena. A ring is
// feasible when the product of limit prices around the cycle does not exceed
// one.
func (e *Engine) findRings(orders []domain.Order) []domain.OrderMatch {
	if e.maxRingSize < 3 || len(orders) < 3 {
		return nil
	}
	graph := NewTokenGraph(orders)
	cycles := graph.FindCycles(e.maxRingSize)

	var matches []domain.OrderMatch
	for _, cycle := range cycles {
		if m, ok := scoreRing(orders, cycle); ok {
			matches = append(matches, m)
		}
	}
	if len(cycles) > 0 {
		e.logger.Debug("ring detection complete",
			zap.Int("cycles", len(cycles)),
			zap.Int("feasible", len(matches)))
	}
	return matches
}

func scoreRing(orders []domain.Order, cycle []int) (domain.OrderMatch, bool) {
	product := one
	total := decimal.Zero
	ids := make([]uuid.UUID, len(cycle))
	for i, idx := range cycle {
		o := &orders[idx]
		lp := o.LimitPrice()
		if lp.LessThanOrEqual(decimal.Zero) {
			return domain.OrderMatch{}, false
		}
		product = product.Mul(lp)
		total = total.Add(o.SellAmount)
		ids[i] = o.ID
	}
	if product.GreaterThan(one) {
		return domain.OrderMatch{}, false
	}

	slack := clamp01(one.Sub(product))
	sizeScore := decimal.NewFromFloat(1 / math.Sqrt(float64(len(cycle))))
	quality := clamp01(sizeScore.Add(slack).Div(two))

	// Ranking-only estimate: slack spread over the ring's average volume.
	surplus := slack.Mul(total).Div(decimal.NewFromInt(int64(len(cycle))))

	return domain.OrderMatch{
		OrderIDs:         ids,
		Kind:             domain.MatchRing,
		Quality:          quality,
		EstimatedSurplus: surplus,
	}, true
}

// SelectMatches applies greedy conflict-free selection over ranked candidates.
// Candidates are walked through an ordered btree keyed by inverted quality and
// order ids, so selection is deterministic for any input permutation. This is
// a greedy approximation of maximum-weight matching, not an exact optimum.
func (e *Engine) SelectMatches(matches []domain.OrderMatch) []domain.OrderMatch {
	ranked := btree.NewMap[string, domain.OrderMatch](32)
	for _, m := range matches {
		ranked.Set(selectionKey(m), m)
	}

	var selected []domain.OrderMatch
	used := make(map[uuid.UUID]struct{})
	ranked.Scan(func(_ string, m domain.OrderMatch) bool {
		for _, id := range m.OrderIDs {
			if _, taken := used[id]; taken {
				return true
			}
		}
		for _, id := range m.OrderIDs {
			used[id] = struct{}{}
		}
		selected = append(selected, m)
		return true
	})

	e.logger.Debug("match selection complete",
		zap.Int("candidates", len(matches)),
		zap.Int("selected", len(selected)))
	return selected
}

// selectionKey sorts by quality descending, then lowest combined order ids.
func selectionKey(m domain.OrderMatch) string {
	inverted := one.Sub(clamp01(m.Quality))
	return inverted.StringFixed(12) + "|" + matchIDKey(m)
}

func matchIDKey(m domain.OrderMatch) string {
	ids := make([]string, len(m.OrderIDs))
	for i, id := range m.OrderIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

func clamp01(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if d.GreaterThan(one) {
		return one
	}
	return d
}
