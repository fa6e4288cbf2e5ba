package ngram

import (
	"fmt"
	"math"
	"sync"

	"github.com/assistext/predict/pkg/predicterr"
)

// DynamicNode is a node of the fully in-memory, mutable trie (4.E). Same
// logical shape as StaticNode, plus the raw integer count a node needs
// before probabilities have been (re-)estimated. Shaped after the
// map-of-children trie node in Zubayear-ryushin/trie/trie.go, generalized
// from string keys to word ids and extended with the back-off-chain fields
// other_examples/afb576a4_kho-fslm__fslm.go.go keeps per state.
type DynamicNode struct {
	wordID    uint32
	count     uint64
	children  map[uint32]*DynamicNode
	frequency float64
	backoff   float64
}

// Count is the raw occurrence count accumulated by IncrementPath.
func (n *DynamicNode) Count() uint64 { return n.count }

// Frequency is the node's most recently estimated conditional frequency.
func (n *DynamicNode) Frequency() float64 { return n.frequency }

// DiscountConfig controls absolute-discount estimation (4.F).
type DiscountConfig struct {
	// Fixed, when non-nil and Fixed[k] > 0, pins discount d_k for order k
	// instead of estimating it from n1/n2 counts.
	Fixed []float64
	Lower float64
	Upper float64
}

// DynamicTrie is the mutable, fully in-memory n-gram trie.
type DynamicTrie struct {
	mu              sync.Mutex
	root            *DynamicNode
	maxOrder        int
	discounts       []float64
	discountConfig  DiscountConfig
	sentenceStartID uint32
}

// NewDynamic builds an empty dynamic trie. sentenceStartID is excluded from
// discount estimation per 4.F ("sentences beginning with SENTENCE-START are
// excluded from n1/n2").
func NewDynamic(maxOrder int, sentenceStartID uint32, cfg DiscountConfig) *DynamicTrie {
	return &DynamicTrie{
		root:            &DynamicNode{children: make(map[uint32]*DynamicNode)},
		maxOrder:        maxOrder,
		discountConfig:  cfg,
		discounts:       make([]float64, maxOrder+1),
		sentenceStartID: sentenceStartID,
	}
}

// MaxOrder is the configured maximum n-gram order.
func (t *DynamicTrie) MaxOrder() int { return t.maxOrder }

// Root exposes the root node, e.g. for persistence and testing.
func (t *DynamicTrie) Root() *DynamicNode { return t.root }

// TotalUnigramCount sums every direct child-of-root count, used as the
// numerator of the dynamic interpolation weight in 4.F.
func (t *DynamicTrie) TotalUnigramCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total uint64
	for _, c := range t.root.children {
		total += c.count
	}
	return total
}

// NodeFor walks prefix from the root, returning nil if any step is missing.
func (t *DynamicTrie) NodeFor(prefix []uint32) *DynamicNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodeForLocked(prefix)
}

func (t *DynamicTrie) nodeForLocked(prefix []uint32) *DynamicNode {
	cur := t.root
	for _, w := range prefix {
		if cur.children == nil {
			return nil
		}
		next, ok := cur.children[w]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// IncrementPath creates any missing nodes along prefix and adds delta to the
// deepest node's count (4.E).
func (t *DynamicTrie) IncrementPath(prefix []uint32, delta int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.root
	for _, w := range prefix {
		if cur.children == nil {
			cur.children = make(map[uint32]*DynamicNode)
		}
		next, ok := cur.children[w]
		if !ok {
			next = &DynamicNode{wordID: w, children: make(map[uint32]*DynamicNode)}
			cur.children[w] = next
		}
		cur = next
	}
	if delta >= 0 {
		cur.count += uint64(delta)
	} else if uint64(-delta) > cur.count {
		cur.count = 0
	} else {
		cur.count -= uint64(-delta)
	}
}

// Probability implements the same recursive back-off formula as
// StaticTrie.Probability (4.F), over in-memory nodes.
func (t *DynamicTrie) Probability(prefix []uint32, target uint32) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.probabilityLocked(prefix, target)
}

func (t *DynamicTrie) probabilityLocked(prefix []uint32, target uint32) float64 {
	if len(prefix) == 0 {
		if c, ok := t.root.children[target]; ok {
			return c.frequency
		}
		return 0
	}
	n := t.nodeForLocked(prefix)
	if n == nil {
		return t.probabilityLocked(prefix[1:], target)
	}
	childFreq := 0.0
	if c, ok := n.children[target]; ok {
		childFreq = c.frequency
	}
	return childFreq + n.backoff*t.probabilityLocked(prefix[1:], target)
}

// UpdateProbabilities recomputes frequency and childrenBackoffWeight for
// every node under the root using absolute discounting (4.E, 4.F).
func (t *DynamicTrie) UpdateProbabilities() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.estimateDiscounts()
	t.updateNode(t.root, 0)
}

func (t *DynamicTrie) updateNode(n *DynamicNode, depth int) {
	t.computeNodeStats(n, depth)
	for _, c := range n.children {
		t.updateNode(c, depth+1)
	}
}

// computeNodeStats recomputes n's children's frequency and n's own
// childrenBackoffWeight, without touching grandchildren. Split out from
// updateNode so a single context can be refreshed (UpdateContext) without
// a full-tree walk.
func (t *DynamicTrie) computeNodeStats(n *DynamicNode, depth int) {
	var total uint64
	n1plus := 0
	for _, c := range n.children {
		total += c.count
		if c.count > 0 {
			n1plus++
		}
	}
	if depth == 0 {
		// Root: order 0, no discount (4.F).
		if total == 0 {
			for _, c := range n.children {
				c.frequency = 0
			}
			n.backoff = 1
		} else {
			for _, c := range n.children {
				c.frequency = float64(c.count) / float64(total)
			}
			n.backoff = 0
		}
		return
	}
	k := depth + 1
	d := t.discountAt(k)
	if total == 0 {
		for _, c := range n.children {
			c.frequency = 0
		}
		n.backoff = 1
		return
	}
	for _, c := range n.children {
		f := float64(c.count) - d
		if f < 0 {
			f = 0
		}
		c.frequency = f / float64(total)
	}
	n.backoff = float64(n1plus) * d / float64(total)
}

// UpdateProbabilitiesForOrder recomputes only the nodes whose children are
// n-grams of the given order, used by per-order training (4.I: "recompute
// discounts and updateProbabilities at that order").
func (t *DynamicTrie) UpdateProbabilitiesForOrder(order int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.estimateDiscounts()
	t.updateAtDepth(t.root, 0, order-1)
}

func (t *DynamicTrie) updateAtDepth(n *DynamicNode, depth, targetDepth int) {
	if depth == targetDepth {
		t.computeNodeStats(n, depth)
		return
	}
	for _, c := range n.children {
		t.updateAtDepth(c, depth+1, targetDepth)
	}
}

// UpdateContext recomputes frequency/backoff for the single node reached by
// prefix. Returns predicterr.ErrInvalidPrefix if prefix names a context that
// does not exist in the trie (7, "InvalidPrefix").
func (t *DynamicTrie) UpdateContext(prefix []uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.nodeForLocked(prefix)
	if n == nil {
		return fmt.Errorf("%w: context of length %d not present", predicterr.ErrInvalidPrefix, len(prefix))
	}
	t.estimateDiscounts()
	t.computeNodeStats(n, len(prefix))
	return nil
}

func (t *DynamicTrie) discountAt(k int) float64 {
	if k < len(t.discounts) && t.discounts[k] > 0 {
		return t.discounts[k]
	}
	return 0.5
}

// estimateDiscounts computes d_k = n1_k / (n1_k + 2*n2_k) for every order,
// clamped into [Lower, Upper], substituting 0.5 for NaN (4.F). Sentences
// whose history begins with sentenceStartID are excluded from n1_k/n2_k.
func (t *DynamicTrie) estimateDiscounts() {
	n1 := make([]uint64, t.maxOrder+1)
	n2 := make([]uint64, t.maxOrder+1)
	var walk func(n *DynamicNode, depth int, excluded bool)
	walk = func(n *DynamicNode, depth int, excluded bool) {
		for id, c := range n.children {
			ex := excluded
			if depth == 0 && id == t.sentenceStartID {
				ex = true
			}
			k := depth + 1
			if !ex && k >= 1 && k <= t.maxOrder {
				switch c.count {
				case 1:
					n1[k]++
				case 2:
					n2[k]++
				}
			}
			walk(c, depth+1, ex)
		}
	}
	walk(t.root, 0, false)
	for k := 1; k <= t.maxOrder; k++ {
		if t.discountConfig.Fixed != nil && k < len(t.discountConfig.Fixed) && t.discountConfig.Fixed[k] > 0 {
			t.discounts[k] = t.discountConfig.Fixed[k]
			continue
		}
		denom := float64(n1[k]) + 2*float64(n2[k])
		d := 0.5
		if denom > 0 {
			d = float64(n1[k]) / denom
		}
		if math.IsNaN(d) {
			d = 0.5
		}
		if t.discountConfig.Upper > 0 {
			if d < t.discountConfig.Lower {
				d = t.discountConfig.Lower
			}
			if d > t.discountConfig.Upper {
				d = t.discountConfig.Upper
			}
		}
		t.discounts[k] = d
	}
}

// PruneMode selects one of the three pruning strategies of 4.E.
type PruneMode int

const (
	PruneByCount PruneMode = iota
	PruneByOrderThresholds
	PruneByWeightedDifference
)

// Prune removes n-grams from the maximum order down to order 2, re-running
// UpdateProbabilities after each pass (4.E). perOrderThresholds is indexed
// by order and only consulted in PruneByOrderThresholds mode.
func (t *DynamicTrie) Prune(mode PruneMode, countThreshold uint64, perOrderThresholds []uint64, weightedDiffThreshold float64) {
	for order := t.maxOrder; order >= 2; order-- {
		t.mu.Lock()
		t.pruneOrder(t.root, nil, order, mode, countThreshold, perOrderThresholds, weightedDiffThreshold)
		t.mu.Unlock()
		t.UpdateProbabilities()
	}
}

func (t *DynamicTrie) pruneOrder(n *DynamicNode, prefix []uint32, targetOrder int, mode PruneMode, countThreshold uint64, perOrder []uint64, wdThreshold float64) {
	depth := len(prefix)
	if depth == targetOrder-1 {
		for w, c := range n.children {
			if t.shouldPrune(c, w, prefix, mode, countThreshold, perOrder, wdThreshold) {
				delete(n.children, w)
			}
		}
		return
	}
	for w, c := range n.children {
		t.pruneOrder(c, append(append([]uint32{}, prefix...), w), targetOrder, mode, countThreshold, perOrder, wdThreshold)
	}
}

func (t *DynamicTrie) shouldPrune(c *DynamicNode, w uint32, history []uint32, mode PruneMode, countThreshold uint64, perOrder []uint64, wdThreshold float64) bool {
	order := len(history) + 1
	switch mode {
	case PruneByCount:
		return c.count < countThreshold
	case PruneByOrderThresholds:
		if order < len(perOrder) {
			return c.count < perOrder[order]
		}
		return false
	case PruneByWeightedDifference:
		pHw := t.probabilityLocked(history, w)
		var hPrime []uint32
		if len(history) > 0 {
			hPrime = history[1:]
		}
		pHPrimeW := t.probabilityLocked(hPrime, w)
		if pHw <= 0 || pHPrimeW <= 0 {
			return true
		}
		wd := pHw * (math.Log(pHw) - math.Log(pHPrimeW))
		return wd < wdThreshold
	default:
		return false
	}
}
