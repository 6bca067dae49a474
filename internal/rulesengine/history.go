package rulesengine

import (
	"math"
	"sync"
)

const ringCapacity = 500

// History is a bounded, per-SKU ring buffer of past decisions used for
// operator-facing trend analysis. It is explicitly not on the hot path:
// spec.md §4.4 calls it a convenience, and §5 requires it be guarded by
// a short critical section or skipped in throughput-sensitive
// deployments. This replaces the original implementation's dataframe
// with a plain ring buffer, per spec.md §9's design note.
type History struct {
	mu      sync.Mutex
	bySKU   map[string][]Decision
}

// NewHistory builds an empty history sink.
func NewHistory() *History {
	return &History{bySKU: make(map[string][]Decision)}
}

// Append records a decision for sku, evicting the oldest entry once the
// per-SKU ring reaches ringCapacity.
func (h *History) Append(sku string, d Decision) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.bySKU[sku]
	entries = append(entries, d)
	if len(entries) > ringCapacity {
		entries = entries[len(entries)-ringCapacity:]
	}
	h.bySKU[sku] = entries
}

// Trend summarizes the recorded decisions for a SKU.
type Trend struct {
	SKU          string
	Count        int
	MeanPrice    float64
	StdDevPrice  float64
	MeanConfidence float64
}

// Trend computes mean, standard deviation, and count for the given SKU's
// recorded decisions. Returns the zero Trend with Count=0 if nothing has
// been recorded.
func (h *History) Trend(sku string) Trend {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.bySKU[sku]
	if len(entries) == 0 {
		return Trend{SKU: sku}
	}

	var sumPrice, sumConfidence float64
	for _, d := range entries {
		sumPrice += d.Price
		sumConfidence += d.Confidence
	}
	meanPrice := sumPrice / float64(len(entries))
	meanConfidence := sumConfidence / float64(len(entries))

	var sumSquares float64
	for _, d := range entries {
		diff := d.Price - meanPrice
		sumSquares += diff * diff
	}
	stdDev := math.Sqrt(sumSquares / float64(len(entries)))

	return Trend{
		SKU:            sku,
		Count:          len(entries),
		MeanPrice:      meanPrice,
		StdDevPrice:    stdDev,
		MeanConfidence: meanConfidence,
	}
}
