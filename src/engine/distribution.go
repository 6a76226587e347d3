package engine

import (
	"math"

	"github.com/montanaflynn/stats"
)

// PriceDistribution is the data behind the optional distribution chart:
// histogram bucket counts over the price history, a Gaussian reference curve
// sampled at bin centers and scaled to the histogram area, the bin edges,
// and the latest price.
type PriceDistribution struct {
	BinEdges     []float64 `json:"bin_edges"`
	Counts       []int     `json:"counts"`
	Gaussian     []float64 `json:"gaussian"`
	Mean         float64   `json:"mean"`
	StdDev       float64   `json:"std_dev"`
	CurrentPrice float64   `json:"current_price"`
}

// GetPriceDistributionData buckets the price history into the requested
// number of bins. Returns nil until at least two samples exist.
func (m *OrderManager) GetPriceDistributionData(bins int) *PriceDistribution {
	if bins < 1 {
		bins = 20
	}

	if len(m.priceHistory) < 2 {
		return nil
	}

	min, err := stats.Min(m.priceHistory)
	if err != nil {
		return nil
	}
	max, err := stats.Max(m.priceHistory)
	if err != nil {
		return nil
	}

	mean, err := stats.Mean(m.priceHistory)
	if err != nil {
		return nil
	}
	stdDev, err := stats.StandardDeviation(m.priceHistory)
	if err != nil {
		return nil
	}

	if max == min {
		// Degenerate flat history: one bucket holds everything.
		max = min + 1e-9
	}

	width := (max - min) / float64(bins)

	edges := make([]float64, bins+1)
	for i := 0; i <= bins; i++ {
		edges[i] = min + width*float64(i)
	}

	counts := make([]int, bins)
	for _, price := range m.priceHistory {
		idx := int((price - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}

	gaussian := make([]float64, bins)
	if stdDev > 0 {
		area := float64(len(m.priceHistory)) * width
		for i := 0; i < bins; i++ {
			center := edges[i] + width/2.0
			z := (center - mean) / stdDev
			gaussian[i] = area * math.Exp(-0.5*z*z) / (stdDev * math.Sqrt(2.0*math.Pi))
		}
	}

	return &PriceDistribution{
		BinEdges:     edges,
		Counts:       counts,
		Gaussian:     gaussian,
		Mean:         mean,
		StdDev:       stdDev,
		CurrentPrice: m.currentPrice,
	}
}
