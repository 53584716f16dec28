// Package geo derives the per-country signal summary for the visible slice
package geo

import (
	"math"
	"sort"

	"github.com/ft8view/ft8view-go/internal/bucket"
)

// MinScale is the floor for the max-value hint so a near-empty window does
// not produce a degenerate color scale
const MinScale = 10

// Summary is a country→count mapping over the visible slice plus the scale
// hint consumed by the country panel
type Summary struct {
	Countries map[string]int
	Max       int
}

// Summarize folds the Countries maps of the dataset entries inside the
// visible fraction (start and end in percent, 0–100). The selected index
// range is [ceil(n·start/100), ceil(n·end/100)). Linear in the slice, cheap
// enough to run on every zoom tick.
func Summarize(dataset []bucket.Entry, start, end float64) Summary {
	n := len(dataset)
	lo := sliceIndex(n, start)
	hi := sliceIndex(n, end)
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}

	counts := make(map[string]int)
	max := 0
	for i := lo; i < hi; i++ {
		for country, c := range dataset[i].Countries {
			counts[country] += c
			if counts[country] > max {
				max = counts[country]
			}
		}
	}
	if max < MinScale {
		max = MinScale
	}
	return Summary{Countries: counts, Max: max}
}

func sliceIndex(n int, pct float64) int {
	return int(math.Ceil(float64(n) * pct / 100))
}

// Ranked returns the summary's countries sorted by descending count, ties
// broken alphabetically
func (s Summary) Ranked() []CountryCount {
	out := make([]CountryCount, 0, len(s.Countries))
	for country, c := range s.Countries {
		out = append(out, CountryCount{Country: country, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// CountryCount is one row of the ranked summary
type CountryCount struct {
	Country string
	Count   int
}
