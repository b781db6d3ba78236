// Package peaks locates local maxima in one-dimensional signals.
//
// Find follows the conventions of scipy.signal.find_peaks: a flat top counts
// as one peak located at its (rounded down) midpoint, samples at either edge
// are never peaks, and the distance constraint keeps the tallest peaks first.
package peaks

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoPeaks is returned by Highest when there is nothing to choose from.
var ErrNoPeaks = errors.New("no peaks")

// Options constrain which local maxima are reported. The zero value applies
// no constraint.
type Options struct {
	// Height, when set, is the minimum peak value.
	Height *float64
	// Distance, when positive, is the minimum number of samples between
	// neighbouring peaks.
	Distance int
}

// Find returns the indices of the peaks of x in increasing order.
func Find(x []float64, opts Options) ([]int, error) {
	if opts.Distance < 0 {
		return nil, fmt.Errorf("distance must be greater or equal to 1, got %d", opts.Distance)
	}
	found := localMaxima(x)

	if opts.Height != nil {
		kept := found[:0]
		for _, p := range found {
			if x[p] >= *opts.Height {
				kept = append(kept, p)
			}
		}
		found = kept
	}
	if opts.Distance > 1 && len(found) > 1 {
		found = selectByDistance(x, found, opts.Distance)
	}
	return found, nil
}

func localMaxima(x []float64) []int {
	var out []int
	last := len(x) - 1
	for i := 1; i < last; i++ {
		if !(x[i-1] < x[i]) {
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			out = append(out, (i+ahead-1)/2)
			i = ahead - 1
		}
	}
	return out
}

func selectByDistance(x []float64, found []int, distance int) []int {
	order := make([]int, len(found))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[found[order[a]]] < x[found[order[b]]]
	})

	keep := make([]bool, len(found))
	for i := range keep {
		keep[i] = true
	}
	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && found[j]-found[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(found) && found[k]-found[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(found))
	for i, p := range found {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// Highest returns the peak with the largest value. Ties go to the earliest
// peak.
func Highest(x []float64, found []int) (int, error) {
	if len(found) == 0 {
		return 0, ErrNoPeaks
	}
	best := found[0]
	for _, p := range found[1:] {
		if x[p] > x[best] {
			best = p
		}
	}
	return best, nil
}
