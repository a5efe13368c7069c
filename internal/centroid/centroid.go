// Package centroid reduces continuous profile peak shapes to discrete
// (m/z, intensity) pairs. One centroid is emitted per local-maximum
// segment of the profile; its m/z is the intensity-weighted mean of the
// segment and its intensity the apex height.
package centroid

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Profile centroids a profile scan. The m/z array must be sorted
// ascending; zero-intensity samples delimit peak regions. The returned
// arrays are sorted ascending and empty (not nil) for empty input.
func Profile(mz, intensity []float64) ([]float64, []float64) {
	cm := []float64{}
	ci := []float64{}
	n := len(mz)
	if len(intensity) < n {
		n = len(intensity)
	}

	i := 0
	for i < n {
		if intensity[i] <= 0 {
			i++
			continue
		}
		// Maximal run of positive samples
		j := i
		for j < n && intensity[j] > 0 {
			j++
		}
		// Split the run at valleys, one centroid per segment
		start := i
		for k := i + 1; k < j; k++ {
			if k+1 < j && intensity[k] < intensity[k-1] && intensity[k] <= intensity[k+1] {
				m, h := apex(mz[start:k+1], intensity[start:k+1])
				cm = append(cm, m)
				ci = append(ci, h)
				start = k
			}
		}
		m, h := apex(mz[start:j], intensity[start:j])
		cm = append(cm, m)
		ci = append(ci, h)
		i = j
	}
	return cm, ci
}

func apex(mz, intensity []float64) (float64, float64) {
	return stat.Mean(mz, intensity), floats.Max(intensity)
}
