package extract

import (
	"fmt"
	"math"
	"sort"

	"github.com/mzio/thermostream/internal/peakcache"
	"github.com/mzio/thermostream/internal/rawfile"
)

// monoEpsilon is the smallest difference between the reaction precursor
// mass and the trailer monoisotopic m/z worth correcting.
const monoEpsilon = 1e-4

// DefaultIsolationHalfWidth is the half-width used when summing
// precursor intensity inside the isolation window. Fixed at 1.5
// regardless of the actual isolation width, matching the reference
// tool's behavior.
const DefaultIsolationHalfWidth = 1.5

// CorrectedMz computes the selected-ion m/z for a fragmentation
// reaction. The trailer-reported monoisotopic m/z is preferred when it
// is present, differs from the reaction mass by more than epsilon and
// still falls inside the isolation window; otherwise the reaction's
// own precursor mass stands. Narrow windows (half-width <= 2) use the
// fixed [-3.0,+2.5] acceptance window around the reaction mass.
func CorrectedMz(reaction rawfile.Reaction, trailerMono float64) float64 {
	mz := reaction.PrecursorMz
	if trailerMono <= 0 || math.Abs(trailerMono-mz) <= monoEpsilon {
		return mz
	}
	half := reaction.IsolationWidth / 2
	lo, hi := mz-half, mz+half
	if half <= 2.0 {
		lo, hi = mz-2*DefaultIsolationHalfWidth, mz+2.5
	}
	if trailerMono < lo || trailerMono > hi {
		return mz
	}
	return trailerMono
}

// PrecursorIntensity sums the precursor scan's centroid intensity
// inside the isolation window around precursorMz. The precursor peak
// arrays come from the bounded cache, computed once per precursor scan.
func (e *Extractor) PrecursorIntensity(precursorScan int, precursorMz, isolationWidth float64) (float64, error) {
	half := 0.0
	if isolationWidth != 0 {
		half = DefaultIsolationHalfWidth
	}
	entry, ok := e.cache.Get(precursorScan)
	if !ok {
		rec, err := e.Scan(precursorScan, Options{Centroid: true})
		if err != nil {
			return 0, fmt.Errorf("extract: precursor scan %d: %w", precursorScan, err)
		}
		entry = peakcache.Entry{Masses: rec.Mz, Intensities: rec.Intensity}
		e.cache.Put(precursorScan, entry.Masses, entry.Intensities)
	}

	i := sort.SearchFloat64s(entry.Masses, precursorMz-half)
	sum := 0.0
	for ; i < len(entry.Masses) && entry.Masses[i] < precursorMz+half; i++ {
		sum += entry.Intensities[i]
	}
	return sum, nil
}
