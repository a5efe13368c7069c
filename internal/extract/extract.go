// Package extract turns raw instrument scans into spectrum records:
// centroided or profile peak arrays sorted by m/z, plus the corrected
// precursor values computed from the scan's fragmentation reaction.
package extract

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/mzio/thermostream/internal/centroid"
	"github.com/mzio/thermostream/internal/peakcache"
	"github.com/mzio/thermostream/internal/rawfile"
)

// Precursor cache capacity. Dependent scans of one precursor cluster
// together, so a handful of entries is enough.
const cacheCapacity = 10

// Record is one extracted spectrum, ready for encoding. Precursor
// fields are filled in by the converter after lineage resolution.
type Record struct {
	ScanNumber    int
	MSLevel       int
	RetentionTime float64 // seconds
	Polarity      rawfile.Polarity
	Filter        string
	LowMz, HighMz float64

	// Peak arrays, ascending by m/z. Never nil.
	Mz        []float64
	Intensity []float64
	// Aligned optional arrays; empty when not requested or absent.
	Charge   []int
	Noise    []float64
	Baseline []float64

	Centroided bool

	// Trailer-derived values (converter-owned).
	InjectionTime float64 // milliseconds, 0 when unknown
	FaimsCV       float64
	HasFaimsCV    bool

	// Precursor linkage (converter-owned).
	HasPrecursor       bool
	PrecursorScan      int
	PrecursorMz        float64
	PrecursorIntensity float64
	PrecursorCharge    int
	IsolationWidth     float64
	Activation         rawfile.Activation
}

// PeakCount returns the number of peaks in the record.
func (r *Record) PeakCount() int { return len(r.Mz) }

// Options select which parts of a scan to extract.
type Options struct {
	// Centroid requests centroided data: the native centroid stream
	// when present, otherwise on-demand centroiding of the profile.
	Centroid bool
	// Charge requests the per-peak charge array.
	Charge bool
	// Noise requests the noise and baseline arrays.
	Noise bool
}

// Extractor reads scans from an instrument file and owns the bounded
// cache of precursor peak arrays.
type Extractor struct {
	reader rawfile.Reader
	cache  *peakcache.Cache
	log    *slog.Logger
}

// New creates an extractor over a reader.
func New(reader rawfile.Reader, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		reader: reader,
		cache:  peakcache.New(cacheCapacity),
		log:    log,
	}
}

// Scan extracts one scan. Missing source arrays yield empty output
// arrays, never nil.
func (e *Extractor) Scan(n int, opt Options) (*Record, error) {
	ev, err := e.reader.Event(n)
	if err != nil {
		return nil, fmt.Errorf("extract: scan %d event: %w", n, err)
	}
	rt, err := e.reader.RetentionTime(n)
	if err != nil {
		return nil, fmt.Errorf("extract: scan %d retention time: %w", n, err)
	}

	rec := &Record{
		ScanNumber:    n,
		MSLevel:       ev.MSLevel,
		RetentionTime: rt,
		Polarity:      ev.Polarity,
		Filter:        ev.Filter,
		LowMz:         ev.LowMz,
		HighMz:        ev.HighMz,
		PrecursorScan: -1,
		Mz:            []float64{},
		Intensity:     []float64{},
		Charge:        []int{},
		Noise:         []float64{},
		Baseline:      []float64{},
	}

	pd, centroided, err := e.peakData(n, ev, opt.Centroid)
	if err != nil {
		return nil, err
	}
	rec.Centroided = centroided
	if pd == nil || pd.Len() == 0 {
		return rec, nil
	}

	rec.Mz = append(rec.Mz, pd.Mz...)
	rec.Intensity = append(rec.Intensity, pd.Intensity[:len(pd.Mz)]...)
	if opt.Charge && len(pd.Charge) == len(pd.Mz) {
		rec.Charge = append(rec.Charge, pd.Charge...)
	}
	if opt.Noise && len(pd.Noise) == len(pd.Mz) {
		rec.Noise = append(rec.Noise, pd.Noise...)
	}
	if opt.Noise && len(pd.Baseline) == len(pd.Mz) {
		rec.Baseline = append(rec.Baseline, pd.Baseline...)
	}
	rec.sortByMz()
	return rec, nil
}

func (e *Extractor) peakData(n int, ev *rawfile.Event, wantCentroid bool) (*rawfile.PeakData, bool, error) {
	if wantCentroid {
		cd, err := e.reader.Centroids(n)
		if err != nil {
			return nil, false, fmt.Errorf("extract: scan %d centroids: %w", n, err)
		}
		if cd != nil && cd.Len() > 0 {
			return cd, true, nil
		}
		prof, err := e.reader.Profile(n)
		if err != nil {
			return nil, false, fmt.Errorf("extract: scan %d profile: %w", n, err)
		}
		if prof == nil {
			return nil, true, nil
		}
		if ev.CentroidData {
			// Event says the "profile" stream is already centroid-type
			return prof, true, nil
		}
		cm, ci := centroid.Profile(prof.Mz, prof.Intensity)
		return &rawfile.PeakData{Mz: cm, Intensity: ci}, true, nil
	}

	prof, err := e.reader.Profile(n)
	if err != nil {
		return nil, false, fmt.Errorf("extract: scan %d profile: %w", n, err)
	}
	if prof != nil && prof.Len() > 0 {
		return prof, ev.CentroidData, nil
	}
	// No profile stream at all: fall back to the centroid stream
	cd, err := e.reader.Centroids(n)
	if err != nil {
		return nil, false, fmt.Errorf("extract: scan %d centroids: %w", n, err)
	}
	return cd, cd != nil, nil
}

// sortByMz re-sorts all arrays ascending by m/z with one shared
// permutation. Profile arrays are not guaranteed pre-sorted on every
// extraction path.
func (r *Record) sortByMz() {
	n := len(r.Mz)
	if n < 2 || sort.Float64sAreSorted(r.Mz) {
		return
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool { return r.Mz[perm[i]] < r.Mz[perm[j]] })

	r.Mz = permuteFloats(r.Mz, perm)
	r.Intensity = permuteFloats(r.Intensity, perm)
	if len(r.Charge) == n {
		out := make([]int, n)
		for i, p := range perm {
			out[i] = r.Charge[p]
		}
		r.Charge = out
	}
	if len(r.Noise) == n {
		r.Noise = permuteFloats(r.Noise, perm)
	}
	if len(r.Baseline) == n {
		r.Baseline = permuteFloats(r.Baseline, perm)
	}
}

func permuteFloats(v []float64, perm []int) []float64 {
	out := make([]float64, len(v))
	for i, p := range perm {
		out[i] = v[p]
	}
	return out
}
