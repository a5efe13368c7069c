// Package convert drives a conversion run: it iterates the selected
// scans in ascending order and, per scan, resolves the precursor
// lineage, extracts the peak data, corrects the precursor values and
// hands the record to the output writer. Per-scan failures are counted
// and logged, never fatal; only writer errors and an empty run abort.
package convert

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mzio/thermostream/internal/extract"
	"github.com/mzio/thermostream/internal/lineage"
	"github.com/mzio/thermostream/internal/rawfile"
	"github.com/mzio/thermostream/internal/scanrange"
	"github.com/mzio/thermostream/internal/writer"
)

// ErrNoMsData means the input contains no scans at all.
var ErrNoMsData = errors.New("convert: no ms data in input")

// Options select which scans a run covers and how peaks are extracted.
type Options struct {
	// Scans is a range selector string; empty means the full run.
	Scans string
	// Levels is the set of MS levels to write; empty means all.
	Levels []int
	// NoPeakPicking lists MS levels whose spectra are passed through as
	// profile instead of being centroided.
	NoPeakPicking []int
	// ChargeData requests the per-peak charge array.
	ChargeData bool
}

// Stats summarize a finished run.
type Stats struct {
	ScansRead int
	Written   int
	Errors    int
	Warnings  int
}

// Converter owns the per-run state.
type Converter struct {
	reader rawfile.Reader
	ex     *extract.Extractor
	log    *slog.Logger
}

// New creates a converter over an instrument reader.
func New(reader rawfile.Reader, log *slog.Logger) *Converter {
	if log == nil {
		log = slog.Default()
	}
	return &Converter{
		reader: reader,
		ex:     extract.New(reader, log),
		log:    log,
	}
}

func (c *Converter) selectRange(opt Options) (*scanrange.Range, error) {
	first, last := c.reader.FirstScan(), c.reader.LastScan()
	if last < first {
		return nil, ErrNoMsData
	}
	sel := opt.Scans
	if sel == "" {
		sel = fmt.Sprintf("%d-%d", first, last)
	}
	rng, err := scanrange.Parse(sel, first, last)
	if err != nil {
		return nil, fmt.Errorf("convert: scan selection %q: %w", opt.Scans, err)
	}
	return rng, nil
}

// CountMatching returns the number of scans in the selection whose MS
// level passes the level filter. mzML output needs the spectrum count
// before the first spectrum is written.
func (c *Converter) CountMatching(opt Options) (int, error) {
	rng, err := c.selectRange(opt)
	if err != nil {
		return 0, err
	}
	settings := writer.Settings{Levels: opt.Levels}
	count := 0
	it := rng.Iter()
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		ev, err := c.reader.Event(n)
		if err != nil {
			continue
		}
		if settings.IncludeLevel(ev.MSLevel) {
			count++
		}
	}
	return count, nil
}

// Run converts the selected scans and streams them to w. The caller
// owns w's lifetime; Run does not close it.
func (c *Converter) Run(w writer.SpectrumWriter, opt Options) (Stats, error) {
	var stats Stats
	rng, err := c.selectRange(opt)
	if err != nil {
		return stats, err
	}

	resolver := lineage.NewResolver(c.log)
	settings := writer.Settings{Levels: opt.Levels}
	dbg := newDebugDump(c.log)
	total := rng.Count()
	nextProgress := total / 10

	noPick := make(map[int]bool, len(opt.NoPeakPicking))
	for _, l := range opt.NoPeakPicking {
		noPick[l] = true
	}

	it := rng.Iter()
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		stats.ScansRead++
		if total >= 10 && stats.ScansRead >= nextProgress {
			c.log.Info("converting", "scans", stats.ScansRead, "total", total,
				"percent", 100*stats.ScansRead/total)
			nextProgress += total / 10
		}

		ev, err := c.reader.Event(n)
		if err != nil {
			stats.Errors++
			c.log.Error("scan event unreadable", "scan", n, "err", err)
			continue
		}
		tr, err := c.reader.Trailer(n)
		if err != nil {
			stats.Warnings++
			c.log.Warn("scan trailer unreadable", "scan", n, "err", err)
			tr = rawfile.Trailer{}
		}

		res, err := resolver.Resolve(n, ev, tr)
		if err != nil {
			// Both lineage error kinds are recoverable; the resolution
			// still carries the best-effort parent and reaction.
			stats.Warnings++
			c.log.Warn("lineage resolution incomplete", "scan", n, "err", err)
		}
		dbg.record(n, ev, res)

		if !settings.IncludeLevel(ev.MSLevel) {
			continue
		}

		rec, err := c.ex.Scan(n, extract.Options{
			Centroid: !noPick[ev.MSLevel],
			Charge:   opt.ChargeData,
		})
		if err != nil {
			stats.Errors++
			c.log.Error("scan extraction failed", "scan", n, "err", err)
			continue
		}
		c.applyTrailer(rec, tr)
		c.applyPrecursor(rec, res, tr, &stats)

		if err := w.Write(rec); err != nil {
			return stats, fmt.Errorf("convert: write scan %d: %w", n, err)
		}
		stats.Written++
	}

	if stats.ScansRead == 0 {
		return stats, ErrNoMsData
	}
	c.log.Info("conversion finished", "read", stats.ScansRead,
		"written", stats.Written, "errors", stats.Errors, "warnings", stats.Warnings)
	return stats, nil
}

func (c *Converter) applyTrailer(rec *extract.Record, tr rawfile.Trailer) {
	if t, ok := tr.Float(rawfile.TrailerInjectionTime); ok {
		rec.InjectionTime = t
	}
	if cv, ok := tr.Float(rawfile.TrailerFaimsCV); ok {
		rec.FaimsCV = cv
		rec.HasFaimsCV = true
	}
}

func (c *Converter) applyPrecursor(rec *extract.Record, res lineage.Resolution,
	tr rawfile.Trailer, stats *Stats) {
	if !res.HasReaction {
		return
	}
	rec.HasPrecursor = true
	rec.PrecursorScan = res.ParentScan
	rec.PrecursorMz = extract.CorrectedMz(res.Reaction, tr.MonoisotopicMz())
	rec.PrecursorCharge = tr.ChargeState()
	rec.IsolationWidth = res.Reaction.IsolationWidth
	rec.Activation = res.Reaction.Activation

	if res.ParentScan > 0 {
		sum, err := c.ex.PrecursorIntensity(res.ParentScan, rec.PrecursorMz,
			res.Reaction.IsolationWidth)
		if err != nil {
			stats.Warnings++
			c.log.Warn("precursor intensity unavailable",
				"scan", rec.ScanNumber, "precursor", res.ParentScan, "err", err)
			return
		}
		rec.PrecursorIntensity = sum
	}
}
