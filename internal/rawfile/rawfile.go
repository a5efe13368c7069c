// Package rawfile defines the contract between the conversion pipeline
// and an instrument file reader. The vendor binary decoder itself is an
// external collaborator; this package provides the scan event, trailer
// and peak-data model it must expose, a parser for the free-text scan
// filter grammar, and an in-memory implementation backed by a JSON run
// dump.
package rawfile

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInvalidScanNumber means a scan number outside the run bounds
	ErrInvalidScanNumber = errors.New("rawfile: invalid scan number")
	// ErrUnsupportedFormat means the input file needs a vendor decoder
	ErrUnsupportedFormat = errors.New("rawfile: unsupported input format")
)

// Polarity of an acquisition.
type Polarity int

const (
	PolarityUnknown Polarity = iota
	PolarityPositive
	PolarityNegative
)

// Sign returns "+" or "-", or the empty string when unknown.
func (p Polarity) Sign() string {
	switch p {
	case PolarityPositive:
		return "+"
	case PolarityNegative:
		return "-"
	}
	return ""
}

// PeakData carries the arrays of one scan's peak stream. Mz and
// Intensity always have equal length; the remaining arrays are either
// empty or aligned with Mz.
type PeakData struct {
	Mz         []float64 `json:"mz"`
	Intensity  []float64 `json:"intensity"`
	Charge     []int     `json:"charge,omitempty"`
	Noise      []float64 `json:"noise,omitempty"`
	Baseline   []float64 `json:"baseline,omitempty"`
	Resolution []float64 `json:"resolution,omitempty"`
}

// Len returns the number of peaks.
func (p *PeakData) Len() int { return len(p.Mz) }

// Reader is the instrument file contract. Scan numbers are 1-based and
// contiguous within FirstScan..LastScan.
type Reader interface {
	// FirstScan and LastScan give the inclusive run bounds.
	FirstScan() int
	LastScan() int
	// Event returns the scan event (MS level, filter, reactions).
	Event(scan int) (*Event, error)
	// Trailer returns the auxiliary key/value scan metadata.
	Trailer(scan int) (Trailer, error)
	// RetentionTime returns the scan retention time in seconds.
	RetentionTime(scan int) (float64, error)
	// Centroids returns the native centroid stream, or nil when the
	// scan has none.
	Centroids(scan int) (*PeakData, error)
	// Profile returns the profile peak data, or nil when the scan has
	// none.
	Profile(scan int) (*PeakData, error)
	Close() error
}

// Trailer is the ordered key/value metadata the instrument reports per
// scan. Keys keep their vendor spelling, including the trailing colon.
type Trailer map[string]string

// Trailer keys used by the pipeline.
const (
	TrailerMonoisotopicMz   = "Monoisotopic M/Z:"
	TrailerMasterScanNumber = "Master Scan Number:"
	TrailerChargeState      = "Charge State:"
	TrailerInjectionTime    = "Ion Injection Time (ms):"
	TrailerFaimsCV          = "FAIMS CV:"
)

// Float returns the value of a numeric trailer field.
func (t Trailer) Float(key string) (float64, bool) {
	s, ok := t[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Int returns the value of an integer trailer field.
func (t Trailer) Int(key string) (int, bool) {
	s, ok := t[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		// Some instruments report integers as "123.0"
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil {
			return 0, false
		}
		return int(f), true
	}
	return v, true
}

// MonoisotopicMz returns the trailer-reported monoisotopic m/z, or 0
// when absent.
func (t Trailer) MonoisotopicMz() float64 {
	v, _ := t.Float(TrailerMonoisotopicMz)
	return v
}

// MasterScanNumber returns the explicit parent scan number, or 0 when
// the instrument did not report one.
func (t Trailer) MasterScanNumber() int {
	v, _ := t.Int(TrailerMasterScanNumber)
	return v
}

// ChargeState returns the precursor charge state, or 0 when absent.
func (t Trailer) ChargeState() int {
	v, _ := t.Int(TrailerChargeState)
	return v
}
