package rawfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MemScan is one scan of an in-memory run. Events are derived from the
// filter string; isolation widths and offsets, which the filter does
// not carry, can be supplied per reaction.
type MemScan struct {
	Number           int               `json:"number"`
	Filter           string            `json:"filter"`
	RetentionTime    float64           `json:"rt"`
	Trailer          map[string]string `json:"trailer,omitempty"`
	Profile          *PeakData         `json:"profile,omitempty"`
	Centroids        *PeakData         `json:"centroids,omitempty"`
	IsolationWidths  []float64         `json:"isolation_widths,omitempty"`
	IsolationOffsets []float64         `json:"isolation_offsets,omitempty"`
}

// MemReader is a Reader over scans held in memory. It backs the tests
// and the JSON run-dump input format; vendor binary decoding is out of
// scope for this module.
type MemReader struct {
	first, last int
	scans       map[int]*memScan
}

type memScan struct {
	MemScan
	event *Event
}

// NewMemReader builds a reader from scans. Scan numbers must be
// contiguous and ascending.
func NewMemReader(scans []MemScan) (*MemReader, error) {
	if len(scans) == 0 {
		return nil, fmt.Errorf("rawfile: run without scans")
	}
	r := &MemReader{scans: make(map[int]*memScan, len(scans))}
	for i := range scans {
		s := scans[i]
		if i == 0 {
			r.first = s.Number
		} else if s.Number != scans[i-1].Number+1 {
			return nil, fmt.Errorf("rawfile: scan numbers not contiguous at %d", s.Number)
		}
		r.last = s.Number
		ev, err := ParseFilter(s.Filter)
		if err != nil {
			return nil, fmt.Errorf("rawfile: scan %d: %w", s.Number, err)
		}
		for j := range ev.Reactions {
			if j < len(s.IsolationWidths) {
				ev.Reactions[j].IsolationWidth = s.IsolationWidths[j]
			}
			if j < len(s.IsolationOffsets) {
				ev.Reactions[j].IsolationOffset = s.IsolationOffsets[j]
			}
		}
		r.scans[s.Number] = &memScan{MemScan: s, event: ev}
	}
	return r, nil
}

// Open opens an instrument recording. JSON run dumps (".json") are
// read directly; vendor formats need an external decoder and yield
// ErrUnsupportedFormat.
func Open(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadDump(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadDump reads a JSON run dump.
func ReadDump(r io.Reader) (*MemReader, error) {
	var dump struct {
		Scans []MemScan `json:"scans"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&dump); err != nil {
		return nil, fmt.Errorf("rawfile: decoding run dump: %w", err)
	}
	return NewMemReader(dump.Scans)
}

func (r *MemReader) scan(n int) (*memScan, error) {
	s, ok := r.scans[n]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidScanNumber, n)
	}
	return s, nil
}

// FirstScan returns the first scan number of the run.
func (r *MemReader) FirstScan() int { return r.first }

// LastScan returns the last scan number of the run.
func (r *MemReader) LastScan() int { return r.last }

// Event returns the scan event derived from the filter string.
func (r *MemReader) Event(n int) (*Event, error) {
	s, err := r.scan(n)
	if err != nil {
		return nil, err
	}
	return s.event, nil
}

// Trailer returns the scan's trailer data; an absent trailer is empty,
// not an error.
func (r *MemReader) Trailer(n int) (Trailer, error) {
	s, err := r.scan(n)
	if err != nil {
		return nil, err
	}
	return Trailer(s.MemScan.Trailer), nil
}

// RetentionTime returns the scan retention time in seconds.
func (r *MemReader) RetentionTime(n int) (float64, error) {
	s, err := r.scan(n)
	if err != nil {
		return 0, err
	}
	return s.RetentionTime, nil
}

// Centroids returns the native centroid stream, or nil when absent.
func (r *MemReader) Centroids(n int) (*PeakData, error) {
	s, err := r.scan(n)
	if err != nil {
		return nil, err
	}
	return s.MemScan.Centroids, nil
}

// Profile returns the profile data, or nil when absent.
func (r *MemReader) Profile(n int) (*PeakData, error) {
	s, err := r.scan(n)
	if err != nil {
		return nil, err
	}
	return s.MemScan.Profile, nil
}

// Close releases nothing for an in-memory run.
func (r *MemReader) Close() error { return nil }
