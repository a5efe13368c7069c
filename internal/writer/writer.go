// Package writer encodes extracted spectrum records into the supported
// output formats: MGF, mzML, indexed mzML and parquet. All writers
// share the SpectrumWriter contract: records that the writer's settings
// exclude are silently skipped, Close flushes and finalizes the output.
package writer

import (
	"github.com/mzio/thermostream/internal/extract"
)

// SpectrumWriter consumes extracted records one scan at a time.
type SpectrumWriter interface {
	Write(rec *extract.Record) error
	Close() error
}

// Settings are shared across the writer variants.
type Settings struct {
	// Levels is the set of MS levels to include; empty means all.
	Levels []int
}

// IncludeLevel reports whether a record of the given MS level should be
// written.
func (s Settings) IncludeLevel(level int) bool {
	if len(s.Levels) == 0 {
		return true
	}
	for _, l := range s.Levels {
		if l == level {
			return true
		}
	}
	return false
}
