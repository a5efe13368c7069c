package writer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/mzio/thermostream/internal/extract"
)

// MGF writes fragmentation spectra as Mascot Generic Format blocks.
// MS1 records are always skipped; MGF has no place for survey scans.
type MGF struct {
	bw       *bufio.Writer
	gz       *gzip.Writer
	runID    string
	settings Settings
	count    int
}

// NewMGF creates an MGF writer over out. With compress set the output
// is gzip encoded (the conventional .mgf.gz form).
func NewMGF(out io.Writer, runID string, settings Settings, compress bool) *MGF {
	m := &MGF{runID: runID, settings: settings}
	if compress {
		m.gz = gzip.NewWriter(out)
		m.bw = bufio.NewWriter(m.gz)
	} else {
		m.bw = bufio.NewWriter(out)
	}
	return m
}

// Write encodes one record as a BEGIN IONS block.
func (m *MGF) Write(rec *extract.Record) error {
	if rec.MSLevel <= 1 || !m.settings.IncludeLevel(rec.MSLevel) {
		return nil
	}

	charge := rec.PrecursorCharge
	fmt.Fprintf(m.bw, "BEGIN IONS\n")
	fmt.Fprintf(m.bw, "TITLE=%s.%d.%d.%d\n", m.runID, rec.ScanNumber, rec.ScanNumber, charge)
	fmt.Fprintf(m.bw, "SCANS=%d\n", rec.ScanNumber)
	fmt.Fprintf(m.bw, "RTINSECONDS=%s\n", strconv.FormatFloat(rec.RetentionTime, 'f', -1, 64))
	if rec.PrecursorIntensity > 0 {
		fmt.Fprintf(m.bw, "PEPMASS=%.7f %.3f\n", rec.PrecursorMz, rec.PrecursorIntensity)
	} else {
		fmt.Fprintf(m.bw, "PEPMASS=%.7f\n", rec.PrecursorMz)
	}
	if charge > 0 {
		sign := rec.Polarity.Sign()
		if sign == "" {
			sign = "+"
		}
		fmt.Fprintf(m.bw, "CHARGE=%d%s\n", charge, sign)
	}

	withCharge := len(rec.Charge) == len(rec.Mz)
	for i, mz := range rec.Mz {
		if withCharge && rec.Charge[i] != 0 {
			fmt.Fprintf(m.bw, "%.5f %.3f %d\n", mz, rec.Intensity[i], rec.Charge[i])
		} else {
			fmt.Fprintf(m.bw, "%.5f %.3f\n", mz, rec.Intensity[i])
		}
	}
	fmt.Fprintf(m.bw, "END IONS\n\n")
	m.count++
	return nil
}

// Count returns the number of blocks written.
func (m *MGF) Count() int { return m.count }

// Close flushes buffered output and finalizes the gzip stream when one
// is in use. The underlying writer stays open.
func (m *MGF) Close() error {
	if err := m.bw.Flush(); err != nil {
		return err
	}
	if m.gz != nil {
		return m.gz.Close()
	}
	return nil
}
