package writer

import (
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/mzio/thermostream/internal/extract"
)

// flushRows is the row-group size: once at least this many rows have
// accumulated the group is flushed. Flushing happens only between
// scans, so one scan's peaks never straddle two row groups.
const flushRows = 1 << 20

// peakRow is one peak of one scan. Precursor columns are null for MS1
// rows, ion_mobility is null when the run carries no FAIMS voltage.
type peakRow struct {
	Scan            int32    `parquet:"scan"`
	Level           int32    `parquet:"level"`
	Rt              float64  `parquet:"rt"`
	Mz              float64  `parquet:"mz"`
	Intensity       float64  `parquet:"intensity"`
	IonMobility     *float64 `parquet:"ion_mobility,optional"`
	IsolationLower  *float64 `parquet:"isolation_lower,optional"`
	IsolationUpper  *float64 `parquet:"isolation_upper,optional"`
	PrecursorScan   *int32   `parquet:"precursor_scan,optional"`
	PrecursorMz     *float64 `parquet:"precursor_mz,optional"`
	PrecursorCharge *int32   `parquet:"precursor_charge,optional"`
}

// Parquet writes one row per peak, zstd compressed.
type Parquet struct {
	pw          *parquet.GenericWriter[peakRow]
	settings    Settings
	rows        []peakRow
	rowsInGroup int
	scans       int
}

// NewParquet creates a parquet writer over out.
func NewParquet(out io.Writer, settings Settings) *Parquet {
	return &Parquet{
		pw:       parquet.NewGenericWriter[peakRow](out, parquet.Compression(&parquet.Zstd)),
		settings: settings,
	}
}

// Write appends one row per peak of the record.
func (p *Parquet) Write(rec *extract.Record) error {
	if !p.settings.IncludeLevel(rec.MSLevel) {
		return nil
	}

	p.rows = p.rows[:0]
	for i, mz := range rec.Mz {
		row := peakRow{
			Scan:      int32(rec.ScanNumber),
			Level:     int32(rec.MSLevel),
			Rt:        rec.RetentionTime,
			Mz:        mz,
			Intensity: rec.Intensity[i],
		}
		if rec.HasFaimsCV {
			row.IonMobility = ptr(rec.FaimsCV)
		}
		if rec.HasPrecursor {
			half := rec.IsolationWidth / 2
			row.IsolationLower = ptr(rec.PrecursorMz - half)
			row.IsolationUpper = ptr(rec.PrecursorMz + half)
			if rec.PrecursorScan > 0 {
				row.PrecursorScan = ptr(int32(rec.PrecursorScan))
			}
			row.PrecursorMz = ptr(rec.PrecursorMz)
			if rec.PrecursorCharge > 0 {
				row.PrecursorCharge = ptr(int32(rec.PrecursorCharge))
			}
		}
		p.rows = append(p.rows, row)
	}
	if _, err := p.pw.Write(p.rows); err != nil {
		return err
	}
	p.rowsInGroup += len(p.rows)
	p.scans++

	if p.rowsInGroup >= flushRows {
		if err := p.pw.Flush(); err != nil {
			return err
		}
		p.rowsInGroup = 0
	}
	return nil
}

// Count returns the number of scans written.
func (p *Parquet) Count() int { return p.scans }

// Close flushes the last row group and writes the file footer.
func (p *Parquet) Close() error { return p.pw.Close() }

func ptr[T any](v T) *T { return &v }
