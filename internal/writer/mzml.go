package writer

import (
	"io"
	"time"

	"github.com/mzio/thermostream/internal/extract"
	"github.com/mzio/thermostream/internal/mzml"
	"github.com/mzio/thermostream/internal/rawfile"
)

// MzMLConfig selects the mzML document variant and run metadata.
type MzMLConfig struct {
	// Indexed produces indexedmzML with a spectrum byte index.
	Indexed bool
	// SpectrumCount is written into the spectrumList count attribute
	// and must be determined before writing starts.
	SpectrumCount int
	RunID         string
	SourceFile    string
	Version       string
	StartTime     time.Time
	// Compress zlib-compresses the binary peak arrays.
	Compress bool
	// PeakPicked marks the conversion as centroiding in the data
	// processing list.
	PeakPicked bool
}

// MzML binds the record stream to the mzML document writer.
type MzML struct {
	w        *mzml.Writer
	settings Settings
}

// NewMzML writes the document header and returns the writer.
func NewMzML(out io.Writer, cfg MzMLConfig, settings Settings) (*MzML, error) {
	w, err := mzml.NewWriter(out, mzml.WriterConfig{
		Indexed:         cfg.Indexed,
		SpectrumCount:   cfg.SpectrumCount,
		RunID:           cfg.RunID,
		SourceFile:      cfg.SourceFile,
		SoftwareName:    "thermostream",
		SoftwareVersion: cfg.Version,
		StartTime:       cfg.StartTime,
		Compress:        cfg.Compress,
		PeakPicked:      cfg.PeakPicked,
	})
	if err != nil {
		return nil, err
	}
	return &MzML{w: w, settings: settings}, nil
}

// Write encodes one record as a spectrum element.
func (m *MzML) Write(rec *extract.Record) error {
	if !m.settings.IncludeLevel(rec.MSLevel) {
		return nil
	}
	spec := &mzml.Spectrum{
		ScanNumber:    rec.ScanNumber,
		MSLevel:       rec.MSLevel,
		RetentionTime: rec.RetentionTime,
		Polarity:      rec.Polarity.Sign(),
		Centroided:    rec.Centroided,
		Filter:        rec.Filter,
		InjectionTime: rec.InjectionTime,
		LowMz:         rec.LowMz,
		HighMz:        rec.HighMz,
		Mz:            rec.Mz,
		Intensity:     rec.Intensity,
	}
	if rec.HasPrecursor {
		accession, name := activationParam(rec.Activation)
		pre := &mzml.Precursor{
			SelectedMz:          rec.PrecursorMz,
			SelectedIntensity:   rec.PrecursorIntensity,
			Charge:              rec.PrecursorCharge,
			IsolationTarget:     rec.PrecursorMz,
			IsolationWidth:      rec.IsolationWidth,
			ActivationAccession: accession,
			ActivationName:      name,
		}
		if rec.PrecursorScan > 0 {
			pre.SpectrumRef = mzml.NativeID(rec.PrecursorScan)
		}
		spec.Precursor = pre
	}
	return m.w.WriteSpectrum(spec)
}

// Count returns the number of spectra written.
func (m *MzML) Count() int { return m.w.Count() }

// Close writes the document footer and, for the indexed variant, the
// spectrum index and checksum.
func (m *MzML) Close() error { return m.w.Close() }

// activationParam maps a fragmentation technique to its PSI-MS term.
func activationParam(a rawfile.Activation) (accession, name string) {
	switch a {
	case rawfile.ActivationCID:
		return "MS:1000133", "collision-induced dissociation"
	case rawfile.ActivationHCD:
		return "MS:1000422", "beam-type collision-induced dissociation"
	case rawfile.ActivationETD:
		return "MS:1000598", "electron transfer dissociation"
	case rawfile.ActivationECD:
		return "MS:1000250", "electron capture dissociation"
	case rawfile.ActivationPQD:
		return "MS:1000599", "pulsed q dissociation"
	case rawfile.ActivationSID:
		return "MS:1000136", "surface-induced dissociation"
	case rawfile.ActivationMPD:
		return "MS:1000435", "photodissociation"
	}
	return "MS:1000044", "dissociation method"
}
