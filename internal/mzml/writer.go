package mzml

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"hash"
	"io"
	"math"
	"strconv"
	"time"
)

// Spectrum is the writer input for one scan, with precursor values
// already resolved by the conversion pipeline.
type Spectrum struct {
	ScanNumber    int
	MSLevel       int
	RetentionTime float64 // seconds
	// Polarity sign, "+", "-" or ""
	Polarity      string
	Centroided    bool
	Filter        string
	InjectionTime float64 // milliseconds, 0 when unknown
	LowMz, HighMz float64
	Mz            []float64
	Intensity     []float64
	Precursor     *Precursor
}

// Precursor carries the resolved precursor reference of an msN spectrum.
type Precursor struct {
	// SpectrumRef is the native id of the precursor spectrum; empty when
	// the precursor scan could not be resolved.
	SpectrumRef         string
	SelectedMz          float64
	SelectedIntensity   float64
	Charge              int
	IsolationTarget     float64
	IsolationWidth      float64
	ActivationAccession string
	ActivationName      string
	CollisionEnergy     float64
}

// WriterConfig holds the run-level metadata written into the mzML header.
type WriterConfig struct {
	// Indexed wraps the document in indexedmzML with a spectrum index.
	Indexed bool
	// SpectrumCount is written as the spectrumList count attribute. The
	// attribute goes out before the first spectrum, so the caller must
	// count up front.
	SpectrumCount   int
	RunID           string
	SourceFile      string
	SoftwareName    string
	SoftwareVersion string
	StartTime       time.Time
	// Compress enables zlib compression of the binary peak arrays.
	Compress bool
	// PeakPicked marks the run as centroided in the data processing list.
	PeakPicked bool
}

// Writer streams spectra to an mzML document. The header goes out on
// NewWriter, one spectrum element per WriteSpectrum, and the footer on
// Close. The indexed variant records the byte offset of every spectrum
// and appends the index and the file checksum after the mzML content.
type Writer struct {
	cw      *countingWriter
	enc     *xml.Encoder
	cfg     WriterConfig
	index   int
	offsets []spectrumOffset
	closed  bool
}

type spectrumOffset struct {
	id     string
	offset int64
}

// countingWriter tracks the byte offset for the spectrum index and
// feeds the checksum hash of the indexed variant.
type countingWriter struct {
	w   io.Writer
	n   int64
	sum hash.Hash
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if c.sum != nil {
		c.sum.Write(p[:n])
	}
	return n, err
}

const (
	mzmlNamespace = "http://psi.hupo.org/ms/mzml"
	xsiNamespace  = "http://www.w3.org/2001/XMLSchema-instance"
	mzmlSchema    = "http://psi.hupo.org/ms/mzml http://psidev.info/files/ms/mzML/xsd/mzML1.1.0.xsd"
	indexedSchema = "http://psi.hupo.org/ms/mzml http://psidev.info/files/ms/mzML/xsd/mzML1.1.2_idx.xsd"
)

// NewWriter writes the mzML header and returns a writer ready for
// spectra.
func NewWriter(w io.Writer, cfg WriterConfig) (*Writer, error) {
	cw := &countingWriter{w: w}
	if cfg.Indexed {
		cw.sum = sha1.New()
	}
	mw := &Writer{cw: cw, enc: xml.NewEncoder(cw), cfg: cfg}
	if err := mw.writeHeader(); err != nil {
		return nil, err
	}
	return mw, nil
}

func (w *Writer) writeHeader() error {
	fmt.Fprint(w.cw, xml.Header)
	if w.cfg.Indexed {
		fmt.Fprintf(w.cw,
			"<indexedmzML xmlns=%q xmlns:xsi=%q xsi:schemaLocation=%q>\n",
			mzmlNamespace, xsiNamespace, indexedSchema)
		fmt.Fprintf(w.cw, "<mzML xmlns=%q version=\"1.1.0\" id=%s>\n",
			mzmlNamespace, escapeAttr(w.cfg.RunID))
	} else {
		fmt.Fprintf(w.cw,
			"<mzML xmlns=%q xmlns:xsi=%q xsi:schemaLocation=%q version=\"1.1.0\" id=%s>\n",
			mzmlNamespace, xsiNamespace, mzmlSchema, escapeAttr(w.cfg.RunID))
	}

	cvs := cvList{Count: 2, CvListXML: []byte(
		`<cv id="MS" fullName="Proteomics Standards Initiative Mass Spectrometry Ontology" version="4.1.79" URI="https://raw.githubusercontent.com/HUPO-PSI/psi-ms-CV/master/psi-ms.obo"/>` +
			`<cv id="UO" fullName="Unit Ontology" version="09:04:2014" URI="https://raw.githubusercontent.com/bio-ontology-research-group/unit-ontology/master/unit.obo"/>`)}
	if err := w.encodeNamed("cvList", cvs); err != nil {
		return err
	}

	fd := fileDescription{FileDescriptionXML: fmt.Sprintf(
		`<fileContent>`+
			`<cvParam cvRef="MS" accession="MS:1000579" name="MS1 spectrum" value=""/>`+
			`<cvParam cvRef="MS" accession="MS:1000580" name="MSn spectrum" value=""/>`+
			`</fileContent>`+
			`<sourceFileList count="1"><sourceFile id="SF1" name=%s location="file:///">`+
			`<cvParam cvRef="MS" accession="MS:1000768" name="Thermo nativeID format" value=""/>`+
			`</sourceFile></sourceFileList>`, escapeAttr(w.cfg.SourceFile))}
	if err := w.encodeNamed("fileDescription", fd); err != nil {
		return err
	}

	sw := softwareList{Count: 1, Software: []software{{
		ID: w.cfg.SoftwareName, Version: w.cfg.SoftwareVersion,
		CvPar: []CVParam{{CvRef: "MS", Accession: "MS:1000799",
			Name: "custom unreleased software tool", Value: w.cfg.SoftwareName}},
	}}}
	if err := w.encodeNamed("softwareList", sw); err != nil {
		return err
	}

	ic := instrumentConfigurationList{Count: 1, InstrumentConfigurationListXML: []byte(
		`<instrumentConfiguration id="IC1">` +
			`<cvParam cvRef="MS" accession="MS:1000494" name="Thermo Scientific instrument model" value=""/>` +
			`</instrumentConfiguration>`)}
	if err := w.encodeNamed("instrumentConfigurationList", ic); err != nil {
		return err
	}

	method := ProcessingMethod{Count: 0, SoftwareRef: w.cfg.SoftwareName,
		CvPar: []CVParam{{CvRef: "MS", Accession: "MS:1000544", Name: "Conversion to mzML"}}}
	if w.cfg.PeakPicked {
		method.CvPar = append(method.CvPar,
			CVParam{CvRef: "MS", Accession: "MS:1000035", Name: "peak picking"})
	}
	dp := dataProcessingList{Count: 1, DataProcessingd: []DataProcessing{{
		ID: w.cfg.SoftwareName + "_conversion", ProcessingMeth: []ProcessingMethod{method},
	}}}
	if err := w.encodeNamed("dataProcessingList", dp); err != nil {
		return err
	}

	stamp := ""
	if !w.cfg.StartTime.IsZero() {
		stamp = fmt.Sprintf(" startTimeStamp=%q", w.cfg.StartTime.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w.cw, "\n<run id=%s defaultInstrumentConfigurationRef=\"IC1\"%s>\n",
		escapeAttr(w.cfg.RunID), stamp)
	fmt.Fprintf(w.cw, "<spectrumList count=\"%d\" defaultDataProcessingRef=%s>",
		w.cfg.SpectrumCount, escapeAttr(w.cfg.SoftwareName+"_conversion"))
	return nil
}

func (w *Writer) encodeNamed(name string, v interface{}) error {
	fmt.Fprint(w.cw, "\n")
	return w.enc.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: name}})
}

// WriteSpectrum encodes one spectrum element and records its offset.
func (w *Writer) WriteSpectrum(s *Spectrum) error {
	if w.closed {
		return ErrWriterClosed
	}
	spec, err := w.buildSpectrum(s)
	if err != nil {
		return err
	}
	fmt.Fprint(w.cw, "\n")
	w.offsets = append(w.offsets, spectrumOffset{id: spec.ID, offset: w.cw.n})
	if err := w.enc.EncodeElement(spec, xml.StartElement{Name: xml.Name{Local: "spectrum"}}); err != nil {
		return err
	}
	w.index++
	return nil
}

// Count returns the number of spectra written so far.
func (w *Writer) Count() int { return w.index }

// Close writes the document footer. For the indexed variant this
// includes the spectrum index, the index offset and the SHA-1 file
// checksum.
func (w *Writer) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	fmt.Fprint(w.cw, "\n</spectrumList>\n</run>\n</mzML>\n")
	if !w.cfg.Indexed {
		return nil
	}

	indexOffset := w.cw.n
	fmt.Fprint(w.cw, "<indexList count=\"1\">\n<index name=\"spectrum\">\n")
	for _, off := range w.offsets {
		fmt.Fprintf(w.cw, "<offset idRef=%s>%d</offset>\n", escapeAttr(off.id), off.offset)
	}
	fmt.Fprint(w.cw, "</index>\n</indexList>\n")
	fmt.Fprintf(w.cw, "<indexListOffset>%d</indexListOffset>\n", indexOffset)
	// The checksum covers every byte up to and including the opening
	// fileChecksum tag
	fmt.Fprint(w.cw, "<fileChecksum>")
	fmt.Fprintf(w.cw, "%x</fileChecksum>\n</indexedmzML>\n", w.cw.sum.Sum(nil))
	return nil
}

func (w *Writer) buildSpectrum(s *Spectrum) (*spectrum, error) {
	if len(s.Mz) != len(s.Intensity) {
		return nil, fmt.Errorf("MzML: scan %d: %d masses but %d intensities",
			s.ScanNumber, len(s.Mz), len(s.Intensity))
	}

	spec := &spectrum{
		Index:              w.index,
		ID:                 NativeID(s.ScanNumber),
		DefaultArrayLength: int64(len(s.Mz)),
	}

	if s.MSLevel <= 1 {
		spec.CvPar = append(spec.CvPar,
			CVParam{CvRef: "MS", Accession: "MS:1000579", Name: "MS1 spectrum"})
	} else {
		spec.CvPar = append(spec.CvPar,
			CVParam{CvRef: "MS", Accession: "MS:1000580", Name: "MSn spectrum"})
	}
	spec.CvPar = append(spec.CvPar, CVParam{CvRef: "MS", Accession: "MS:1000511",
		Name: "ms level", Value: strconv.Itoa(s.MSLevel)})
	if s.Centroided {
		spec.CvPar = append(spec.CvPar,
			CVParam{CvRef: "MS", Accession: "MS:1000127", Name: "centroid spectrum"})
	} else {
		spec.CvPar = append(spec.CvPar,
			CVParam{CvRef: "MS", Accession: "MS:1000128", Name: "profile spectrum"})
	}
	switch s.Polarity {
	case "+":
		spec.CvPar = append(spec.CvPar,
			CVParam{CvRef: "MS", Accession: "MS:1000130", Name: "positive scan"})
	case "-":
		spec.CvPar = append(spec.CvPar,
			CVParam{CvRef: "MS", Accession: "MS:1000129", Name: "negative scan"})
	}

	tic := 0.0
	basePeak := -1
	for i, intens := range s.Intensity {
		tic += intens
		if basePeak < 0 || intens > s.Intensity[basePeak] {
			basePeak = i
		}
	}
	spec.CvPar = append(spec.CvPar, CVParam{CvRef: "MS", Accession: "MS:1000285",
		Name: "total ion current", Value: formatFloat(tic)})
	if basePeak >= 0 {
		spec.CvPar = append(spec.CvPar,
			CVParam{CvRef: "MS", Accession: "MS:1000504", Name: "base peak m/z",
				Value: formatFloat(s.Mz[basePeak]), UnitCvRef: "MS",
				UnitAccession: "MS:1000040", UnitName: "m/z"},
			CVParam{CvRef: "MS", Accession: "MS:1000505", Name: "base peak intensity",
				Value: formatFloat(s.Intensity[basePeak]), UnitCvRef: "MS",
				UnitAccession: "MS:1000131", UnitName: "number of detector counts"},
			CVParam{CvRef: "MS", Accession: "MS:1000528", Name: "lowest observed m/z",
				Value: formatFloat(s.Mz[0]), UnitCvRef: "MS",
				UnitAccession: "MS:1000040", UnitName: "m/z"},
			CVParam{CvRef: "MS", Accession: "MS:1000527", Name: "highest observed m/z",
				Value: formatFloat(s.Mz[len(s.Mz)-1]), UnitCvRef: "MS",
				UnitAccession: "MS:1000040", UnitName: "m/z"})
	}

	sc := scan{InstrConfRef: "IC1"}
	sc.CvPar = append(sc.CvPar, CVParam{CvRef: "MS", Accession: "MS:1000016",
		Name: "scan start time", Value: formatFloat(s.RetentionTime),
		UnitCvRef: "UO", UnitAccession: "UO:0000010", UnitName: "second"})
	if s.Filter != "" {
		sc.CvPar = append(sc.CvPar, CVParam{CvRef: "MS", Accession: "MS:1000512",
			Name: "filter string", Value: s.Filter})
	}
	if s.InjectionTime > 0 {
		sc.CvPar = append(sc.CvPar, CVParam{CvRef: "MS", Accession: "MS:1000927",
			Name: "ion injection time", Value: formatFloat(s.InjectionTime),
			UnitCvRef: "UO", UnitAccession: "UO:0000028", UnitName: "millisecond"})
	}
	if s.HighMz > 0 {
		sc.ScanWindowList = &scanWindowList{Count: 1, ScanWindow: []scanWindow{{
			CvPar: []CVParam{
				{CvRef: "MS", Accession: "MS:1000501", Name: "scan window lower limit",
					Value: formatFloat(s.LowMz), UnitCvRef: "MS",
					UnitAccession: "MS:1000040", UnitName: "m/z"},
				{CvRef: "MS", Accession: "MS:1000500", Name: "scan window upper limit",
					Value: formatFloat(s.HighMz), UnitCvRef: "MS",
					UnitAccession: "MS:1000040", UnitName: "m/z"},
			},
		}}}
	}
	spec.ScanList = scanList{
		Count: 1,
		CvPar: []CVParam{{CvRef: "MS", Accession: "MS:1000795", Name: "no combination"}},
		Scan:  []scan{sc},
	}

	if s.Precursor != nil {
		spec.PrecursorList = []precursorList{{
			Count:     1,
			Precursor: []XMLprecursor{buildPrecursor(s.Precursor)},
		}}
	}

	mzBin, err := encodeBinary(s.Mz, w.cfg.Compress)
	if err != nil {
		return nil, err
	}
	intensBin, err := encodeBinary(s.Intensity, w.cfg.Compress)
	if err != nil {
		return nil, err
	}
	compressionPar := CVParam{CvRef: "MS", Accession: "MS:1000576", Name: "no compression"}
	if w.cfg.Compress {
		compressionPar = CVParam{CvRef: "MS", Accession: "MS:1000574", Name: "zlib compression"}
	}
	spec.BinaryDataArrayList = binaryDataArrayList{
		Count: 2,
		BinaryDataArray: []binaryDataArray{
			{
				EncodedLength: len(mzBin),
				CvPar: []CVParam{
					{CvRef: "MS", Accession: "MS:1000523", Name: "64-bit float"},
					compressionPar,
					{CvRef: "MS", Accession: "MS:1000514", Name: "m/z array",
						UnitCvRef: "MS", UnitAccession: "MS:1000040", UnitName: "m/z"},
				},
				Binary: mzBin,
			},
			{
				EncodedLength: len(intensBin),
				CvPar: []CVParam{
					{CvRef: "MS", Accession: "MS:1000523", Name: "64-bit float"},
					compressionPar,
					{CvRef: "MS", Accession: "MS:1000515", Name: "intensity array",
						UnitCvRef: "MS", UnitAccession: "MS:1000131",
						UnitName: "number of detector counts"},
				},
				Binary: intensBin,
			},
		},
	}
	return spec, nil
}

func buildPrecursor(p *Precursor) XMLprecursor {
	pre := XMLprecursor{SpectrumRef: p.SpectrumRef}

	if p.IsolationTarget > 0 {
		half := p.IsolationWidth / 2
		pre.IsolationWindow.CvPar = []CVParam{
			{CvRef: "MS", Accession: "MS:1000827", Name: "isolation window target m/z",
				Value: formatFloat(p.IsolationTarget), UnitCvRef: "MS",
				UnitAccession: "MS:1000040", UnitName: "m/z"},
			{CvRef: "MS", Accession: "MS:1000828", Name: "isolation window lower offset",
				Value: formatFloat(half), UnitCvRef: "MS",
				UnitAccession: "MS:1000040", UnitName: "m/z"},
			{CvRef: "MS", Accession: "MS:1000829", Name: "isolation window upper offset",
				Value: formatFloat(half), UnitCvRef: "MS",
				UnitAccession: "MS:1000040", UnitName: "m/z"},
		}
	}

	ion := selectedIon{CvPar: []CVParam{
		{CvRef: "MS", Accession: "MS:1000744", Name: "selected ion m/z",
			Value: formatFloat(p.SelectedMz), UnitCvRef: "MS",
			UnitAccession: "MS:1000040", UnitName: "m/z"},
	}}
	if p.Charge > 0 {
		ion.CvPar = append(ion.CvPar, CVParam{CvRef: "MS", Accession: "MS:1000041",
			Name: "charge state", Value: strconv.Itoa(p.Charge)})
	}
	if p.SelectedIntensity > 0 {
		ion.CvPar = append(ion.CvPar, CVParam{CvRef: "MS", Accession: "MS:1000042",
			Name: "peak intensity", Value: formatFloat(p.SelectedIntensity),
			UnitCvRef: "MS", UnitAccession: "MS:1000131",
			UnitName: "number of detector counts"})
	}
	pre.SelectedIonList = selectedIonList{Count: 1, SelectedIon: []selectedIon{ion}}

	if p.ActivationAccession != "" {
		pre.Activation.CvPar = append(pre.Activation.CvPar, CVParam{
			CvRef: "MS", Accession: p.ActivationAccession, Name: p.ActivationName})
	}
	if p.CollisionEnergy > 0 {
		pre.Activation.CvPar = append(pre.Activation.CvPar, CVParam{
			CvRef: "MS", Accession: "MS:1000045", Name: "collision energy",
			Value: formatFloat(p.CollisionEnergy), UnitCvRef: "UO",
			UnitAccession: "UO:0000266", UnitName: "electronvolt"})
	}
	return pre
}

// encodeBinary packs values as little-endian 64-bit floats, optionally
// zlib compressed, and base64 encodes the result.
func encodeBinary(vals []float64, zlibCompression bool) (string, error) {
	rawUncompressed := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(rawUncompressed[8*i:], math.Float64bits(v))
	}
	data := rawUncompressed
	if zlibCompression {
		var b bytes.Buffer
		z := zlib.NewWriter(&b)
		if _, err := z.Write(rawUncompressed); err != nil {
			return "", err
		}
		// zlib writer must explicitly be closed here, otherwise the
		// result is invalid
		if err := z.Close(); err != nil {
			return "", err
		}
		data = b.Bytes()
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeAttr(s string) string {
	var b bytes.Buffer
	b.WriteByte('"')
	xml.EscapeText(&b, []byte(s))
	b.WriteByte('"')
	return b.String()
}
