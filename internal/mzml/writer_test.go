package mzml

import (
	"bytes"
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func writeTwoScans(t *testing.T, cfg WriterConfig) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, cfg)
	if err != nil {
		t.Fatalf("NewWriter: error return %v", err)
	}
	err = w.WriteSpectrum(&Spectrum{
		ScanNumber:    12,
		MSLevel:       1,
		RetentionTime: 62.5,
		Polarity:      "+",
		Centroided:    false,
		Filter:        "FTMS + p NSI Full ms [300.0000-1700.0000]",
		InjectionTime: 54.3,
		LowMz:         300.0,
		HighMz:        1700.0,
		Mz:            []float64{400.25, 500.5, 600.75},
		Intensity:     []float64{10, 100, 20},
	})
	if err != nil {
		t.Fatalf("WriteSpectrum: error return %v", err)
	}
	err = w.WriteSpectrum(&Spectrum{
		ScanNumber:    13,
		MSLevel:       2,
		RetentionTime: 63.1,
		Polarity:      "+",
		Centroided:    true,
		Filter:        "FTMS + c NSI d Full ms2 500.5000@hcd30.00 [110.0000-520.0000]",
		LowMz:         110.0,
		HighMz:        520.0,
		Mz:            []float64{110.1, 250.2},
		Intensity:     []float64{5, 15},
		Precursor: &Precursor{
			SpectrumRef:         NativeID(12),
			SelectedMz:          500.4992,
			SelectedIntensity:   100,
			Charge:              2,
			IsolationTarget:     500.5,
			IsolationWidth:      2.0,
			ActivationAccession: "MS:1000422",
			ActivationName:      "beam-type collision-induced dissociation",
			CollisionEnergy:     30,
		},
	})
	if err != nil {
		t.Fatalf("WriteSpectrum: error return %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: error return %v", err)
	}
	if w.Count() != 2 {
		t.Errorf("Count: %d, should be 2", w.Count())
	}
	return &buf
}

func checkRoundTrip(t *testing.T, buf *bytes.Buffer) {
	f, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	if f.NumSpecs() != 2 {
		t.Fatalf("NumSpecs: %d, should be 2", f.NumSpecs())
	}

	p, err := f.ReadScan(0)
	if err != nil {
		t.Errorf("ReadScan: error return %v", err)
	}
	wantPeaks := []Peak{
		{Mz: 400.25, Intens: 10},
		{Mz: 500.5, Intens: 100},
		{Mz: 600.75, Intens: 20},
	}
	if diff := cmp.Diff(wantPeaks, p, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("ReadScan mismatch (-want +got):\n%s", diff)
	}

	centroid, err := f.Centroid(0)
	if err != nil {
		t.Errorf("Centroid: error return %v", err)
	}
	if centroid {
		t.Errorf("Centroid: true, should be false")
	}
	centroid, err = f.Centroid(1)
	if err != nil {
		t.Errorf("Centroid: error return %v", err)
	}
	if !centroid {
		t.Errorf("Centroid: false, should be true")
	}

	msLevel, err := f.MSLevel(1)
	if err != nil {
		t.Errorf("MSLevel: error return %v", err)
	}
	if msLevel != 2 {
		t.Errorf("MSLevel: %d, should be 2", msLevel)
	}

	rt, err := f.RetentionTime(0)
	if err != nil {
		t.Errorf("RetentionTime: error return %v", err)
	}
	if math.Abs(rt-62.5) > 1e-9 {
		t.Errorf("RetentionTime: %f, should be 62.5", rt)
	}

	iit, err := f.IonInjectionTime(0)
	if err != nil {
		t.Errorf("IonInjectionTime: error return %v", err)
	}
	if math.Abs(iit-54.3) > 1e-9 {
		t.Errorf("IonInjectionTime: %f, should be 54.3", iit)
	}

	tic, err := f.TotalIonCurrent(0)
	if err != nil {
		t.Errorf("TotalIonCurrent: error return %v", err)
	}
	if math.Abs(tic-130.0) > 1e-9 {
		t.Errorf("TotalIonCurrent: %f, should be 130", tic)
	}

	scanIndex, err := f.ScanIndex(NativeID(13))
	if err != nil {
		t.Errorf("ScanIndex: error return %v", err)
	}
	if scanIndex != 1 {
		t.Errorf("ScanIndex: %d, should be 1", scanIndex)
	}
	scanID, err := f.ScanID(0)
	if err != nil {
		t.Errorf("ScanID: error return %v", err)
	}
	if scanID != NativeID(12) {
		t.Errorf("ScanID: %s, should be %s", scanID, NativeID(12))
	}

	precs, err := f.GetPrecursors(1)
	if err != nil {
		t.Fatalf("GetPrecursors: error return %v", err)
	}
	if len(precs) != 1 {
		t.Fatalf("GetPrecursors: %d precursors, should be 1", len(precs))
	}
	if precs[0].SpectrumRef != NativeID(12) {
		t.Errorf("GetPrecursors: spectrumRef %s, should be %s",
			precs[0].SpectrumRef, NativeID(12))
	}
	var selectedMz float64
	for _, cvParam := range precs[0].SelectedIonList.SelectedIon[0].CvPar {
		if cvParam.Accession == "MS:1000744" {
			selectedMz, _ = strconv.ParseFloat(cvParam.Value, 64)
		}
	}
	if math.Abs(selectedMz-500.4992) > 1e-9 {
		t.Errorf("GetPrecursors: selected ion m/z %f, should be 500.4992", selectedMz)
	}
	foundActivation := false
	for _, cvParam := range precs[0].Activation.CvPar {
		if cvParam.Accession == "MS:1000422" {
			foundActivation = true
		}
	}
	if !foundActivation {
		t.Errorf("GetPrecursors: activation MS:1000422 missing")
	}

	precs, err = f.GetPrecursors(0)
	if err != nil {
		t.Errorf("GetPrecursors: error return %v", err)
	}
	if precs != nil {
		t.Errorf("GetPrecursors: ms1 spectrum has precursors")
	}
}

func TestWriteReadPlain(t *testing.T) {
	buf := writeTwoScans(t, WriterConfig{
		SpectrumCount:   2,
		RunID:           "sample1",
		SourceFile:      "sample1.raw",
		SoftwareName:    "thermostream",
		SoftwareVersion: "1.0.0",
		StartTime:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if strings.Contains(buf.String(), "indexedmzML") {
		t.Errorf("plain mzML must not contain indexedmzML")
	}
	checkRoundTrip(t, buf)
}

func TestWriteReadIndexedCompressed(t *testing.T) {
	buf := writeTwoScans(t, WriterConfig{
		Indexed:         true,
		SpectrumCount:   2,
		RunID:           "sample1",
		SourceFile:      "sample1.raw",
		SoftwareName:    "thermostream",
		SoftwareVersion: "1.0.0",
		Compress:        true,
	})
	out := buf.String()
	if !strings.Contains(out, "<indexedmzML") ||
		!strings.Contains(out, `<indexList count="1">`) ||
		!strings.Contains(out, "<indexListOffset>") ||
		!strings.Contains(out, "</fileChecksum>") {
		t.Errorf("indexed mzML misses index elements")
	}
	checkRoundTrip(t, buf)
}

// The recorded byte offsets must point at the corresponding spectrum
// start tags.
func TestIndexOffsets(t *testing.T) {
	buf := writeTwoScans(t, WriterConfig{
		Indexed:       true,
		SpectrumCount: 2,
		RunID:         "sample1",
		SourceFile:    "sample1.raw",
		SoftwareName:  "thermostream",
	})
	out := buf.Bytes()
	offsetRe := regexp.MustCompile(`<offset idRef="[^"]*">(\d+)</offset>`)
	matches := offsetRe.FindAllSubmatch(out, -1)
	if len(matches) != 2 {
		t.Fatalf("found %d offsets, should be 2", len(matches))
	}
	for _, m := range matches {
		off, err := strconv.Atoi(string(m[1]))
		if err != nil {
			t.Fatalf("offset not numeric: %v", err)
		}
		if !bytes.HasPrefix(out[off:], []byte("<spectrum ")) {
			t.Errorf("offset %d does not point at a spectrum tag", off)
		}
	}
}

func TestWriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, WriterConfig{SoftwareName: "thermostream"})
	if err != nil {
		t.Fatalf("NewWriter: error return %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: error return %v", err)
	}
	if err := w.WriteSpectrum(&Spectrum{ScanNumber: 1, MSLevel: 1}); err != ErrWriterClosed {
		t.Errorf("WriteSpectrum after Close: error return %v, should be ErrWriterClosed", err)
	}
	if err := w.Close(); err != ErrWriterClosed {
		t.Errorf("second Close: error return %v, should be ErrWriterClosed", err)
	}
}

func TestWriteMismatchedArrays(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, WriterConfig{SoftwareName: "thermostream"})
	if err != nil {
		t.Fatalf("NewWriter: error return %v", err)
	}
	err = w.WriteSpectrum(&Spectrum{
		ScanNumber: 1, MSLevel: 1,
		Mz: []float64{1, 2}, Intensity: []float64{1},
	})
	if err == nil {
		t.Errorf("WriteSpectrum: no error for mismatched arrays")
	}
}
