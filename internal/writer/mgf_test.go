package writer

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzio/thermostream/internal/extract"
	"github.com/mzio/thermostream/internal/rawfile"
)

func ms1Record() *extract.Record {
	return &extract.Record{
		ScanNumber:    12,
		MSLevel:       1,
		RetentionTime: 62.5,
		Polarity:      rawfile.PolarityPositive,
		Centroided:    true,
		Mz:            []float64{400.25, 500.5},
		Intensity:     []float64{10, 100},
		PrecursorScan: -1,
	}
}

func ms2Record() *extract.Record {
	return &extract.Record{
		ScanNumber:         13,
		MSLevel:            2,
		RetentionTime:      63.1,
		Polarity:           rawfile.PolarityPositive,
		Centroided:         true,
		Mz:                 []float64{110.1, 250.2},
		Intensity:          []float64{5, 15},
		Charge:             []int{1, 0},
		HasPrecursor:       true,
		PrecursorScan:      12,
		PrecursorMz:        500.4992,
		PrecursorIntensity: 100,
		PrecursorCharge:    2,
		IsolationWidth:     2.0,
		Activation:         rawfile.ActivationHCD,
	}
}

func TestMGFSkipsMS1(t *testing.T) {
	var buf bytes.Buffer
	m := NewMGF(&buf, "run1", Settings{}, false)
	require.NoError(t, m.Write(ms1Record()))
	require.NoError(t, m.Write(ms2Record()))
	require.NoError(t, m.Close())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "BEGIN IONS"))
	assert.Equal(t, 1, m.Count())
	assert.NotContains(t, out, "SCANS=12")
}

func TestMGFBlockContent(t *testing.T) {
	var buf bytes.Buffer
	m := NewMGF(&buf, "run1", Settings{}, false)
	require.NoError(t, m.Write(ms2Record()))
	require.NoError(t, m.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"BEGIN IONS",
		"TITLE=run1.13.13.2",
		"SCANS=13",
		"RTINSECONDS=63.1",
		"PEPMASS=500.4992000 100.000",
		"CHARGE=2+",
		"110.10000 5.000 1",
		"250.20000 15.000",
		"END IONS",
	}
	assert.Equal(t, want, lines)
}

func TestMGFNoPrecursorIntensity(t *testing.T) {
	rec := ms2Record()
	rec.PrecursorIntensity = 0
	rec.PrecursorCharge = 0

	var buf bytes.Buffer
	m := NewMGF(&buf, "run1", Settings{}, false)
	require.NoError(t, m.Write(rec))
	require.NoError(t, m.Close())

	out := buf.String()
	assert.Contains(t, out, "PEPMASS=500.4992000\n")
	assert.NotContains(t, out, "CHARGE=")
}

func TestMGFLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	m := NewMGF(&buf, "run1", Settings{Levels: []int{3}}, false)
	require.NoError(t, m.Write(ms2Record()))
	require.NoError(t, m.Close())
	assert.Zero(t, m.Count())
	assert.Empty(t, buf.String())
}

func TestMGFGzip(t *testing.T) {
	var buf bytes.Buffer
	m := NewMGF(&buf, "run1", Settings{}, true)
	require.NoError(t, m.Write(ms2Record()))
	require.NoError(t, m.Close())

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(out), "BEGIN IONS")
	assert.Contains(t, string(out), "TITLE=run1.13.13.2")
}
