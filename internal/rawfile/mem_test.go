package rawfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemReaderBasics(t *testing.T) {
	r, err := NewMemReader([]MemScan{
		{
			Number:        1,
			Filter:        "FTMS + p NSI Full ms [300.0000-1700.0000]",
			RetentionTime: 1.5,
			Profile:       &PeakData{Mz: []float64{400, 401}, Intensity: []float64{10, 20}},
		},
		{
			Number:          2,
			Filter:          "FTMS + c NSI d Full ms2 445.1200@hcd30.00 [110.0000-445.0000]",
			RetentionTime:   1.9,
			Centroids:       &PeakData{Mz: []float64{150}, Intensity: []float64{5}},
			IsolationWidths: []float64{2.0},
			Trailer:         map[string]string{TrailerChargeState: "2"},
		},
	})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 1, r.FirstScan())
	assert.Equal(t, 2, r.LastScan())

	ev, err := r.Event(2)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.MSLevel)
	require.Len(t, ev.Reactions, 1)
	assert.Equal(t, 2.0, ev.Reactions[0].IsolationWidth)

	rt, err := r.RetentionTime(1)
	require.NoError(t, err)
	assert.Equal(t, 1.5, rt)

	tr, err := r.Trailer(2)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.ChargeState())

	c, err := r.Centroids(1)
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = r.Event(99)
	assert.ErrorIs(t, err, ErrInvalidScanNumber)
}

func TestMemReaderNonContiguousFails(t *testing.T) {
	_, err := NewMemReader([]MemScan{
		{Number: 1, Filter: "FTMS + p NSI Full ms [300.0-1700.0]"},
		{Number: 3, Filter: "FTMS + p NSI Full ms [300.0-1700.0]"},
	})
	assert.Error(t, err)
}

func TestReadDump(t *testing.T) {
	dump := `{"scans":[
		{"number":5,"filter":"FTMS + p NSI Full ms [300.0000-1700.0000]","rt":0.7,
		 "profile":{"mz":[400.1,400.2],"intensity":[1,2]}},
		{"number":6,"filter":"FTMS + c NSI d Full ms2 445.1200@hcd30.00 [110.0000-445.0000]","rt":0.9,
		 "centroids":{"mz":[150.0],"intensity":[9.5],"charge":[1]},
		 "isolation_widths":[2.0],
		 "trailer":{"Monoisotopic M/Z:":"445.1192"}}
	]}`
	r, err := ReadDump(strings.NewReader(dump))
	require.NoError(t, err)
	assert.Equal(t, 5, r.FirstScan())
	assert.Equal(t, 6, r.LastScan())
	tr, err := r.Trailer(6)
	require.NoError(t, err)
	assert.InDelta(t, 445.1192, tr.MonoisotopicMz(), 1e-9)
	c, err := r.Centroids(6)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, []int{1}, c.Charge)
}

func TestOpenUnsupportedFormat(t *testing.T) {
	_, err := Open("run.raw")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
