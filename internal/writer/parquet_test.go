package writer

import (
	"bytes"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetRowPerPeak(t *testing.T) {
	var buf bytes.Buffer
	p := NewParquet(&buf, Settings{})
	require.NoError(t, p.Write(ms1Record()))
	require.NoError(t, p.Write(ms2Record()))
	require.NoError(t, p.Close())
	assert.Equal(t, 2, p.Count())

	rows, err := parquet.Read[peakRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Rows stay contiguous by scan, in write order
	assert.Equal(t, []int32{12, 12, 13, 13},
		[]int32{rows[0].Scan, rows[1].Scan, rows[2].Scan, rows[3].Scan})

	ms1 := rows[0]
	assert.Equal(t, int32(1), ms1.Level)
	assert.InDelta(t, 62.5, ms1.Rt, 1e-9)
	assert.InDelta(t, 400.25, ms1.Mz, 1e-9)
	assert.Nil(t, ms1.PrecursorScan)
	assert.Nil(t, ms1.PrecursorMz)
	assert.Nil(t, ms1.IsolationLower)
	assert.Nil(t, ms1.IonMobility)

	ms2 := rows[2]
	assert.Equal(t, int32(2), ms2.Level)
	require.NotNil(t, ms2.PrecursorScan)
	assert.Equal(t, int32(12), *ms2.PrecursorScan)
	require.NotNil(t, ms2.PrecursorMz)
	assert.InDelta(t, 500.4992, *ms2.PrecursorMz, 1e-9)
	require.NotNil(t, ms2.PrecursorCharge)
	assert.Equal(t, int32(2), *ms2.PrecursorCharge)
	require.NotNil(t, ms2.IsolationLower)
	assert.InDelta(t, 499.4992, *ms2.IsolationLower, 1e-9)
	require.NotNil(t, ms2.IsolationUpper)
	assert.InDelta(t, 501.4992, *ms2.IsolationUpper, 1e-9)
}

func TestParquetFaimsColumn(t *testing.T) {
	rec := ms1Record()
	rec.HasFaimsCV = true
	rec.FaimsCV = -45.0

	var buf bytes.Buffer
	p := NewParquet(&buf, Settings{})
	require.NoError(t, p.Write(rec))
	require.NoError(t, p.Close())

	rows, err := parquet.Read[peakRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].IonMobility)
	assert.InDelta(t, -45.0, *rows[0].IonMobility, 1e-9)
}

func TestParquetLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	p := NewParquet(&buf, Settings{Levels: []int{2}})
	require.NoError(t, p.Write(ms1Record()))
	require.NoError(t, p.Write(ms2Record()))
	require.NoError(t, p.Close())

	rows, err := parquet.Read[peakRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int32(13), rows[0].Scan)
}
