package db

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeSeries packs values as little-endian IEEE 754 float64s. A nil
// slice encodes as NULL.
func encodeSeries(values []float64) []byte {
	if values == nil {
		return nil
	}
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

// decodeSeries is the inverse of encodeSeries.
func decodeSeries(buf []byte) ([]float64, error) {
	if buf == nil {
		return nil, nil
	}
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("series blob length %d is not a multiple of 8", len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}

// nullFloat maps NaN to SQL NULL for summary columns.
func nullFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
