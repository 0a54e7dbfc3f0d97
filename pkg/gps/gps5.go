package gps

import (
	"time"

	"gopmf/pkg/gpmf"
)

const gps5Columns = 5

// FromGPS5 extracts the single averaged Point from a STRM carrying a
// legacy GPS5 cluster: N rows of (lat, lon, alt, speed2d, speed3d), each
// column averaged across rows then divided by its SCAL entry (§4.5).
func FromGPS5(strm gpmf.Stream) (Point, bool) {
	dataNode, ok := strm.FindDirect(gpmf.GPS5)
	if !ok || dataNode.Value == nil {
		return Point{}, false
	}
	raw := dataNode.Value.Numbers()
	if len(raw) == 0 || len(raw)%gps5Columns != 0 {
		return Point{}, false
	}
	rows := len(raw) / gps5Columns

	scale := columnScale(strm, gps5Columns)

	var sums [gps5Columns]float64
	for r := 0; r < rows; r++ {
		for c := 0; c < gps5Columns; c++ {
			sums[c] += raw[r*gps5Columns+c]
		}
	}

	p := Point{
		Latitude:  sums[0] / float64(rows) / scale[0],
		Longitude: sums[1] / float64(rows) / scale[1],
		Altitude:  sums[2] / float64(rows) / scale[2],
		Speed2D:   sums[3] / float64(rows) / scale[3],
		Speed3D:   sums[4] / float64(rows) / scale[4],
	}

	if gpsu, ok := strm.FindDirect(gpmf.GPSU); ok && gpsu.Value != nil && len(gpsu.Value.Elements) > 0 {
		if t, err := time.Parse(time.RFC3339Nano, gpsu.Value.Elements[0].Str); err == nil {
			p.DateTime = t
		}
	}
	if gpsf, ok := strm.FindDirect(gpmf.GPSF); ok && gpsf.Value != nil {
		if nums := gpsf.Value.Numbers(); len(nums) > 0 {
			p.HasFix = true
			p.Fix = Fix(nums[0])
		}
	}
	if gpsp, ok := strm.FindDirect(gpmf.GPSP); ok && gpsp.Value != nil {
		if nums := gpsp.Value.Numbers(); len(nums) > 0 {
			p.HasDOP = true
			p.DOP = nums[0] / 100.0
		}
	}
	if strm.Time != nil {
		p.HasTimestamp = true
		p.Timestamp = *strm.Time
	}

	return p, true
}

// columnScale reads SCAL and broadcasts it to n columns, the same
// broadcast rule the value normalizer applies (§4.4): a single SCAL value
// applies to every column, a zero entry is treated as 1.0, and a missing
// SCAL atom means no scaling.
func columnScale(strm gpmf.Stream, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0
	}
	scal, ok := strm.FindDirect(gpmf.SCAL)
	if !ok || scal.Value == nil {
		return out
	}
	values := scal.Value.Numbers()
	if len(values) == 0 {
		return out
	}
	for i := range out {
		var v float64
		switch {
		case len(values) == 1:
			v = values[0]
		case i < len(values):
			v = values[i]
		default:
			v = 1.0
		}
		if v == 0 {
			v = 1.0
		}
		out[i] = v
	}
	return out
}
