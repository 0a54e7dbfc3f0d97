// Package sensor converts GPMF ACCL/GYRO/GRAV streams into axis-corrected,
// scaled 3-axis samples, applying the device's ORIN orientation
// permutation.
package sensor

import (
	"gopmf/pkg/gpmf"
)

// Kind identifies which 3-axis sensor a batch of Samples came from.
type Kind int

// Sensor kinds.
const (
	KindAccelerometer Kind = iota
	KindGyroscope
	KindGravity
)

func (k Kind) fourcc() gpmf.FourCC {
	switch k {
	case KindAccelerometer:
		return gpmf.ACCL
	case KindGyroscope:
		return gpmf.GYRO
	case KindGravity:
		return gpmf.GRAV
	default:
		return gpmf.FourCC{}
	}
}

// Sample is one axis-corrected, scaled reading.
type Sample struct {
	X, Y, Z float64
}

// Data is a batch of Samples sharing a device, orientation, unit, and
// sample timing.
type Data struct {
	Kind        Kind
	Unit        string
	Orientation string
	Samples     []Sample
	Time        *gpmf.Timestamp
}

// defaultOrientation is used when a STRM has no ORIN atom (§4.6).
const defaultOrientation = "XZY"

// permute applies the fixed ORIN input-to-output permutation table
// (§4.6). Any token outside the six listed here fails the row (ok=false),
// matching "Any other token fails the field (row skipped)".
func permute(orin string, a0, a1, a2 float64) (x, y, z float64, ok bool) {
	switch orin {
	case "XYZ":
		return a0, a1, a2, true
	case "XZY":
		return a0, a2, a1, true
	case "YZX":
		return a2, a0, a1, true
	case "YXZ":
		return a1, a0, a2, true
	case "ZXY":
		return a1, a2, a0, true
	case "ZYX":
		return a2, a1, a0, true
	default:
		return 0, 0, 0, false
	}
}

// FromStream decodes one STRM's sensor data atom (ACCL/GYRO/GRAV) into a
// Data batch: single-valued SCAL, ORIN axis permutation (defaulting to
// XZY when absent), and SIUN units (§4.6).
func FromStream(strm gpmf.Stream, kind Kind) (Data, bool) {
	dataNode, ok := strm.FindDirect(kind.fourcc())
	if !ok || dataNode.Value == nil {
		return Data{}, false
	}
	raw := dataNode.Value.Numbers()
	if len(raw) == 0 || len(raw)%3 != 0 {
		return Data{}, false
	}

	scale := 1.0
	if scal, ok := strm.FindDirect(gpmf.SCAL); ok && scal.Value != nil {
		if nums := scal.Value.Numbers(); len(nums) > 0 {
			scale = nums[0]
			if scale == 0 {
				scale = 1.0
			}
		}
	}

	orientation := defaultOrientation
	if orin, ok := strm.FindDirect(gpmf.ORIN); ok && orin.Value != nil && len(orin.Value.Elements) > 0 {
		orientation = orin.Value.Elements[0].Str
	}

	unit := ""
	if siun, ok := strm.FindDirect(gpmf.SIUN); ok && siun.Value != nil && len(siun.Value.Elements) > 0 {
		unit = siun.Value.Elements[0].Str
	}

	rows := len(raw) / 3
	samples := make([]Sample, 0, rows)
	for r := 0; r < rows; r++ {
		a0, a1, a2 := raw[r*3], raw[r*3+1], raw[r*3+2]
		x, y, z, ok := permute(orientation, a0, a1, a2)
		if !ok {
			continue
		}
		samples = append(samples, Sample{X: x / scale, Y: y / scale, Z: z / scale})
	}

	return Data{
		Kind:        kind,
		Unit:        unit,
		Orientation: orientation,
		Samples:     samples,
		Time:        strm.Time,
	}, true
}
