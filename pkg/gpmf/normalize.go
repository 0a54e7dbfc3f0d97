package gpmf

// Normalized carries a STRM's scale-applied, unit-attached data: the
// scaled numeric values, the divisor actually applied per element, and the
// unit string if present.
type Normalized struct {
	Values  []float64
	Divisor []float64
	Unit    string
}

// Scale reads the sibling SCAL atom of strm (a STRM node) and returns the
// divisor to apply to each element of data, broadcasting a single SCAL
// value across all of them. A missing SCAL yields a divisor of 1.0 per
// element. A zero SCAL entry is replaced by 1.0 (§4.4, §9: explicit design
// decision, not a bug — callers may inspect the raw SCAL themselves).
func Scale(strm Stream, dataLen int) []float64 {
	divisor := make([]float64, dataLen)
	for i := range divisor {
		divisor[i] = 1.0
	}

	scal, ok := strm.FindDirect(SCAL)
	if !ok || scal.Value == nil {
		return divisor
	}

	scalValues := scal.Value.Numbers()
	if len(scalValues) == 0 {
		return divisor
	}

	for i := range divisor {
		var v float64
		if len(scalValues) == 1 {
			v = scalValues[0]
		} else if i < len(scalValues) {
			v = scalValues[i]
		} else {
			v = 1.0
		}
		if v == 0 {
			v = 1.0
		}
		divisor[i] = v
	}
	return divisor
}

// Unit reads SIUN (preferred) or UNIT from the direct children of strm.
func Unit(strm Stream) string {
	if siun, ok := strm.FindDirect(SIUN); ok && siun.Value != nil && len(siun.Value.Elements) > 0 {
		return siun.Value.Elements[0].Str
	}
	if unit, ok := strm.FindDirect(UNIT); ok && unit.Value != nil && len(unit.Value.Elements) > 0 {
		return unit.Value.Elements[0].Str
	}
	return ""
}

// Normalize applies Scale to the numeric elements of a STRM's own data
// atom (found by matching fourcc among its direct children) and attaches
// its unit string. If the data atom is absent or non-numeric, ok is false.
func Normalize(strm Stream, dataFourCC FourCC) (Normalized, bool) {
	data, ok := strm.FindDirect(dataFourCC)
	if !ok || data.Value == nil {
		return Normalized{}, false
	}

	raw := data.Value.Numbers()
	if raw == nil {
		return Normalized{}, false
	}

	divisor := Scale(strm, len(raw))
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = v / divisor[i]
	}

	return Normalized{
		Values:  out,
		Divisor: divisor,
		Unit:    Unit(strm),
	}, true
}

// PropagateTimestamp walks dev (a parsed DEVC node) and sets Time on every
// descendant node (each STRM and each of its data atoms) to the
// sample-level timestamp assigned to dev (§4.4 step 4). The DEVC node
// itself is also stamped, so callers can read a sample's timing without
// re-deriving it from the first child.
func PropagateTimestamp(dev *Stream, ts Timestamp) {
	dev.Time = &ts
	for i := range dev.Nested {
		PropagateTimestamp(&dev.Nested[i], ts)
	}
}
