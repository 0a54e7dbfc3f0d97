// Package gps converts GPMF GPS5 (legacy, per-cluster) and GPS9 (modern,
// per-point) streams into a uniform Point type, and provides the
// antimeridian-safe averaging and fix/DOP pruning operations used to
// summarize a clip's GPS log.
package gps

import (
	"time"

	"gopmf/pkg/gpmf"
)

// Fix is a GPS satellite lock quality, as reported in GPSF/GPS9 column 8.
type Fix int

// Fix values, per the wire format.
const (
	FixNone Fix = 0
	Fix2D   Fix = 2
	Fix3D   Fix = 3
)

// Point is one GPS fix, in either its cluster-averaged (GPS5) or
// per-row (GPS9) form.
type Point struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Speed2D   float64
	Speed3D   float64
	DateTime  time.Time

	HasDOP bool
	DOP    float64
	HasFix bool
	Fix    Fix

	HasTimestamp bool
	Timestamp    gpmf.Timestamp
}

// Log is an ordered sequence of Points, the concatenation of per-STRM
// outputs across all DEVC samples of a clip, in stream order (§4.5).
type Log []Point

// Prune retains points satisfying fix >= minFix && dop <= maxDOP. Points
// lacking a fix or DOP value pass the corresponding filter unconditionally
// (there is nothing to disqualify them on). Returns the pruned log and the
// count of points removed.
func (l Log) Prune(minFix Fix, maxDOP float64) (Log, int) {
	out := make(Log, 0, len(l))
	removed := 0
	for _, p := range l {
		if p.HasFix && p.Fix < minFix {
			removed++
			continue
		}
		if p.HasDOP && p.DOP > maxDOP {
			removed++
			continue
		}
		out = append(out, p)
	}
	return out, removed
}

// T0 returns the datetime of the first point whose fix is at least
// minFix, minus that point's relative timestamp — the clip's GPS-derived
// start-of-recording instant.
func (l Log) T0(minFix Fix) (time.Time, bool) {
	for _, p := range l {
		if p.HasFix && p.Fix < minFix {
			continue
		}
		if !p.HasTimestamp {
			continue
		}
		return p.DateTime.Add(-time.Duration(p.Timestamp.Relative) * time.Millisecond), true
	}
	return time.Time{}, false
}
