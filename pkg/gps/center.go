package gps

import "math"

// Center computes a single representative Point for an arbitrary list of
// points: latitude is averaged arithmetically in radians and converted
// back; longitude is averaged circularly via atan2(mean(sin λ), mean(cos
// λ)) so that points straddling the antimeridian (±180°) don't average
// toward 0° (§4.5). The representative datetime is the first point's
// datetime; the representative duration is the sum of member durations.
// Center([p]) == p for any single point (property 7).
func Center(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	if len(points) == 1 {
		return points[0], true
	}

	var latSum, sinSum, cosSum, altSum, spd2Sum, spd3Sum float64
	var dopSum float64
	dopCount := 0
	var fixMin Fix
	hasFix := false
	var totalDuration uint32
	var minRelative uint32
	hasTimestamp := false

	for _, p := range points {
		latSum += p.Latitude * math.Pi / 180
		lonRad := p.Longitude * math.Pi / 180
		sinSum += math.Sin(lonRad)
		cosSum += math.Cos(lonRad)
		altSum += p.Altitude
		spd2Sum += p.Speed2D
		spd3Sum += p.Speed3D

		if p.HasDOP {
			dopSum += p.DOP
			dopCount++
		}
		if p.HasFix {
			if !hasFix || p.Fix < fixMin {
				fixMin = p.Fix
			}
			hasFix = true
		}
		if p.HasTimestamp {
			totalDuration += p.Timestamp.Duration
			if !hasTimestamp || p.Timestamp.Relative < minRelative {
				minRelative = p.Timestamp.Relative
			}
			hasTimestamp = true
		}
	}

	n := float64(len(points))
	latMean := latSum / n * 180 / math.Pi
	lonMean := math.Atan2(sinSum/n, cosSum/n) * 180 / math.Pi

	out := Point{
		Latitude:  latMean,
		Longitude: lonMean,
		Altitude:  altSum / n,
		Speed2D:   spd2Sum / n,
		Speed3D:   spd3Sum / n,
		DateTime:  points[0].DateTime,
	}
	if dopCount > 0 {
		out.HasDOP = true
		out.DOP = dopSum / float64(dopCount)
	}
	if hasFix {
		out.HasFix = true
		out.Fix = fixMin
	}
	if hasTimestamp {
		out.HasTimestamp = true
		out.Timestamp.Relative = minRelative
		out.Timestamp.Duration = totalDuration
	}

	return out, true
}
