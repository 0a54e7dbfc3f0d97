package gps

import (
	"math"
	"time"

	"gopmf/pkg/gpmf"
)

const gps9Columns = 9

// gps9Epoch is the GPS9 day/second reference instant (§9: the default
// GoPro epoch, 2000-01-01 00:00, used when no other day-count base is
// given in the stream).
var gps9Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// FromGPS9 extracts one Point per row from a STRM carrying a modern GPS9
// stream: 9 columns (lat, lon, alt, speed2d, speed3d, days-since-epoch,
// seconds-of-day, DOP, fix) per row, and gives each row a fractional
// timestamp derived from the enclosing STRM's (relative, duration) (§4.5,
// property 6: row i of N gets (relative + round(i*duration/N),
// round(duration/N))).
func FromGPS9(strm gpmf.Stream) ([]Point, bool) {
	dataNode, ok := strm.FindDirect(gpmf.GPS9)
	if !ok || dataNode.Value == nil {
		return nil, false
	}
	raw := dataNode.Value.Numbers()
	if len(raw) == 0 || len(raw)%gps9Columns != 0 {
		return nil, false
	}
	rows := len(raw) / gps9Columns

	scale := columnScale(strm, gps9Columns)

	points := make([]Point, rows)
	for r := 0; r < rows; r++ {
		row := raw[r*gps9Columns : (r+1)*gps9Columns]

		p := Point{
			Latitude:  row[0] / scale[0],
			Longitude: row[1] / scale[1],
			Altitude:  row[2] / scale[2],
			Speed2D:   row[3] / scale[3],
			Speed3D:   row[4] / scale[4],
		}

		days := row[5] / scale[5]
		seconds := row[6] / scale[6]
		p.DateTime = gps9Epoch.Add(time.Duration(days) * 24 * time.Hour).
			Add(time.Duration(seconds * float64(time.Second)))

		p.HasDOP = true
		p.DOP = row[7] / scale[7]
		p.HasFix = true
		p.Fix = Fix(row[8] / scale[8])

		if strm.Time != nil {
			relStep := int(math.Round(float64(strm.Time.Duration) * float64(r) / float64(rows)))
			durStep := int(math.Round(float64(strm.Time.Duration) / float64(rows)))
			p.HasTimestamp = true
			p.Timestamp = gpmf.NewTimestamp(
				strm.Time.Relative+uint32(relStep),
				uint32(durStep),
			)
		}

		points[r] = p
	}

	return points, true
}
