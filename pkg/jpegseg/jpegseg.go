// Package jpegseg locates the GPMF payload GoPro embeds in a JPEG still's
// APP6 application segment, so the same GPMF parser used for MP4 MET
// tracks can decode a single photo's telemetry.
package jpegseg

import (
	"encoding/binary"

	"gopmf/pkg/gpmf"
)

const (
	markerSOI  = 0xFFD8
	markerEOI  = 0xFFD9
	markerSOS  = 0xFFDA
	markerAPP6 = 0xFFE6
)

// goProPrefix is the literal byte prefix GoPro writes at the start of its
// APP6 segment payload, before the GPMF stream itself begins.
var goProPrefix = []byte("GoPro\x00")

// Find walks a JPEG file's marker segments and returns the GPMF payload
// embedded in its APP6 ("GoPro\x00"-prefixed) segment. Returns
// KindNoData if the file has no such segment.
func Find(data []byte) ([]byte, error) {
	if len(data) < 4 || binary.BigEndian.Uint16(data[0:2]) != markerSOI {
		return nil, gpmf.NewError(gpmf.KindInvalidFileType, "not a JPEG file (missing SOI marker)")
	}

	pos := 2
	for pos+4 <= len(data) {
		marker := binary.BigEndian.Uint16(data[pos : pos+2])
		if marker < 0xFFC0 {
			// Not a marker byte (e.g. entropy-coded scan data); stop, GPMF
			// only ever lives in a segment before SOS.
			break
		}
		if marker == markerSOS || marker == markerEOI {
			break
		}

		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return nil, gpmf.NewError(gpmf.KindTruncated, "jpeg segment extends past buffer")
		}
		payload := data[pos+4 : pos+2+segLen]

		if marker == markerAPP6 && hasGoProPrefix(payload) {
			return payload[len(goProPrefix):], nil
		}

		pos += 2 + segLen
	}

	return nil, gpmf.NewError(gpmf.KindNoData, "no GoPro APP6 segment found")
}

func hasGoProPrefix(payload []byte) bool {
	if len(payload) < len(goProPrefix) {
		return false
	}
	for i, b := range goProPrefix {
		if payload[i] != b {
			return false
		}
	}
	return true
}
