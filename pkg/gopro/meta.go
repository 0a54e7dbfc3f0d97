package gopro

import (
	"encoding/binary"

	"gopmf/pkg/gpmf"
)

// GoProMeta is the parsed udta atom: a handful of well-known fields plus
// the raw (FourCC, body) pairs for anything this tree doesn't interpret,
// and — on Hero6 and later — an embedded GPMF section nested directly
// inside udta under the GPMF FourCC.
type GoProMeta struct {
	Firmware string
	Camera   string // CAME atom, the device serial
	MUID     [8]uint32
	HasMUID  bool
	GUMI     [4]uint32
	HasGUMI  bool
	Raw      map[gpmf.FourCC][]byte
	Embedded []gpmf.Stream // udta/GPMF, when present
}

// userDataSource is satisfied by *mp4.Mp4; kept as an interface here so
// this package depends only on the method shape it needs, not on the mp4
// package's concrete type.
type userDataSource interface {
	FindUserData(fourcc gpmf.FourCC) ([]byte, error)
}

// parseMeta reads the well-known udta atoms off src and assembles a
// GoProMeta. Absence of any individual atom is not an error here — the
// clip descriptor decides which ones are mandatory for a given device.
func parseMeta(src userDataSource) GoProMeta {
	meta := GoProMeta{Raw: map[gpmf.FourCC][]byte{}}

	if firm, err := src.FindUserData(gpmf.FIRM); err == nil {
		meta.Firmware = trimNUL(firm)
	}
	if came, err := src.FindUserData(gpmf.CAME); err == nil {
		meta.Camera = trimNUL(came)
	}
	if muid, err := src.FindUserData(gpmf.MUID); err == nil {
		if words, ok := decodeU32LE(muid, 8); ok {
			copy(meta.MUID[:], words)
			meta.HasMUID = true
		}
	}
	if gumi, err := src.FindUserData(gpmf.GUMI); err == nil {
		if words, ok := decodeU32BE(gumi, 4); ok {
			copy(meta.GUMI[:], words)
			meta.HasGUMI = true
		}
	}
	if raw, err := src.FindUserData(gpmf.GPMF); err == nil {
		if streams, err := gpmf.Parse(raw, gpmf.Options{}); err == nil {
			meta.Embedded = streams
		}
	}

	for _, fourcc := range []gpmf.FourCC{gpmf.LENS, gpmf.SETT, gpmf.AMBA, gpmf.HMMT, gpmf.BCID, gpmf.MINF} {
		if body, err := src.FindUserData(fourcc); err == nil {
			meta.Raw[fourcc] = body
		}
	}

	return meta
}

// decodeU32LE reads n consecutive little-endian u32 words, the on-disk
// layout MUID uses (§6: "8×u32 little-endian on disk, an accepted
// implementation quirk").
func decodeU32LE(b []byte, n int) ([]uint32, bool) {
	if len(b) < n*4 {
		return nil, false
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, true
}

// decodeU32BE reads n consecutive big-endian u32 words, the default wire
// order for everything except MUID.
func decodeU32BE(b []byte, n int) ([]uint32, bool) {
	if len(b) < n*4 {
		return nil, false
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(b[i*4:])
	}
	return out, true
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
