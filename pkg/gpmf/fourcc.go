package gpmf

// FourCC is a four-byte ASCII atom tag. It never loses bytes: unlike an
// enum with a wrapped "Other" variant, an unrecognized tag is simply a
// FourCC whose Known() reports false, and its String() still round-trips
// the original four bytes.
type FourCC [4]byte

// Invalid is the four-NUL-byte sentinel that terminates a GPMF container
// early, used as MP4 udta padding.
var Invalid = FourCC{0, 0, 0, 0}

// ParseFourCC reads a FourCC from the first 4 bytes of b.
func ParseFourCC(b []byte) FourCC {
	var f FourCC
	copy(f[:], b)
	return f
}

// FourCCFromString builds a FourCC from a (possibly shorter than 4 byte)
// ASCII string, right-padding with spaces the way MP4 box types usually do.
func FourCCFromString(s string) FourCC {
	var f FourCC
	for i := range f {
		if i < len(s) {
			f[i] = s[i]
		} else {
			f[i] = ' '
		}
	}
	return f
}

func (f FourCC) String() string {
	return string(f[:])
}

// IsInvalid reports whether f is the all-NUL padding sentinel.
func (f FourCC) IsInvalid() bool {
	return f == Invalid
}

// Well-known structural FourCCs.
var (
	DEVC = FourCCFromString("DEVC")
	STRM = FourCCFromString("STRM")
	STNM = FourCCFromString("STNM")
	DVNM = FourCCFromString("DVNM")
	DVID = FourCCFromString("DVID")
	SCAL = FourCCFromString("SCAL")
	SIUN = FourCCFromString("SIUN")
	UNIT = FourCCFromString("UNIT")
	TYPE = FourCCFromString("TYPE")
	TSMP = FourCCFromString("TSMP")
	TIMO = FourCCFromString("TIMO")
	EMPT = FourCCFromString("EMPT")
	RMRK = FourCCFromString("RMRK")
)

// Well-known domain FourCCs.
var (
	GPS5 = FourCCFromString("GPS5")
	GPS9 = FourCCFromString("GPS9")
	GPSU = FourCCFromString("GPSU")
	GPSF = FourCCFromString("GPSF")
	GPSP = FourCCFromString("GPSP")
	GPSA = FourCCFromString("GPSA")
	ACCL = FourCCFromString("ACCL")
	GYRO = FourCCFromString("GYRO")
	GRAV = FourCCFromString("GRAV")
	ORIN = FourCCFromString("ORIN")
	MAGN = FourCCFromString("MAGN")
	CORI = FourCCFromString("CORI")
	IORI = FourCCFromString("IORI")
	SHUT = FourCCFromString("SHUT")
	ISOE = FourCCFromString("ISOE")
	ISOG = FourCCFromString("ISOG")
	WBAL = FourCCFromString("WBAL")
	WRGB = FourCCFromString("WRGB")
	FACE = FourCCFromString("FACE")
	HUES = FourCCFromString("HUES")
	SCEN = FourCCFromString("SCEN")
	SROT = FourCCFromString("SROT")
	STMP = FourCCFromString("STMP")
	UNIF = FourCCFromString("UNIF")
	YAVG = FourCCFromString("YAVG")
	MWET = FourCCFromString("MWET")
	WNDM = FourCCFromString("WNDM")
	AALP = FourCCFromString("AALP")
	ALLD = FourCCFromString("ALLD")
	LSKP = FourCCFromString("LSKP")
	MSKP = FourCCFromString("MSKP")
	DISP = FourCCFromString("DISP")
	FCNM = FourCCFromString("FCNM")
)

// Well-known MP4 user-data (udta) FourCCs.
var (
	FIRM = FourCCFromString("FIRM")
	LENS = FourCCFromString("LENS")
	CAME = FourCCFromString("CAME")
	SETT = FourCCFromString("SETT")
	AMBA = FourCCFromString("AMBA")
	MUID = FourCCFromString("MUID")
	HMMT = FourCCFromString("HMMT")
	BCID = FourCCFromString("BCID")
	GUMI = FourCCFromString("GUMI")
	MINF = FourCCFromString("MINF")
	GPMF = FourCCFromString("GPMF")
)

var wellKnown = buildWellKnown()

func buildWellKnown() map[FourCC]struct{} {
	all := []FourCC{
		DEVC, STRM, STNM, DVNM, DVID, SCAL, SIUN, UNIT, TYPE, TSMP, TIMO, EMPT, RMRK,
		GPS5, GPS9, GPSU, GPSF, GPSP, GPSA, ACCL, GYRO, GRAV, ORIN, MAGN, CORI, IORI,
		SHUT, ISOE, ISOG, WBAL, WRGB, FACE, HUES, SCEN, SROT, STMP, UNIF, YAVG, MWET,
		WNDM, AALP, ALLD, LSKP, MSKP, DISP, FCNM,
		FIRM, LENS, CAME, SETT, AMBA, MUID, HMMT, BCID, GUMI, MINF, GPMF,
	}
	m := make(map[FourCC]struct{}, len(all))
	for _, f := range all {
		m[f] = struct{}{}
	}
	return m
}

// Known reports whether f is one of the well-known GPMF/MP4 tags this
// registry recognizes. Unknown tags are still fully usable FourCC values —
// Known only affects diagnostics, never parsing.
func (f FourCC) Known() bool {
	_, ok := wellKnown[f]
	return ok
}
