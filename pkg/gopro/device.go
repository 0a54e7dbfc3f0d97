// Package gopro turns opened MP4/LRV files into clip descriptors and
// groups clips into recording sessions, the way GoPro's own Quik/Labs
// tooling reconstructs a multi-file "chaptered" recording.
package gopro

import "gopmf/pkg/gpmf"

// DeviceName is the closed enum of GoPro camera models this tree
// recognizes, with an open "Unknown" tail for anything else (§9: closed
// enum with open tail).
type DeviceName int

// Recognized device names.
const (
	DeviceUnknown DeviceName = iota
	DeviceHero5Black
	DeviceHero6Black
	DeviceHero7Black
	DeviceHero8Black
	DeviceHero9Black
	DeviceHero10Black
	DeviceHero11Black
	DeviceHero12Black
	DeviceHero13Black
	DeviceFusion
	DeviceGoProMax
	DeviceGoProKarma
)

func (d DeviceName) String() string {
	switch d {
	case DeviceHero5Black:
		return "HERO5 Black"
	case DeviceHero6Black:
		return "HERO6 Black"
	case DeviceHero7Black:
		return "HERO7 Black"
	case DeviceHero8Black:
		return "HERO8 Black"
	case DeviceHero9Black:
		return "HERO9 Black"
	case DeviceHero10Black:
		return "HERO10 Black"
	case DeviceHero11Black:
		return "HERO11 Black"
	case DeviceHero12Black:
		return "HERO12 Black"
	case DeviceHero13Black:
		return "HERO13 Black"
	case DeviceFusion:
		return "Fusion"
	case DeviceGoProMax:
		return "GoPro MAX"
	case DeviceGoProKarma:
		return "GoPro Karma"
	default:
		return "Unknown"
	}
}

// firmwarePrefixes maps the 3-character prefix of a camera's firmware
// string (as carried in the udta FIRM atom, or after the GPRO marker in
// older files) to a device name.
//
// The HERO13 mapping ("H24") is not documented anywhere upstream; this
// tree makes the documented choice of continuing the Hxx sequence one
// step past HERO12's "H23" rather than guessing silently (see DESIGN.md).
var firmwarePrefixes = map[string]DeviceName{
	"HD5": DeviceHero5Black,
	"HD6": DeviceHero6Black,
	"HD7": DeviceHero7Black,
	"HD8": DeviceHero8Black,
	"HD9": DeviceHero9Black,
	"H19": DeviceHero9Black,
	"H20": DeviceHero10Black,
	"H21": DeviceHero11Black,
	"H22": DeviceHero11Black,
	"H23": DeviceHero12Black,
	"H24": DeviceHero13Black,
	"FS1": DeviceFusion,
}

// DeviceFromFirmwarePrefix resolves a 3-character firmware prefix to a
// device name, returning DeviceUnknown for anything not in the table
// (§4.7: "unknown prefix yields Unknown").
func DeviceFromFirmwarePrefix(prefix string) DeviceName {
	if d, ok := firmwarePrefixes[prefix]; ok {
		return d
	}
	return DeviceUnknown
}

// usesMuidGrouping reports whether a device's session-grouping key is MUID
// (Hero 11/12/13) rather than GUMI (every other supported device, §4.8
// step 4 and §6's identifier-semantics table).
func usesMuidGrouping(d DeviceName) bool {
	switch d {
	case DeviceHero11Black, DeviceHero12Black, DeviceHero13Black:
		return true
	default:
		return false
	}
}

// DvidKind distinguishes the two shapes a DVID atom can take on disk.
type DvidKind int

// Dvid variants.
const (
	DvidNumber DvidKind = iota
	DvidFourCC
)

// Dvid is a device/track identifier: most devices report a numeric DVID,
// but some older firmwares report a bare FourCC instead.
type Dvid struct {
	Kind   DvidKind
	Number uint32
	FourCC gpmf.FourCC
}
