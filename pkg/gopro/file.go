package gopro

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopmf/pkg/cache"
	"gopmf/pkg/fingerprint"
	"gopmf/pkg/gpmf"
	"gopmf/pkg/video/mp4"
)

// highResThresholdWidth and highResThresholdHeight are the resolution
// floor above which a track counts as "high-res" (§4.7).
const (
	highResThresholdWidth  = 1920
	highResThresholdHeight = 1080
)

const (
	handlerGPMF = "GoPro MET"
	handlerTmcd = "GoPro TCD"
)

// mp4Reader is the subset of *mp4.Mp4's behavior a clip descriptor needs,
// named here so this package depends on a shape rather than the concrete
// mp4 type — the teacher's dependency-injection-for-testability pattern
// (e.g. sysstat.Reporter's cpuFunc/ramFunc fields).
type mp4Reader interface {
	Resolution() (int, int)
	Time() (time.Time, time.Duration)
	FindUserData(fourcc gpmf.FourCC) ([]byte, error)
	Track(handlerName string) (*mp4.Track, error)
	Tmcd(handlerName string) (uint32, uint32, error)
	ReadSample(mp4.SampleOffset) ([]byte, error)
	ReadMdatHead(n int) ([]byte, error)
	Close() error
}

// Clip is one physical recording, possibly spread across a high-res .MP4
// and a matching low-res .LRV sharing the same GPMF fingerprint.
type Clip struct {
	Fingerprint fingerprint.Digest
	Device      DeviceName
	Meta        GoProMeta

	HighResPath string
	LowResPath  string

	Created  time.Time
	Duration time.Duration
	HighRes  bool // width/height >= 1920x1080

	// TimeOfDay is the duration since midnight of the clip's first frame
	// (from the "GoPro TCD" track), the primary session sort key (§4.7).
	TimeOfDay time.Duration

	// Debug, when true, tolerates a truncated GPMF sample as a partial
	// result instead of aborting GPMF()/Parse() (§7).
	Debug bool
}

// SessionKey returns the grouping key §4.8 step 4 uses to partition clips
// into sessions: MUID for Hero 11/12/13, GUMI otherwise.
func (c *Clip) SessionKey() (interface{}, error) {
	if usesMuidGrouping(c.Device) {
		if !c.Meta.HasMUID {
			return nil, gpmf.NewError(gpmf.KindNoMuid, "device requires MUID for session grouping")
		}
		return c.Meta.MUID, nil
	}
	if !c.Meta.HasGUMI {
		return nil, gpmf.NewError(gpmf.KindNoGumi, "device requires GUMI for session grouping")
	}
	return c.Meta.GUMI, nil
}

// NewClip builds a Clip descriptor from an opened MP4/LRV file (§4.7).
func NewClip(path string, m mp4Reader) (*Clip, error) {
	return newClip(path, m, nil)
}

// newClip is NewClip's implementation, with an optional known fingerprint
// (from pkg/cache) that lets the caller skip reading the first GPMF
// sample purely to hash it.
func newClip(path string, m mp4Reader, knownFingerprint *fingerprint.Digest) (*Clip, error) {
	created, duration := m.Time()
	width, height := m.Resolution()

	clip := &Clip{
		Created:  created,
		Duration: duration,
		HighRes:  width >= highResThresholdWidth && height >= highResThresholdHeight,
	}

	clip.Meta = parseMeta(m)
	clip.Device = resolveDevice(m, clip.Meta)

	met, err := m.Track(handlerGPMF)
	if err != nil {
		return nil, err
	}
	if len(met.Samples) == 0 {
		return nil, gpmf.NewError(gpmf.KindNoData, "GoPro MET track has no samples").WithPath(path)
	}

	if knownFingerprint != nil {
		clip.Fingerprint = *knownFingerprint
	} else {
		firstSample, err := m.ReadSample(met.Samples[0])
		if err != nil {
			return nil, err
		}
		clip.Fingerprint = fingerprint.OfBytes(firstSample)
	}

	if raw, fps, err := m.Tmcd(handlerTmcd); err == nil && fps != 0 {
		clip.TimeOfDay = time.Duration(raw) * time.Second / time.Duration(fps)
	}

	clip.setPath(path)
	return clip, nil
}

// resolveDevice resolves the camera model: FIRM field first, falling back
// to the legacy "GPRO" mdat marker and its 3-character firmware prefix
// (§4.7).
func resolveDevice(m mp4Reader, meta GoProMeta) DeviceName {
	if meta.Firmware != "" && len(meta.Firmware) >= 3 {
		return DeviceFromFirmwarePrefix(meta.Firmware[:3])
	}

	head, err := m.ReadMdatHead(64)
	if err != nil {
		return DeviceUnknown
	}
	idx := strings.Index(string(head), "GPRO")
	if idx < 0 || idx+7 > len(head) {
		return DeviceUnknown
	}
	return DeviceFromFirmwarePrefix(string(head[idx+4 : idx+7]))
}

// setPath fills the high-res or low-res slot based on the file extension
// (§4.7: ".mp4" vs ".lrv").
func (c *Clip) setPath(path string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lrv":
		c.LowResPath = path
	default:
		c.HighResPath = path
	}
}

// Merge combines two descriptors for the same physical recording
// (identical fingerprint): path slots accumulate, and the non-zero GUMI
// wins since newer devices report [0,0,0,0] for the first low-res clip
// (§4.7). Differing fingerprints fail with FingerprintMismatch.
func (c *Clip) Merge(other *Clip) error {
	if c.Fingerprint != other.Fingerprint {
		return gpmf.NewError(gpmf.KindFingerprintMismatch, "clips do not share a fingerprint")
	}
	if other.HighResPath != "" {
		c.HighResPath = other.HighResPath
	}
	if other.LowResPath != "" {
		c.LowResPath = other.LowResPath
	}
	if !c.Meta.HasGUMI || isZeroGUMI(c.Meta.GUMI) {
		if other.Meta.HasGUMI && !isZeroGUMI(other.Meta.GUMI) {
			c.Meta.GUMI = other.Meta.GUMI
			c.Meta.HasGUMI = true
		}
	}
	if !c.Meta.HasMUID && other.Meta.HasMUID {
		c.Meta.MUID = other.Meta.MUID
		c.Meta.HasMUID = true
	}
	return nil
}

func isZeroGUMI(g [4]uint32) bool {
	return g == [4]uint32{}
}

// openMp4 adapts mp4.Open to the mp4Reader interface.
func openMp4(path string) (mp4Reader, error) {
	return mp4.Open(path)
}

// OpenClip opens path, builds its Clip descriptor, and closes the file
// again — the entry point the session builder's directory walk uses for
// each candidate.
func OpenClip(path string) (*Clip, error) {
	m, err := mp4.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	return NewClip(path, m)
}

// OpenClipCached is OpenClip, consulting fp for a fingerprint computed on
// a previous run before falling back to reading the first GPMF sample,
// and recording the result back into fp afterward.
func OpenClipCached(path string, fp *cache.Cache) (*Clip, error) {
	info, statErr := os.Stat(path)

	m, err := mp4.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	var known *fingerprint.Digest
	if statErr == nil {
		if digest, ok := fp.Lookup(path, info.ModTime(), info.Size()); ok {
			known = &digest
		}
	}

	clip, err := newClip(path, m, known)
	if err != nil {
		return nil, err
	}

	if statErr == nil && known == nil {
		_ = fp.Store(path, clip.Fingerprint, info.ModTime(), info.Size())
	}
	return clip, nil
}

// GPMF opens whichever path slot is available (preferring high-res) and
// parses its GoPro MET track into one Stream per sample.
func (c *Clip) GPMF(open func(string) (mp4Reader, error)) ([]gpmf.Stream, error) {
	path := c.HighResPath
	if path == "" {
		path = c.LowResPath
	}
	if path == "" {
		return nil, gpmf.NewError(gpmf.KindPathNotSet, "clip has no path set")
	}

	m, err := open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	track, err := m.Track(handlerGPMF)
	if err != nil {
		return nil, err
	}

	var out []gpmf.Stream
	for _, s := range track.Samples {
		data, err := m.ReadSample(s)
		if err != nil {
			return nil, err
		}
		streams, err := gpmf.Parse(data, gpmf.Options{Debug: c.Debug})
		if err != nil {
			return nil, err
		}
		ts := gpmf.NewTimestamp(s.Relative, s.Duration)
		for i := range streams {
			gpmf.PropagateTimestamp(&streams[i], ts)
		}
		out = append(out, streams...)
	}
	return out, nil
}

// Parse is a convenience wrapper around GPMF using the real mp4.Open
// collaborator.
func (c *Clip) Parse() ([]gpmf.Stream, error) {
	return c.GPMF(openMp4)
}
