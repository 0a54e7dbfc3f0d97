package mp4

import (
	"encoding/binary"
	"os"
	"time"

	"gopmf/pkg/gpmf"
)

// macEpoch is the ISOBMFF/QuickTime date epoch: seconds are counted from
// midnight UTC, January 1st 1904.
var macEpoch = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)

// Zero is the MP4-epoch zero value: a creation/modification time field of
// exactly macEpoch means "unset", not a real 1904 timestamp.
var Zero = macEpoch

type boxHeader struct {
	typ        BoxType
	offset     int64
	bodyOffset int64
	bodySize   int64
}

func readBoxHeader(r *os.File, offset int64) (boxHeader, int64, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], offset); err != nil {
		return boxHeader{}, 0, err
	}
	size := int64(binary.BigEndian.Uint32(hdr[0:4]))
	var typ BoxType
	copy(typ[:], hdr[4:8])
	headerLen := int64(8)
	if size == 1 {
		var ext [8]byte
		if _, err := r.ReadAt(ext[:], offset+8); err != nil {
			return boxHeader{}, 0, err
		}
		size = int64(binary.BigEndian.Uint64(ext[:]))
		headerLen = 16
	}
	if size < headerLen {
		return boxHeader{}, 0, gpmf.NewError(gpmf.KindInvalidFileType, "box with implausible size")
	}
	return boxHeader{
		typ:        typ,
		offset:     offset,
		bodyOffset: offset + headerLen,
		bodySize:   size - headerLen,
	}, offset + size, nil
}

// walkBoxes calls fn for every box in [start,end). fn returns whether to
// recurse into the box's body as a further sequence of boxes.
func walkBoxes(r *os.File, start, end int64, fn func(h boxHeader) (descend bool, err error)) error {
	pos := start
	for pos+8 <= end {
		h, next, err := readBoxHeader(r, pos)
		if err != nil {
			return err
		}
		if next > end {
			break
		}
		descend, err := fn(h)
		if err != nil {
			return err
		}
		if descend {
			if err := walkBoxes(r, h.bodyOffset, h.bodyOffset+h.bodySize, fn); err != nil {
				return err
			}
		}
		pos = next
	}
	return nil
}

func typ(s string) BoxType {
	var t BoxType
	copy(t[:], s)
	return t
}

// SampleOffset describes one sample's byte position and decode timing.
type SampleOffset struct {
	Position uint64
	Size     uint32
	Relative uint32
	Duration uint32
}

// Track is a parsed trak's sample table plus identifying metadata. Name is
// the hdlr box's human-readable handler name (e.g. "GoPro MET", "GoPro
// TCD"), which is how GoPro identifies its metadata and timecode tracks.
type Track struct {
	Name      string
	Timescale uint32
	Width     uint32 // fixed-point 16.16, from tkhd
	Height    uint32 // fixed-point 16.16, from tkhd
	Samples   []SampleOffset
}

// Length returns the number of samples in the track.
func (t *Track) Length() int { return len(t.Samples) }

// Mp4 is an opened, randomly-readable MP4/QuickTime container. It keeps the
// file handle open for on-demand sample reads.
type Mp4 struct {
	path          string
	f             *os.File
	moovStart     int64
	moovEnd       int64
	creationTime  time.Time
	modifiedTime  time.Time
	movieDuration time.Duration
	width, height uint32
	udta          map[gpmf.FourCC][]byte
}

// Open opens path and locates its moov box, reading mvhd (movie-wide
// timing) and the first video track's tkhd (resolution) and udta boxes.
// The file is kept open; callers must call Close.
func Open(path string) (*Mp4, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gpmf.WrapError(gpmf.KindIO, "open mp4", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, gpmf.WrapError(gpmf.KindIO, "stat mp4", err)
	}

	m := &Mp4{path: path, f: f, udta: map[gpmf.FourCC][]byte{}}

	var moovFound bool
	err = walkBoxes(f, 0, info.Size(), func(h boxHeader) (bool, error) {
		if h.typ == typ("moov") {
			moovFound = true
			m.moovStart, m.moovEnd = h.bodyOffset, h.bodyOffset+h.bodySize
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		f.Close()
		return nil, gpmf.WrapError(gpmf.KindInvalidFileType, "walk top-level boxes", err).WithPath(path)
	}
	if !moovFound {
		f.Close()
		return nil, gpmf.NewError(gpmf.KindInvalidFileType, "no moov box").WithPath(path)
	}

	if err := m.readMvhdAndFirstTrak(); err != nil {
		f.Close()
		return nil, err
	}

	return m, nil
}

// Close closes the underlying file handle.
func (m *Mp4) Close() error { return m.f.Close() }

func (m *Mp4) readMvhdAndFirstTrak() error {
	err := walkBoxes(m.f, m.moovStart, m.moovEnd, func(h boxHeader) (bool, error) {
		switch h.typ {
		case typ("mvhd"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			creation, modified, duration, scale, err := decodeMvhdTiming(body)
			if err != nil {
				return false, err
			}
			m.creationTime = creation
			m.modifiedTime = modified
			if scale != 0 {
				m.movieDuration = time.Duration(duration) * time.Second / time.Duration(scale)
			}
			return false, nil
		case typ("trak"):
			return true, nil
		case typ("udta"):
			return true, nil
		case typ("tkhd"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			w, hgt, err := decodeTkhdSize(body)
			if err == nil && m.width == 0 {
				m.width, m.height = w, hgt
			}
			return false, nil
		default:
			if isUdtaLeaf(h.typ) {
				body := make([]byte, h.bodySize)
				if _, err := m.f.ReadAt(body, h.bodyOffset); err == nil {
					m.udta[gpmf.ParseFourCC(h.typ[:])] = body
				}
			}
			return false, nil
		}
	})
	if err != nil {
		return gpmf.WrapError(gpmf.KindInvalidFileType, "walk moov", err).WithPath(m.path)
	}
	return nil
}

// isUdtaLeaf reports whether t is one of the user-data atoms this tree
// cares about — anything else under udta is skipped rather than buffered.
func isUdtaLeaf(t BoxType) bool {
	switch t {
	case typ("FIRM"), typ("LENS"), typ("CAME"), typ("SETT"), typ("AMBA"),
		typ("MUID"), typ("HMMT"), typ("BCID"), typ("GUMI"), typ("MINF"), typ("GPMF"):
		return true
	}
	return false
}

// decodeMvhdTiming reads the fields needed from an mvhd box body, grounded
// on the version-gated field widths used for creation/modification time
// and duration (32-bit for version 0, 64-bit for version 1).
func decodeMvhdTiming(body []byte) (creation, modified time.Time, duration uint64, scale uint32, err error) {
	if len(body) < 4 {
		return time.Time{}, time.Time{}, 0, 0, gpmf.NewError(gpmf.KindInvalidFileType, "mvhd too short")
	}
	version := body[0]
	i := 4
	get64 := func() uint64 {
		if version == 1 {
			v := binary.BigEndian.Uint64(body[i:])
			i += 8
			return v
		}
		v := binary.BigEndian.Uint32(body[i:])
		i += 4
		return uint64(v)
	}
	if version == 1 && len(body) < 32 {
		return time.Time{}, time.Time{}, 0, 0, gpmf.NewError(gpmf.KindInvalidFileType, "mvhd v1 too short")
	}
	creationSecs := get64()
	modifiedSecs := get64()
	scale = binary.BigEndian.Uint32(body[i:])
	i += 4
	duration = get64()
	creation = macEpoch.Add(time.Duration(creationSecs) * time.Second)
	modified = macEpoch.Add(time.Duration(modifiedSecs) * time.Second)
	return creation, modified, duration, scale, nil
}

// decodeTkhdSize reads only the width/height fixed-point fields from a tkhd
// box body, skipping over the version-gated time/duration fields.
func decodeTkhdSize(body []byte) (width, height uint32, err error) {
	if len(body) < 4 {
		return 0, 0, gpmf.NewError(gpmf.KindInvalidFileType, "tkhd too short")
	}
	version := body[0]
	i := 4
	if version == 1 {
		i += 8 + 8 + 4 + 4 + 8 // creation, modified, trackID, reserved, duration
	} else {
		i += 4 + 4 + 4 + 4 + 4
	}
	i += 8 // reserved1
	i += 2 + 2 + 2 + 2
	i += 9 * 4 // matrix
	if i+8 > len(body) {
		return 0, 0, gpmf.NewError(gpmf.KindInvalidFileType, "tkhd too short for size fields")
	}
	width = binary.BigEndian.Uint32(body[i:])
	height = binary.BigEndian.Uint32(body[i+4:])
	return width, height, nil
}

// Resolution returns the movie's pixel dimensions (from the first track's
// tkhd), truncating the 16.16 fixed-point fields to whole pixels.
func (m *Mp4) Resolution() (width, height int) {
	return int(m.width >> 16), int(m.height >> 16)
}

// Time returns the movie's creation time and duration.
func (m *Mp4) Time() (creation time.Time, duration time.Duration) {
	return m.creationTime, m.movieDuration
}

// FindUserData returns the raw payload of a udta child atom (FIRM, MUID,
// GUMI, CAME, ...), or KindNoData if it isn't present.
func (m *Mp4) FindUserData(fourcc gpmf.FourCC) ([]byte, error) {
	body, ok := m.udta[fourcc]
	if !ok {
		return nil, gpmf.NewError(gpmf.KindNoData, "udta atom "+fourcc.String()+" not present")
	}
	return body, nil
}

// Track locates a trak by its hdlr handler name (e.g. "GoPro MET", "GoPro
// TCD") and builds its full sample table (offsets, sizes, and per-sample
// decode timing) from stco/co64, stsz, and stts.
func (m *Mp4) Track(handlerName string) (*Track, error) {
	var found *Track
	err := walkBoxes(m.f, m.moovStart, m.moovEnd, func(h boxHeader) (bool, error) {
		if found != nil {
			return false, nil
		}
		if h.typ != typ("trak") {
			return false, nil
		}
		track, matched, err := m.tryParseTrak(h, handlerName)
		if err != nil {
			return false, err
		}
		if matched {
			found = track
		}
		return false, nil
	})
	if err != nil {
		return nil, gpmf.WrapError(gpmf.KindInvalidFileType, "walk trak", err).WithPath(m.path)
	}
	if found == nil {
		return nil, gpmf.NewError(gpmf.KindNoSuchTrack, "no track with handler "+handlerName).WithPath(m.path)
	}
	return found, nil
}

func (m *Mp4) tryParseTrak(trak boxHeader, handlerName string) (*Track, bool, error) {
	var track Track
	var handler string
	var stcoChunkOffsets []uint64
	var stscEntries []stscEntry
	var sampleSizes []uint32
	var sttsEntries []sttsEntry
	var width, height uint32

	err := walkBoxes(m.f, trak.bodyOffset, trak.bodyOffset+trak.bodySize, func(h boxHeader) (bool, error) {
		switch h.typ {
		case typ("mdia"), typ("minf"), typ("stbl"):
			return true, nil
		case typ("tkhd"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			w, hgt, err := decodeTkhdSize(body)
			if err == nil {
				width, height = w, hgt
			}
			return false, nil
		case typ("hdlr"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			handler = decodeHdlrName(body)
			return false, nil
		case typ("mdhd"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			if ts, err := decodeMdhdTimescale(body); err == nil {
				track.Timescale = ts
			}
			return false, nil
		case typ("stco"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			stcoChunkOffsets = decodeStco(body)
			return false, nil
		case typ("co64"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			stcoChunkOffsets = decodeCo64(body)
			return false, nil
		case typ("stsc"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			stscEntries = decodeStsc(body)
			return false, nil
		case typ("stsz"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			sampleSizes = decodeStsz(body)
			return false, nil
		case typ("stts"):
			body := make([]byte, h.bodySize)
			if _, err := m.f.ReadAt(body, h.bodyOffset); err != nil {
				return false, err
			}
			sttsEntries = decodeStts(body)
			return false, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, false, err
	}

	if handler != handlerName {
		return nil, false, nil
	}

	track.Name = handler
	track.Width, track.Height = width, height
	track.Samples = buildSampleTable(stcoChunkOffsets, stscEntries, sampleSizes, sttsEntries)
	return &track, true, nil
}

type stscEntry struct {
	firstChunk      uint32
	samplesPerChunk uint32
}

type sttsEntry struct {
	sampleCount uint32
	sampleDelta uint32
}

// decodeHdlrName returns an hdlr box's human-readable Name field (after
// FullBox, pre_defined, the 4-byte handler_type code, and 12 reserved
// bytes), not the generic handler_type itself — GoPro tags its metadata
// and timecode tracks via Name ("GoPro MET", "GoPro TCD"), since
// handler_type is the generic ISOBMFF "meta"/"tmcd".
func decodeHdlrName(body []byte) string {
	if len(body) < 24 {
		return ""
	}
	end := len(body)
	for i := 24; i < len(body); i++ {
		if body[i] == 0 {
			end = i
			break
		}
	}
	return string(body[24:end])
}

func decodeMdhdTimescale(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, gpmf.NewError(gpmf.KindInvalidFileType, "mdhd too short")
	}
	version := body[0]
	i := 4
	if version == 1 {
		i += 16
	} else {
		i += 8
	}
	if i+4 > len(body) {
		return 0, gpmf.NewError(gpmf.KindInvalidFileType, "mdhd too short for timescale")
	}
	return binary.BigEndian.Uint32(body[i:]), nil
}

func decodeStco(body []byte) []uint64 {
	if len(body) < 8 {
		return nil
	}
	count := binary.BigEndian.Uint32(body[4:8])
	out := make([]uint64, 0, count)
	for i := uint32(0); i < count; i++ {
		off := 8 + i*4
		if int(off+4) > len(body) {
			break
		}
		out = append(out, uint64(binary.BigEndian.Uint32(body[off:])))
	}
	return out
}

func decodeCo64(body []byte) []uint64 {
	if len(body) < 8 {
		return nil
	}
	count := binary.BigEndian.Uint32(body[4:8])
	out := make([]uint64, 0, count)
	for i := uint32(0); i < count; i++ {
		off := 8 + i*8
		if int(off+8) > len(body) {
			break
		}
		out = append(out, binary.BigEndian.Uint64(body[off:]))
	}
	return out
}

func decodeStsc(body []byte) []stscEntry {
	if len(body) < 8 {
		return nil
	}
	count := binary.BigEndian.Uint32(body[4:8])
	out := make([]stscEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		off := 8 + i*12
		if int(off+12) > len(body) {
			break
		}
		out = append(out, stscEntry{
			firstChunk:      binary.BigEndian.Uint32(body[off:]),
			samplesPerChunk: binary.BigEndian.Uint32(body[off+4:]),
		})
	}
	return out
}

func decodeStsz(body []byte) []uint32 {
	if len(body) < 12 {
		return nil
	}
	sampleSize := binary.BigEndian.Uint32(body[4:8])
	count := binary.BigEndian.Uint32(body[8:12])
	out := make([]uint32, count)
	if sampleSize != 0 {
		for i := range out {
			out[i] = sampleSize
		}
		return out
	}
	for i := uint32(0); i < count; i++ {
		off := 12 + i*4
		if int(off+4) > len(body) {
			break
		}
		out[i] = binary.BigEndian.Uint32(body[off:])
	}
	return out
}

func decodeStts(body []byte) []sttsEntry {
	if len(body) < 8 {
		return nil
	}
	count := binary.BigEndian.Uint32(body[4:8])
	out := make([]sttsEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		off := 8 + i*8
		if int(off+8) > len(body) {
			break
		}
		out = append(out, sttsEntry{
			sampleCount: binary.BigEndian.Uint32(body[off:]),
			sampleDelta: binary.BigEndian.Uint32(body[off+4:]),
		})
	}
	return out
}

// buildSampleTable reconstructs per-sample byte offsets, sizes, and decode
// timing from the classic stco/stsc chunk-run encoding plus stts's
// run-length delta table, the same reconstruction any ISOBMFF sample-table
// reader performs.
func buildSampleTable(chunkOffsets []uint64, stsc []stscEntry, sizes []uint32, stts []sttsEntry) []SampleOffset {
	if len(chunkOffsets) == 0 || len(sizes) == 0 {
		return nil
	}

	samplesPerChunk := make([]uint32, len(chunkOffsets)+1)
	for i, entry := range stsc {
		end := len(chunkOffsets) + 1
		if i+1 < len(stsc) {
			end = int(stsc[i+1].firstChunk)
		}
		for c := int(entry.firstChunk); c < end && c <= len(chunkOffsets); c++ {
			samplesPerChunk[c] = entry.samplesPerChunk
		}
	}

	out := make([]SampleOffset, 0, len(sizes))
	sampleIdx := 0
	for chunk := 1; chunk <= len(chunkOffsets) && sampleIdx < len(sizes); chunk++ {
		pos := chunkOffsets[chunk-1]
		n := samplesPerChunk[chunk]
		for i := uint32(0); i < n && sampleIdx < len(sizes); i++ {
			out = append(out, SampleOffset{Position: pos, Size: sizes[sampleIdx]})
			pos += uint64(sizes[sampleIdx])
			sampleIdx++
		}
	}

	var relative uint32
	sttsIdx, runRemaining := 0, uint32(0)
	if len(stts) > 0 {
		runRemaining = stts[0].sampleCount
	}
	for i := range out {
		for sttsIdx < len(stts) && runRemaining == 0 {
			sttsIdx++
			if sttsIdx < len(stts) {
				runRemaining = stts[sttsIdx].sampleCount
			}
		}
		delta := uint32(0)
		if sttsIdx < len(stts) {
			delta = stts[sttsIdx].sampleDelta
			runRemaining--
		}
		out[i].Relative = relative
		out[i].Duration = delta
		relative += delta
	}

	return out
}

// ReadMdatHead returns up to n bytes from the start of the file's mdat
// box body, used to locate the legacy "GPRO" firmware marker on devices
// that don't carry a FIRM udta atom.
func (m *Mp4) ReadMdatHead(n int) ([]byte, error) {
	info, err := m.f.Stat()
	if err != nil {
		return nil, gpmf.WrapError(gpmf.KindIO, "stat mp4", err)
	}

	var body []byte
	err = walkBoxes(m.f, 0, info.Size(), func(h boxHeader) (bool, error) {
		if body != nil || h.typ != typ("mdat") {
			return false, nil
		}
		size := n
		if int64(size) > h.bodySize {
			size = int(h.bodySize)
		}
		buf := make([]byte, size)
		if _, err := m.f.ReadAt(buf, h.bodyOffset); err != nil {
			return false, err
		}
		body = buf
		return false, nil
	})
	if err != nil {
		return nil, gpmf.WrapError(gpmf.KindInvalidFileType, "walk for mdat", err).WithPath(m.path)
	}
	if body == nil {
		return nil, gpmf.NewError(gpmf.KindNoData, "no mdat box").WithPath(m.path)
	}
	return body, nil
}

// ReadSample reads one sample's raw bytes given its SampleOffset.
func (m *Mp4) ReadSample(s SampleOffset) ([]byte, error) {
	buf := make([]byte, s.Size)
	if _, err := m.f.ReadAt(buf, int64(s.Position)); err != nil {
		return nil, gpmf.WrapError(gpmf.KindIO, "read sample", err)
	}
	return buf, nil
}

// Tmcd reads the first sample of a timecode ("GoPro TCD") track and
// returns its raw frame count and the track's frames-per-second (derived
// from the timescale/sample-delta pair), so a caller can compute
// duration-since-midnight as rawFrame/fps.
func (m *Mp4) Tmcd(handlerName string) (rawFrame uint32, fps uint32, err error) {
	track, err := m.Track(handlerName)
	if err != nil {
		return 0, 0, err
	}
	if len(track.Samples) == 0 {
		return 0, 0, gpmf.NewError(gpmf.KindNoData, "tmcd track has no samples").WithPath(m.path)
	}
	first := track.Samples[0]
	buf := make([]byte, first.Size)
	if _, err := m.f.ReadAt(buf, int64(first.Position)); err != nil {
		return 0, 0, gpmf.WrapError(gpmf.KindIO, "read tmcd sample", err)
	}
	if len(buf) < 4 {
		return 0, 0, gpmf.NewError(gpmf.KindInvalidFileType, "tmcd sample too short").WithPath(m.path)
	}
	rawFrame = binary.BigEndian.Uint32(buf[:4])
	if first.Duration != 0 {
		fps = track.Timescale / first.Duration
	}
	return rawFrame, fps, nil
}
