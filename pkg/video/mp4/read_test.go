package mp4

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"gopmf/pkg/gpmf"
)

func box(fourcc string, body []byte) []byte {
	out := make([]byte, 8+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(8+len(body)))
	copy(out[4:8], fourcc)
	copy(out[8:], body)
	return out
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func buildTestMp4(t *testing.T) string {
	t.Helper()

	mvhd := append([]byte{0, 0, 0, 0}, make([]byte, 8)...) // version+flags, creation+modified
	mvhd = append(mvhd, u32(600)...)                       // timescale
	mvhd = append(mvhd, u32(1200)...)                      // duration
	mvhd = append(mvhd, make([]byte, 80)...)

	tkhd := append([]byte{0, 0, 0, 0}, make([]byte, 16)...) // creation, modified, trackid, reserved0
	tkhd = append(tkhd, make([]byte, 4+8+2+2+2+2+36)...)    // duration, reserved1, layer..matrix
	tkhd = append(tkhd, u32(1920<<16)...)
	tkhd = append(tkhd, u32(1080<<16)...)

	mdhd := append([]byte{0, 0, 0, 0}, make([]byte, 8)...)
	mdhd = append(mdhd, u32(1000)...) // timescale
	mdhd = append(mdhd, make([]byte, 6)...)

	hdlrBody := append([]byte{0, 0, 0, 0}, make([]byte, 4)...) // fullbox + predefined
	hdlrBody = append(hdlrBody, []byte("meta")...)             // handler_type
	hdlrBody = append(hdlrBody, make([]byte, 12)...)           // reserved (3x4)
	hdlrBody = append(hdlrBody, []byte("GoPro MET")...)
	hdlrBody = append(hdlrBody, 0)

	stsd := append([]byte{0, 0, 0, 0}, u32(0)...)

	stts := append([]byte{0, 0, 0, 0}, u32(1)...)
	stts = append(stts, u32(2)...) // sample count
	stts = append(stts, u32(100)...)

	stsc := append([]byte{0, 0, 0, 0}, u32(1)...)
	stsc = append(stsc, u32(1)...)
	stsc = append(stsc, u32(2)...)
	stsc = append(stsc, u32(1)...)

	stsz := append([]byte{0, 0, 0, 0}, u32(0)...)
	stsz = append(stsz, u32(2)...)
	stsz = append(stsz, u32(4)...)
	stsz = append(stsz, u32(4)...)

	const dataOffset = 1000
	stco := append([]byte{0, 0, 0, 0}, u32(1)...)
	stco = append(stco, u32(dataOffset)...)

	stbl := append(box("stsd", stsd), box("stts", stts)...)
	stbl = append(stbl, box("stsc", stsc)...)
	stbl = append(stbl, box("stsz", stsz)...)
	stbl = append(stbl, box("stco", stco)...)

	minf := box("stbl", stbl)
	mdia := append(box("mdhd", mdhd), box("hdlr", hdlrBody)...)
	mdia = append(mdia, box("minf", minf)...)

	trak := append(box("tkhd", tkhd), box("mdia", mdia)...)

	firm := []byte("H24.01.01.50.00")
	muid := make([]byte, 32)
	binary.BigEndian.PutUint32(muid[0:4], 42)
	udta := append(box("FIRM", firm), box("MUID", muid)...)

	moovBody := append(box("mvhd", mvhd), box("trak", trak)...)
	moovBody = append(moovBody, box("udta", udta)...)

	ftyp := box("ftyp", []byte("isommp42"))
	moov := box("moov", moovBody)

	mdatPadding := make([]byte, dataOffset-len(ftyp)-len(moov)-8)
	mdat := box("mdat", append(mdatPadding, []byte{1, 2, 3, 4, 5, 6, 7, 8}...))

	f, err := os.CreateTemp(t.TempDir(), "test-*.mp4")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(ftyp)
	require.NoError(t, err)
	_, err = f.Write(moov)
	require.NoError(t, err)
	_, err = f.Write(mdat)
	require.NoError(t, err)

	return f.Name()
}

func TestOpenAndResolution(t *testing.T) {
	path := buildTestMp4(t)
	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	w, h := m.Resolution()
	require.Equal(t, 1920, w)
	require.Equal(t, 1080, h)

	_, duration := m.Time()
	require.Equal(t, float64(2), duration.Seconds())
}

func TestFindUserData(t *testing.T) {
	path := buildTestMp4(t)
	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	firm, err := m.FindUserData(gpmf.FIRM)
	require.NoError(t, err)
	require.Equal(t, "H24.01.01.50.00", string(firm))

	_, err = m.FindUserData(gpmf.GUMI)
	require.Error(t, err)
	require.ErrorIs(t, err, &gpmf.Error{Kind: gpmf.KindNoData})
}

func TestTrackSampleTable(t *testing.T) {
	path := buildTestMp4(t)
	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	track, err := m.Track("GoPro MET")
	require.NoError(t, err)
	require.Len(t, track.Samples, 2)
	require.Equal(t, uint32(4), track.Samples[0].Size)
	require.Equal(t, uint32(0), track.Samples[0].Relative)
	require.Equal(t, uint32(100), track.Samples[0].Duration)
	require.Equal(t, uint32(100), track.Samples[1].Relative)

	_, err = m.Track("GoPro TCD")
	require.Error(t, err)
	require.ErrorIs(t, err, &gpmf.Error{Kind: gpmf.KindNoSuchTrack})
}
