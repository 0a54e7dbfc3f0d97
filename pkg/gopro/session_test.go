package gopro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gopmf/pkg/fingerprint"
	"gopmf/pkg/gpmf"
)

func clipWithMUID(fp byte, muid [8]uint32, timeOfDay time.Duration, duration time.Duration) *Clip {
	return &Clip{
		Fingerprint: fingerprint.OfBytes([]byte{fp}),
		Device:      DeviceHero12Black,
		Duration:    duration,
		TimeOfDay:   timeOfDay,
		Meta:        GoProMeta{HasMUID: true, MUID: muid},
	}
}

func TestPartitionSessionsGroupsByMUID(t *testing.T) {
	muidA := [8]uint32{1, 1, 1, 1, 1, 1, 1, 1}
	muidB := [8]uint32{2, 2, 2, 2, 2, 2, 2, 2}

	clips := map[fingerprint.Digest]*Clip{}
	c1 := clipWithMUID(1, muidA, 2*time.Second, time.Second)
	c2 := clipWithMUID(2, muidA, time.Second, time.Second)
	c3 := clipWithMUID(3, muidB, 0, time.Second)
	clips[c1.Fingerprint] = c1
	clips[c2.Fingerprint] = c2
	clips[c3.Fingerprint] = c3

	sessions, err := partitionSessions(clips)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	for _, s := range sessions {
		if s.Key == muidA {
			require.Len(t, s.Clips, 2)
			require.True(t, s.Clips[0].TimeOfDay < s.Clips[1].TimeOfDay)
		} else {
			require.Len(t, s.Clips, 1)
		}
	}
}

func TestPartitionSessionsMissingKey(t *testing.T) {
	clips := map[fingerprint.Digest]*Clip{
		fingerprint.OfBytes([]byte{9}): {
			Fingerprint: fingerprint.OfBytes([]byte{9}),
			Device:      DeviceHero12Black,
		},
	}
	_, err := partitionSessions(clips)
	require.Error(t, err)
	require.ErrorIs(t, err, &gpmf.Error{Kind: gpmf.KindNoMuid})
}

func TestSessionDurationStartEnd(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := &Session{
		Clips: []*Clip{
			{Created: created, Duration: 5 * time.Second},
			{Duration: 3 * time.Second},
		},
	}
	require.Equal(t, 8*time.Second, s.Duration())
	require.Equal(t, created, s.Start())
	require.Equal(t, created.Add(8*time.Second), s.End())
}

func TestSessionSerialConsistent(t *testing.T) {
	s := &Session{Clips: []*Clip{
		{Meta: GoProMeta{Camera: "C123"}},
		{Meta: GoProMeta{Camera: "C123"}},
	}}
	serial, err := s.Serial()
	require.NoError(t, err)
	require.Equal(t, "C123", serial)
}

func TestSessionSerialInconsistent(t *testing.T) {
	s := &Session{Clips: []*Clip{
		{Meta: GoProMeta{Camera: "C123"}},
		{Meta: GoProMeta{Camera: "C999"}},
	}}
	_, err := s.Serial()
	require.Error(t, err)
	require.ErrorIs(t, err, &gpmf.Error{Kind: gpmf.KindInconsistentSerial})
}

func TestSessionSerialEmpty(t *testing.T) {
	s := &Session{}
	_, err := s.Serial()
	require.Error(t, err)
	require.ErrorIs(t, err, &gpmf.Error{Kind: gpmf.KindNoSession})
}

func TestLastTimestampPicksGreatestEnd(t *testing.T) {
	t1 := gpmf.NewTimestamp(0, 100)
	t2 := gpmf.NewTimestamp(50, 200)
	streams := []gpmf.Stream{
		{Time: &t1},
		{Time: &t2},
	}
	best := lastTimestamp(streams)
	require.NotNil(t, best)
	require.Equal(t, uint32(250), best.End())
}

func TestOffsetTimestampsAppliesToNested(t *testing.T) {
	leaf := gpmf.NewTimestamp(10, 5)
	top := gpmf.NewTimestamp(0, 50)
	strm := gpmf.Stream{
		Time:   &top,
		Nested: []gpmf.Stream{{Time: &leaf}},
	}
	carry := gpmf.NewTimestamp(1000, 0)
	offsetTimestamps(&strm, carry)

	require.Equal(t, uint32(1000), strm.Time.Relative)
	require.Equal(t, uint32(1010), strm.Nested[0].Time.Relative)
}

func TestKeyStringDistinguishesTuples(t *testing.T) {
	a := keyString([8]uint32{1, 2, 3, 4, 5, 6, 7, 8})
	b := keyString([8]uint32{1, 2, 3, 4, 5, 6, 7, 9})
	require.NotEqual(t, a, b)
	require.Equal(t, a, keyString([8]uint32{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestVideoExt(t *testing.T) {
	require.True(t, videoExt("GX010001.MP4"))
	require.True(t, videoExt("GX010001.lrv"))
	require.False(t, videoExt("GX010001.THM"))
}

func TestFilterByAnchorMatchesSession(t *testing.T) {
	muid := [8]uint32{1, 1, 1, 1, 1, 1, 1, 1}
	s1 := &Session{Device: DeviceHero12Black, Key: muid}
	s2 := &Session{Device: DeviceHero12Black, Key: [8]uint32{2, 2, 2, 2, 2, 2, 2, 2}}
	anchor := &Clip{Device: DeviceHero12Black, Meta: GoProMeta{HasMUID: true, MUID: muid}}

	result := filterByAnchor([]*Session{s1, s2}, anchor)
	require.Len(t, result, 1)
	require.Equal(t, s1, result[0])
}
