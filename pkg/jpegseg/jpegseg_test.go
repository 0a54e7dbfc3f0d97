package jpegseg

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func marker(m uint16, payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint16(out[0:2], m)
	binary.BigEndian.PutUint16(out[2:4], uint16(2+len(payload)))
	copy(out[4:], payload)
	return out
}

func TestFindAPP6(t *testing.T) {
	gpmfPayload := []byte{1, 2, 3, 4}
	app6 := append(append([]byte{}, goProPrefix...), gpmfPayload...)

	var data []byte
	data = append(data, 0xFF, 0xD8) // SOI
	data = append(data, marker(markerAPP6, app6)...)
	data = append(data, 0xFF, 0xD9) // EOI

	got, err := Find(data)
	require.NoError(t, err)
	require.Equal(t, gpmfPayload, got)
}

func TestFindNoSegment(t *testing.T) {
	var data []byte
	data = append(data, 0xFF, 0xD8)
	data = append(data, marker(0xFFE1, []byte("exif-ish"))...)
	data = append(data, 0xFF, 0xD9)

	_, err := Find(data)
	require.Error(t, err)
}

func TestFindRejectsNonJPEG(t *testing.T) {
	_, err := Find([]byte{0, 0, 0, 0})
	require.Error(t, err)
}
