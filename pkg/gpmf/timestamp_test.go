package gpmf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimestampAdd(t *testing.T) {
	a := NewTimestamp(100, 50) // A's last sample: ends at 150
	b := NewTimestamp(10, 20)  // B's first sample, pre-shift

	got := b.Add(a)
	require.Equal(t, NewTimestamp(160, 20), got)
	require.Equal(t, a.End(), uint32(150))
}

func TestTimestampLess(t *testing.T) {
	require.True(t, NewTimestamp(1, 100).Less(NewTimestamp(2, 1)))
	require.False(t, NewTimestamp(5, 0).Less(NewTimestamp(5, 0)))
}
