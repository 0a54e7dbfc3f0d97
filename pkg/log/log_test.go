// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package log

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (context.Context, func(), *Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := NewLogger(&sync.WaitGroup{})
	logger.Start(ctx)
	t.Cleanup(cancel)
	return ctx, cancel, logger
}

func TestLoggerEvent(t *testing.T) {
	t.Run("levelsAndFields", func(t *testing.T) {
		_, cancel, logger := newTestLogger(t)
		defer cancel()

		feed, cancelSub := logger.Subscribe()
		defer cancelSub()

		go logger.Error().Src("session").Clip("a.mp4").Kind("truncated").Msg("bad clip")

		got := <-feed
		require.Equal(t, LevelError, got.Level)
		require.Equal(t, "session", got.Src)
		require.Equal(t, "a.mp4", got.Clip)
		require.Equal(t, "truncated", got.Kind)
		require.Equal(t, "bad clip", got.Msg)
	})

	t.Run("msgf", func(t *testing.T) {
		_, cancel, logger := newTestLogger(t)
		defer cancel()

		feed, cancelSub := logger.Subscribe()
		defer cancelSub()

		go logger.Info().Msgf("decoded %d streams", 3)

		got := <-feed
		require.Equal(t, "decoded 3 streams", got.Msg)
	})

	t.Run("unsubBeforeMsg", func(t *testing.T) {
		_, cancel, logger := newTestLogger(t)
		defer cancel()

		feed1, cancel1 := logger.Subscribe()
		defer cancel1()
		feed2, cancel2 := logger.Subscribe()
		cancel2()

		go logger.Info().Msg("test")
		got := <-feed1
		require.Equal(t, "test", got.Msg)

		_, ok := <-feed2
		require.False(t, ok)
	})
}
