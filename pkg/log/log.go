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

// Package log implements a small leveled event logger for batch GPMF
// decoding and session building, in the style of zerolog
// (https://github.com/rs/zerolog): a builder starts an Event at a level,
// attaches structured fields, and a terminal Msg/Msgf call sends it.
package log

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Level defines log level.
type Level uint8

// Logging constants, matching ffmpeg.
const (
	LevelError   Level = 16
	LevelWarning Level = 24
	LevelInfo    Level = 32
	LevelDebug   Level = 48
)

// UnixMillisecond is a timestamp since the Unix epoch. Despite the name,
// events store it in microseconds (UnixNano / 1000).
type UnixMillisecond uint64

// Event defines a log event under construction.
type Event struct {
	level Level
	time  UnixMillisecond
	src   string // Source component, e.g. "session", "mp4".
	clip  string // Path or name of the clip the event concerns, if any.
	kind  string // Error kind, when the event reports a decode/session error.

	logger *Logger
}

// Log defines a finished log entry.
type Log struct {
	Level Level
	Time  UnixMillisecond
	Msg   string
	Src   string
	Clip  string
	Kind  string
}

// Src sets the event's source component.
func (e *Event) Src(source string) *Event {
	e.src = source
	return e
}

// Clip sets the clip path or name the event concerns.
func (e *Event) Clip(path string) *Event {
	e.clip = path
	return e
}

// Kind attaches an error-kind field, for skipped/failed clips during a walk.
func (e *Event) Kind(kind string) *Event {
	e.kind = kind
	return e
}

// Time overrides the event time. Defaults to time of creation.
func (e *Event) Time(t time.Time) *Event {
	e.time = UnixMillisecond(t.UnixNano() / 1000)
	return e
}

// Msg sends the *Event with msg added as the message field.
func (e *Event) Msg(msg string) {
	entry := Log{
		Time:  e.time,
		Level: e.level,
		Msg:   msg,
		Src:   e.src,
		Clip:  e.clip,
		Kind:  e.kind,
	}
	e.logger.feed <- entry
}

// Msgf sends the event with a formatted msg added as the message field.
func (e *Event) Msgf(format string, v ...interface{}) {
	e.Msg(fmt.Sprintf(format, v...))
}

// Feed is a read-only feed of log entries.
type Feed <-chan Log
type logFeed chan Log

// Logger distributes log events to subscribers.
type Logger struct {
	feed  logFeed
	sub   chan logFeed
	unsub chan logFeed

	wg *sync.WaitGroup
}

// NewLogger returns a Logger. Call Start to begin distributing events.
func NewLogger(wg *sync.WaitGroup) *Logger {
	return &Logger{
		feed:  make(logFeed),
		sub:   make(chan logFeed),
		unsub: make(chan logFeed),
		wg:    wg,
	}
}

// NewMockLogger returns a Logger for tests that never send events: its
// distribution loop is not started, so nothing reads the feed and a Msg
// or Msgf call on it blocks.
func NewMockLogger() *Logger {
	return NewLogger(&sync.WaitGroup{})
}

// Start runs the distribution loop until ctx is canceled.
func (l *Logger) Start(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		subs := map[logFeed]struct{}{}
		for {
			select {
			case <-ctx.Done():
				return
			case ch := <-l.sub:
				subs[ch] = struct{}{}
			case ch := <-l.unsub:
				close(ch)
				delete(subs, ch)
			case msg := <-l.feed:
				for ch := range subs {
					ch <- msg
				}
			}
		}
	}()
}

// CancelFunc cancels a log feed subscription.
type CancelFunc func()

// Subscribe returns a new feed of log entries and a CancelFunc.
func (l *Logger) Subscribe() (<-chan Log, CancelFunc) {
	feed := make(logFeed)
	l.sub <- feed

	cancel := func() {
		l.unSubscribe(feed)
	}
	return feed, cancel
}

func (l *Logger) unSubscribe(feed logFeed) {
	for {
		select {
		case l.unsub <- feed:
			return
		case <-feed:
		}
	}
}

// LogToStdout prints the log feed to stdout until ctx is canceled.
func (l *Logger) LogToStdout(ctx context.Context) {
	feed, cancel := l.Subscribe()
	defer cancel()
	for {
		select {
		case entry := <-feed:
			printLog(entry)
		case <-ctx.Done():
			return
		}
	}
}

func printLog(entry Log) {
	var output string

	switch entry.Level {
	case LevelError:
		output += "[ERROR] "
	case LevelWarning:
		output += "[WARNING] "
	case LevelInfo:
		output += "[INFO] "
	case LevelDebug:
		output += "[DEBUG] "
	}

	if entry.Src != "" {
		output += strings.Title(entry.Src) + ": " //nolint:staticcheck
	}
	if entry.Clip != "" {
		output += entry.Clip + ": "
	}

	output += entry.Msg
	if entry.Kind != "" {
		output += fmt.Sprintf(" (%s)", entry.Kind)
	}
	fmt.Fprintln(os.Stdout, output)
}

// Error starts a new event with error level.
// You must call Msg or Msgf on the returned event to send it.
func (l *Logger) Error() *Event {
	return l.newEvent(LevelError)
}

// Warn starts a new event with warning level.
func (l *Logger) Warn() *Event {
	return l.newEvent(LevelWarning)
}

// Info starts a new event with info level.
func (l *Logger) Info() *Event {
	return l.newEvent(LevelInfo)
}

// Debug starts a new event with debug level.
func (l *Logger) Debug() *Event {
	return l.newEvent(LevelDebug)
}

func (l *Logger) newEvent(level Level) *Event {
	return &Event{
		level:  level,
		time:   UnixMillisecond(time.Now().UnixNano() / 1000),
		logger: l,
	}
}
