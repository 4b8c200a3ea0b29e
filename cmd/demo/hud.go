package main

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DebugOverlay collects status lines; the demo shows them in the
// window title and the log.
type DebugOverlay struct {
	lines []string
}

func (do *DebugOverlay) AddLine(format string, args ...interface{}) {
	do.lines = append(do.lines, fmt.Sprintf(format, args...))
}

func (do *DebugOverlay) Clear() {
	do.lines = do.lines[:0]
}

func (do *DebugOverlay) GetText() string {
	return strings.Join(do.lines, " | ")
}

// frameStats counts frames and reports the rate once per interval.
type frameStats struct {
	interval time.Duration
	frames   int
	total    int
	last     time.Time
	fps      float64
}

func newFrameStats(now time.Time) *frameStats {
	return &frameStats{interval: time.Second, last: now}
}

// Tick records a frame and reports whether a new rate is available.
func (s *frameStats) Tick(now time.Time) bool {
	s.frames++
	s.total++
	elapsed := now.Sub(s.last)
	if elapsed < s.interval {
		return false
	}
	s.fps = float64(s.frames) / elapsed.Seconds()
	s.frames = 0
	s.last = now
	return true
}

func (s *frameStats) Fields() log.Fields {
	return log.Fields{"fps": fmt.Sprintf("%.1f", s.fps), "frames": s.total}
}
