package stats

import (
	"sync"
	"time"
)

const (
	DefaultInterval = time.Second
	DefaultMaxFPS   = 120.0
)

// Report is one emission of the inference rate
type Report struct {
	FPS     float64       `json:"fps"`
	Max     float64       `json:"max"`
	Samples int           `json:"samples"`
	Mean    time.Duration `json:"mean_inference_ns"`
	At      time.Time     `json:"at"`
}

// Reporter receives every emitted report
type Reporter interface {
	Report(r Report)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(r Report)

func (f ReporterFunc) Report(r Report) { f(r) }

// MultiReporter fans a report out to several reporters
type MultiReporter []Reporter

func (m MultiReporter) Report(r Report) {
	for _, rep := range m {
		if rep != nil {
			rep.Report(r)
		}
	}
}

// Tracker accumulates inference durations and turns them into a rate
// on a fixed wall-clock cadence. Only time spent inside inference is
// counted, so the rate reflects the model and not the display.
type Tracker struct {
	mu         sync.Mutex
	interval   time.Duration
	maxFPS     float64
	sum        time.Duration
	count      int
	lastReport time.Time
	last       *Report
}

// NewTracker creates a tracker; zero values fall back to the defaults
func NewTracker(interval time.Duration, maxFPS float64) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxFPS <= 0 {
		maxFPS = DefaultMaxFPS
	}
	return &Tracker{
		interval: interval,
		maxFPS:   maxFPS,
	}
}

// Record adds one inference duration
func (t *Tracker) Record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum += d
	t.count++
}

// MaybeReport emits a report when at least one interval has elapsed since
// the previous one and samples exist. Emitting resets the accumulator.
func (t *Tracker) MaybeReport(now time.Time) (Report, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastReport) < t.interval {
		return Report{}, false
	}
	if t.count == 0 {
		return Report{}, false
	}

	mean := t.sum / time.Duration(t.count)
	fps := t.maxFPS
	if t.sum > 0 {
		meanMs := float64(t.sum) / float64(t.count) / float64(time.Millisecond)
		fps = min(1000.0/meanMs, t.maxFPS)
	}

	r := Report{
		FPS:     fps,
		Max:     t.maxFPS,
		Samples: t.count,
		Mean:    mean,
		At:      now,
	}

	t.sum = 0
	t.count = 0
	t.lastReport = now
	t.last = &r
	return r, true
}

// Last returns the most recent report
func (t *Tracker) Last() (Report, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Report{}, false
	}
	return *t.last, true
}

// Pending returns the samples accumulated since the last report
func (t *Tracker) Pending() (time.Duration, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sum, t.count
}
