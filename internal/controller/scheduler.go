package controller

import "time"

// Scheduler produces poll ticks. The control loop handles one tick completely before it receives
// the next, so ticks never overlap.
type Scheduler interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// TickerScheduler is a Scheduler backed by time.Ticker.
type TickerScheduler struct {
	t *time.Ticker
}

// NewTickerScheduler returns a scheduler ticking every d.
func NewTickerScheduler(d time.Duration) *TickerScheduler {
	return &TickerScheduler{t: time.NewTicker(d)}
}

func (s *TickerScheduler) C() <-chan time.Time   { return s.t.C }
func (s *TickerScheduler) Reset(d time.Duration) { s.t.Reset(d) }
func (s *TickerScheduler) Stop()                 { s.t.Stop() }

// ManualScheduler ticks only when Tick is called. Tick blocks until the control loop takes it.
type ManualScheduler struct {
	ch chan time.Time
}

// NewManualScheduler returns a scheduler driven by Tick.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{ch: make(chan time.Time)}
}

func (s *ManualScheduler) C() <-chan time.Time { return s.ch }
func (s *ManualScheduler) Reset(time.Duration) {}
func (s *ManualScheduler) Stop()               {}

// Tick delivers one tick.
func (s *ManualScheduler) Tick() {
	s.ch <- time.Now()
}
