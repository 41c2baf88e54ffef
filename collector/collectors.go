// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package collector

import (
	"runtime"
	"time"

	"github.com/sixafter/csprng/event"
)

// SchedulingJitter posts the delta between the scheduler's intended wake
// time and the actual wake time — a value driven by OS scheduling noise
// the caller cannot predict.
type SchedulingJitter struct {
	source *event.Source
	last   time.Time
}

// NewSchedulingJitter constructs a collector over src.
func NewSchedulingJitter(src *event.Source) *SchedulingJitter {
	return &SchedulingJitter{source: src}
}

func (c *SchedulingJitter) Init() error {
	c.last = time.Now()
	return nil
}

func (c *SchedulingJitter) Run(period time.Duration) {
	now := time.Now()
	jitter := now.Sub(c.last) - period
	c.last = now
	c.source.SetEvent(int64(jitter))
}

func (c *SchedulingJitter) Stop() {}

// MemStats posts runtime.MemStats counters that drift with allocator and
// GC activity (heap bytes in use, GC pause count) as entropy events.
type MemStats struct {
	source *event.Source
}

// NewMemStats constructs a collector over src.
func NewMemStats(src *event.Source) *MemStats { return &MemStats{source: src} }

func (c *MemStats) Init() error { return nil }

func (c *MemStats) Run(time.Duration) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.source.SetEvent(m.HeapAlloc ^ uint64(m.NumGC)<<32)
}

func (c *MemStats) Stop() {}

// GoroutineCount posts the current goroutine count, which jitters under
// concurrent load independent of this collector's own behavior.
type GoroutineCount struct {
	source *event.Source
}

// NewGoroutineCount constructs a collector over src.
func NewGoroutineCount(src *event.Source) *GoroutineCount {
	return &GoroutineCount{source: src}
}

func (c *GoroutineCount) Init() error { return nil }

func (c *GoroutineCount) Run(time.Duration) {
	c.source.SetEvent(int64(runtime.NumGoroutine()))
}

func (c *GoroutineCount) Stop() {}

// SystemPRNGSource is the subset of *sysprng.Multiplexer SystemCrossFeed
// needs. Satisfied structurally.
type SystemPRNGSource interface {
	GetSeed(n int) []byte
}

// SystemCrossFeed folds bytes drawn from the System PRNG aggregate back
// into the accumulator, one half of the DRBG/accumulator
// cross-pollination path.
type SystemCrossFeed struct {
	source *event.Source
	sys    SystemPRNGSource
}

// NewSystemCrossFeed constructs a collector bridging sys into src.
func NewSystemCrossFeed(src *event.Source, sys SystemPRNGSource) *SystemCrossFeed {
	return &SystemCrossFeed{source: src, sys: sys}
}

func (c *SystemCrossFeed) Init() error { return nil }

func (c *SystemCrossFeed) Run(time.Duration) {
	c.source.Post(c.sys.GetSeed(16))
}

func (c *SystemCrossFeed) Stop() {}

// DRBGSource is the subset of drbg.DRBG DRBGCrossFeed needs.
type DRBGSource interface {
	NewSeed() ([]byte, error)
}

// DRBGCrossFeed folds SP800-90A DRBG output back into the accumulator,
// the other half of the cross-pollination path.
type DRBGCrossFeed struct {
	source *event.Source
	drbg   DRBGSource
}

// NewDRBGCrossFeed constructs a collector bridging d into src.
func NewDRBGCrossFeed(src *event.Source, d DRBGSource) *DRBGCrossFeed {
	return &DRBGCrossFeed{source: src, drbg: d}
}

func (c *DRBGCrossFeed) Init() error { return nil }

func (c *DRBGCrossFeed) Run(time.Duration) {
	b, err := c.drbg.NewSeed()
	if err != nil {
		return
	}
	c.source.Post(b)
}

func (c *DRBGCrossFeed) Stop() {}

// AudioCollector is a contract-only stub: the Go standard library
// exposes no cross-platform audio capture API, so there is no portable
// way to implement a real capture here. It satisfies Collector so a
// caller on a platform with suitable bindings can supply its own Run.
type AudioCollector struct {
	source *event.Source
	run    func() []byte
}

// NewAudioCollector constructs a stub collector. run, if non-nil, is
// expected to capture one audio buffer and return it for hashing into
// src; nil means "no capture available", and Run becomes a no-op.
func NewAudioCollector(src *event.Source, run func() []byte) *AudioCollector {
	return &AudioCollector{source: src, run: run}
}

func (c *AudioCollector) Init() error { return nil }

func (c *AudioCollector) Run(time.Duration) {
	if c.run == nil {
		return
	}
	c.source.Post(c.run())
}

func (c *AudioCollector) Stop() {}

// ScreenCaptureCollector is the graphics-buffer analogue of
// AudioCollector — contract-only for the same reason: no portable
// capture API exists in the standard library.
type ScreenCaptureCollector struct {
	source *event.Source
	run    func() []byte
}

// NewScreenCaptureCollector constructs a stub collector.
func NewScreenCaptureCollector(src *event.Source, run func() []byte) *ScreenCaptureCollector {
	return &ScreenCaptureCollector{source: src, run: run}
}

func (c *ScreenCaptureCollector) Init() error { return nil }

func (c *ScreenCaptureCollector) Run(time.Duration) {
	if c.run == nil {
		return
	}
	c.source.Post(c.run())
}

func (c *ScreenCaptureCollector) Stop() {}
