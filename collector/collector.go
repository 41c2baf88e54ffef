// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package collector implements the entropy collector lifecycle and
// adaptive scheduler: an open set of named background tasks, each
// posting events into an event.Source, run on a shared schedule whose
// period stretches or shrinks with how much of the accumulator's
// supplied entropy is actually being consumed.
package collector

import (
	"log"
	"sync"
	"time"

	"github.com/sixafter/csprng/fortuna"
)

// Logger is the minimal ambient logging surface collector log-and-skip
// paths write through. log.Default() satisfies it; tests typically pass
// a no-op.
type Logger interface {
	Printf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

var _ Logger = log.Default()

// Collector is the common lifecycle: init, then repeated run(period)
// calls, then stop.
type Collector interface {
	// Init prepares the collector. Called once before the first Run.
	Init() error

	// Run performs one collection pass. Called repeatedly by Scheduler
	// at its adaptive period; must return promptly.
	Run(period time.Duration)

	// Stop permanently deregisters the collector. In-flight Run calls
	// are allowed to complete.
	Stop()
}

// Scheduler tuning constants.
const (
	MinRatio = 0.25
	MaxRatio = 4.0
)

// Scheduler runs a set of Collectors on independent timers, adapting
// each collector's delay between MinRatio*baseDelay and
// MaxRatio*baseDelay based on the accumulator's fulfillment ratio
// (used/provided over the prior period).
type Scheduler struct {
	acc          *fortuna.Fortuna
	baseDelay    time.Duration
	allowSuspend bool
	logger       Logger

	mu         sync.Mutex
	collectors map[string]*scheduled
}

type scheduled struct {
	c      Collector
	stop   chan struct{}
	wg     sync.WaitGroup
	active bool
}

// NewScheduler constructs a Scheduler. acc supplies the fulfillment
// ratio the adaptive delay is steered by.
func NewScheduler(acc *fortuna.Fortuna, baseDelay time.Duration, allowSuspend bool) *Scheduler {
	return &Scheduler{
		acc:          acc,
		baseDelay:    baseDelay,
		allowSuspend: allowSuspend,
		logger:       noopLogger{},
		collectors:   make(map[string]*scheduled),
	}
}

// SetLogger overrides the default no-op Logger. Pass log.Default() (or
// any compatible logger) to surface the log-and-skip events below.
func (s *Scheduler) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// Register adds c under name and starts its schedule loop. If Init
// fails, the collector is never started: the failure is logged and
// skipped rather than treated as fatal.
func (s *Scheduler) Register(name string, c Collector) error {
	if err := c.Init(); err != nil {
		s.logger.Printf("collector: %q failed to init, skipping: %v", name, err)
		return err
	}

	sc := &scheduled{c: c, stop: make(chan struct{}), active: true}
	s.mu.Lock()
	s.collectors[name] = sc
	s.mu.Unlock()

	sc.wg.Add(1)
	go s.loop(sc)
	return nil
}

// Unregister stops and permanently removes the named collector. The
// in-flight Run call, if any, is allowed to finish.
func (s *Scheduler) Unregister(name string) {
	s.mu.Lock()
	sc, ok := s.collectors[name]
	delete(s.collectors, name)
	s.mu.Unlock()
	if !ok {
		return
	}
	close(sc.stop)
	sc.wg.Wait()
	sc.c.Stop()
}

func (s *Scheduler) loop(sc *scheduled) {
	defer sc.wg.Done()
	delay := s.baseDelay
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-sc.stop:
			return
		case <-timer.C:
			fr := s.acc.Fulfillment()
			if s.allowSuspend && fr.Used == 0 {
				timer.Reset(delay)
				continue
			}
			sc.c.Run(delay)
			delay = s.nextDelay(fr)
			timer.Reset(delay)
		}
	}
}

// nextDelay steers the per-collector period between MinRatio*baseDelay
// and MaxRatio*baseDelay using the fulfillment ratio used/provided.
func (s *Scheduler) nextDelay(fr fortuna.Fulfillment) time.Duration {
	if fr.Provided == 0 {
		return s.baseDelay
	}
	ratio := float64(fr.Used) / float64(fr.Provided)
	switch {
	case ratio < MinRatio:
		return time.Duration(float64(s.baseDelay) * MinRatio)
	case ratio > MaxRatio:
		return time.Duration(float64(s.baseDelay) * MaxRatio)
	default:
		return time.Duration(float64(s.baseDelay) * ratio)
	}
}
