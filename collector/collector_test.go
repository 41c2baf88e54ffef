// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package collector

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sixafter/csprng/event"
	"github.com/sixafter/csprng/fortuna"
)

type countingCollector struct {
	runs int32
}

func (c *countingCollector) Init() error { return nil }
func (c *countingCollector) Run(time.Duration) {
	atomic.AddInt32(&c.runs, 1)
}
func (c *countingCollector) Stop() {}

func TestSchedulerRunsRegisteredCollector(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	acc := fortuna.New(fortuna.WithEntropySource(zeroReader{}))
	sched := NewScheduler(acc, 5*time.Millisecond, false)
	c := &countingCollector{}
	require.NoError(sched.Register("counting", c))

	require.Eventually(func() bool {
		return atomic.LoadInt32(&c.runs) >= 2
	}, time.Second, time.Millisecond)

	sched.Unregister("counting")
}

func TestSchedulerSuspendsWhenNothingConsumesEntropy(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	acc := fortuna.New(fortuna.WithEntropySource(zeroReader{}))
	sched := NewScheduler(acc, 5*time.Millisecond, true)
	c := &countingCollector{}
	require.NoError(sched.Register("counting", c))

	time.Sleep(40 * time.Millisecond)
	require.Zero(atomic.LoadInt32(&c.runs), "ALLOW_SUSPEND must skip Run while fulfillment shows no consumption")
	sched.Unregister("counting")
}

func TestNextDelayStaysWithinBounds(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	acc := fortuna.New(fortuna.WithEntropySource(zeroReader{}))
	sched := NewScheduler(acc, 100*time.Millisecond, false)

	require.Equal(sched.baseDelay, sched.nextDelay(fortuna.Fulfillment{Provided: 0, Used: 0}))

	starved := sched.nextDelay(fortuna.Fulfillment{Provided: 1000, Used: 1})
	require.Equal(time.Duration(float64(sched.baseDelay)*MinRatio), starved)

	saturated := sched.nextDelay(fortuna.Fulfillment{Provided: 1, Used: 1000})
	require.Equal(time.Duration(float64(sched.baseDelay)*MaxRatio), saturated)
}

func TestSchedulingJitterPostsEvent(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	acc := fortuna.New(fortuna.WithEntropySource(zeroReader{}))
	src := event.New(acc)
	c := NewSchedulingJitter(src)
	require.NoError(c.Init())
	c.Run(time.Millisecond)
}

func TestMemStatsPostsEvent(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	acc := fortuna.New(fortuna.WithEntropySource(zeroReader{}))
	src := event.New(acc)
	c := NewMemStats(src)
	require.NoError(c.Init())
	c.Run(time.Millisecond)
}

func TestGoroutineCountPostsEvent(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	acc := fortuna.New(fortuna.WithEntropySource(zeroReader{}))
	src := event.New(acc)
	c := NewGoroutineCount(src)
	require.NoError(c.Init())
	c.Run(time.Millisecond)
}

type fixedSystemPRNG struct{ b []byte }

func (f fixedSystemPRNG) GetSeed(n int) []byte {
	out := make([]byte, n)
	copy(out, f.b)
	return out
}

func TestSystemCrossFeedPostsSystemBytes(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	acc := fortuna.New(fortuna.WithEntropySource(zeroReader{}))
	src := event.New(acc)
	c := NewSystemCrossFeed(src, fixedSystemPRNG{b: []byte("0123456789abcdef")})
	require.NoError(c.Init())
	c.Run(time.Millisecond)
}

type fixedDRBG struct{ b []byte }

func (f fixedDRBG) NewSeed() ([]byte, error) { return f.b, nil }

func TestDRBGCrossFeedPostsDRBGBytes(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	acc := fortuna.New(fortuna.WithEntropySource(zeroReader{}))
	src := event.New(acc)
	c := NewDRBGCrossFeed(src, fixedDRBG{b: []byte("seedseedseedseed")})
	require.NoError(c.Init())
	c.Run(time.Millisecond)
}

func TestStubCollectorsAreNoOpWithoutCapture(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	acc := fortuna.New(fortuna.WithEntropySource(zeroReader{}))
	src := event.New(acc)

	audio := NewAudioCollector(src, nil)
	require.NoError(audio.Init())
	audio.Run(time.Millisecond)
	audio.Stop()

	screen := NewScreenCaptureCollector(src, func() []byte { return []byte("frame") })
	require.NoError(screen.Init())
	screen.Run(time.Millisecond)
	screen.Stop()
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
