package resource

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor/gpucore"
)

// DefaultFencePollInterval is used when NewFenceWatcher gets no interval.
const DefaultFencePollInterval = 2 * time.Millisecond

// FenceSource reports how far the GPU has progressed. Tokens from one
// source are monotonic, so passing a token passes every smaller one.
type FenceSource interface {
	Completed() gpucore.SyncToken
}

// FenceWatcher polls a fence source in the background and signals the
// completed tokens to a registry.
type FenceWatcher struct {
	fences   FenceSource
	reg      *Registry
	interval time.Duration

	target atomic.Uint64
	wake   chan struct{}
}

// NewFenceWatcher creates a watcher that polls every interval while a
// watched token is outstanding.
func NewFenceWatcher(fences FenceSource, reg *Registry, interval time.Duration) *FenceWatcher {
	if interval <= 0 {
		interval = DefaultFencePollInterval
	}
	return &FenceWatcher{
		fences:   fences,
		reg:      reg,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Watch asks for token to be signalled once the GPU passes it. It never
// blocks.
func (w *FenceWatcher) Watch(token gpucore.SyncToken) {
	for {
		cur := w.target.Load()
		if uint64(token) <= cur || w.target.CompareAndSwap(cur, uint64(token)) {
			break
		}
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Poll signals the completed token to the registry and reports whether a
// watched token is still outstanding.
func (w *FenceWatcher) Poll() bool {
	done := w.fences.Completed()
	if done > w.reg.Signalled() {
		w.reg.SignalFence(done)
		slogger().Debug("resource: fence signalled", "token", done)
	}
	return uint64(done) < w.target.Load()
}

// Run polls until ctx is cancelled. It sleeps while no token is
// outstanding.
func (w *FenceWatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		timer := time.NewTimer(w.interval)
		defer timer.Stop()
		for {
			if !w.Poll() {
				select {
				case <-ctx.Done():
					return nil
				case <-w.wake:
					continue
				}
			}
			timer.Reset(w.interval)
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
			}
		}
	})
	return g.Wait()
}
