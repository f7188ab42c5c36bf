package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/gpucore"
)

// Poll delays used by HALFences.Wait. The delay doubles from the first to
// the second.
const (
	minWaitPoll = 100 * time.Microsecond
	maxWaitPoll = 10 * time.Millisecond
)

// HALFences issues sync tokens on one HAL queue. A token is the submission
// index of an empty submission. The GPU has passed it once the queue
// reports that index as completed.
type HALFences struct {
	queue hal.Queue

	mu        sync.Mutex
	destroyed bool
}

// NewHALFences issues tokens on queue.
func NewHALFences(queue hal.Queue) *HALFences {
	return &HALFences{queue: queue}
}

// Insert submits an empty batch behind all work submitted so far and
// returns its submission index as a token.
func (f *HALFences) Insert() (gpucore.SyncToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return gpucore.NoSyncToken, ErrContextLost
	}
	idx, err := f.queue.Submit(nil)
	if err != nil {
		return gpucore.NoSyncToken, fmt.Errorf("submit fence: %w", err)
	}
	return gpucore.SyncToken(idx), nil
}

// Completed returns the highest token the GPU has passed. It never blocks.
func (f *HALFences) Completed() gpucore.SyncToken {
	return gpucore.SyncToken(f.queue.PollCompleted())
}

// Wait blocks until the GPU has passed token or ctx is done.
func (f *HALFences) Wait(ctx context.Context, token gpucore.SyncToken) error {
	delay := minWaitPoll
	for {
		f.mu.Lock()
		destroyed := f.destroyed
		f.mu.Unlock()
		if destroyed {
			return ErrContextLost
		}
		if f.Completed() >= token {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(2*delay, maxWaitPoll)
	}
}

// Destroy stops the source. Later calls to Insert and Wait fail with
// ErrContextLost.
func (f *HALFences) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
}
