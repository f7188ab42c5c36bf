package resource

import (
	"fmt"

	"github.com/gogpu/compositor/gpucore"
)

// FenceKind is the state of a resource's outstanding release fences.
type FenceKind uint8

// Fence kinds.
const (
	// NoFence means no fenced release is queued.
	NoFence FenceKind = iota

	// PendingFence means exactly one fenced release is queued.
	PendingFence

	// Superseded means a newer fence arrived while an older one was still
	// pending. The older one must retire first.
	Superseded
)

func (k FenceKind) String() string {
	switch k {
	case NoFence:
		return "NoFence"
	case PendingFence:
		return "PendingFence"
	case Superseded:
		return "Superseded"
	default:
		return fmt.Sprintf("FenceKind(%d)", k)
	}
}

// FenceState describes the fences a resource is waiting on. For
// PendingFence only New is set; for Superseded, Old is the oldest pending
// token and New the latest.
type FenceState struct {
	Kind FenceKind
	Old  gpucore.SyncToken
	New  gpucore.SyncToken
}

// Add returns the state after a release fenced by t is queued.
func (s FenceState) Add(t gpucore.SyncToken) FenceState {
	switch s.Kind {
	case NoFence:
		return FenceState{Kind: PendingFence, New: t}
	case PendingFence:
		return FenceState{Kind: Superseded, Old: s.New, New: t}
	default:
		return FenceState{Kind: Superseded, Old: s.Old, New: t}
	}
}

// Retire returns the state after the oldest fence retired, given the
// fence tokens still queued in FIFO order.
func (s FenceState) Retire(remaining []gpucore.SyncToken) FenceState {
	switch len(remaining) {
	case 0:
		return FenceState{}
	case 1:
		return FenceState{Kind: PendingFence, New: remaining[0]}
	default:
		return FenceState{Kind: Superseded, Old: remaining[0], New: remaining[len(remaining)-1]}
	}
}

func (s FenceState) String() string {
	switch s.Kind {
	case PendingFence:
		return fmt.Sprintf("PendingFence(%d)", s.New)
	case Superseded:
		return fmt.Sprintf("Superseded(%d, %d)", s.Old, s.New)
	default:
		return s.Kind.String()
	}
}
