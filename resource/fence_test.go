package resource

import (
	"testing"

	"github.com/gogpu/compositor/gpucore"
)

func TestFenceStateTransitions(t *testing.T) {
	var s FenceState
	if s.Kind != NoFence {
		t.Fatalf("zero state = %v", s)
	}
	s = s.Add(3)
	if s != (FenceState{Kind: PendingFence, New: 3}) {
		t.Errorf("Add(3) = %v", s)
	}
	s = s.Add(4)
	if s != (FenceState{Kind: Superseded, Old: 3, New: 4}) {
		t.Errorf("Add(4) = %v", s)
	}
	s = s.Add(6)
	if s != (FenceState{Kind: Superseded, Old: 3, New: 6}) {
		t.Errorf("Add(6) = %v", s)
	}
	s = s.Retire([]gpucore.SyncToken{4, 6})
	if s != (FenceState{Kind: Superseded, Old: 4, New: 6}) {
		t.Errorf("Retire(4, 6) = %v", s)
	}
	s = s.Retire([]gpucore.SyncToken{6})
	if s != (FenceState{Kind: PendingFence, New: 6}) {
		t.Errorf("Retire(6) = %v", s)
	}
	s = s.Retire(nil)
	if s.Kind != NoFence {
		t.Errorf("Retire() = %v", s)
	}
}

func TestFenceStateString(t *testing.T) {
	tests := []struct {
		s    FenceState
		want string
	}{
		{FenceState{}, "NoFence"},
		{FenceState{Kind: PendingFence, New: 2}, "PendingFence(2)"},
		{FenceState{Kind: Superseded, Old: 1, New: 2}, "Superseded(1, 2)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
