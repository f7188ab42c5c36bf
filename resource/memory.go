package resource

import (
	"fmt"
	"sync"
)

// MemoryStats contains registry memory usage statistics.
type MemoryStats struct {
	// BudgetBytes is the total budget, 0 when unlimited.
	BudgetBytes uint64

	// UsedBytes is the memory held by live backings.
	UsedBytes uint64

	// PeakBytes is the largest UsedBytes seen.
	PeakBytes uint64

	// ResourceCount is the number of live resources.
	ResourceCount int

	// Utilization is UsedBytes/BudgetBytes, or 0 when unlimited.
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	if s.BudgetBytes == 0 {
		return fmt.Sprintf("Memory[%d KB used, %d KB peak, %d resources]",
			s.UsedBytes/1024, s.PeakBytes/1024, s.ResourceCount)
	}
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d KB, %d resources]",
		s.Utilization*100, s.UsedBytes/1024, s.BudgetBytes/1024, s.ResourceCount)
}

// memoryBudget accounts backing memory against an optional budget.
type memoryBudget struct {
	mu     sync.Mutex
	budget uint64
	used   uint64
	peak   uint64
	count  int
}

// reserve claims n bytes or fails with ErrOutOfMemory.
func (m *memoryBudget) reserve(n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.budget > 0 && m.used+n > m.budget {
		return fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrOutOfMemory, n, m.budget-m.used)
	}
	m.used += n
	m.count++
	m.peak = max(m.peak, m.used)
	return nil
}

func (m *memoryBudget) release(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used -= min(n, m.used)
	m.count--
}

func (m *memoryBudget) stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var utilization float64
	if m.budget > 0 {
		utilization = float64(m.used) / float64(m.budget)
	}
	return MemoryStats{
		BudgetBytes:   m.budget,
		UsedBytes:     m.used,
		PeakBytes:     m.peak,
		ResourceCount: m.count,
		Utilization:   utilization,
	}
}
